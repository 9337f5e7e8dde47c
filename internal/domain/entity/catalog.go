package entity

// Professional médico/profesional del catálogo (solo lectura para el motor).
type Professional struct {
	ID         string
	Name       string
	CPF        string
	Dependents int // dependientes para IRRF
	Active     bool
}

// PayingEntity entidad pagadora (empresa) del catálogo.
type PayingEntity struct {
	ID     string
	Name   string
	CNPJ   string
	Active bool
}

// Contract contrato entre entidad pagadora y hospital; usado para rotular y filtrar.
type Contract struct {
	ID             string
	PayingEntityID string
	HospitalID     string
	Description    string
	Active         bool
}
