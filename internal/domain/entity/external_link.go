package entity

import "github.com/shopspring/decimal"

// ExternalFiscalLink rendimientos declarados por el profesional fuera del sistema
// (por ejemplo un vínculo CLT) para una ventana de competencias. Solo lectura.
type ExternalFiscalLink struct {
	ID              string
	ProfessionalID  string
	LinkType        string // CLT, PJ, autônomo...
	StartCompetence Competence
	EndCompetence   *Competence // nil = vigente
	BaseINSS        decimal.Decimal
	WithheldINSS    decimal.Decimal
	BaseIRRF        decimal.Decimal
	WithheldIRRF    decimal.Decimal
	Active          bool
}

// ActiveIn indica si el vínculo está activo y su ventana intersecta la competencia.
func (l ExternalFiscalLink) ActiveIn(c Competence) bool {
	if !l.Active {
		return false
	}
	if l.StartCompetence.After(c) {
		return false
	}
	return l.EndCompetence == nil || !l.EndCompetence.Before(c)
}
