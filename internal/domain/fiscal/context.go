package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// Orígenes posibles del teto INSS.
const (
	CeilingFromProLaboreTable = "pro_labore_table"
	CeilingFromEmployeeTable  = "employee_table"
	CeilingFromMaxBracket     = "max_bracket_upper_bound"
)

// EffectiveTables tablas vigentes para una competencia, ya validadas, con el teto resuelto.
type EffectiveTables struct {
	Competence         entity.Competence
	INSSProLabore      *entity.FiscalBracketTable
	INSSEmployee       *entity.FiscalBracketTable // opcional, solo para fallback del teto
	IRRF               *entity.FiscalBracketTable
	INSSCeiling        decimal.Decimal
	CeilingSource      string
	DependentDeduction decimal.Decimal
}

// NewEffectiveTables valida las tablas elegidas y resuelve el teto:
// teto de la tabla pro-labore, luego el de la tabla de empleados y por último el mayor
// teto de faixa (empleados primero).
func NewEffectiveTables(c entity.Competence, proLabore, employee, irrf *entity.FiscalBracketTable) (EffectiveTables, error) {
	if proLabore == nil {
		return EffectiveTables{}, &domain.MissingFiscalTableError{Competence: c.String(), Missing: "inss pro_labore"}
	}
	if irrf == nil {
		return EffectiveTables{}, &domain.MissingFiscalTableError{Competence: c.String(), Missing: "irrf"}
	}
	if err := ValidateBrackets(irrf.ID, irrf.Brackets); err != nil {
		return EffectiveTables{}, err
	}

	t := EffectiveTables{
		Competence:         c,
		INSSProLabore:      proLabore,
		INSSEmployee:       employee,
		IRRF:               irrf,
		DependentDeduction: irrf.DependentDeduction,
	}

	switch {
	case proLabore.HasCeiling():
		t.INSSCeiling, t.CeilingSource = *proLabore.ContributionCeiling, CeilingFromProLaboreTable
	case employee != nil && employee.HasCeiling():
		t.INSSCeiling, t.CeilingSource = *employee.ContributionCeiling, CeilingFromEmployeeTable
	default:
		if employee != nil {
			if m, ok := employee.MaxUpperBound(); ok && m.IsPositive() {
				t.INSSCeiling, t.CeilingSource = m, CeilingFromMaxBracket
			}
		}
		if t.CeilingSource == "" {
			if m, ok := proLabore.MaxUpperBound(); ok && m.IsPositive() {
				t.INSSCeiling, t.CeilingSource = m, CeilingFromMaxBracket
			}
		}
	}
	if t.CeilingSource == "" {
		return EffectiveTables{}, &domain.MissingFiscalTableError{Competence: c.String(), Missing: "inss ceiling"}
	}
	return t, nil
}

// PriorCapacity lo ya retenido y la base ya tributada en la competencia por otras fuentes
// (vínculos externos y resultados consolidados de otras entidades).
type PriorCapacity struct {
	PriorINSSWithheld decimal.Decimal
	PriorIRRFBase     decimal.Decimal
	PriorIRRFWithheld decimal.Decimal
	ExternalLinkIDs   []string
	SiblingResultIDs  []string
}

// Add acumula otra capacidad (encadenar simulaciones de varias entidades).
func (p PriorCapacity) Add(o PriorCapacity) PriorCapacity {
	return PriorCapacity{
		PriorINSSWithheld: p.PriorINSSWithheld.Add(o.PriorINSSWithheld),
		PriorIRRFBase:     p.PriorIRRFBase.Add(o.PriorIRRFBase),
		PriorIRRFWithheld: p.PriorIRRFWithheld.Add(o.PriorIRRFWithheld),
		ExternalLinkIDs:   append(append([]string{}, p.ExternalLinkIDs...), o.ExternalLinkIDs...),
		SiblingResultIDs:  append(append([]string{}, p.SiblingResultIDs...), o.SiblingResultIDs...),
	}
}

// CalculationContext todo lo que el cálculo necesita, explícito. No hay estado ambiente.
type CalculationContext struct {
	Competence    entity.Competence
	Tables        EffectiveTables
	Prior         PriorCapacity
	Dependents    int
	ProLaboreRate decimal.Decimal
	// NonTaxableNet ajuste con signo de registros no tributables; solo afecta el líquido.
	NonTaxableNet decimal.Decimal
}
