package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxKind tipo de retención que describe una tabla.
type TaxKind string

const (
	TaxKindINSS TaxKind = "inss"
	TaxKindIRRF TaxKind = "irrf"
)

// ContributorKind tipo de contribuyente de una tabla INSS (vacío en tablas IRRF).
type ContributorKind string

const (
	ContributorEmployee  ContributorKind = "employee"
	ContributorProLabore ContributorKind = "pro_labore"
)

// FiscalBracket una faixa de la tabla progresiva.
// UpperBound nil (o cero) = faixa abierta (teto).
type FiscalBracket struct {
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal
	Rate       decimal.Decimal // fracción: 0.275 = 27,5%
	Deduction  decimal.Decimal // parcela a deduzir
}

// IsOpen indica si la faixa no tiene límite superior.
func (b FiscalBracket) IsOpen() bool {
	return b.UpperBound == nil || b.UpperBound.IsZero()
}

// FiscalBracketTable tabla publicada para una ventana de vigencia.
// Inmutable: una tabla nueva reemplaza a la anterior con otra vigencia, nunca se edita.
type FiscalBracketTable struct {
	ID                  string
	Kind                TaxKind
	ContributorKind     ContributorKind
	ValidFrom           time.Time
	ValidTo             *time.Time // nil = sin fin de vigencia
	ContributionCeiling *decimal.Decimal
	DependentDeduction  decimal.Decimal // solo IRRF: valor por dependiente
	Brackets            []FiscalBracket
	CreatedAt           time.Time
}

// Covers indica si la vigencia de la tabla contiene la fecha (inclusive en ambos extremos).
func (t FiscalBracketTable) Covers(d time.Time) bool {
	if d.Before(t.ValidFrom) {
		return false
	}
	return t.ValidTo == nil || !d.After(*t.ValidTo)
}

// HasCeiling indica si la tabla informa un teto de contribución positivo.
func (t FiscalBracketTable) HasCeiling() bool {
	return t.ContributionCeiling != nil && t.ContributionCeiling.GreaterThan(decimal.Zero)
}

// MaxUpperBound mayor límite superior cerrado de la tabla; false si no hay ninguno.
func (t FiscalBracketTable) MaxUpperBound() (decimal.Decimal, bool) {
	var max decimal.Decimal
	found := false
	for _, b := range t.Brackets {
		if b.IsOpen() {
			continue
		}
		if !found || b.UpperBound.GreaterThan(max) {
			max = *b.UpperBound
			found = true
		}
	}
	return max, found
}
