package fiscal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// gapTolerance diferencia máxima admitida entre el teto de una faixa y el piso de la siguiente
// (tablas publicadas en centavos: 2259,20 / 2259,21).
var gapTolerance = decimal.RequireFromString("0.01")

// BracketMatch faixa elegida para una base. Found=false => alícuota y parcela cero.
// AboveTop: la base supera el teto de la última faixa cerrada y se aplicó la faixa superior.
type BracketMatch struct {
	Index     int
	Rate      decimal.Decimal
	Deduction decimal.Decimal
	Found     bool
	AboveTop  bool
}

// Resolve elige la faixa aplicable a base. Las faixas deben venir en orden ascendente.
// Primera faixa con base >= piso y (abierta o base <= teto): cuando dos faixas comparten el límite,
// la base igual a ese límite queda en la faixa inferior.
func Resolve(brackets []entity.FiscalBracket, base decimal.Decimal) BracketMatch {
	if len(brackets) == 0 || base.LessThan(brackets[0].LowerBound) {
		return BracketMatch{Index: -1}
	}
	for i, b := range brackets {
		if base.LessThan(b.LowerBound) {
			// hueco sub-centavo entre faixas publicadas: corresponde a la siguiente
			return match(i, b)
		}
		if b.IsOpen() || base.LessThanOrEqual(*b.UpperBound) {
			return match(i, b)
		}
	}
	// por encima del último teto cerrado: faixa superior
	last := len(brackets) - 1
	m := match(last, brackets[last])
	m.AboveTop = true
	return m
}

func match(i int, b entity.FiscalBracket) BracketMatch {
	return BracketMatch{Index: i, Rate: b.Rate, Deduction: b.Deduction, Found: true}
}

// Apply base * alícuota - parcela a deduzir, nunca negativo.
func Apply(m BracketMatch, base decimal.Decimal) decimal.Decimal {
	if !m.Found {
		return decimal.Zero
	}
	v := base.Mul(m.Rate).Sub(m.Deduction)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// ValidateBrackets verifica que las faixas sean contiguas, ordenadas y sin superposición,
// y que solo la última sea abierta.
func ValidateBrackets(tableID string, brackets []entity.FiscalBracket) error {
	if len(brackets) == 0 {
		return &domain.InvalidTableError{TableID: tableID, Reason: "sin faixas"}
	}
	for i, b := range brackets {
		if b.LowerBound.IsNegative() {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixa %d: piso negativo", i+1)}
		}
		if b.Rate.IsNegative() || b.Deduction.IsNegative() {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixa %d: alícuota o parcela negativa", i+1)}
		}
		if b.IsOpen() {
			if i != len(brackets)-1 {
				return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixa %d: abierta y no es la última", i+1)}
			}
			continue
		}
		if b.UpperBound.LessThan(b.LowerBound) {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixa %d: teto menor que piso", i+1)}
		}
		if i == 0 {
			continue
		}
		prev := brackets[i-1]
		if b.LowerBound.LessThan(*prev.UpperBound) {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixas %d y %d superpuestas", i, i+1)}
		}
		if b.LowerBound.Sub(*prev.UpperBound).GreaterThan(gapTolerance) {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("hueco entre faixas %d y %d", i, i+1)}
		}
	}
	// la última abierta no se comparó con la anterior dentro del loop
	if n := len(brackets); n > 1 && brackets[n-1].IsOpen() {
		prev, last := brackets[n-2], brackets[n-1]
		if last.LowerBound.LessThan(*prev.UpperBound) {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("faixas %d y %d superpuestas", n-1, n)}
		}
		if last.LowerBound.Sub(*prev.UpperBound).GreaterThan(gapTolerance) {
			return &domain.InvalidTableError{TableID: tableID, Reason: fmt.Sprintf("hueco entre faixas %d y %d", n-1, n)}
		}
	}
	return nil
}

// ResolveValidated valida la tabla antes de resolver.
func ResolveValidated(t *entity.FiscalBracketTable, base decimal.Decimal) (BracketMatch, error) {
	if err := ValidateBrackets(t.ID, t.Brackets); err != nil {
		return BracketMatch{Index: -1}, err
	}
	return Resolve(t.Brackets, base), nil
}

// NormalizeRate acepta alícuotas cargadas como porcentaje (27.5) o fracción (0.275).
func NormalizeRate(r decimal.Decimal) decimal.Decimal {
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return r.Div(decimal.NewFromInt(100))
	}
	return r
}

// Round2 redondeo a centavos, mitad lejos de cero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
