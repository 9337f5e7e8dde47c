package fiscal_test

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures: tablas 2024 publicadas (IRRF a partir de 02/2024, INSS 2024).
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func bracket(lower, upper, rate, deduction string) entity.FiscalBracket {
	b := entity.FiscalBracket{LowerBound: dec(lower), Rate: dec(rate), Deduction: dec(deduction)}
	if upper != "" {
		b.UpperBound = decPtr(upper)
	}
	return b
}

func irrf2024() *entity.FiscalBracketTable {
	return &entity.FiscalBracketTable{
		ID:                 "irrf-2024",
		Kind:               entity.TaxKindIRRF,
		ValidFrom:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		DependentDeduction: dec("189.59"),
		Brackets: []entity.FiscalBracket{
			bracket("0", "2259.20", "0", "0"),
			bracket("2259.21", "2826.65", "0.075", "169.44"),
			bracket("2826.66", "3751.05", "0.15", "381.44"),
			bracket("3751.06", "4664.68", "0.225", "662.77"),
			bracket("4664.69", "", "0.275", "896.00"),
		},
	}
}

func inssProLabore2024(ceiling string) *entity.FiscalBracketTable {
	t := &entity.FiscalBracketTable{
		ID:              "inss-pl-2024",
		Kind:            entity.TaxKindINSS,
		ContributorKind: entity.ContributorProLabore,
		ValidFrom:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Brackets:        []entity.FiscalBracket{bracket("0", "7786.02", "0.11", "0")},
	}
	if ceiling != "" {
		t.ContributionCeiling = decPtr(ceiling)
	}
	return t
}

func inssEmployee2024(ceiling string) *entity.FiscalBracketTable {
	t := &entity.FiscalBracketTable{
		ID:              "inss-emp-2024",
		Kind:            entity.TaxKindINSS,
		ContributorKind: entity.ContributorEmployee,
		ValidFrom:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Brackets: []entity.FiscalBracket{
			bracket("0", "1412.00", "0.075", "0"),
			bracket("1412.01", "2666.68", "0.09", "21.18"),
			bracket("2666.69", "4000.03", "0.12", "101.18"),
			bracket("4000.04", "7786.02", "0.14", "181.18"),
		},
	}
	if ceiling != "" {
		t.ContributionCeiling = decPtr(ceiling)
	}
	return t
}

// contiguous faixas que comparten límites exactos.
func contiguous() []entity.FiscalBracket {
	return []entity.FiscalBracket{
		bracket("0", "1000", "0", "0"),
		bracket("1000", "2000", "0.10", "100"),
		bracket("2000", "", "0.20", "300"),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolve
// ──────────────────────────────────────────────────────────────────────────────

func TestResolve_LimiteCompartidoCaeEnFaixaInferior(t *testing.T) {
	cases := []struct {
		base  string
		index int
	}{
		{"0", 0},
		{"999.99", 0},
		{"1000", 0},
		{"1000.01", 1},
		{"2000", 1},
		{"2000.01", 2},
		{"1000000", 2},
	}
	for _, tc := range cases {
		t.Run(tc.base, func(t *testing.T) {
			m := fiscal.Resolve(contiguous(), dec(tc.base))
			require.True(t, m.Found)
			assert.Equal(t, tc.index, m.Index)
		})
	}
}

func TestResolve_TablaPublicadaConCentavos(t *testing.T) {
	brackets := irrf2024().Brackets

	assert.Equal(t, 0, fiscal.Resolve(brackets, dec("2259.20")).Index)
	assert.Equal(t, 1, fiscal.Resolve(brackets, dec("2259.21")).Index)
	assert.Equal(t, 1, fiscal.Resolve(brackets, dec("2826.65")).Index)
	assert.Equal(t, 2, fiscal.Resolve(brackets, dec("2826.66")).Index)
	// hueco sub-centavo: siguiente faixa
	assert.Equal(t, 2, fiscal.Resolve(brackets, dec("2826.655")).Index)
	assert.Equal(t, 4, fiscal.Resolve(brackets, dec("9122.76")).Index)
}

func TestResolve_SinFaixa(t *testing.T) {
	m := fiscal.Resolve(nil, dec("100"))
	assert.False(t, m.Found)
	assert.Equal(t, decimal.Zero, fiscal.Apply(m, dec("100")))

	m = fiscal.Resolve([]entity.FiscalBracket{bracket("500", "", "0.1", "0")}, dec("100"))
	assert.False(t, m.Found)
}

func TestResolve_EncimaDelUltimoTetoCerrado(t *testing.T) {
	m := fiscal.Resolve(inssEmployee2024("").Brackets, dec("12000"))
	require.True(t, m.Found)
	assert.Equal(t, 3, m.Index)
	assert.True(t, dec("0.14").Equal(m.Rate))
	assert.True(t, m.AboveTop)

	inside := fiscal.Resolve(inssEmployee2024("").Brackets, dec("7786.02"))
	assert.False(t, inside.AboveTop)
	open := fiscal.Resolve(irrf2024().Brackets, dec("100000"))
	assert.False(t, open.AboveTop)
}

// El impuesto en centavos nunca disminuye al aumentar la base: barrido grueso más la vecindad
// de cada límite (límite, límite ± 0,01 y el hueco sub-centavo entre faixas publicadas).
func TestResolve_MonotonicidadDelImpuesto(t *testing.T) {
	cases := []struct {
		name  string
		table *entity.FiscalBracketTable
	}{
		{"irrf 2024", irrf2024()},
		{"inss empleado 2024", inssEmployee2024("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bases := []decimal.Decimal{}
			for b := dec("0"); b.LessThanOrEqual(dec("9000")); b = b.Add(dec("0.50")) {
				bases = append(bases, b)
			}
			step := dec("0.005")
			for _, br := range tc.table.Brackets {
				points := []decimal.Decimal{br.LowerBound}
				if !br.IsOpen() {
					points = append(points, *br.UpperBound)
				}
				for _, p := range points {
					for k := int64(-4); k <= 4; k++ {
						if b := p.Add(step.Mul(decimal.NewFromInt(k))); !b.IsNegative() {
							bases = append(bases, b)
						}
					}
				}
			}
			sort.Slice(bases, func(i, j int) bool { return bases[i].LessThan(bases[j]) })

			prevBase, prevTax := dec("0"), dec("0")
			for _, b := range bases {
				tax := fiscal.Round2(fiscal.Apply(fiscal.Resolve(tc.table.Brackets, b), b))
				require.Truef(t, tax.GreaterThanOrEqual(prevTax),
					"impuesto decrece: base %s => %s, base %s => %s", prevBase, prevTax, b, tax)
				prevBase, prevTax = b, tax
			}
		})
	}
}

func TestApply_NuncaNegativo(t *testing.T) {
	m := fiscal.Resolve(irrf2024().Brackets, dec("2259.21"))
	require.True(t, m.Found)
	got := fiscal.Apply(m, dec("2259.21"))
	assert.False(t, got.IsNegative())
	assert.True(t, fiscal.Round2(got).IsZero())

	forced := fiscal.BracketMatch{Found: true, Rate: dec("0.1"), Deduction: dec("1000")}
	assert.True(t, fiscal.Apply(forced, dec("10")).IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// ValidateBrackets
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateBrackets(t *testing.T) {
	cases := []struct {
		name     string
		brackets []entity.FiscalBracket
		wantErr  bool
	}{
		{"irrf 2024", irrf2024().Brackets, false},
		{"contiguas", contiguous(), false},
		{"vacía", nil, true},
		{"superpuestas", []entity.FiscalBracket{bracket("0", "1000", "0", "0"), bracket("900", "", "0.1", "0")}, true},
		{"hueco", []entity.FiscalBracket{bracket("0", "1000", "0", "0"), bracket("1000.50", "2000", "0.1", "0")}, true},
		{"abierta no última", []entity.FiscalBracket{bracket("0", "", "0", "0"), bracket("1000", "2000", "0.1", "0")}, true},
		{"teto menor que piso", []entity.FiscalBracket{bracket("100", "50", "0", "0")}, true},
		{"alícuota negativa", []entity.FiscalBracket{bracket("0", "", "-0.1", "0")}, true},
		{"última abierta con hueco", []entity.FiscalBracket{bracket("0", "1000", "0", "0"), bracket("1500", "", "0.1", "0")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fiscal.ValidateBrackets("t1", tc.brackets)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidTable)
			var ite *domain.InvalidTableError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, "t1", ite.TableID)
		})
	}
}

func TestResolveValidated_PropagaError(t *testing.T) {
	_, err := fiscal.ResolveValidated(&entity.FiscalBracketTable{ID: "x"}, dec("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidTable)

	m, err := fiscal.ResolveValidated(irrf2024(), dec("3000"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Index)
}

func TestNormalizeRate(t *testing.T) {
	assert.True(t, dec("0.275").Equal(fiscal.NormalizeRate(dec("27.5"))))
	assert.True(t, dec("0.11").Equal(fiscal.NormalizeRate(dec("0.11"))))
	assert.True(t, dec("1").Equal(fiscal.NormalizeRate(dec("1"))))
}
