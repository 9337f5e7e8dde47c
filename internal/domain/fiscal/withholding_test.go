package fiscal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
)

var competence = entity.MustCompetence(2024, 3)

func tables(t *testing.T, ceiling string) fiscal.EffectiveTables {
	t.Helper()
	et, err := fiscal.NewEffectiveTables(competence, inssProLabore2024(ceiling), inssEmployee2024(""), irrf2024())
	require.NoError(t, err)
	return et
}

func ctxWith(et fiscal.EffectiveTables, prior fiscal.PriorCapacity, dependents int) fiscal.CalculationContext {
	return fiscal.CalculationContext{
		Competence:    competence,
		Tables:        et,
		Prior:         prior,
		Dependents:    dependents,
		ProLaboreRate: dec("0.11"),
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: esperado %s, obtenido %s", msg, want, got.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

// Una entidad, pro-labore 10.000, teto 877,24: IRRF en la faixa de 27,5% / 896,00.
func TestCalculate_UnaEntidadConTeto(t *testing.T) {
	res, err := fiscal.Calculate(ctxWith(tables(t, "877.24"), fiscal.PriorCapacity{}, 0), dec("10000"))
	require.NoError(t, err)

	assertDec(t, "1100.00", res.INSSRaw, "inss bruto")
	assertDec(t, "877.24", res.INSSToWithhold, "inss")
	assertDec(t, "9122.76", res.EntityIRRFBase, "base irrf")
	assert.Equal(t, 4, res.IRRFBracket.Index)
	assertDec(t, "1612.76", res.IRRFToWithhold, "irrf")
	assertDec(t, "7510.00", res.Net, "líquido")
	assert.Empty(t, res.Warnings)
}

// Vínculo externo ya retuvo el teto: la segunda entidad no retiene INSS y el IRRF
// se calcula sobre la base global acumulada.
func TestCalculate_TetoYaConsumidoPorVinculoExterno(t *testing.T) {
	prior := fiscal.PriorCapacity{
		PriorINSSWithheld: dec("877.24"),
		PriorIRRFBase:     dec("9122.76"),
		PriorIRRFWithheld: dec("1612.76"),
		ExternalLinkIDs:   []string{"link-1"},
	}
	res, err := fiscal.Calculate(ctxWith(tables(t, "877.24"), prior, 0), dec("5000"))
	require.NoError(t, err)

	assertDec(t, "0", res.INSSCeilingRemaining, "teto restante")
	assertDec(t, "0", res.INSSToWithhold, "inss")
	assertDec(t, "5000", res.EntityIRRFBase, "base irrf entidad")
	assertDec(t, "14122.76", res.GlobalIRRFBase, "base irrf global")
	assertDec(t, "2987.76", res.GlobalIRRFComputed, "irrf global")
	assertDec(t, "1375.00", res.IRRFToWithhold, "irrf")
	assertDec(t, "3625.00", res.Net, "líquido")
}

func TestCalculate_Dependientes(t *testing.T) {
	res, err := fiscal.Calculate(ctxWith(tables(t, "877.24"), fiscal.PriorCapacity{}, 2), dec("4000"))
	require.NoError(t, err)

	// 4000 - 440 = 3560; - 2*189,59 = 3180,82 => 15% - 381,44 = 95,683
	assertDec(t, "440.00", res.INSSToWithhold, "inss")
	assertDec(t, "379.18", res.DependentDeduction, "deducción dependientes")
	assertDec(t, "3180.82", res.AdjustedIRRFBase, "base ajustada")
	assertDec(t, "95.68", res.IRRFToWithhold, "irrf")
	assertDec(t, "3464.32", res.Net, "líquido")
}

// Tabla IRRF cargada sin faixa abierta: la base por encima del último teto usa la faixa superior
// y queda advertencia.
func TestCalculate_BaseEncimaDeLaUltimaFaixaCerrada(t *testing.T) {
	closed := irrf2024()
	closed.ID = "irrf-cerrada"
	closed.Brackets[4] = bracket("4664.69", "8000.00", "0.275", "896.00")
	et, err := fiscal.NewEffectiveTables(competence, inssProLabore2024("877.24"), inssEmployee2024(""), closed)
	require.NoError(t, err)

	res, err := fiscal.Calculate(ctxWith(et, fiscal.PriorCapacity{}, 0), dec("10000"))
	require.NoError(t, err)
	assert.True(t, res.IRRFBracket.AboveTop)
	assertDec(t, "1612.76", res.IRRFToWithhold, "irrf")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, fiscal.WarnAboveIRRFTop, res.Warnings[0].Code)
	assert.Contains(t, res.Warnings[0].Message, "irrf-cerrada")

	within, err := fiscal.Calculate(ctxWith(et, fiscal.PriorCapacity{}, 0), dec("5000"))
	require.NoError(t, err)
	assert.False(t, within.IRRFBracket.AboveTop)
	assert.Empty(t, within.Warnings)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_TetoRespetadoEntreEntidades(t *testing.T) {
	et := tables(t, "877.24")
	prior := fiscal.PriorCapacity{}
	total := decimal.Zero
	for _, gross := range []string{"3000", "2500", "4000", "1000", "12000"} {
		res, err := fiscal.Calculate(ctxWith(et, prior, 1), dec(gross))
		require.NoError(t, err)
		total = total.Add(res.INSSToWithhold)
		prior = prior.Add(fiscal.PriorCapacity{
			PriorINSSWithheld: res.INSSToWithhold,
			PriorIRRFBase:     res.EntityIRRFBase,
			PriorIRRFWithheld: res.IRRFToWithhold,
		})
	}
	assert.True(t, total.LessThanOrEqual(dec("877.24")), "total INSS %s supera el teto", total)
	assertDec(t, "877.24", total, "teto consumido")
}

func TestCalculate_MonotonicidadDelLiquido(t *testing.T) {
	priors := []fiscal.PriorCapacity{
		{},
		{PriorINSSWithheld: dec("300"), PriorIRRFBase: dec("2500"), PriorIRRFWithheld: dec("18.06")},
	}
	for _, prior := range priors {
		et := tables(t, "877.24")
		prevNet := decimal.Zero
		for g := decimal.Zero; g.LessThan(dec("20000")); g = g.Add(dec("37.13")) {
			res, err := fiscal.Calculate(ctxWith(et, prior, 1), g)
			require.NoError(t, err)
			require.Truef(t, res.Net.GreaterThanOrEqual(prevNet), "líquido decreció en bruto %s: %s < %s", g, res.Net, prevNet)
			prevNet = res.Net
		}
	}
}

func TestCalculate_NoNegatividad(t *testing.T) {
	stale := fiscal.PriorCapacity{
		PriorINSSWithheld: dec("1200"),
		PriorIRRFBase:     dec("50000"),
		PriorIRRFWithheld: dec("99999"),
	}
	cc := ctxWith(tables(t, "877.24"), stale, 0)
	cc.NonTaxableNet = dec("-8000")

	res, err := fiscal.Calculate(cc, dec("5000"))
	require.NoError(t, err)
	assert.False(t, res.INSSToWithhold.IsNegative())
	assert.False(t, res.IRRFToWithhold.IsNegative())
	assert.True(t, res.Net.IsZero())

	codes := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, fiscal.WarnPriorAboveCeiling)
	assert.Contains(t, codes, fiscal.WarnNetClamped)
}

func TestCalculate_BaseNegativaSeConsideraCero(t *testing.T) {
	res, err := fiscal.Calculate(ctxWith(tables(t, "877.24"), fiscal.PriorCapacity{}, 0), dec("-150"))
	require.NoError(t, err)
	assert.True(t, res.EntityGross.IsZero())
	assert.True(t, res.Net.IsZero())
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, fiscal.WarnNegativeBase, res.Warnings[0].Code)
}

func TestCalculate_IdempotenteSinEstado(t *testing.T) {
	cc := ctxWith(tables(t, "877.24"), fiscal.PriorCapacity{PriorIRRFBase: dec("1000")}, 1)
	a, err := fiscal.Calculate(cc, dec("8000"))
	require.NoError(t, err)
	b, err := fiscal.Calculate(cc, dec("8000"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCalculate_SinTablaOTeto(t *testing.T) {
	_, err := fiscal.Calculate(fiscal.CalculationContext{Competence: competence}, dec("100"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingFiscalTable)

	cc := ctxWith(tables(t, "877.24"), fiscal.PriorCapacity{}, -1)
	_, err = fiscal.Calculate(cc, dec("100"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSnapshot_RegistraParametros(t *testing.T) {
	prior := fiscal.PriorCapacity{ExternalLinkIDs: []string{"l1"}, SiblingResultIDs: []string{"r1"}}
	cc := ctxWith(tables(t, "877.24"), prior, 1)
	res, err := fiscal.Calculate(cc, dec("10000"))
	require.NoError(t, err)

	p := res.Snapshot(cc)
	assert.Equal(t, "irrf-2024", p.IRRFTableID)
	assert.Equal(t, "inss-pl-2024", p.INSSProLaboreTableID)
	assert.Equal(t, fiscal.CeilingFromProLaboreTable, p.INSSCeilingSource)
	assert.Equal(t, []string{"l1"}, p.ExternalLinkIDs)
	assert.Equal(t, []string{"r1"}, p.SiblingResultIDs)
	assert.Len(t, p.IRRFBrackets, 5)
	assertDec(t, "0.275", p.AppliedIRRFRate, "alícuota aplicada")
}

// ──────────────────────────────────────────────────────────────────────────────
// NewEffectiveTables: resolución del teto
// ──────────────────────────────────────────────────────────────────────────────

func TestNewEffectiveTables_FallbackDelTeto(t *testing.T) {
	cases := []struct {
		name      string
		proLabore *entity.FiscalBracketTable
		employee  *entity.FiscalBracketTable
		ceiling   string
		source    string
	}{
		{"teto pro-labore", inssProLabore2024("856.46"), inssEmployee2024("908.85"), "856.46", fiscal.CeilingFromProLaboreTable},
		{"teto empleados", inssProLabore2024(""), inssEmployee2024("908.85"), "908.85", fiscal.CeilingFromEmployeeTable},
		{"mayor faixa empleados", inssProLabore2024(""), inssEmployee2024(""), "7786.02", fiscal.CeilingFromMaxBracket},
		{"mayor faixa pro-labore", inssProLabore2024(""), nil, "7786.02", fiscal.CeilingFromMaxBracket},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			et, err := fiscal.NewEffectiveTables(competence, tc.proLabore, tc.employee, irrf2024())
			require.NoError(t, err)
			assertDec(t, tc.ceiling, et.INSSCeiling, "teto")
			assert.Equal(t, tc.source, et.CeilingSource)
			assertDec(t, "189.59", et.DependentDeduction, "deducción por dependiente")
		})
	}
}

func TestNewEffectiveTables_Faltantes(t *testing.T) {
	_, err := fiscal.NewEffectiveTables(competence, nil, nil, irrf2024())
	var mfe *domain.MissingFiscalTableError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "inss pro_labore", mfe.Missing)
	assert.Equal(t, "2024-03", mfe.Competence)

	_, err = fiscal.NewEffectiveTables(competence, inssProLabore2024("1"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrMissingFiscalTable)

	noCeiling := inssProLabore2024("")
	noCeiling.Brackets = []entity.FiscalBracket{bracket("0", "", "0.11", "0")}
	_, err = fiscal.NewEffectiveTables(competence, noCeiling, nil, irrf2024())
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "inss ceiling", mfe.Missing)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", fiscal.FormatBRL(dec("1234.555")))
}
