package consolidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/memory"
)

func irrfTable(id string, validFrom, createdAt time.Time, topRate string) *entity.FiscalBracketTable {
	return &entity.FiscalBracketTable{
		ID:                 id,
		Kind:               entity.TaxKindIRRF,
		ValidFrom:          validFrom,
		CreatedAt:          createdAt,
		DependentDeduction: dec("189.59"),
		Brackets: []entity.FiscalBracket{
			{LowerBound: dec("2000"), Rate: dec(topRate), Deduction: dec("100")},
			{LowerBound: dec("0"), UpperBound: decPtr("2000"), Rate: dec("0")},
		},
	}
}

func plTable(ceiling string) *entity.FiscalBracketTable {
	return &entity.FiscalBracketTable{
		ID:                  "pl",
		Kind:                entity.TaxKindINSS,
		ContributorKind:     entity.ContributorProLabore,
		ValidFrom:           time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ContributionCeiling: decPtr(ceiling),
		Brackets:            []entity.FiscalBracket{{LowerBound: dec("0"), Rate: dec("0.11")}},
	}
}

func TestTableProvider_DesempateDeterminista(t *testing.T) {
	ctx := context.Background()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	t0 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		tables []*entity.FiscalBracketTable
		want   string
	}{
		{"vigencia más reciente", []*entity.FiscalBracketTable{
			irrfTable("a", jan, t0.Add(48*time.Hour), "27.5"),
			irrfTable("b", feb, t0, "27.5"),
		}, "b"},
		{"creación más reciente", []*entity.FiscalBracketTable{
			irrfTable("a", feb, t0.Add(time.Hour), "27.5"),
			irrfTable("b", feb, t0, "27.5"),
		}, "a"},
		{"mayor ID", []*entity.FiscalBracketTable{
			irrfTable("a", feb, t0, "27.5"),
			irrfTable("c", feb, t0, "27.5"),
		}, "c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := memory.NewStore()
			require.NoError(t, st.Create(ctx, plTable("877.24")))
			for _, tb := range tc.tables {
				require.NoError(t, st.Create(ctx, tb))
			}
			et, err := consolidation.NewTableProvider(st).GetEffectiveTables(ctx, march)
			require.NoError(t, err)
			assert.Equal(t, tc.want, et.IRRF.ID)
		})
	}
}

func TestTableProvider_NormalizaFaixas(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	require.NoError(t, st.Create(ctx, plTable("877.24")))
	require.NoError(t, st.Create(ctx, irrfTable("i", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, "27.5")))

	et, err := consolidation.NewTableProvider(st).GetEffectiveTables(ctx, march)
	require.NoError(t, err)
	require.Len(t, et.IRRF.Brackets, 2)
	assert.True(t, et.IRRF.Brackets[0].LowerBound.IsZero(), "faixas ordenadas por piso")
	assertDec(t, "0.275", et.IRRF.Brackets[1].Rate, "alícuota como fracción")
	assert.Equal(t, fiscal.CeilingFromProLaboreTable, et.CeilingSource)
}

func TestTableProvider_FueraDeVigencia(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	require.NoError(t, st.Create(ctx, plTable("877.24")))
	tb := irrfTable("i", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, "27.5")
	end := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	tb.ValidTo = &end
	require.NoError(t, st.Create(ctx, tb))

	_, err := consolidation.NewTableProvider(st).GetEffectiveTables(ctx, march)
	var mfe *domain.MissingFiscalTableError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "irrf", mfe.Missing)
}
