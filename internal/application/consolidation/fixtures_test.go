package consolidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/memory"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures compartidos
// ──────────────────────────────────────────────────────────────────────────────

const (
	profID  = "prof-1"
	entity1 = "ent-1"
	entity2 = "ent-2"
	userID  = "user-1"
)

var march = entity.MustCompetence(2024, 3)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func seedTables(t *testing.T, st *memory.Store, ceiling string) {
	t.Helper()
	ctx := context.Background()
	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.Create(ctx, &entity.FiscalBracketTable{
		ID:                  "inss-pl-2024",
		Kind:                entity.TaxKindINSS,
		ContributorKind:     entity.ContributorProLabore,
		ValidFrom:           validFrom,
		ContributionCeiling: decPtr(ceiling),
		Brackets: []entity.FiscalBracket{
			{LowerBound: dec("0"), UpperBound: decPtr("7786.02"), Rate: dec("11")},
		},
	}))
	require.NoError(t, st.Create(ctx, &entity.FiscalBracketTable{
		ID:                 "irrf-2024",
		Kind:               entity.TaxKindIRRF,
		ValidFrom:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		DependentDeduction: dec("189.59"),
		Brackets: []entity.FiscalBracket{
			{LowerBound: dec("0"), UpperBound: decPtr("2259.20"), Rate: dec("0"), Deduction: dec("0")},
			{LowerBound: dec("2259.21"), UpperBound: decPtr("2826.65"), Rate: dec("7.5"), Deduction: dec("169.44")},
			{LowerBound: dec("2826.66"), UpperBound: decPtr("3751.05"), Rate: dec("15"), Deduction: dec("381.44")},
			{LowerBound: dec("3751.06"), UpperBound: decPtr("4664.68"), Rate: dec("22.5"), Deduction: dec("662.77")},
			{LowerBound: dec("4664.69"), Rate: dec("27.5"), Deduction: dec("896.00")},
		},
	}))
}

func header(id, entityID string, c entity.Competence, gross string) entity.EarningsHeader {
	return entity.EarningsHeader{
		ID:             id,
		ProfessionalID: profID,
		PayingEntityID: entityID,
		Competence:     c,
		GrossAmount:    dec(gross),
		Taxable:        true,
		Confirmed:      true,
	}
}

func proLabore(id, entityID, gross string) entity.ProLabore {
	return entity.ProLabore{EarningsHeader: header(id, entityID, march, gross), BeneficiaryEntityID: entityID}
}

// newStore store con tablas 2024 (teto 877,24) y el profesional sin dependientes.
func newStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.NewStore()
	seedTables(t, st, "877.24")
	st.PutProfessional(&entity.Professional{ID: profID, Name: "Dra. Ana", Active: true})
	st.PutEntity(&entity.PayingEntity{ID: entity1, Name: "Clínica Uno", Active: true})
	st.PutEntity(&entity.PayingEntity{ID: entity2, Name: "Clínica Dos", Active: true})
	return st
}

type recordingPublisher struct {
	events []consolidation.ConsolidatedEvent
	err    error
}

func (p *recordingPublisher) PublishConsolidated(_ context.Context, ev consolidation.ConsolidatedEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func newService(st *memory.Store, pub consolidation.EventPublisher) *consolidation.Service {
	return consolidation.NewService(consolidation.Deps{
		Catalog:   st,
		Earnings:  st,
		Tables:    st,
		Links:     st,
		Results:   st,
		Locker:    st,
		Publisher: pub,
	}, consolidation.Config{
		ProLaboreRate: dec("0.11"),
		Retry:         consolidation.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond},
	}, logger.Nop())
}

func commitCmd(entityID string) consolidation.CommitCommand {
	return consolidation.CommitCommand{
		ProfessionalID:    profID,
		PayingEntityID:    entityID,
		Competence:        march,
		ResponsibleUserID: userID,
	}
}
