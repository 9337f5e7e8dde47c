package consolidation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/memory"
)

func seedMixed(st *memory.Store) {
	st.PutRecord(entity.Shift{EarningsHeader: header("a1", entity1, march, "1000"), HospitalID: "h1", Hours: dec("12")})
	st.PutRecord(entity.PrivateProcedureShare{
		EarningsHeader:    header("a2", entity1, march, "2000"),
		Materials:         dec("300"),
		EntityTaxes:       dec("100"),
		AdministrativeFee: dec("100"),
	})
	nonTaxable := header("a3", entity1, march, "200")
	nonTaxable.Taxable = false
	st.PutRecord(entity.Credit{EarningsHeader: nonTaxable})
	st.PutRecord(entity.Debit{EarningsHeader: header("a4", entity1, march, "250")})

	unconfirmed := header("a5", entity1, march, "500")
	unconfirmed.Confirmed = false
	st.PutRecord(entity.AdministrativeProduction{EarningsHeader: unconfirmed, ActivityType: "coordinación"})

	st.PutRecord(entity.Credit{EarningsHeader: header("a6", entity1, entity.MustCompetence(2024, 2), "100"), Recurring: true})
	st.PutRecord(entity.Shift{EarningsHeader: header("a7", entity2, march, "800")})
}

func TestAggregate_PorCategoria(t *testing.T) {
	st := memory.NewStore()
	seedMixed(st)
	agg := consolidation.NewAggregator(st)

	groups, err := agg.Aggregate(context.Background(), consolidation.AggregateRequest{ProfessionalID: profID, Competence: march})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	e1 := groups[entity1]
	require.NotNil(t, e1)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, e1.RecordIDs())
	// 1000 + 1500 (líquido del procedimiento) - 250
	assertDec(t, "2250", e1.WithholdingBase, "base")
	assertDec(t, "200", e1.NonTaxableNet, "no tributable")
	assertDec(t, "1500", e1.GrossByCategory[entity.CategoryPrivateProcedureShare], "procedimiento")
	assertDec(t, "-250", e1.GrossByCategory[entity.CategoryDebit], "débito")
	_, hasAdmin := e1.GrossByCategory[entity.CategoryAdministrativeProduction]
	assert.False(t, hasAdmin)

	assertDec(t, "800", groups[entity2].WithholdingBase, "base entidad 2")
}

func TestAggregate_RecurrentesYFiltroDeEntidad(t *testing.T) {
	st := memory.NewStore()
	seedMixed(st)
	agg := consolidation.NewAggregator(st)

	groups, err := agg.Aggregate(context.Background(), consolidation.AggregateRequest{
		ProfessionalID:   profID,
		Competence:       march,
		PayingEntityID:   entity1,
		IncludeRecurring: true,
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Contains(t, groups[entity1].RecordIDs(), "a6")
	assertDec(t, "2350", groups[entity1].WithholdingBase, "base con recurrente")
}

func TestAggregate_VacioNoEsError(t *testing.T) {
	groups, err := consolidation.NewAggregator(memory.NewStore()).Aggregate(context.Background(),
		consolidation.AggregateRequest{ProfessionalID: profID, Competence: march})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBuildItems_RepartoCierraAlCentavo(t *testing.T) {
	res := &entity.ConsolidatedResult{
		ID:           "res-1",
		INSSWithheld: dec("100.00"),
		IRRFWithheld: dec("33.33"),
	}
	records := []entity.EarningsRecord{
		proLabore("b1", entity1, "1000"),
		proLabore("b2", entity1, "1000"),
		proLabore("b3", entity1, "1000"),
		entity.Debit{EarningsHeader: header("b4", entity1, march, "90")},
	}
	items := consolidation.BuildItems(res, records, march.FirstDay())
	require.Len(t, items, 4)

	inss, irrf := dec("0"), dec("0")
	for _, it := range items {
		inss = inss.Add(it.INSSShare)
		irrf = irrf.Add(it.IRRFShare)
		assert.Equal(t, consolidation.ItemID("res-1", it.SourceRecordID), it.ID)
	}
	assertDec(t, "100.00", inss, "inss")
	assertDec(t, "33.33", irrf, "irrf")
	assertDec(t, "33.34", items[2].INSSShare, "residuo")
	assert.True(t, items[3].INSSShare.IsZero())
	assertDec(t, "-90", items[3].NetShare, "débito")

	again := consolidation.BuildItems(res, records, march.FirstDay())
	assert.Equal(t, items[0].ID, again[0].ID)
}

func TestBuildItems_MuchosItemsPequenosSinPartesNegativas(t *testing.T) {
	res := &entity.ConsolidatedResult{
		ID:           "res-2",
		INSSWithheld: dec("0.03"),
		IRRFWithheld: dec("0.15"),
	}
	records := make([]entity.EarningsRecord, 0, 21)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("s%02d", i)
		records = append(records, entity.Shift{EarningsHeader: header(id, entity1, march, "100"), HospitalID: "h1"})
	}
	records = append(records, entity.Debit{EarningsHeader: header("d1", entity1, march, "5")})

	items := consolidation.BuildItems(res, records, march.FirstDay())
	require.Len(t, items, 21)

	inss, irrf := dec("0"), dec("0")
	for _, it := range items {
		assert.Falsef(t, it.INSSShare.IsNegative(), "%s inss %s", it.SourceRecordID, it.INSSShare)
		assert.Falsef(t, it.IRRFShare.IsNegative(), "%s irrf %s", it.SourceRecordID, it.IRRFShare)
		if it.Category == entity.CategoryShift {
			assert.Truef(t, it.NetShare.LessThanOrEqual(dec("100")), "%s líquido %s", it.SourceRecordID, it.NetShare)
		}
		inss = inss.Add(it.INSSShare)
		irrf = irrf.Add(it.IRRFShare)
	}
	assertDec(t, "0.03", inss, "inss")
	assertDec(t, "0.15", irrf, "irrf")

	// restos iguales: los centavos van a las últimas posiciones
	assert.True(t, items[0].IRRFShare.IsZero())
	assertDec(t, "0.01", items[19].IRRFShare, "irrf último")
	assertDec(t, "0.01", items[17].INSSShare, "inss")
	assert.True(t, items[16].INSSShare.IsZero())
	assert.True(t, items[20].IRRFShare.IsZero())
}

func TestBuildItems_SinRetencionTodoCero(t *testing.T) {
	res := &entity.ConsolidatedResult{ID: "res-3", INSSWithheld: dec("0"), IRRFWithheld: dec("0")}
	items := consolidation.BuildItems(res, []entity.EarningsRecord{proLabore("c1", entity1, "500")}, march.FirstDay())
	require.Len(t, items, 1)
	assert.True(t, items[0].INSSShare.IsZero())
	assert.True(t, items[0].IRRFShare.IsZero())
	assertDec(t, "500", items[0].NetShare, "líquido")
}
