package consolidation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
)

// EntityEarnings lanzamientos pendientes de un profesional en una entidad pagadora.
type EntityEarnings struct {
	PayingEntityID  string
	Records         []entity.EarningsRecord
	GrossByCategory map[entity.EarningsCategory]decimal.Decimal
	// WithholdingBase suma de las bases de registros tributables (débitos restan).
	WithholdingBase decimal.Decimal
	// NonTaxableNet ajuste con signo de registros no tributables.
	NonTaxableNet decimal.Decimal
}

// RecordIDs IDs de los registros en orden estable.
func (e *EntityEarnings) RecordIDs() []string {
	ids := make([]string, len(e.Records))
	for i, r := range e.Records {
		ids[i] = r.Header().ID
	}
	return ids
}

// AggregateRequest parámetros de agregación.
type AggregateRequest struct {
	ProfessionalID   string
	Competence       entity.Competence
	PayingEntityID   string // vacío = todas las entidades
	IncludeRecurring bool
}

// Aggregator agrupa lanzamientos confirmados no consumidos por entidad pagadora.
type Aggregator struct {
	earnings repository.EarningsRepository
}

// NewAggregator construye el agregador.
func NewAggregator(earnings repository.EarningsRepository) *Aggregator {
	return &Aggregator{earnings: earnings}
}

// Aggregate devuelve un mapa entidad -> lanzamientos. Mapa vacío no es error.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (map[string]*EntityEarnings, error) {
	records, err := a.earnings.QueryUnconsolidated(ctx, repository.EarningsFilter{
		ProfessionalID:         req.ProfessionalID,
		PayingEntityID:         req.PayingEntityID,
		Competence:             req.Competence,
		IncludeRecurringBefore: req.IncludeRecurring,
	})
	if err != nil {
		return nil, fmt.Errorf("consultar lanzamientos: %w", err)
	}

	out := make(map[string]*EntityEarnings)
	for _, r := range records {
		if !eligible(r, req) {
			continue
		}
		h := r.Header()
		ee, ok := out[h.PayingEntityID]
		if !ok {
			ee = &EntityEarnings{
				PayingEntityID:  h.PayingEntityID,
				GrossByCategory: make(map[entity.EarningsCategory]decimal.Decimal),
			}
			out[h.PayingEntityID] = ee
		}
		r.Accept(&accumulator{ee: ee})
	}
	for _, ee := range out {
		sort.Slice(ee.Records, func(i, j int) bool { return ee.Records[i].Header().ID < ee.Records[j].Header().ID })
	}
	return out, nil
}

// eligible re-verifica en memoria lo que el repositorio ya filtra.
func eligible(r entity.EarningsRecord, req AggregateRequest) bool {
	h := r.Header()
	if !h.Confirmed || h.IsConsumed() || h.ProfessionalID != req.ProfessionalID {
		return false
	}
	if req.PayingEntityID != "" && h.PayingEntityID != req.PayingEntityID {
		return false
	}
	if h.Competence == req.Competence {
		return true
	}
	return req.IncludeRecurring && entity.IsRecurring(r) && h.Competence.Before(req.Competence)
}

// accumulator suma cada variante según su categoría.
type accumulator struct {
	ee *EntityEarnings
}

func (a *accumulator) add(r entity.EarningsRecord, gross decimal.Decimal) {
	ee := a.ee
	ee.Records = append(ee.Records, r)
	cat := r.Category()
	ee.GrossByCategory[cat] = ee.GrossByCategory[cat].Add(gross)
	if r.Header().Taxable {
		ee.WithholdingBase = ee.WithholdingBase.Add(r.WithholdingBase())
	} else {
		ee.NonTaxableNet = ee.NonTaxableNet.Add(r.PayoutAmount())
	}
}

func (a *accumulator) VisitShift(r entity.Shift) { a.add(r, r.GrossAmount) }

// el bruto del procedimiento se reporta ya neto de mat/med, impuestos y tasa.
func (a *accumulator) VisitPrivateProcedureShare(r entity.PrivateProcedureShare) {
	a.add(r, r.NetShare())
}

func (a *accumulator) VisitAdministrativeProduction(r entity.AdministrativeProduction) {
	a.add(r, r.GrossAmount)
}

func (a *accumulator) VisitProLabore(r entity.ProLabore) { a.add(r, r.GrossAmount) }
func (a *accumulator) VisitCredit(r entity.Credit)       { a.add(r, r.GrossAmount) }
func (a *accumulator) VisitDebit(r entity.Debit)         { a.add(r, r.GrossAmount.Neg()) }

// Estados de la lista de trabajo.
const (
	WorklistPending      = "pending"
	WorklistConsolidated = "consolidated"
)

// WorklistEntry par profesional/entidad con lanzamientos en la competencia.
type WorklistEntry struct {
	ProfessionalID string
	PayingEntityID string
	PendingRecords int
	PendingGross   decimal.Decimal
	ResultID       string // resultado consolidado existente, si lo hay
	Status         string
}

// Worklist pares (profesional, entidad) con lanzamientos pendientes o ya consolidados en la competencia.
func (a *Aggregator) Worklist(ctx context.Context, results repository.ConsolidationRepository, c entity.Competence, entityID string) ([]WorklistEntry, error) {
	records, err := a.earnings.QueryUnconsolidated(ctx, repository.EarningsFilter{PayingEntityID: entityID, Competence: c})
	if err != nil {
		return nil, fmt.Errorf("consultar lanzamientos: %w", err)
	}
	type key struct{ prof, ent string }
	byKey := make(map[key]*WorklistEntry)
	for _, r := range records {
		h := r.Header()
		if !h.Confirmed || h.IsConsumed() || h.Competence != c {
			continue
		}
		k := key{h.ProfessionalID, h.PayingEntityID}
		e, ok := byKey[k]
		if !ok {
			e = &WorklistEntry{ProfessionalID: h.ProfessionalID, PayingEntityID: h.PayingEntityID, Status: WorklistPending}
			byKey[k] = e
		}
		e.PendingRecords++
		e.PendingGross = e.PendingGross.Add(r.PayoutAmount())
	}

	done, err := results.ListResults(ctx, repository.ResultFilter{PayingEntityID: entityID, Competence: &c})
	if err != nil {
		return nil, fmt.Errorf("listar resultados: %w", err)
	}
	for _, res := range done {
		k := key{res.ProfessionalID, res.PayingEntityID}
		e, ok := byKey[k]
		if !ok {
			e = &WorklistEntry{ProfessionalID: res.ProfessionalID, PayingEntityID: res.PayingEntityID}
			byKey[k] = e
		}
		e.ResultID = res.ID
		// lanzamientos nuevos después de consolidar siguen pendientes
		if e.PendingRecords == 0 {
			e.Status = WorklistConsolidated
		}
	}

	out := make([]WorklistEntry, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProfessionalID != out[j].ProfessionalID {
			return out[i].ProfessionalID < out[j].ProfessionalID
		}
		return out[i].PayingEntityID < out[j].PayingEntityID
	})
	return out, nil
}
