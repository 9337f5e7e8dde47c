package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/fiscal"
)

// SimulateRequest entrada de la simulación. paying_entity_id vacío = todas las entidades.
type SimulateRequest struct {
	ProfessionalID   string            `json:"professional_id"`
	Competence       entity.Competence `json:"competence"`
	PayingEntityID   string            `json:"paying_entity_id"`
	IncludeRecurring bool              `json:"include_recurring"`
}

// CommitRequest entrada de la consolidación de una entidad.
type CommitRequest struct {
	ProfessionalID   string            `json:"professional_id"`
	PayingEntityID   string            `json:"paying_entity_id"`
	Competence       entity.Competence `json:"competence"`
	IncludeRecurring bool              `json:"include_recurring"`
}

// WithholdingResponse detalle del cálculo de una entidad.
type WithholdingResponse struct {
	EntityGross          decimal.Decimal  `json:"entity_gross"`
	INSSRaw              decimal.Decimal  `json:"inss_raw"`
	INSSCeilingRemaining decimal.Decimal  `json:"inss_ceiling_remaining"`
	INSSToWithhold       decimal.Decimal  `json:"inss_to_withhold"`
	EntityIRRFBase       decimal.Decimal  `json:"entity_irrf_base"`
	GlobalIRRFBase       decimal.Decimal  `json:"global_irrf_base"`
	DependentDeduction   decimal.Decimal  `json:"dependent_deduction"`
	AdjustedIRRFBase     decimal.Decimal  `json:"adjusted_irrf_base"`
	IRRFRate             decimal.Decimal  `json:"irrf_rate"`
	IRRFDeduction        decimal.Decimal  `json:"irrf_deduction"`
	GlobalIRRFComputed   decimal.Decimal  `json:"global_irrf_computed"`
	IRRFToWithhold       decimal.Decimal  `json:"irrf_to_withhold"`
	NonTaxableNet        decimal.Decimal  `json:"non_taxable_net"`
	Net                  decimal.Decimal  `json:"net"`
	Warnings             []fiscal.Warning `json:"warnings"`
}

// EntitySimulationResponse simulación de una entidad pagadora.
type EntitySimulationResponse struct {
	PayingEntityID        string                                      `json:"paying_entity_id"`
	RecordIDs             []string                                    `json:"record_ids"`
	GrossByCategory       map[entity.EarningsCategory]decimal.Decimal `json:"gross_by_category"`
	WithholdingBase       decimal.Decimal                             `json:"withholding_base"`
	Withholding           WithholdingResponse                         `json:"withholding"`
	AlreadyConsolidatedID string                                      `json:"already_consolidated_id,omitempty"`
}

// SimulationResponse vista previa sin efectos.
type SimulationResponse struct {
	ProfessionalID     string                     `json:"professional_id"`
	Competence         entity.Competence          `json:"competence"`
	NothingToCalculate bool                       `json:"nothing_to_calculate"`
	INSSCeiling        decimal.Decimal            `json:"inss_ceiling"`
	INSSCeilingSource  string                     `json:"inss_ceiling_source,omitempty"`
	Entities           []EntitySimulationResponse `json:"entities"`
}

// ItemResponse ítem calculado de un resultado.
type ItemResponse struct {
	ID                   string                  `json:"id"`
	SourceRecordID       string                  `json:"source_record_id"`
	Category             entity.EarningsCategory `json:"category"`
	Taxable              bool                    `json:"taxable"`
	GrossShare           decimal.Decimal         `json:"gross_share"`
	WithholdingBaseShare decimal.Decimal         `json:"withholding_base_share"`
	INSSShare            decimal.Decimal         `json:"inss_share"`
	IRRFShare            decimal.Decimal         `json:"irrf_share"`
	NetShare             decimal.Decimal         `json:"net_share"`
}

// ResultResponse resultado consolidado.
type ResultResponse struct {
	ID                string                       `json:"id"`
	ProfessionalID    string                       `json:"professional_id"`
	PayingEntityID    string                       `json:"paying_entity_id"`
	Competence        entity.Competence            `json:"competence"`
	GrossBase         decimal.Decimal              `json:"gross_base"`
	NonTaxableNet     decimal.Decimal              `json:"non_taxable_net"`
	INSSWithheld      decimal.Decimal              `json:"inss_withheld"`
	IRRFWithheld      decimal.Decimal              `json:"irrf_withheld"`
	NetAmount         decimal.Decimal              `json:"net_amount"`
	Status            entity.ResultStatus          `json:"status"`
	Parameters        entity.ComputationParameters `json:"parameters"`
	SourceRecordIDs   []string                     `json:"source_record_ids"`
	ResponsibleUserID string                       `json:"responsible_user_id"`
	CreatedAt         time.Time                    `json:"created_at"`
	Items             []ItemResponse               `json:"items,omitempty"`
}

// ResultListResponse historial paginado.
type ResultListResponse struct {
	Items []ResultResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// CommitResponse resultado persistido y advertencias del cálculo.
type CommitResponse struct {
	Result   ResultResponse   `json:"result"`
	Records  int              `json:"records"`
	Warnings []fiscal.Warning `json:"warnings"`
}

// RepairResponse salida de Repair.
type RepairResponse struct {
	ResultID        string `json:"result_id"`
	ItemsCreated    int    `json:"items_created"`
	RecordsMarked   int    `json:"records_marked"`
	AlreadyComplete bool   `json:"already_complete"`
}

// WorklistEntryResponse profesional con lanzamientos en la entidad/competencia.
type WorklistEntryResponse struct {
	ProfessionalID string          `json:"professional_id"`
	PayingEntityID string          `json:"paying_entity_id"`
	PendingRecords int             `json:"pending_records"`
	PendingGross   decimal.Decimal `json:"pending_gross"`
	ResultID       string          `json:"result_id,omitempty"`
	Status         string          `json:"status"`
}

// ProfessionalResponse profesional activo.
type ProfessionalResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CPF        string `json:"cpf"`
	Dependents int    `json:"dependents"`
}

// PayingEntityResponse entidad pagadora activa.
type PayingEntityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	CNPJ string `json:"cnpj"`
}

func ToWithholdingResponse(w fiscal.WithholdingResult) WithholdingResponse {
	warnings := w.Warnings
	if warnings == nil {
		warnings = []fiscal.Warning{}
	}
	return WithholdingResponse{
		EntityGross:          w.EntityGross,
		INSSRaw:              w.INSSRaw,
		INSSCeilingRemaining: w.INSSCeilingRemaining,
		INSSToWithhold:       w.INSSToWithhold,
		EntityIRRFBase:       w.EntityIRRFBase,
		GlobalIRRFBase:       w.GlobalIRRFBase,
		DependentDeduction:   w.DependentDeduction,
		AdjustedIRRFBase:     w.AdjustedIRRFBase,
		IRRFRate:             w.IRRFBracket.Rate,
		IRRFDeduction:        w.IRRFBracket.Deduction,
		GlobalIRRFComputed:   w.GlobalIRRFComputed,
		IRRFToWithhold:       w.IRRFToWithhold,
		NonTaxableNet:        w.NonTaxableNet,
		Net:                  w.Net,
		Warnings:             warnings,
	}
}

func ToSimulationResponse(sim *consolidation.Simulation) SimulationResponse {
	out := SimulationResponse{
		ProfessionalID:     sim.ProfessionalID,
		Competence:         sim.Competence,
		NothingToCalculate: sim.NothingToCalculate,
		INSSCeiling:        sim.Tables.INSSCeiling,
		INSSCeilingSource:  sim.Tables.CeilingSource,
		Entities:           make([]EntitySimulationResponse, 0, len(sim.Entities)),
	}
	for _, es := range sim.Entities {
		r := EntitySimulationResponse{
			PayingEntityID:        es.PayingEntityID,
			Withholding:           ToWithholdingResponse(es.Withholding),
			AlreadyConsolidatedID: es.AlreadyConsolidatedID,
		}
		if es.Earnings != nil {
			r.RecordIDs = es.Earnings.RecordIDs()
			r.GrossByCategory = es.Earnings.GrossByCategory
			r.WithholdingBase = es.Earnings.WithholdingBase
		}
		out.Entities = append(out.Entities, r)
	}
	return out
}

func ToResultResponse(res *entity.ConsolidatedResult, items []*entity.CalculatedItem) ResultResponse {
	out := ResultResponse{
		ID:                res.ID,
		ProfessionalID:    res.ProfessionalID,
		PayingEntityID:    res.PayingEntityID,
		Competence:        res.Competence,
		GrossBase:         res.GrossBase,
		NonTaxableNet:     res.NonTaxableNet,
		INSSWithheld:      res.INSSWithheld,
		IRRFWithheld:      res.IRRFWithheld,
		NetAmount:         res.NetAmount,
		Status:            res.Status,
		Parameters:        res.Parameters,
		SourceRecordIDs:   res.SourceRecordIDs,
		ResponsibleUserID: res.ResponsibleUserID,
		CreatedAt:         res.CreatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, ItemResponse{
			ID:                   it.ID,
			SourceRecordID:       it.SourceRecordID,
			Category:             it.Category,
			Taxable:              it.Taxable,
			GrossShare:           it.GrossShare,
			WithholdingBaseShare: it.WithholdingBaseShare,
			INSSShare:            it.INSSShare,
			IRRFShare:            it.IRRFShare,
			NetShare:             it.NetShare,
		})
	}
	return out
}

func ToWorklistResponse(entries []consolidation.WorklistEntry) []WorklistEntryResponse {
	out := make([]WorklistEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, WorklistEntryResponse(e))
	}
	return out
}

// ContractResponse contrato entre entidad pagadora y hospital.
type ContractResponse struct {
	ID             string `json:"id"`
	PayingEntityID string `json:"paying_entity_id"`
	HospitalID     string `json:"hospital_id"`
	Description    string `json:"description"`
	Active         bool   `json:"active"`
}
