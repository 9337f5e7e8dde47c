package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResultStatus estado de un resultado consolidado.
type ResultStatus string

const (
	ResultStatusDraft        ResultStatus = "draft"        // solo en memoria (simulación)
	ResultStatusConsolidated ResultStatus = "consolidated" // persistido, inmutable
)

// ComputationParameters snapshot de todo lo usado en el cálculo, para auditoría
// sin volver a consultar estado externo. Se persiste como JSON.
type ComputationParameters struct {
	ProLaboreRate         decimal.Decimal                      `json:"pro_labore_rate"`
	INSSCeiling           decimal.Decimal                      `json:"inss_ceiling"`
	INSSCeilingSource     string                               `json:"inss_ceiling_source"`
	INSSProLaboreTableID  string                               `json:"inss_pro_labore_table_id"`
	INSSEmployeeTableID   string                               `json:"inss_employee_table_id,omitempty"`
	IRRFTableID           string                               `json:"irrf_table_id"`
	IRRFBrackets          []BracketSnapshot                    `json:"irrf_brackets"`
	AppliedIRRFRate       decimal.Decimal                      `json:"applied_irrf_rate"`
	AppliedIRRFDeduction  decimal.Decimal                      `json:"applied_irrf_deduction"`
	Dependents            int                                  `json:"dependents"`
	PerDependentDeduction decimal.Decimal                      `json:"per_dependent_deduction"`
	DependentDeduction    decimal.Decimal                      `json:"dependent_deduction"`
	INSSRaw               decimal.Decimal                      `json:"inss_raw"`
	INSSCeilingRemaining  decimal.Decimal                      `json:"inss_ceiling_remaining"`
	PriorINSSWithheld     decimal.Decimal                      `json:"prior_inss_withheld"`
	PriorIRRFBase         decimal.Decimal                      `json:"prior_irrf_base"`
	PriorIRRFWithheld     decimal.Decimal                      `json:"prior_irrf_withheld"`
	EntityIRRFBase        decimal.Decimal                      `json:"entity_irrf_base"`
	GlobalIRRFBase        decimal.Decimal                      `json:"global_irrf_base"`
	AdjustedIRRFBase      decimal.Decimal                      `json:"adjusted_irrf_base"`
	GlobalIRRFComputed    decimal.Decimal                      `json:"global_irrf_computed"`
	ExternalLinkIDs       []string                             `json:"external_link_ids"`
	SiblingResultIDs      []string                             `json:"sibling_result_ids"`
	GrossByCategory       map[EarningsCategory]decimal.Decimal `json:"gross_by_category"`
	Warnings              []string                             `json:"warnings,omitempty"`
}

// BracketSnapshot copia serializable de una faixa.
type BracketSnapshot struct {
	LowerBound decimal.Decimal  `json:"lower_bound"`
	UpperBound *decimal.Decimal `json:"upper_bound,omitempty"`
	Rate       decimal.Decimal  `json:"rate"`
	Deduction  decimal.Decimal  `json:"deduction"`
}

// ConsolidatedResult resultado maestro de una consolidación (profesional, entidad, competencia).
// Nunca se actualiza después de status = consolidated.
type ConsolidatedResult struct {
	ID                string
	ProfessionalID    string
	PayingEntityID    string
	Competence        Competence
	GrossBase         decimal.Decimal       // base de retención (solo tributables)
	NonTaxableNet     decimal.Decimal       // ajuste neto de registros no tributables
	INSSWithheld      decimal.Decimal
	IRRFWithheld      decimal.Decimal
	NetAmount         decimal.Decimal
	Status            ResultStatus
	Parameters        ComputationParameters
	SourceRecordIDs   []string              // registros que deben quedar marcados con este ID
	ResponsibleUserID string
	CreatedAt         time.Time
}

// IRRFBase base IRRF que este resultado aporta a los hermanos de la misma competencia.
func (r ConsolidatedResult) IRRFBase() decimal.Decimal {
	b := r.GrossBase.Sub(r.INSSWithheld)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// ConsolidationKey identifica la unicidad de un resultado consolidado.
type ConsolidationKey struct {
	ProfessionalID string
	PayingEntityID string
	Competence     Competence
}

// Key clave de unicidad del resultado.
func (r ConsolidatedResult) Key() ConsolidationKey {
	return ConsolidationKey{ProfessionalID: r.ProfessionalID, PayingEntityID: r.PayingEntityID, Competence: r.Competence}
}
