package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
)

// Códigos de advertencia de calidad de datos. No bloquean la consolidación.
const (
	WarnNegativeBase       = "negative_base"
	WarnZeroGross          = "zero_gross"
	WarnPriorAboveCeiling  = "prior_inss_above_ceiling"
	WarnNetClamped         = "net_clamped"
	WarnNoIRRFBracketFound = "no_irrf_bracket"
	WarnAboveIRRFTop       = "above_irrf_top_bracket"
)

// Warning advertencia de calidad de datos producida por el cálculo.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WithholdingResult salida del cálculo para una entidad pagadora.
type WithholdingResult struct {
	EntityGross          decimal.Decimal
	INSSRaw              decimal.Decimal
	INSSCeilingRemaining decimal.Decimal
	INSSToWithhold       decimal.Decimal
	EntityIRRFBase       decimal.Decimal
	GlobalIRRFBase       decimal.Decimal
	DependentDeduction   decimal.Decimal
	AdjustedIRRFBase     decimal.Decimal
	IRRFBracket          BracketMatch
	GlobalIRRFComputed   decimal.Decimal
	IRRFToWithhold       decimal.Decimal
	NonTaxableNet        decimal.Decimal
	Net                  decimal.Decimal
	Warnings             []Warning
}

// Calculate aplica la secuencia legal: INSS pro-labore limitado por el teto restante,
// después IRRF sobre la base global de la competencia menos lo ya retenido.
// Todos los montos se redondean a centavos en cada paso.
func Calculate(cc CalculationContext, entityGross decimal.Decimal) (WithholdingResult, error) {
	t := cc.Tables
	if t.IRRF == nil {
		return WithholdingResult{}, &domain.MissingFiscalTableError{Competence: cc.Competence.String(), Missing: "irrf"}
	}
	if !t.INSSCeiling.IsPositive() {
		return WithholdingResult{}, &domain.MissingFiscalTableError{Competence: cc.Competence.String(), Missing: "inss ceiling"}
	}
	if cc.Dependents < 0 {
		return WithholdingResult{}, domain.ErrInvalidInput
	}

	var res WithholdingResult
	gross := Round2(entityGross)
	if gross.IsNegative() {
		res.warn(WarnNegativeBase, "base de retención negativa ("+FormatBRL(gross)+"); se considera cero")
		gross = decimal.Zero
	}
	if gross.IsZero() {
		res.warn(WarnZeroGross, "bruto tributable cero para la entidad")
	}
	res.EntityGross = gross

	// 1-3 INSS
	res.INSSRaw = Round2(gross.Mul(cc.ProLaboreRate))
	if cc.Prior.PriorINSSWithheld.GreaterThan(t.INSSCeiling) {
		res.warn(WarnPriorAboveCeiling, "INSS ya retenido ("+FormatBRL(cc.Prior.PriorINSSWithheld)+") supera el teto ("+FormatBRL(t.INSSCeiling)+")")
	}
	res.INSSCeilingRemaining = Round2(nonNeg(t.INSSCeiling.Sub(cc.Prior.PriorINSSWithheld)))
	res.INSSToWithhold = decimal.Min(nonNeg(res.INSSRaw), res.INSSCeilingRemaining)

	// 4-6 bases IRRF
	res.EntityIRRFBase = Round2(nonNeg(gross.Sub(res.INSSToWithhold)))
	res.GlobalIRRFBase = Round2(cc.Prior.PriorIRRFBase.Add(res.EntityIRRFBase))
	res.DependentDeduction = Round2(decimal.NewFromInt(int64(cc.Dependents)).Mul(t.DependentDeduction))
	res.AdjustedIRRFBase = Round2(nonNeg(res.GlobalIRRFBase.Sub(res.DependentDeduction)))

	// 7-8 IRRF
	res.IRRFBracket = Resolve(t.IRRF.Brackets, res.AdjustedIRRFBase)
	if !res.IRRFBracket.Found && res.AdjustedIRRFBase.IsPositive() {
		res.warn(WarnNoIRRFBracketFound, "ninguna faixa IRRF para la base "+FormatBRL(res.AdjustedIRRFBase))
	}
	if res.IRRFBracket.AboveTop {
		res.warn(WarnAboveIRRFTop, "base IRRF "+FormatBRL(res.AdjustedIRRFBase)+" supera el teto de la última faixa de "+t.IRRF.ID+"; se aplicó la faixa superior")
	}
	res.GlobalIRRFComputed = Round2(Apply(res.IRRFBracket, res.AdjustedIRRFBase))
	res.IRRFToWithhold = Round2(nonNeg(res.GlobalIRRFComputed.Sub(cc.Prior.PriorIRRFWithheld)))

	// 9 líquido
	res.NonTaxableNet = Round2(cc.NonTaxableNet)
	net := gross.Sub(res.INSSToWithhold).Sub(res.IRRFToWithhold).Add(res.NonTaxableNet)
	if net.IsNegative() {
		res.warn(WarnNetClamped, "líquido negativo ("+FormatBRL(net)+") ajustado a cero")
		net = decimal.Zero
	}
	res.Net = Round2(net)
	return res, nil
}

// Snapshot parámetros auditables del cálculo, para persistir con el resultado.
func (r WithholdingResult) Snapshot(cc CalculationContext) entity.ComputationParameters {
	t := cc.Tables
	p := entity.ComputationParameters{
		ProLaboreRate:         cc.ProLaboreRate,
		INSSCeiling:           t.INSSCeiling,
		INSSCeilingSource:     t.CeilingSource,
		IRRFTableID:           t.IRRF.ID,
		AppliedIRRFRate:       r.IRRFBracket.Rate,
		AppliedIRRFDeduction:  r.IRRFBracket.Deduction,
		Dependents:            cc.Dependents,
		PerDependentDeduction: t.DependentDeduction,
		DependentDeduction:    r.DependentDeduction,
		INSSRaw:               r.INSSRaw,
		INSSCeilingRemaining:  r.INSSCeilingRemaining,
		PriorINSSWithheld:     cc.Prior.PriorINSSWithheld,
		PriorIRRFBase:         cc.Prior.PriorIRRFBase,
		PriorIRRFWithheld:     cc.Prior.PriorIRRFWithheld,
		EntityIRRFBase:        r.EntityIRRFBase,
		GlobalIRRFBase:        r.GlobalIRRFBase,
		AdjustedIRRFBase:      r.AdjustedIRRFBase,
		GlobalIRRFComputed:    r.GlobalIRRFComputed,
		ExternalLinkIDs:       nonNilStrings(cc.Prior.ExternalLinkIDs),
		SiblingResultIDs:      nonNilStrings(cc.Prior.SiblingResultIDs),
	}
	if t.INSSProLabore != nil {
		p.INSSProLaboreTableID = t.INSSProLabore.ID
	}
	if t.INSSEmployee != nil {
		p.INSSEmployeeTableID = t.INSSEmployee.ID
	}
	for _, b := range t.IRRF.Brackets {
		p.IRRFBrackets = append(p.IRRFBrackets, entity.BracketSnapshot{
			LowerBound: b.LowerBound, UpperBound: b.UpperBound, Rate: b.Rate, Deduction: b.Deduction,
		})
	}
	for _, w := range r.Warnings {
		p.Warnings = append(p.Warnings, w.Code+": "+w.Message)
	}
	return p
}

func (r *WithholdingResult) warn(code, msg string) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: msg})
}

func nonNeg(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
