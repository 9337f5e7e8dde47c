package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningsCategory categoría de un lanzamiento de rendimiento.
type EarningsCategory string

const (
	CategoryShift                    EarningsCategory = "shift"
	CategoryPrivateProcedureShare    EarningsCategory = "private_procedure_share"
	CategoryAdministrativeProduction EarningsCategory = "administrative_production"
	CategoryProLabore                EarningsCategory = "pro_labore"
	CategoryCredit                   EarningsCategory = "credit"
	CategoryDebit                    EarningsCategory = "debit"
)

// EarningsCategories todas las categorías en orden estable (reportes, snapshots).
var EarningsCategories = []EarningsCategory{
	CategoryShift,
	CategoryPrivateProcedureShare,
	CategoryAdministrativeProduction,
	CategoryProLabore,
	CategoryCredit,
	CategoryDebit,
}

// EarningsHeader campos comunes a todas las variantes.
type EarningsHeader struct {
	ID                   string
	ProfessionalID       string
	PayingEntityID       string
	Competence           Competence
	GrossAmount          decimal.Decimal
	Taxable              bool
	Confirmed            bool
	ConsolidatedResultID string // vacío = no consumido
	Description          string
	OccurredOn           time.Time
}

// IsConsumed indica si el registro ya participó de una consolidación.
func (h EarningsHeader) IsConsumed() bool { return h.ConsolidatedResultID != "" }

// EarningsRecord unión cerrada: solo las variantes de este paquete la implementan.
// El manejo por categoría se hace con EarningsVisitor para que agregar una variante
// rompa la compilación de todos los visitantes.
type EarningsRecord interface {
	Header() EarningsHeader
	Category() EarningsCategory
	// WithholdingBase monto que la variante aporta a la base de retención cuando es tributable.
	// Puede ser negativo (débitos).
	WithholdingBase() decimal.Decimal
	// PayoutAmount monto con signo que la variante aporta al pago neto.
	PayoutAmount() decimal.Decimal
	Accept(v EarningsVisitor)
	// WithConsolidation copia del registro marcado como consumido por resultID.
	WithConsolidation(resultID string) EarningsRecord
	sealed()
}

// EarningsVisitor recorrido exhaustivo de la unión.
type EarningsVisitor interface {
	VisitShift(r Shift)
	VisitPrivateProcedureShare(r PrivateProcedureShare)
	VisitAdministrativeProduction(r AdministrativeProduction)
	VisitProLabore(r ProLabore)
	VisitCredit(r Credit)
	VisitDebit(r Debit)
}

// Shift pago de plantão.
type Shift struct {
	EarningsHeader
	HospitalID  string
	ShiftTypeID string
	Hours       decimal.Decimal
}

func (r Shift) Header() EarningsHeader             { return r.EarningsHeader }
func (r Shift) Category() EarningsCategory         { return CategoryShift }
func (r Shift) WithholdingBase() decimal.Decimal   { return r.GrossAmount }
func (r Shift) PayoutAmount() decimal.Decimal      { return r.GrossAmount }
func (r Shift) Accept(v EarningsVisitor)           { v.VisitShift(r) }
func (r Shift) sealed()                            {}
func (r Shift) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// PrivateProcedureShare cuota del profesional en un procedimiento particular.
// Materials, EntityTaxes y AdministrativeFee ya fueron descontados por la entidad
// y no forman parte de la base de retención del profesional.
type PrivateProcedureShare struct {
	EarningsHeader
	HospitalID        string
	Materials         decimal.Decimal
	EntityTaxes       decimal.Decimal
	AdministrativeFee decimal.Decimal
}

// NetShare valor líquido de repasse: bruto menos mat/med, impuestos y tasa administrativa.
func (r PrivateProcedureShare) NetShare() decimal.Decimal {
	net := r.GrossAmount.Sub(r.Materials).Sub(r.EntityTaxes).Sub(r.AdministrativeFee)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

func (r PrivateProcedureShare) Header() EarningsHeader           { return r.EarningsHeader }
func (r PrivateProcedureShare) Category() EarningsCategory       { return CategoryPrivateProcedureShare }
func (r PrivateProcedureShare) WithholdingBase() decimal.Decimal { return r.NetShare() }
func (r PrivateProcedureShare) PayoutAmount() decimal.Decimal    { return r.NetShare() }
func (r PrivateProcedureShare) Accept(v EarningsVisitor)         { v.VisitPrivateProcedureShare(r) }
func (r PrivateProcedureShare) sealed()                          {}
func (r PrivateProcedureShare) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// AdministrativeProduction producción administrativa (coordinación, reuniones, etc.).
type AdministrativeProduction struct {
	EarningsHeader
	ActivityType string
}

func (r AdministrativeProduction) Header() EarningsHeader           { return r.EarningsHeader }
func (r AdministrativeProduction) Category() EarningsCategory       { return CategoryAdministrativeProduction }
func (r AdministrativeProduction) WithholdingBase() decimal.Decimal { return r.GrossAmount }
func (r AdministrativeProduction) PayoutAmount() decimal.Decimal    { return r.GrossAmount }
func (r AdministrativeProduction) Accept(v EarningsVisitor)         { v.VisitAdministrativeProduction(r) }
func (r AdministrativeProduction) sealed()                          {}
func (r AdministrativeProduction) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// ProLabore remuneración de socio; base sujeta a la alícuota fija de INSS.
type ProLabore struct {
	EarningsHeader
	BeneficiaryEntityID string
}

func (r ProLabore) Header() EarningsHeader           { return r.EarningsHeader }
func (r ProLabore) Category() EarningsCategory       { return CategoryProLabore }
func (r ProLabore) WithholdingBase() decimal.Decimal { return r.GrossAmount }
func (r ProLabore) PayoutAmount() decimal.Decimal    { return r.GrossAmount }
func (r ProLabore) Accept(v EarningsVisitor)         { v.VisitProLabore(r) }
func (r ProLabore) sealed()                          {}
func (r ProLabore) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// Credit crédito manual.
type Credit struct {
	EarningsHeader
	Recurring bool
}

func (r Credit) Header() EarningsHeader           { return r.EarningsHeader }
func (r Credit) Category() EarningsCategory       { return CategoryCredit }
func (r Credit) WithholdingBase() decimal.Decimal { return r.GrossAmount }
func (r Credit) PayoutAmount() decimal.Decimal    { return r.GrossAmount }
func (r Credit) Accept(v EarningsVisitor)         { v.VisitCredit(r) }
func (r Credit) sealed()                          {}
func (r Credit) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// Debit débito manual; GrossAmount es positivo y resta.
type Debit struct {
	EarningsHeader
	Recurring bool
}

func (r Debit) Header() EarningsHeader           { return r.EarningsHeader }
func (r Debit) Category() EarningsCategory       { return CategoryDebit }
func (r Debit) WithholdingBase() decimal.Decimal { return r.GrossAmount.Neg() }
func (r Debit) PayoutAmount() decimal.Decimal    { return r.GrossAmount.Neg() }
func (r Debit) Accept(v EarningsVisitor)         { v.VisitDebit(r) }
func (r Debit) sealed()                          {}
func (r Debit) WithConsolidation(id string) EarningsRecord {
	r.ConsolidatedResultID = id
	return r
}

// IsRecurring indica si el registro es un crédito/débito recurrente.
func IsRecurring(r EarningsRecord) bool {
	switch v := r.(type) {
	case Credit:
		return v.Recurring
	case Debit:
		return v.Recurring
	default:
		return false
	}
}
