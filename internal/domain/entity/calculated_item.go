package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculatedItem detalle de un resultado: uno por registro de origen.
// Se crea junto al resultado y nunca se modifica.
type CalculatedItem struct {
	ID                   string
	ResultID             string
	SourceRecordID       string
	Category             EarningsCategory
	Taxable              bool
	GrossShare           decimal.Decimal
	WithholdingBaseShare decimal.Decimal
	INSSShare            decimal.Decimal
	IRRFShare            decimal.Decimal
	NetShare             decimal.Decimal
	CreatedAt            time.Time
}
