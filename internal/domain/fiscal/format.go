package fiscal

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formatea un monto en reales para mensajes al usuario: "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	return brPrinter.Sprintf("R$ %.2f", d.Round(2).InexactFloat64())
}
