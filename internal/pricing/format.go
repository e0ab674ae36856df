package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// chileanSpanish is the storefront's display locale: grouped integers,
// no decimal digits (CLP has no minor unit).
var chileanSpanish = language.MustParse("es-CL")

// FormatAmount renders an amount for display in the given locale, rounded to
// a grouped integer.
func FormatAmount(amount decimal.Decimal, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(amount.Round(0).IntPart(), number.MaxFractionDigits(0)))
}

// FormatCLP renders an amount the way the storefront displays prices.
func FormatCLP(amount decimal.Decimal) string {
	return "$" + FormatAmount(amount, chileanSpanish)
}
