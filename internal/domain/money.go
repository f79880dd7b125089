package domain

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ExtractTaxFromGross returns the VAT portion already embedded in a gross
// amount: gross × rate/(1+rate). Displayed prices are tax-inclusive by law in
// the target jurisdiction, so the tax is extracted from the gross, never
// added on top of a net amount. Subtracting the result from gross yields the
// net amount.
func ExtractTaxFromGross(gross int64, rate float64) int64 {
	if rate <= 0 {
		return 0
	}
	return int64(math.Round(float64(gross) * rate / (1 + rate)))
}

// ComputeShipping returns zero when the subtotal meets or exceeds the free
// threshold, else the flat fee. Equality counts as free.
func ComputeShipping(subtotal, freeThreshold, flatFee int64) int64 {
	if subtotal >= freeThreshold {
		return 0
	}
	return flatFee
}

// FormatMinorUnits renders a minor-unit amount as a locale-aware currency
// string. Zero and negative amounts format normally; negative values render
// signed for discount display. Unknown locales or currency codes fall back to
// de-DE and EUR rather than failing.
func FormatMinorUnits(amount int64, locale string, currencyCode string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.German
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.EUR
	}

	scale, _ := currency.Cash.Rounding(unit)
	value := float64(amount) / math.Pow10(scale)

	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(value)))
}
