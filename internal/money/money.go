// Package money formats prices for display.
package money

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/goliatone/go-storefront/internal/locales"
)

// Languages that write the currency symbol after the amount.
var symbolAfter = map[string]bool{
	"sv": true, "de": true, "fr": true, "fi": true, "nb": true, "da": true,
	"es": true, "it": true, "nl": true, "pl": true, "pt": true,
}

// FormatPrice renders amount in currencyCode for locale with no fraction
// digits: "1 299 kr" for sv-se, "$1,299" for en-us. Unknown currency codes
// are printed as given.
func FormatPrice(amount float64, currencyCode, locale string) string {
	tag := locales.Tag(locale)
	printer := message.NewPrinter(tag)
	code := strings.ToUpper(strings.TrimSpace(currencyCode))

	symbol := code
	if unit, err := currency.ParseISO(code); err == nil {
		symbol = printer.Sprint(currency.Symbol(unit))
	}
	value := printer.Sprint(number.Decimal(math.Round(amount), number.MaxFractionDigits(0)))

	base, _ := tag.Base()
	if symbolAfter[base.String()] {
		return value + " " + symbol
	}
	return symbol + value
}

// FromMinorUnits converts an amount in minor units (öre, cents) to currency
// units.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
