package numeric

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// =============================================================================
// DISPLAY FORMATTING (es-ES)
// =============================================================================

// printer renders numbers with Spanish separators: "1.234.567,89".
var printer = message.NewPrinter(language.Spanish)

// FormatDecimal renders f with between minFrac and maxFrac fraction digits.
func FormatDecimal(f float64, minFrac, maxFrac int) string {
	return printer.Sprint(number.Decimal(f,
		number.MinFractionDigits(minFrac),
		number.MaxFractionDigits(maxFrac),
	))
}

// FormatCurrency renders f as euros with exactly decimals fraction digits,
// symbol last: "320.000,00 €".
func FormatCurrency(f float64, decimals int) string {
	return FormatDecimal(f, decimals, decimals) + " €"
}

// FormatPercent renders f followed by a percent sign, with exactly decimals
// fraction digits. The value is not scaled.
func FormatPercent(f float64, decimals int) string {
	return FormatDecimal(f, decimals, decimals) + "%"
}
