// Package profile holds helpers shared by the loan and card service profiles.
package profile

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency formats a whole dollar amount with thousands separators ("$32,000").
func Currency(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// Percent formats a ratio as a percentage with the given decimals (0.4567 -> "45.67%").
func Percent(ratio float64, decimals int) string {
	return strconv.FormatFloat(ratio*100, 'f', decimals, 64) + "%"
}

// Number formats a value with the fewest digits that represent it.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
