// Package display renders reports for terminals and files.
package display

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency renders v as US dollars with grouping, e.g. $1,234.50.
func Currency(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// Percent renders a 0-100 ratio with two decimals.
func Percent(v float64) string {
	return printer.Sprintf("%.2f%%", v)
}

// Decimal renders v with grouping and two decimals.
func Decimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Hours renders a duration in hours, dropping a trailing .0 where it is exact.
func Hours(v float64) string {
	if v == float64(int64(v)) {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

// Count renders an integer with grouping.
func Count(v int64) string {
	return printer.Sprintf("%d", v)
}
