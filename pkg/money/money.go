// Package money formats centavo amounts for people.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the only currency the backoffice bills in.
const Currency = "brl"

// Format renders cents as a localized BRL amount, e.g. "R$ 1.234,56" for
// pt-BR and "R$ 1,234.56" for English.
func Format(cents int64, tag language.Tag) string {
	p := message.NewPrinter(tag)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := p.Sprintf("%.2f", float64(cents)/100)
	base, _ := tag.Base()
	if base.String() == "pt" {
		return sign + "R$ " + amount
	}
	return sign + "R$" + amount
}

// FormatBRL formats in Brazilian Portuguese.
func FormatBRL(cents int64) string {
	return Format(cents, language.BrazilianPortuguese)
}

// Percent returns percent of cents rounded half up to the centavo.
func Percent(cents int64, percent int) int64 {
	return (cents*int64(percent) + 50) / 100
}
