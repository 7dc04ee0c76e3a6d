package quotation

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders d with two decimals and thousands grouping, e.g. 1,250.00.
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := decimal.NewFromString(whole)
	if err != nil {
		return sign + fixed
	}
	return sign + moneyPrinter.Sprintf("%d", n.IntPart()) + "." + frac
}

// FormatPercent renders a tax rate without trailing zeros, e.g. 7.5.
func FormatPercent(d decimal.Decimal) string {
	return d.String()
}
