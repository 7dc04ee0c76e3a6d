package quotation

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Storage limits of an item's base fields (quotation_items columns). Input
// outside them is rejected on submit so the stored snapshot equals the preview.
const (
	MaxQuantity  = math.MaxInt32
	PriceScale   = 2
	PercentScale = 3
)

var (
	// MaxPrice is exclusive: NUMERIC(14,2) holds 12 integer digits.
	MaxPrice = decimal.New(1, 12)
	// MaxTaxPercent is exclusive: NUMERIC(7,3) holds 4 integer digits.
	MaxTaxPercent = decimal.New(1, 4)
)

// LineAmounts holds the derived money values of one item.
type LineAmounts struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CalculateLine computes tax and total for one line. Negative inputs count as zero,
// so no result is ever negative.
func CalculateLine(unitPrice decimal.Decimal, quantity int, taxPercent decimal.Decimal) LineAmounts {
	if unitPrice.IsNegative() {
		unitPrice = decimal.Zero
	}
	if quantity < 0 {
		quantity = 0
	}
	if taxPercent.IsNegative() {
		taxPercent = decimal.Zero
	}
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	tax := base.Mul(taxPercent).Div(hundred)
	return LineAmounts{
		Subtotal:  base,
		TaxAmount: tax,
		LineTotal: base.Add(tax),
	}
}

// Line is an item paired with its amounts and 1-based position.
type Line struct {
	Position int
	Item
	LineAmounts
}

// Summary aggregates a quotation's lines.
type Summary struct {
	Lines      []Line
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// GrandTotal sums the line totals. An empty quotation totals zero.
func GrandTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amounts().LineTotal)
	}
	return total
}

// Summarize computes every line in display order plus the totals.
func Summarize(items []Item) Summary {
	s := Summary{
		Lines:      make([]Line, 0, len(items)),
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		GrandTotal: decimal.Zero,
	}
	for i, it := range items {
		amounts := it.Amounts()
		s.Lines = append(s.Lines, Line{Position: i + 1, Item: it, LineAmounts: amounts})
		s.Subtotal = s.Subtotal.Add(amounts.Subtotal)
		s.TaxTotal = s.TaxTotal.Add(amounts.TaxAmount)
		s.GrandTotal = s.GrandTotal.Add(amounts.LineTotal)
	}
	return s
}

// ParseAmount reads a money or percentage input. Anything non-numeric is zero.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseQuantity reads a quantity input. Anything non-numeric is zero,
// fractional input is truncated and the result is clamped to [0, MaxQuantity].
func ParseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return clampQuantity(n)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return 0
	}
	if d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return MaxQuantity
	}
	return int(d.IntPart())
}

func clampQuantity(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxQuantity:
		return MaxQuantity
	}
	return n
}
