package quotation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateLine(t *testing.T) {
	cases := []struct {
		name          string
		price         string
		qty           int
		tax           string
		wantTax       string
		wantLineTotal string
	}{
		{"website design", "500", 1, "10", "50.00", "550.00"},
		{"hosting", "100", 1, "5", "5.00", "105.00"},
		{"multiple units", "19.99", 3, "7.5", "4.50", "64.47"},
		{"zero tax", "250", 2, "0", "0.00", "500.00"},
		{"zero price", "0", 10, "16", "0.00", "0.00"},
		{"negative price clamps", "-10", 2, "10", "0.00", "0.00"},
		{"negative quantity clamps", "10", -2, "10", "0.00", "0.00"},
		{"negative tax clamps", "10", 2, "-5", "0.00", "20.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateLine(dec(tc.price), tc.qty, dec(tc.tax))
			assert.Equal(t, tc.wantTax, got.TaxAmount.StringFixed(2))
			assert.Equal(t, tc.wantLineTotal, got.LineTotal.StringFixed(2))
			assert.False(t, got.LineTotal.IsNegative())
		})
	}
}

func TestCalculateLineFormulaHolds(t *testing.T) {
	for _, price := range []string{"0", "0.01", "12.5", "999.99"} {
		for _, qty := range []int{0, 1, 7, 120} {
			for _, tax := range []string{"0", "5", "12.75", "100"} {
				p, r := dec(price), dec(tax)
				got := CalculateLine(p, qty, r)
				base := p.Mul(decimal.NewFromInt(int64(qty)))
				assert.True(t, got.TaxAmount.Equal(base.Mul(r).Div(decimal.NewFromInt(100))))
				assert.True(t, got.LineTotal.Equal(base.Add(got.TaxAmount)))
			}
		}
	}
}

func TestGrandTotal(t *testing.T) {
	items := []Item{
		{Name: "Website Design", Quantity: 1, UnitPrice: dec("500"), TaxPercent: dec("10")},
		{Name: "Hosting", Quantity: 1, UnitPrice: dec("100"), TaxPercent: dec("5")},
	}
	assert.Equal(t, "655.00", GrandTotal(items).StringFixed(2))

	reversed := []Item{items[1], items[0]}
	assert.True(t, GrandTotal(items).Equal(GrandTotal(reversed)))
	assert.True(t, GrandTotal(items).Equal(GrandTotal(items)))
}

func TestGrandTotalEmpty(t *testing.T) {
	assert.True(t, GrandTotal(nil).IsZero())
	assert.True(t, Summarize(nil).GrandTotal.IsZero())
}

func TestSummarizeKeepsOrder(t *testing.T) {
	items := []Item{
		{Name: "Hosting", Quantity: 2, UnitPrice: dec("100"), TaxPercent: dec("5")},
		{Name: "Website Design", Quantity: 1, UnitPrice: dec("500"), TaxPercent: dec("10")},
	}
	s := Summarize(items)
	if assert.Len(t, s.Lines, 2) {
		assert.Equal(t, "Hosting", s.Lines[0].Name)
		assert.Equal(t, 1, s.Lines[0].Position)
		assert.Equal(t, "Website Design", s.Lines[1].Name)
		assert.Equal(t, "210.00", s.Lines[0].LineTotal.StringFixed(2))
	}
	assert.Equal(t, "700.00", s.Subtotal.StringFixed(2))
	assert.Equal(t, "60.00", s.TaxTotal.StringFixed(2))
	assert.Equal(t, "760.00", s.GrandTotal.StringFixed(2))
	assert.True(t, s.GrandTotal.Equal(s.Subtotal.Add(s.TaxTotal)))
}

func TestParseInputs(t *testing.T) {
	assert.Equal(t, "12.5", ParseAmount(" 12.50 ").String())
	assert.Equal(t, "1250", ParseAmount("1,250").String())
	assert.True(t, ParseAmount("abc").IsZero())
	assert.True(t, ParseAmount("").IsZero())

	assert.Equal(t, 3, ParseQuantity("3"))
	assert.Equal(t, 2, ParseQuantity("2.9"))
	assert.Equal(t, 0, ParseQuantity("two"))
	assert.Equal(t, 0, ParseQuantity(""))
	assert.Equal(t, 0, ParseQuantity("-4"))
	assert.Equal(t, MaxQuantity, ParseQuantity("1e30"))
	assert.Equal(t, MaxQuantity, ParseQuantity("3000000000"))
	assert.Equal(t, 0, ParseQuantity("-1e30"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "655.00", FormatMoney(dec("655")))
	assert.Equal(t, "1,250.50", FormatMoney(dec("1250.5")))
	assert.Equal(t, "1,000,000.01", FormatMoney(dec("1000000.005")))
	assert.Equal(t, "-3.10", FormatMoney(dec("-3.1")))
	assert.Equal(t, "7.5", FormatPercent(dec("7.50")))
}

func TestFilename(t *testing.T) {
	q := Quotation{QuotationID: "QT-001"}
	assert.Equal(t, "quotation-QT-001.pdf", q.Filename("pdf"))
}
