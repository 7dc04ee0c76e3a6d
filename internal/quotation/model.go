// Package quotation builds, stores and lists client quotations.
package quotation

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIDPrefix seeds the quotation id field of a new builder form.
const DefaultIDPrefix = "QT-"

// Item is one ordered line of a quotation. Only base fields are stored;
// amounts come from CalculateLine on every read.
type Item struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TaxPercent decimal.Decimal `json:"taxPercent"`
	Notes      string          `json:"notes,omitempty"`
}

// Amounts derives the item's tax and total.
func (it Item) Amounts() LineAmounts {
	return CalculateLine(it.UnitPrice, it.Quantity, it.TaxPercent)
}

// CompanyProfile is the issuing party.
type CompanyProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Slogan  string `json:"slogan,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// ClientProfile is the receiving party.
type ClientProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// Quotation is an immutable snapshot once persisted.
type Quotation struct {
	ID          int64          `json:"id"`
	QuotationID string         `json:"quotationId"`
	Category    string         `json:"category"`
	Company     CompanyProfile `json:"company"`
	Client      ClientProfile  `json:"client"`
	Items       []Item         `json:"items"`
	EmailClient bool           `json:"emailClient"`
	CreatedBy   string         `json:"createdBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// GrandTotal is the sum of every line total.
func (q Quotation) GrandTotal() decimal.Decimal {
	return GrandTotal(q.Items)
}

// Summary returns the per-line amounts and totals.
func (q Quotation) Summary() Summary {
	return Summarize(q.Items)
}

// Filename names exported artifacts, e.g. quotation-QT-001.pdf.
func (q Quotation) Filename(ext string) string {
	return "quotation-" + q.QuotationID + "." + ext
}

// ListRequest selects one page of the listing.
type ListRequest struct {
	Page    int
	PerPage int
}
