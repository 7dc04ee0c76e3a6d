// Package render lays a quotation out as a printable document and exports it
// as HTML or PDF.
package render

import (
	"encoding/base64"
	"html/template"
	"strconv"
	"strings"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

// Image is a fetched picture ready to be inlined.
type Image struct {
	ContentType string
	Data        []byte
}

// DataURI encodes the image for an <img src>.
func (i *Image) DataURI() template.URL {
	if i == nil {
		return ""
	}
	return template.URL("data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data))
}

// Assets holds the images that loaded. A nil field means the image is omitted.
type Assets struct {
	CompanyLogo *Image
	ClientLogo  *Image
}

// Options carries deployment-level document settings.
type Options struct {
	Currency  string
	PolicyURL string
}

// Party is one column of the info block.
type Party struct {
	Heading string
	Name    string
	Email   string
	Phone   string
	Website string
	Logo    *Image
}

// Row is one rendered line of the item table.
type Row struct {
	Name       string
	Quantity   string
	Price      string
	TaxPercent string
	TaxAmount  string
	Total      string
	Notes      string
}

// Document is the fixed layout of a quotation, every value already formatted.
type Document struct {
	Filename string
	Currency string

	// header
	Logo        *Image
	CompanyName string
	Slogan      string

	// info block
	Company Party
	Client  Party

	// meta strip
	QuotationID string
	Category    string
	Date        string

	Rows       []Row
	Subtotal   string
	TaxTotal   string
	GrandTotal string

	// footer
	PreparedBy  string
	ThankYou    string
	PolicyURL   string
	PolicyLabel string
}

// Layout projects q and its loaded assets into the document sections.
func Layout(q quotation.Quotation, assets Assets, opts Options) Document {
	currency := opts.Currency
	if currency == "" {
		currency = "USD"
	}
	summary := q.Summary()
	doc := Document{
		Filename:    q.Filename("pdf"),
		Currency:    currency,
		Logo:        assets.CompanyLogo,
		CompanyName: q.Company.Name,
		Slogan:      q.Company.Slogan,
		Company: Party{
			Heading: "Company Info",
			Name:    q.Company.Name,
			Email:   q.Company.Email,
			Phone:   q.Company.Phone,
			Website: q.Company.Website,
		},
		Client: Party{
			Heading: "Client Info",
			Name:    q.Client.Name,
			Email:   q.Client.Email,
			Phone:   q.Client.Phone,
			Website: q.Client.Website,
			Logo:    assets.ClientLogo,
		},
		QuotationID: q.QuotationID,
		Category:    q.Category,
		Subtotal:    quotation.FormatMoney(summary.Subtotal),
		TaxTotal:    quotation.FormatMoney(summary.TaxTotal),
		GrandTotal:  quotation.FormatMoney(summary.GrandTotal),
		PreparedBy:  "Prepared by " + q.Company.Name + " | " + q.Company.Email,
		ThankYou:    "Thank you for considering us for your project!",
		PolicyURL:   opts.PolicyURL,
		PolicyLabel: strings.TrimPrefix(strings.TrimPrefix(opts.PolicyURL, "https://"), "http://"),
	}
	if !q.CreatedAt.IsZero() {
		doc.Date = q.CreatedAt.Format("January 2, 2006")
	}
	for _, line := range summary.Lines {
		notes := line.Notes
		if notes == "" {
			notes = "-"
		}
		doc.Rows = append(doc.Rows, Row{
			Name:       line.Name,
			Quantity:   strconv.Itoa(line.Quantity),
			Price:      quotation.FormatMoney(line.UnitPrice),
			TaxPercent: quotation.FormatPercent(line.TaxPercent) + "%",
			TaxAmount:  quotation.FormatMoney(line.TaxAmount),
			Total:      quotation.FormatMoney(line.LineTotal),
			Notes:      notes,
		})
	}
	return doc
}
