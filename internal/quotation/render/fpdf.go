package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin = 0.5
	pageWidth  = 8.5
	bodyWidth  = pageWidth - 2*pageMargin
)

var tableColumns = []struct {
	title string
	width float64
	align string
}{
	{"Item", 2.0, "L"},
	{"Qty", 0.5, "C"},
	{"Price", 1.0, "R"},
	{"Tax %", 0.6, "C"},
	{"Tax", 0.9, "R"},
	{"Total", 1.0, "R"},
	{"Notes", 1.5, "L"},
}

// FPDFExporter lays the document out directly with gofpdf, without a browser.
type FPDFExporter struct{}

// NewFPDFExporter returns the in-process exporter.
func NewFPDFExporter() *FPDFExporter { return &FPDFExporter{} }

// Backend names the exporter in metrics and cache keys.
func (e *FPDFExporter) Backend() string { return "fpdf" }

// Export draws doc on letter portrait pages with half-inch margins.
func (e *FPDFExporter) Export(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Quotation "+doc.QuotationID, true)
	pdf.SetAuthor(doc.CompanyName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// header
	if drawImage(pdf, "company-logo", doc.Logo, 0.67, true) {
		pdf.Ln(0.1)
	}
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(29, 78, 216)
	pdf.CellFormat(0, 0.4, tr(doc.CompanyName), "", 1, "C", false, 0, "")
	if doc.Slogan != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(59, 130, 246)
		pdf.CellFormat(0, 0.25, tr(doc.Slogan), "", 1, "C", false, 0, "")
	}
	pdf.Ln(0.3)

	// info block
	top := pdf.GetY()
	half := bodyWidth / 2
	drawParty(pdf, tr, doc.Company, pageMargin, half, false)
	companyBottom := pdf.GetY()
	pdf.SetY(top)
	drawParty(pdf, tr, doc.Client, pageMargin+half, half, true)
	if companyBottom > pdf.GetY() {
		pdf.SetY(companyBottom)
	}
	pdf.Ln(0.2)

	// meta strip
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(75, 85, 99)
	third := bodyWidth / 3
	pdf.CellFormat(third, 0.25, tr("Quotation ID: "+doc.QuotationID), "", 0, "L", false, 0, "")
	pdf.CellFormat(third, 0.25, tr("Category: "+doc.Category), "", 0, "C", false, 0, "")
	pdf.CellFormat(third, 0.25, tr("Date: "+doc.Date), "", 1, "R", false, 0, "")
	pdf.Ln(0.2)

	// item table
	drawTableHeader(pdf, tr, doc.Currency)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(55, 65, 81)
	for _, row := range doc.Rows {
		values := []string{row.Name, row.Quantity, row.Price, row.TaxPercent, row.TaxAmount, row.Total, row.Notes}
		for i, col := range tableColumns {
			pdf.CellFormat(col.width, 0.3, fit(pdf, tr(values[i]), col.width-0.1), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(0.2)

	// totals
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 0.22, tr("Subtotal: "+doc.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 0.22, tr("Tax: "+doc.TaxTotal), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(29, 78, 216)
	pdf.CellFormat(0, 0.35, tr("Grand Total: "+doc.Currency+" "+doc.GrandTotal), "", 1, "R", false, 0, "")
	pdf.Ln(0.3)

	// footer
	pdf.SetDrawColor(229, 231, 235)
	pdf.Line(pageMargin, pdf.GetY(), pageWidth-pageMargin, pdf.GetY())
	pdf.Ln(0.15)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 0.2, tr(doc.PreparedBy), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 0.2, tr(doc.ThankYou), "", 1, "C", false, 0, "")
	if doc.PolicyURL != "" {
		pdf.SetTextColor(37, 99, 235)
		pdf.CellFormat(0, 0.2, tr("This quotation is hereby regulated and controlled by our policies at "+doc.PolicyLabel),
			"", 1, "C", false, 0, doc.PolicyURL)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("fpdf layout: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("fpdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawParty(pdf *gofpdf.Fpdf, tr func(string) string, p Party, x, width float64, withName bool) {
	pdf.SetX(x)
	if drawImageAt(pdf, "logo-"+p.Heading, p.Logo, x, 0.4) {
		pdf.SetX(x)
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(width, 0.25, tr(p.Heading), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(55, 65, 81)
	lines := []string{"Email: " + p.Email, "Phone: " + p.Phone, "Website: " + p.Website}
	if withName {
		lines = append([]string{"Name: " + p.Name}, lines...)
	}
	for _, line := range lines {
		pdf.SetX(x)
		pdf.CellFormat(width, 0.2, fit(pdf, tr(line), width-0.1), "", 2, "L", false, 0, "")
	}
}

func drawTableHeader(pdf *gofpdf.Fpdf, tr func(string) string, currency string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(219, 234, 254)
	pdf.SetTextColor(30, 58, 138)
	for _, col := range tableColumns {
		title := col.title
		if title == "Price" {
			title = "Price (" + currency + ")"
		}
		pdf.CellFormat(col.width, 0.32, tr(title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// drawImage places img centred on the current line at height h inches.
func drawImage(pdf *gofpdf.Fpdf, name string, img *Image, h float64, centred bool) bool {
	info := register(pdf, name, img)
	if info == nil {
		return false
	}
	w := h * info.Width() / info.Height()
	x := pageMargin
	if centred {
		x = (pageWidth - w) / 2
	}
	pdf.ImageOptions(name, x, pdf.GetY(), w, h, true, gofpdf.ImageOptions{}, 0, "")
	return true
}

func drawImageAt(pdf *gofpdf.Fpdf, name string, img *Image, x, h float64) bool {
	info := register(pdf, name, img)
	if info == nil {
		return false
	}
	w := h * info.Width() / info.Height()
	pdf.ImageOptions(name, x, pdf.GetY(), w, h, true, gofpdf.ImageOptions{}, 0, "")
	return true
}

// register adds img to the document. Formats gofpdf cannot decode are skipped
// and the error state is cleared so the rest of the layout still renders.
func register(pdf *gofpdf.Fpdf, name string, img *Image) *gofpdf.ImageInfoType {
	if img == nil {
		return nil
	}
	var kind string
	switch img.ContentType {
	case "image/png":
		kind = "PNG"
	case "image/jpeg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		return nil
	}
	info := pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(img.Data))
	if pdf.Err() || info == nil || info.Height() == 0 {
		pdf.ClearError()
		return nil
	}
	return info
}

func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimSpace(string(runes)) + "..."
}
