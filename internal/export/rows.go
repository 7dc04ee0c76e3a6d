// Package export writes the whole quotation listing as CSV, SQL or rows
// appended to a spreadsheet.
package export

import (
	"strconv"
	"time"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

// Columns is the header row shared by the CSV and sheet exports.
var Columns = []string{
	"id", "quotation_id", "category",
	"company_name", "company_email",
	"client_name", "client_email",
	"items", "subtotal", "tax_total", "grand_total",
	"created_by", "created_at",
}

// Row flattens q into Columns order. Amounts are derived, never stored.
func Row(q quotation.Quotation) []string {
	s := q.Summary()
	return []string{
		strconv.FormatInt(q.ID, 10),
		q.QuotationID,
		q.Category,
		q.Company.Name,
		q.Company.Email,
		q.Client.Name,
		q.Client.Email,
		strconv.Itoa(len(q.Items)),
		s.Subtotal.StringFixed(2),
		s.TaxTotal.StringFixed(2),
		s.GrandTotal.StringFixed(2),
		q.CreatedBy,
		q.CreatedAt.UTC().Format(time.RFC3339),
	}
}
