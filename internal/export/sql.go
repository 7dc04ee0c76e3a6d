package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

// WriteSQL writes a transaction of INSERT statements that recreates the
// quotations and their items in another database with the same schema.
// Items reference their parent by quotation_id, so row ids may differ.
func WriteSQL(w io.Writer, quotations []quotation.Quotation) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- quotedesk export, %d quotations\n", len(quotations))
	bw.WriteString("BEGIN;\n")
	for _, q := range quotations {
		fmt.Fprintf(bw, "INSERT INTO quotations (quotation_id, category, company_name, company_email, company_phone, company_website, company_slogan, company_logo_url, client_name, client_email, client_phone, client_website, client_logo_url, email_client, created_by, created_at) VALUES (%s);\n",
			strings.Join([]string{
				literal(q.QuotationID),
				literal(q.Category),
				literal(q.Company.Name),
				literal(q.Company.Email),
				literal(q.Company.Phone),
				literal(q.Company.Website),
				literal(q.Company.Slogan),
				literal(q.Company.LogoURL),
				literal(q.Client.Name),
				literal(q.Client.Email),
				literal(q.Client.Phone),
				literal(q.Client.Website),
				literal(q.Client.LogoURL),
				strconv.FormatBool(q.EmailClient),
				literal(q.CreatedBy),
				literal(q.CreatedAt.UTC().Format(time.RFC3339Nano)) + "::timestamptz",
			}, ", "))
		for i, it := range q.Items {
			notes := "NULL"
			if it.Notes != "" {
				notes = literal(it.Notes)
			}
			fmt.Fprintf(bw, "INSERT INTO quotation_items (quotation_pk, position, name, quantity, unit_price, tax_percent, notes) VALUES ((SELECT id FROM quotations WHERE quotation_id = %s), %d, %s, %d, %s, %s, %s);\n",
				literal(q.QuotationID), i+1, literal(it.Name), it.Quantity,
				it.UnitPrice.String(), it.TaxPercent.String(), notes)
		}
	}
	bw.WriteString("COMMIT;\n")
	return bw.Flush()
}

// literal quotes s as a standard-conforming SQL string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
