package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

// WriteCSV writes a header row followed by one row per quotation. Cells a
// spreadsheet would evaluate as a formula are prefixed with a quote.
func WriteCSV(w io.Writer, quotations []quotation.Quotation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, q := range quotations {
		row := Row(q)
		for i := range row {
			row[i] = escapeCell(row[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func escapeCell(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if v[0] == '+' || v[0] == '-' {
		if _, err := decimal.NewFromString(v); err == nil {
			return v
		}
	}
	return "'" + v
}
