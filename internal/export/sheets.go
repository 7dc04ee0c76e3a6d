package export

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

// ErrSheetsDisabled means no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("export: spreadsheet export is not configured")

// SheetAppender appends rows below the table found at a range.
type SheetAppender interface {
	AppendRows(ctx context.Context, rows [][]interface{}) (int64, error)
}

// GoogleSheet appends rows through the Sheets API.
type GoogleSheet struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetRange    string
}

// NewGoogleSheet builds a Sheets client. Callers pass the credentials option,
// e.g. option.WithCredentialsFile.
func NewGoogleSheet(ctx context.Context, spreadsheetID, sheetRange string, opts ...option.ClientOption) (*GoogleSheet, error) {
	if spreadsheetID == "" {
		return nil, ErrSheetsDisabled
	}
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}, opts...)
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return &GoogleSheet{service: service, spreadsheetID: spreadsheetID, sheetRange: sheetRange}, nil
}

// valueInputRaw stores cells as typed so user text is never parsed as a formula.
const valueInputRaw = "RAW"

// AppendRows appends rows in one call and reports how many the API wrote.
func (g *GoogleSheet) AppendRows(ctx context.Context, rows [][]interface{}) (int64, error) {
	payload := &sheetsapi.ValueRange{Values: rows}
	resp, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, g.sheetRange, payload).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append rows into range %s: %w", g.sheetRange, err)
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return resp.Updates.UpdatedRows, nil
}

// SheetRows converts quotations into a header row plus one row per quotation.
func SheetRows(quotations []quotation.Quotation) [][]interface{} {
	rows := make([][]interface{}, 0, len(quotations)+1)
	rows = append(rows, toInterfaces(Columns))
	for _, q := range quotations {
		rows = append(rows, toInterfaces(Row(q)))
	}
	return rows
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
