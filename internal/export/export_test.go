package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/quotedesk/quotedesk/internal/quotation"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

func fixtures() []quotation.Quotation {
	return []quotation.Quotation{
		{
			ID:          1,
			QuotationID: "QT-001",
			Category:    "Design",
			Company:     quotation.CompanyProfile{Name: "O'Brien & Co", Email: "hi@obrien.io"},
			Client:      quotation.ClientProfile{Name: "Globex", Email: "buyer@globex.com"},
			Items: []quotation.Item{
				{Name: "Logo", Quantity: 1, UnitPrice: decimal.RequireFromString("500"), TaxPercent: decimal.RequireFromString("10")},
				{Name: "Icons", Quantity: 1, UnitPrice: decimal.RequireFromString("100"), TaxPercent: decimal.RequireFromString("5"), Notes: "set of 12"},
			},
			CreatedBy: "ana@obrien.io",
			CreatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fixtures()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Columns, records[0])
	row := records[1]
	assert.Equal(t, "QT-001", row[1])
	assert.Equal(t, "O'Brien & Co", row[3])
	assert.Equal(t, "2", row[7])
	assert.Equal(t, "600.00", row[8])
	assert.Equal(t, "55.00", row[9])
	assert.Equal(t, "655.00", row[10])
	assert.Equal(t, "2024-05-01T09:30:00Z", row[12])
}

func TestWriteCSVNeutralisesFormulas(t *testing.T) {
	qs := fixtures()
	qs[0].Category = "=HYPERLINK(\"http://evil\",\"x\")"
	qs[0].Company.Name = "@SUM(A1)"
	qs[0].Client.Name = "+cmd|' /C calc'!A0"
	qs[0].CreatedBy = "-2+3"

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, qs))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	row := records[1]
	assert.Equal(t, "'=HYPERLINK(\"http://evil\",\"x\")", row[2])
	assert.Equal(t, "'@SUM(A1)", row[3])
	assert.Equal(t, "'-2+3", row[len(row)-2])
	assert.Contains(t, records[1], "'+cmd|' /C calc'!A0")
	assert.Equal(t, "655.00", row[10])
}

func TestEscapeCell(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"Globex":   "Globex",
		"-12.50":   "-12.50",
		"+1":       "+1",
		"-":        "'-",
		"=1+1":     "'=1+1",
		"\t=cmd":   "'\t=cmd",
		"\rfoo":    "'\rfoo",
		"@import":  "'@import",
		"-1+cmd|a": "'-1+cmd|a",
		"a=b":      "a=b",
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeCell(in), "%q", in)
	}
}

func TestWriteSQLQuotesLiterals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSQL(&buf, fixtures()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "-- quotedesk export, 1 quotations\nBEGIN;\n"))
	assert.True(t, strings.HasSuffix(out, "COMMIT;\n"))
	assert.Contains(t, out, "'O''Brien & Co'")
	assert.Contains(t, out, "'2024-05-01T09:30:00Z'::timestamptz")
	assert.Contains(t, out, "(SELECT id FROM quotations WHERE quotation_id = 'QT-001'), 1, 'Logo', 1, 500, 10, NULL);")
	assert.Contains(t, out, "2, 'Icons', 1, 100, 5, 'set of 12');")
	assert.Equal(t, 3, strings.Count(out, "INSERT INTO"))
}

func TestGoogleSheetAppendRows(t *testing.T) {
	var gotPath, gotQuery string
	var body struct {
		Values [][]string `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRows":2}}`))
	}))
	defer srv.Close()

	sheet, err := NewGoogleSheet(context.Background(), "sheet-1", "Quotations!A1",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	written, err := sheet.AppendRows(context.Background(), SheetRows(fixtures()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
	assert.Contains(t, gotPath, "/v4/spreadsheets/sheet-1/values/")
	assert.Contains(t, gotQuery, "valueInputOption=RAW")
	assert.NotContains(t, gotQuery, "USER_ENTERED")
	assert.Contains(t, gotQuery, "insertDataOption=INSERT_ROWS")
	require.Len(t, body.Values, 2)
	assert.Equal(t, "quotation_id", body.Values[0][1])
	assert.Equal(t, "655.00", body.Values[1][10])
}

func TestNewGoogleSheetRequiresSpreadsheet(t *testing.T) {
	_, err := NewGoogleSheet(context.Background(), "", "Quotations!A1")
	assert.ErrorIs(t, err, ErrSheetsDisabled)
}

type stubSource struct {
	quotations []quotation.Quotation
	err        error
}

func (s stubSource) All(ctx context.Context) ([]quotation.Quotation, error) {
	return s.quotations, s.err
}

type stubSheet struct {
	rows [][]interface{}
	err  error
}

func (s *stubSheet) AppendRows(ctx context.Context, rows [][]interface{}) (int64, error) {
	s.rows = rows
	return int64(len(rows)), s.err
}

func newRouter(t *testing.T, source Source, sheet SheetAppender) (http.Handler, *shared.Session) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), source, sheet, engine, shared.NewCSRFManager("secret"))
	h.now = func() time.Time { return time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC) }

	sess := shared.NewSession("s1")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/export", h.MountRoutes)
	return r, sess
}

func TestExportPage(t *testing.T) {
	r, _ := newRouter(t, stubSource{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Export as CSV")
	assert.Contains(t, rec.Body.String(), "Spreadsheet export is not configured")
}

func TestCSVDownload(t *testing.T) {
	r, _ := newRouter(t, stubSource{quotations: fixtures()}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/quotations.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="quotations-20240602.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "QT-001")
}

func TestSQLDownloadFailureFlashes(t *testing.T) {
	r, sess := newRouter(t, stubSource{err: errors.New("db down")}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/quotations.sql", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	flashes := sess.PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, exportFailedMessage, flashes[0].Message)
}

func TestSheetExport(t *testing.T) {
	sheet := &stubSheet{}
	r, sess := newRouter(t, stubSource{quotations: fixtures()}, sheet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export/sheet", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, sheet.rows, 2)
	flashes := sess.PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, shared.FlashSuccess, flashes[0].Kind)
}

func TestSheetExportNotConfigured(t *testing.T) {
	r, sess := newRouter(t, stubSource{quotations: fixtures()}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export/sheet", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	flashes := sess.PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, shared.FlashError, flashes[0].Kind)
}
