package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/quotations/{id}")
	req := httptest.NewRequest(http.MethodGet, "/quotations/3", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `quotedesk_http_requests_total{code="418",route="/quotations/{id}"} 1`)
	assert.Contains(t, body, `quotedesk_http_request_duration_seconds_bucket{route="/quotations/{id}"`)
}

func TestExportAndJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObservePDFExport("gotenberg", "ok", 120*time.Millisecond)
	metrics.ObservePDFExport("gotenberg", "error", time.Second)
	metrics.QuotationCreated()
	_ = metrics.Jobs().Track("quotation:email").End(errors.New("smtp down"))

	body := scrape(t, metrics)
	assert.Contains(t, body, `quotedesk_pdf_exports_total{backend="gotenberg",result="ok"} 1`)
	assert.Contains(t, body, `quotedesk_pdf_exports_total{backend="gotenberg",result="error"} 1`)
	assert.Contains(t, body, "quotedesk_quotations_created_total 1")
	assert.Contains(t, body, `quotedesk_jobs_total{job="quotation:email",status="failure"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObservePDFExport("fpdf", "ok", 0)
	m.QuotationCreated()
	assert.Nil(t, m.Jobs())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
