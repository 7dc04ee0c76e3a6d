// Package observability owns the Prometheus registry served on /metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
)

// Metrics collects HTTP, export and job metrics on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pdfExports      *prometheus.CounterVec
	pdfDuration     *prometheus.HistogramVec
	quotations      prometheus.Counter
	jobs            *jobmetrics.Metrics
}

// NewMetrics builds the registry and its collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotedesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotedesk_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotedesk_pdf_exports_total",
		Help: "Quotation PDF requests by backend and result.",
	}, []string{"backend", "result"})
	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotedesk_pdf_export_duration_seconds",
		Help:    "Time to produce a quotation PDF, cache hits included.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"backend"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_quotations_created_total",
		Help: "Quotations persisted.",
	})
	registry.MustRegister(requests, duration, exports, exportDuration, created)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		pdfExports:      exports,
		pdfDuration:     exportDuration,
		quotations:      created,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObservePDFExport records one PDF request.
func (m *Metrics) ObservePDFExport(backend, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pdfExports.WithLabelValues(backend, result).Inc()
	m.pdfDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// QuotationCreated counts one persisted quotation.
func (m *Metrics) QuotationCreated() {
	if m != nil {
		m.quotations.Inc()
	}
}

// Jobs exposes the background job collectors registered on this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
