package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotation"
)

// Export results reported to the observer.
const (
	ResultOK       = "ok"
	ResultCacheHit = "cache_hit"
	ResultError    = "error"
)

// ExportObserver receives one call per PDF request.
type ExportObserver interface {
	ObservePDFExport(backend, result string, elapsed time.Duration)
}

// Config wires a Renderer.
type Config struct {
	Fetcher  *Fetcher
	Exporter Exporter
	Cache    *cache.Blob
	Observer ExportObserver
	Logger   *slog.Logger
	Options  Options
}

// Renderer joins images, lays out and exports quotations.
type Renderer struct {
	fetcher  *Fetcher
	exporter Exporter
	cache    *cache.Blob
	observer ExportObserver
	logger   *slog.Logger
	opts     Options
}

// New constructs a Renderer.
func New(cfg Config) *Renderer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		fetcher:  cfg.Fetcher,
		exporter: cfg.Exporter,
		cache:    cfg.Cache,
		observer: cfg.Observer,
		logger:   logger,
		opts:     cfg.Options,
	}
}

// Document loads the images of q and lays it out.
func (r *Renderer) Document(ctx context.Context, q quotation.Quotation) Document {
	var assets Assets
	if r.fetcher != nil {
		assets = r.fetcher.Fetch(ctx, q)
	}
	return Layout(q, assets, r.opts)
}

// HTML returns the standalone print page of q.
func (r *Renderer) HTML(ctx context.Context, q quotation.Quotation) ([]byte, error) {
	return HTML(r.Document(ctx, q))
}

// PDF returns the exported document of q. Stored quotations never change, so
// their PDFs are cached per backend; any exporter failure is reported as
// httpx.ErrExport and nothing is cached.
func (r *Renderer) PDF(ctx context.Context, q quotation.Quotation) ([]byte, error) {
	if r.exporter == nil {
		return nil, fmt.Errorf("%w: no exporter configured", httpx.ErrExport)
	}
	start := time.Now()
	backend := r.exporter.Backend()
	key := ""
	if q.ID > 0 {
		key = strconv.FormatInt(q.ID, 10) + ":" + backend
		data, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("pdf cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		if ok {
			r.observe(backend, ResultCacheHit, start)
			return data, nil
		}
	}

	doc := r.Document(ctx, q)
	data, err := r.exporter.Export(ctx, doc)
	if err == nil && len(data) == 0 {
		err = errors.New("empty document")
	}
	if err != nil {
		r.observe(backend, ResultError, start)
		r.logger.Error("quotation export failed",
			slog.String("quotation_id", q.QuotationID),
			slog.String("backend", backend),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", httpx.ErrExport, err)
	}

	if key != "" {
		if err := r.cache.Set(ctx, key, data); err != nil {
			r.logger.Warn("pdf cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	r.observe(backend, ResultOK, start)
	return data, nil
}

// Sample exports the demonstration quotation.
func (r *Renderer) Sample(ctx context.Context) ([]byte, error) {
	return r.PDF(ctx, quotation.Sample("", time.Now()))
}

func (r *Renderer) observe(backend, result string, start time.Time) {
	if r.observer != nil {
		r.observer.ObservePDFExport(backend, result, time.Since(start))
	}
}
