package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/quotation/render"
	"github.com/quotedesk/quotedesk/report"
)

// NewRenderer wires the document renderer for the configured PDF backend.
// Both the web server and the worker export through it, so an emailed PDF
// matches the downloaded one. observer may be nil.
func NewRenderer(cfg *Config, redisClient *redis.Client, observer render.ExportObserver, logger *slog.Logger) *render.Renderer {
	var exporter render.Exporter
	switch cfg.PDFBackend {
	case PDFBackendFPDF:
		exporter = render.NewFPDFExporter()
	default:
		exporter = render.NewGotenbergExporter(report.NewClient(cfg.GotenbergURL, cfg.AppWriteTimeout))
	}
	var pdfCache *cache.Blob
	if cfg.PDFCacheTTL > 0 {
		pdfCache = cache.NewBlob(redisClient, "quotedesk:pdf:", cfg.PDFCacheTTL)
	}
	return render.New(render.Config{
		Fetcher:  render.NewFetcher(cfg.ImageTimeout, logger, render.AllowPrivateNetworks(cfg.ImageAllowPrivate)),
		Exporter: exporter,
		Cache:    pdfCache,
		Observer: observer,
		Logger:   logger,
		Options:  cfg.DocumentOptions(),
	})
}

// DocumentOptions returns the deployment-level document settings.
func (c *Config) DocumentOptions() render.Options {
	return render.Options{Currency: c.CurrencyLabel, PolicyURL: c.PolicyURL}
}
