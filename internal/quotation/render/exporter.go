package render

import (
	"context"

	"github.com/quotedesk/quotedesk/report"
)

// Exporter turns a laid-out document into PDF bytes.
type Exporter interface {
	Backend() string
	Export(ctx context.Context, doc Document) ([]byte, error)
}

// GotenbergExporter prints the HTML rendition through Gotenberg's Chromium route.
type GotenbergExporter struct {
	client *report.Client
	page   report.PageOptions
}

// NewGotenbergExporter prints on US letter with half-inch margins.
func NewGotenbergExporter(client *report.Client) *GotenbergExporter {
	return &GotenbergExporter{client: client, page: report.Letter}
}

// Backend names the exporter in metrics and cache keys.
func (e *GotenbergExporter) Backend() string { return "gotenberg" }

// Export renders doc to HTML and converts it.
func (e *GotenbergExporter) Export(ctx context.Context, doc Document) ([]byte, error) {
	html, err := HTML(doc)
	if err != nil {
		return nil, err
	}
	return e.client.RenderHTML(ctx, html, e.page)
}
