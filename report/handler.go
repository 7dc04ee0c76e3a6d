package report

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SampleRenderer produces a demonstration PDF.
type SampleRenderer interface {
	Sample(ctx context.Context) ([]byte, error)
}

// Handler manages report endpoints.
type Handler struct {
	client  *Client
	sampler SampleRenderer
	logger  *slog.Logger
}

// NewHandler creates a report handler. sampler may be nil.
func NewHandler(client *Client, sampler SampleRenderer, logger *slog.Logger) *Handler {
	return &Handler{client: client, sampler: sampler, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	if h.sampler != nil {
		r.Get("/sample", h.sample)
	}
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.sampler.Sample(r.Context())
	if err != nil {
		h.logger.Error("render sample pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="quotation-sample.pdf"`)
	_, _ = w.Write(pdf)
}
