package quotationhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// MountRoutes registers the quotation pages and exports.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/quotations", h.handleList)
	r.Get("/quotations/new", h.handleNew)
	r.Post("/quotations/new", h.handleBuilder)
	r.Post("/quotations", h.handleCreate)
	r.Get("/quotations/{id}", h.handleShow)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/quotations/{id}/pdf", h.handlePDF)
		gr.Get("/quotations/{id}/print", h.handlePrint)
	})
}

// MountAPI registers the JSON endpoints, relative to /api.
func (h *Handler) MountAPI(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/quotations", h.apiList)
	r.Post("/quotations", h.apiCreate)
	r.Post("/quotations/calculate", h.apiCalculate)
	r.Get("/quotations/{id}", h.apiGet)
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := strings.TrimSpace(shared.ActorFromContext(r.Context())); actor != "" {
		return "user:" + actor, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
