package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/quotedesk/quotedesk/internal/quotation"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

const exportFailedMessage = "Could not export the quotations. Please try again."

// Source lists every stored quotation.
type Source interface {
	All(ctx context.Context) ([]quotation.Quotation, error)
}

// Handler serves the export page and downloads.
type Handler struct {
	logger    *slog.Logger
	source    Source
	sheet     SheetAppender
	templates *view.Engine
	csrf      *shared.CSRFManager
	bufPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the export handler. sheet may be nil when no
// spreadsheet is configured.
func NewHandler(logger *slog.Logger, source Source, sheet SheetAppender, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		source:    source,
		sheet:     sheet,
		templates: templates,
		csrf:      csrf,
		now:       time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers the export endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/", h.showPage)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/quotations.csv", h.handleCSV)
		gr.Get("/quotations.sql", h.handleSQL)
		gr.Post("/sheet", h.handleSheet)
	})
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var flashes []shared.FlashMessage
	if sess != nil {
		flashes = sess.PopFlashes()
	}
	data := view.TemplateData{
		Title:       "Export",
		CSRFToken:   h.csrf.Token(sess),
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Actor:       shared.ActorFromContext(r.Context()),
		Data:        map[string]any{"SheetEnabled": h.sheet != nil},
	}
	if err := h.templates.Render(w, "pages/export.html", data); err != nil {
		h.logger.Error("render export page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "csv", "text/csv; charset=utf-8", WriteCSV)
}

func (h *Handler) handleSQL(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "sql", "application/sql; charset=utf-8", WriteSQL)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []quotation.Quotation) error) {
	quotations, err := h.source.All(r.Context())
	if err != nil {
		h.fail(w, r, "load quotations for export", err)
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.bufPool.Put(buf)
	if err := write(buf, quotations); err != nil {
		h.fail(w, r, "write "+ext+" export", err)
		return
	}
	filename := fmt.Sprintf("quotations-%s.%s", h.now().UTC().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream export", slog.String("format", ext), slog.Any("error", err))
	}
}

func (h *Handler) handleSheet(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if h.sheet == nil {
		if sess != nil {
			sess.AddFlash(shared.FlashError, "Spreadsheet export is not configured.")
		}
		http.Redirect(w, r, "/export", http.StatusSeeOther)
		return
	}
	quotations, err := h.source.All(r.Context())
	if err != nil {
		h.fail(w, r, "load quotations for sheet", err)
		return
	}
	written, err := h.sheet.AppendRows(r.Context(), SheetRows(quotations))
	if err != nil {
		h.fail(w, r, "append sheet rows", err)
		return
	}
	h.logger.Info("exported quotations to sheet", slog.Int("quotations", len(quotations)), slog.Int64("rows", written))
	if sess != nil {
		sess.AddFlash(shared.FlashSuccess, fmt.Sprintf("Exported %d quotations to the spreadsheet.", len(quotations)))
	}
	http.Redirect(w, r, "/export", http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashError, exportFailedMessage)
	}
	http.Redirect(w, r, "/export", http.StatusSeeOther)
}
