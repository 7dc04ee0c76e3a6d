package quotationhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotation"
	"github.com/quotedesk/quotedesk/internal/quotation/render"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// Service is the quotation use-case contract consumed by the handlers.
type Service interface {
	Create(ctx context.Context, f quotation.Form, actor string) (quotation.Quotation, error)
	Get(ctx context.Context, id int64) (quotation.Quotation, error)
	List(ctx context.Context, page, perPage int) (quotation.Page, error)
	Calculate(items []quotation.ItemForm) quotation.Summary
	PDF(ctx context.Context, id int64) (quotation.Quotation, []byte, error)
	PrintHTML(ctx context.Context, id int64) (quotation.Quotation, []byte, error)
}

// DocumentBuilder lays a quotation out with its images already fetched.
type DocumentBuilder interface {
	Document(ctx context.Context, q quotation.Quotation) render.Document
}

// Handler serves the quotation pages and JSON API.
type Handler struct {
	logger    *slog.Logger
	service   Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	document  render.Options
	builder   DocumentBuilder
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithDocumentBuilder makes the detail page inline logos the same way the
// exports do. Without it the page is laid out with no images.
func WithDocumentBuilder(b DocumentBuilder) HandlerOption {
	return func(h *Handler) { h.builder = b }
}

// NewHandler constructs the handler. document configures the on-screen
// rendition so it matches the exported one.
func NewHandler(logger *slog.Logger, service Service, templates *view.Engine, csrf *shared.CSRFManager, document render.Options, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, templates: templates, csrf: csrf, document: document}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type listRow struct {
	ID          int64
	QuotationID string
	Company     string
	Client      string
	Category    string
	Items       int
	GrandTotal  string
	CreatedAt   string
}

type listPage struct {
	Rows       []listRow
	Pagination shared.Pagination
}

type formPage struct {
	Form         quotation.Form
	Errors       httpx.FieldErrors
	Summary      quotation.Summary
	CompanyGroup []quotation.Field
	ClientGroup  []quotation.Field
	MetaGroup    []quotation.Field
	ItemFields   []quotation.Field
}

type detailPage struct {
	Quotation quotation.Quotation
	Document  render.Document
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.handleServerError(w, r, "list quotations", err)
		return
	}
	rows := make([]listRow, 0, len(result.Quotations))
	for _, q := range result.Quotations {
		client := q.Client.Name
		if client == "" {
			client = q.Client.Email
		}
		rows = append(rows, listRow{
			ID:          q.ID,
			QuotationID: q.QuotationID,
			Company:     q.Company.Name,
			Client:      client,
			Category:    q.Category,
			Items:       len(q.Items),
			GrandTotal:  quotation.FormatMoney(q.GrandTotal()),
			CreatedAt:   q.CreatedAt.Format("02 Jan 2006"),
		})
	}
	h.render(w, r, http.StatusOK, "pages/quotations_list.html", "Quotations", listPage{Rows: rows, Pagination: result.Pagination})
}

func (h *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, quotation.NewForm(uuid.NewString()), nil)
}

// handleBuilder applies add/remove/recalculate actions and re-renders the
// form, or falls through to creation on submit.
func (h *Handler) handleBuilder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	action := r.PostForm.Get("action")
	form := quotation.ParseForm(r.PostForm)
	if action == "" || action == quotation.ActionSubmit {
		h.create(w, r, form)
		return
	}
	if !form.Apply(action) {
		http.Error(w, "unknown form action", http.StatusBadRequest)
		return
	}
	if form.IdempotencyKey == "" {
		form.IdempotencyKey = uuid.NewString()
	}
	h.renderForm(w, r, http.StatusOK, form, nil)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.create(w, r, quotation.ParseForm(r.PostForm))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, form quotation.Form) {
	actor := shared.ActorFromContext(r.Context())
	q, err := h.service.Create(r.Context(), form, actor)
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, verr.Fields)
		return
	case errors.Is(err, quotation.ErrAlreadySubmitted):
		h.flash(r, shared.FlashInfo, "This quotation was already submitted.")
		http.Redirect(w, r, "/quotations", http.StatusSeeOther)
		return
	case err != nil:
		h.handleServerError(w, r, "create quotation", err)
		return
	}
	h.flash(r, shared.FlashSuccess, fmt.Sprintf("Quotation %s created.", q.QuotationID))
	http.Redirect(w, r, fmt.Sprintf("/quotations/%d", q.ID), http.StatusSeeOther)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleLookupError(w, r, "load quotation", err)
		return
	}
	// Logos are inlined as data URIs; the page never points the browser at
	// user-supplied URLs.
	doc := render.Layout(q, render.Assets{}, h.document)
	if h.builder != nil {
		doc = h.builder.Document(r.Context(), q)
	}
	h.render(w, r, http.StatusOK, "pages/quotation_detail.html", "Quotation "+q.QuotationID, detailPage{
		Quotation: q,
		Document:  doc,
	})
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, data, err := h.service.PDF(r.Context(), id)
	if errors.Is(err, httpx.ErrExport) {
		h.flash(r, shared.FlashError, quotation.ExportFailedMessage)
		http.Redirect(w, r, fmt.Sprintf("/quotations/%d", id), http.StatusSeeOther)
		return
	}
	if err != nil {
		h.handleLookupError(w, r, "export quotation", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.Filename("pdf")))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quotationID(w, r)
	if !ok {
		return
	}
	q, data, err := h.service.PrintHTML(r.Context(), id)
	if errors.Is(err, httpx.ErrExport) {
		h.flash(r, shared.FlashError, quotation.ExportFailedMessage)
		http.Redirect(w, r, fmt.Sprintf("/quotations/%d", id), http.StatusSeeOther)
		return
	}
	if err != nil {
		h.handleLookupError(w, r, "print quotation", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", q.Filename("html")))
	_, _ = w.Write(data)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form quotation.Form, errs httpx.FieldErrors) {
	h.render(w, r, status, "pages/quotation_form.html", "New Quotation", formPage{
		Form:         form,
		Errors:       errs,
		Summary:      h.service.Calculate(form.Items),
		CompanyGroup: quotation.FieldsInGroup(quotation.GroupCompany),
		ClientGroup:  quotation.FieldsInGroup(quotation.GroupClient),
		MetaGroup:    quotation.FieldsInGroup(quotation.GroupQuotation),
		ItemFields:   quotation.ItemFields,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var flashes []shared.FlashMessage
	if sess != nil {
		flashes = sess.PopFlashes()
	}
	td := view.TemplateData{
		Title:       title,
		CSRFToken:   h.csrf.Token(sess),
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Actor:       shared.ActorFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(kind, message)
	}
}

func (h *Handler) quotationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, http.StatusNotFound, "Quotation not found.")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleLookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, httpx.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "Quotation not found.")
		return
	}
	h.handleServerError(w, r, op, err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "pages/error.html", http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": message,
	})
}
