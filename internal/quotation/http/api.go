package quotationhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotation"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type itemResponse struct {
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	TaxPercent string `json:"taxPercent"`
	Subtotal   string `json:"subtotal"`
	TaxAmount  string `json:"taxAmount"`
	LineTotal  string `json:"lineTotal"`
	Notes      string `json:"notes,omitempty"`
}

type quotationResponse struct {
	ID          int64                    `json:"id"`
	QuotationID string                   `json:"quotationId"`
	Category    string                   `json:"category"`
	Company     quotation.CompanyProfile `json:"company"`
	Client      quotation.ClientProfile  `json:"client"`
	Items       []itemResponse           `json:"items"`
	Subtotal    string                   `json:"subtotal"`
	TaxTotal    string                   `json:"taxTotal"`
	GrandTotal  string                   `json:"grandTotal"`
	EmailClient bool                     `json:"emailClient"`
	CreatedBy   string                   `json:"createdBy,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}

type paginationResponse struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data       []quotationResponse `json:"data"`
	Pagination paginationResponse  `json:"pagination"`
}

type summaryResponse struct {
	Items      []itemResponse `json:"items"`
	Subtotal   string         `json:"subtotal"`
	TaxTotal   string         `json:"taxTotal"`
	GrandTotal string         `json:"grandTotal"`
}

type createRequest struct {
	quotation.Quotation
	IdempotencyKey string `json:"idempotencyKey"`
}

// lenientValue accepts a JSON number or string so previews never reject
// half-typed input.
type lenientValue string

func (v *lenientValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = lenientValue(s)
		return nil
	}
	*v = lenientValue(data)
	return nil
}

type calculateItem struct {
	Name       string       `json:"name"`
	Quantity   lenientValue `json:"quantity"`
	UnitPrice  lenientValue `json:"unitPrice"`
	TaxPercent lenientValue `json:"taxPercent"`
	Notes      string       `json:"notes"`
}

type calculateRequest struct {
	Items []calculateItem `json:"items"`
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := listResponse{
		Data: make([]quotationResponse, 0, len(result.Quotations)),
		Pagination: paginationResponse{
			Page:       result.Pagination.Page,
			PerPage:    result.Pagination.PerPage,
			Total:      result.Pagination.Total,
			TotalPages: result.Pagination.TotalPages,
		},
	}
	for _, q := range result.Quotations {
		out.Data = append(out.Data, toResponse(q))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) apiGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(q))
}

func (h *Handler) apiCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	form := quotation.FormFromQuotation(req.Quotation)
	form.IdempotencyKey = req.IdempotencyKey
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		form.IdempotencyKey = key
	}
	q, err := h.service.Create(r.Context(), form, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/quotations/%d", q.ID))
	httpx.JSON(w, http.StatusCreated, toResponse(q))
}

func (h *Handler) apiCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]quotation.ItemForm, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, quotation.ItemForm{
			Name:       it.Name,
			Quantity:   string(it.Quantity),
			UnitPrice:  string(it.UnitPrice),
			TaxPercent: string(it.TaxPercent),
			Notes:      it.Notes,
		})
	}
	httpx.JSON(w, http.StatusOK, toSummaryResponse(h.service.Calculate(items)))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("quotation api",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toResponse(q quotation.Quotation) quotationResponse {
	s := q.Summary()
	return quotationResponse{
		ID:          q.ID,
		QuotationID: q.QuotationID,
		Category:    q.Category,
		Company:     q.Company,
		Client:      q.Client,
		Items:       toItemResponses(s),
		Subtotal:    s.Subtotal.StringFixed(2),
		TaxTotal:    s.TaxTotal.StringFixed(2),
		GrandTotal:  s.GrandTotal.StringFixed(2),
		EmailClient: q.EmailClient,
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
	}
}

func toSummaryResponse(s quotation.Summary) summaryResponse {
	return summaryResponse{
		Items:      toItemResponses(s),
		Subtotal:   s.Subtotal.StringFixed(2),
		TaxTotal:   s.TaxTotal.StringFixed(2),
		GrandTotal: s.GrandTotal.StringFixed(2),
	}
}

func toItemResponses(s quotation.Summary) []itemResponse {
	out := make([]itemResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, itemResponse{
			Position:   l.Position,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice.StringFixed(2),
			TaxPercent: l.TaxPercent.String(),
			Subtotal:   l.Subtotal.StringFixed(2),
			TaxAmount:  l.TaxAmount.StringFixed(2),
			LineTotal:  l.LineTotal.StringFixed(2),
			Notes:      l.Notes,
		})
	}
	return out
}
