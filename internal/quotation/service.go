package quotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// ExportFailedMessage is the only export error users ever see.
const ExportFailedMessage = "Could not export the quotation. Please try again."

const idempotencyModule = "quotation.create"

// ErrAlreadySubmitted means the form's idempotency key was used before.
var ErrAlreadySubmitted = fmt.Errorf("quotation already submitted: %w", httpx.ErrDuplicate)

// RepositoryPort is the persistence collaborator.
type RepositoryPort interface {
	Create(ctx context.Context, q Quotation) (int64, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	GetByQuotationID(ctx context.Context, code string) (Quotation, error)
	List(ctx context.Context, req ListRequest) ([]Quotation, int, error)
	All(ctx context.Context) ([]Quotation, error)
}

// DocumentRenderer exports stored quotations.
type DocumentRenderer interface {
	PDF(ctx context.Context, q Quotation) ([]byte, error)
	HTML(ctx context.Context, q Quotation) ([]byte, error)
}

// IdempotencyPort guards against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Release(ctx context.Context, key, module string) error
}

// AuditPort records who created what.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// EmailEnqueuer hands a stored quotation to the background mailer.
type EmailEnqueuer interface {
	EnqueueQuotationEmail(ctx context.Context, id int64) error
}

// MetricsPort counts created quotations.
type MetricsPort interface {
	QuotationCreated()
}

// ServiceDeps wires a Service. Only Repo and Validator are required.
type ServiceDeps struct {
	Repo        RepositoryPort
	Validator   *Validator
	Renderer    DocumentRenderer
	Idempotency IdempotencyPort
	Audit       AuditPort
	Mailer      EmailEnqueuer
	Metrics     MetricsPort
	Logger      *slog.Logger
}

// Service implements the quotation use cases.
type Service struct {
	deps   ServiceDeps
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator(NewDomainPolicy(false))
	}
	return &Service{deps: deps, logger: logger}
}

// Validate checks a form without persisting it.
func (s *Service) Validate(f Form) httpx.FieldErrors {
	return s.deps.Validator.Validate(f)
}

// Create validates and stores a quotation submitted by actor.
func (s *Service) Create(ctx context.Context, f Form, actor string) (Quotation, error) {
	if errs := s.deps.Validator.Validate(f); errs != nil {
		return Quotation{}, &httpx.ValidationError{Fields: errs}
	}

	key := f.IdempotencyKey
	if key != "" && s.deps.Idempotency != nil {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Quotation{}, ErrAlreadySubmitted
			}
			return Quotation{}, err
		}
	}

	q := f.Quotation()
	q.CreatedBy = actor
	id, err := s.deps.Repo.Create(ctx, q)
	if err != nil {
		s.release(ctx, key)
		if errors.Is(err, httpx.ErrDuplicate) {
			return Quotation{}, &httpx.ValidationError{Fields: httpx.FieldErrors{
				"quotation_id": "Quotation ID " + q.QuotationID + " already exists",
			}}
		}
		return Quotation{}, err
	}

	stored, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, fmt.Errorf("reload quotation %d: %w", id, err)
	}

	if s.deps.Audit != nil {
		entry := shared.AuditLog{
			Actor:    actor,
			Action:   "quotation.create",
			Entity:   "quotation",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"quotation_id": stored.QuotationID,
				"items":        len(stored.Items),
				"grand_total":  stored.GrandTotal().StringFixed(2),
			},
		}
		if err := s.deps.Audit.Record(ctx, entry); err != nil {
			s.logger.Warn("audit quotation create", slog.Int64("id", id), slog.Any("error", err))
		}
	}
	if stored.EmailClient && s.deps.Mailer != nil {
		if err := s.deps.Mailer.EnqueueQuotationEmail(ctx, id); err != nil {
			s.logger.Warn("enqueue quotation email", slog.Int64("id", id), slog.Any("error", err))
		}
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.QuotationCreated()
	}
	s.logger.Info("quotation created",
		slog.Int64("id", id),
		slog.String("quotation_id", stored.QuotationID),
		slog.String("actor", actor))
	return stored, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" || s.deps.Idempotency == nil {
		return
	}
	if err := s.deps.Idempotency.Release(ctx, key, idempotencyModule); err != nil {
		s.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

// Get loads a quotation by row id.
func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	if id <= 0 {
		return Quotation{}, httpx.ErrNotFound
	}
	return s.deps.Repo.Get(ctx, id)
}

// GetByQuotationID loads a quotation by its code.
func (s *Service) GetByQuotationID(ctx context.Context, code string) (Quotation, error) {
	if code == "" {
		return Quotation{}, httpx.ErrNotFound
	}
	return s.deps.Repo.GetByQuotationID(ctx, code)
}

// Page is one page of the listing.
type Page struct {
	Quotations []Quotation
	Pagination shared.Pagination
}

// List returns one page, newest first. perPage falls back to 10 unless it is 5, 10, 20 or 50.
func (s *Service) List(ctx context.Context, page, perPage int) (Page, error) {
	page, perPage = shared.NormalizePage(page, perPage)
	items, total, err := s.deps.Repo.List(ctx, ListRequest{Page: page, PerPage: perPage})
	if err != nil {
		return Page{}, err
	}
	return Page{Quotations: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// All returns every quotation for listing exports.
func (s *Service) All(ctx context.Context) ([]Quotation, error) {
	return s.deps.Repo.All(ctx)
}

// Calculate previews amounts for unsaved lines.
func (s *Service) Calculate(items []ItemForm) Summary {
	return Form{Items: items}.Summary()
}

// PDF loads and exports a quotation. Export failures wrap httpx.ErrExport.
func (s *Service) PDF(ctx context.Context, id int64) (Quotation, []byte, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return Quotation{}, nil, err
	}
	if s.deps.Renderer == nil {
		return q, nil, fmt.Errorf("%w: renderer not configured", httpx.ErrExport)
	}
	data, err := s.deps.Renderer.PDF(ctx, q)
	if err != nil {
		return q, nil, err
	}
	return q, data, nil
}

// PrintHTML renders the standalone print page of a quotation.
func (s *Service) PrintHTML(ctx context.Context, id int64) (Quotation, []byte, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return Quotation{}, nil, err
	}
	if s.deps.Renderer == nil {
		return q, nil, fmt.Errorf("%w: renderer not configured", httpx.ErrExport)
	}
	data, err := s.deps.Renderer.HTML(ctx, q)
	if err != nil {
		return q, nil, fmt.Errorf("%w: %v", httpx.ErrExport, err)
	}
	return q, data, nil
}
