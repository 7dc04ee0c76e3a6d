package quotation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type memoryRepo struct {
	rows    map[int64]Quotation
	nextID  int64
	failErr error
	clock   time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]Quotation{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memoryRepo) Create(_ context.Context, q Quotation) (int64, error) {
	if r.failErr != nil {
		return 0, r.failErr
	}
	for _, existing := range r.rows {
		if existing.QuotationID == q.QuotationID {
			return 0, httpx.ErrDuplicate
		}
	}
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	q.ID = r.nextID
	q.CreatedAt = r.clock
	r.rows[q.ID] = q
	return q.ID, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Quotation, error) {
	q, ok := r.rows[id]
	if !ok {
		return Quotation{}, httpx.ErrNotFound
	}
	return q, nil
}

func (r *memoryRepo) GetByQuotationID(_ context.Context, code string) (Quotation, error) {
	for _, q := range r.rows {
		if q.QuotationID == code {
			return q, nil
		}
	}
	return Quotation{}, httpx.ErrNotFound
}

func (r *memoryRepo) sorted() []Quotation {
	out := make([]Quotation, 0, len(r.rows))
	for _, q := range r.rows {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memoryRepo) List(_ context.Context, req ListRequest) ([]Quotation, int, error) {
	all := r.sorted()
	start := (req.Page - 1) * req.PerPage
	if start > len(all) {
		start = len(all)
	}
	end := min(start+req.PerPage, len(all))
	return all[start:end], len(all), nil
}

func (r *memoryRepo) All(_ context.Context) ([]Quotation, error) {
	return r.sorted(), nil
}

type memoryIdempotency struct {
	keys     map[string]bool
	released []string
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[module+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+key] = true
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, key, module string) error {
	delete(m.keys, module+key)
	m.released = append(m.released, key)
	return nil
}

type recordingAudit struct{ entries []shared.AuditLog }

func (a *recordingAudit) Record(_ context.Context, entry shared.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

type recordingMailer struct {
	ids []int64
	err error
}

func (m *recordingMailer) EnqueueQuotationEmail(_ context.Context, id int64) error {
	m.ids = append(m.ids, id)
	return m.err
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (r stubRenderer) PDF(context.Context, Quotation) ([]byte, error) { return r.pdf, r.err }

func (r stubRenderer) HTML(context.Context, Quotation) ([]byte, error) { return []byte("<html>"), r.err }

type counter struct{ n int }

func (c *counter) QuotationCreated() { c.n++ }

type fixture struct {
	svc     *Service
	repo    *memoryRepo
	idem    *memoryIdempotency
	audit   *recordingAudit
	mailer  *recordingMailer
	metrics *counter
}

func newFixture(renderer DocumentRenderer) fixture {
	f := fixture{
		repo:    newMemoryRepo(),
		idem:    &memoryIdempotency{},
		audit:   &recordingAudit{},
		mailer:  &recordingMailer{},
		metrics: &counter{},
	}
	f.svc = NewService(ServiceDeps{
		Repo:        f.repo,
		Validator:   NewValidator(NewDomainPolicy(false)),
		Renderer:    renderer,
		Idempotency: f.idem,
		Audit:       f.audit,
		Mailer:      f.mailer,
		Metrics:     f.metrics,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestServiceCreate(t *testing.T) {
	f := newFixture(nil)
	form := sampleForm()
	form.EmailClient = true
	form.IdempotencyKey = "k-1"

	q, err := f.svc.Create(context.Background(), form, "ana@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, q.ID)
	assert.Equal(t, "ana@example.com", q.CreatedBy)
	assert.False(t, q.CreatedAt.IsZero())
	assert.Equal(t, "655.00", q.GrandTotal().StringFixed(2))

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "quotation.create", f.audit.entries[0].Action)
	assert.Equal(t, "655.00", f.audit.entries[0].Meta["grand_total"])
	assert.Equal(t, []int64{1}, f.mailer.ids)
	assert.Equal(t, 1, f.metrics.n)
}

func TestServiceCreateRejectsDoubleSubmission(t *testing.T) {
	f := newFixture(nil)
	form := sampleForm()
	form.IdempotencyKey = "same"

	_, err := f.svc.Create(context.Background(), form, "")
	require.NoError(t, err)

	form.QuotationID = "QT-002"
	_, err = f.svc.Create(context.Background(), form, "")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Len(t, f.repo.rows, 1)
	assert.Empty(t, f.mailer.ids)
}

func TestServiceCreateValidationFailure(t *testing.T) {
	f := newFixture(nil)
	form := sampleForm()
	form.ClientEmail = ""

	_, err := f.svc.Create(context.Background(), form, "")
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Client Email is required", verr.Fields["client_email"])
	assert.Empty(t, f.repo.rows)
}

func TestServiceCreateDuplicateCodeReleasesKey(t *testing.T) {
	f := newFixture(nil)
	first := sampleForm()
	first.IdempotencyKey = "a"
	_, err := f.svc.Create(context.Background(), first, "")
	require.NoError(t, err)

	second := sampleForm()
	second.IdempotencyKey = "b"
	_, err = f.svc.Create(context.Background(), second, "")
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["quotation_id"], "already exists")
	assert.Equal(t, []string{"b"}, f.idem.released)
}

func TestServiceCreateMailerFailureIsNotFatal(t *testing.T) {
	f := newFixture(nil)
	f.mailer.err = errors.New("redis down")
	form := sampleForm()
	form.EmailClient = true

	_, err := f.svc.Create(context.Background(), form, "")
	assert.NoError(t, err)
}

func TestServiceList(t *testing.T) {
	f := newFixture(nil)
	for i := 0; i < 12; i++ {
		form := sampleForm()
		form.QuotationID = "QT-" + string(rune('A'+i))
		_, err := f.svc.Create(context.Background(), form, "")
		require.NoError(t, err)
	}

	page, err := f.svc.List(context.Background(), 2, 7)
	require.NoError(t, err)
	assert.Equal(t, 10, page.Pagination.PerPage)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Quotations, 2)
	assert.Equal(t, "QT-B", page.Quotations[0].QuotationID)

	page, err = f.svc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Quotations, 12)
	assert.Equal(t, "QT-L", page.Quotations[0].QuotationID)
	page, err = f.svc.List(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Pagination.PerPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	require.Len(t, page.Quotations, 2)
	assert.Equal(t, "QT-B", page.Quotations[0].QuotationID)
}

func TestServicePDF(t *testing.T) {
	f := newFixture(stubRenderer{pdf: []byte("%PDF")})
	q, err := f.svc.Create(context.Background(), sampleForm(), "")
	require.NoError(t, err)

	got, data, err := f.svc.PDF(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "quotation-QT-001.pdf", got.Filename("pdf"))
	assert.Equal(t, "%PDF", string(data))

	_, _, err = f.svc.PDF(context.Background(), 99)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServicePDFWithoutRendererFails(t *testing.T) {
	f := newFixture(nil)
	q, err := f.svc.Create(context.Background(), sampleForm(), "")
	require.NoError(t, err)
	_, _, err = f.svc.PDF(context.Background(), q.ID)
	assert.ErrorIs(t, err, httpx.ErrExport)
}

func TestServiceCalculate(t *testing.T) {
	f := newFixture(nil)
	s := f.svc.Calculate([]ItemForm{
		{Name: "Website Design", Quantity: "1", UnitPrice: "500", TaxPercent: "10"},
		{Name: "Hosting", Quantity: "1", UnitPrice: "100", TaxPercent: "5"},
		{Name: "Typo", Quantity: "x", UnitPrice: "y", TaxPercent: "z"},
	})
	assert.Equal(t, "655.00", s.GrandTotal.StringFixed(2))
	assert.True(t, s.Lines[2].LineTotal.IsZero())
}
