package jobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotation"
)

type stubSource map[int64]quotation.Quotation

func (s stubSource) Get(ctx context.Context, id int64) (quotation.Quotation, error) {
	q, ok := s[id]
	if !ok {
		return quotation.Quotation{}, httpx.ErrNotFound
	}
	return q, nil
}

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) PDF(ctx context.Context, q quotation.Quotation) ([]byte, error) {
	r.calls++
	return []byte("%PDF-1.4"), r.err
}

type recordingSender struct {
	sent []Message
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func emailQuotation(emailClient bool) quotation.Quotation {
	return quotation.Quotation{
		ID:          4,
		QuotationID: "QT-004",
		Company:     quotation.CompanyProfile{Name: "Acme", Email: "sales@acme.io"},
		Client:      quotation.ClientProfile{Name: "Globex", Email: "buyer@globex.com"},
		Items: []quotation.Item{
			{Name: "Audit", Quantity: 1, UnitPrice: decimal.RequireFromString("500"), TaxPercent: decimal.RequireFromString("10")},
		},
		EmailClient: emailClient,
	}
}

func newEmailJob(src stubSource) (*QuotationEmailJob, *stubRenderer, *recordingSender) {
	renderer := &stubRenderer{}
	sender := &recordingSender{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	return NewQuotationEmailJob(src, renderer, sender, nil, metrics), renderer, sender
}

func TestQuotationEmailJobSendsPDF(t *testing.T) {
	job, renderer, sender := newEmailJob(stubSource{4: emailQuotation(true)})
	task, err := NewQuotationEmailTask(4)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, renderer.calls)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "buyer@globex.com", msg.To)
	assert.Equal(t, "Quotation QT-004 from Acme", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Globex,")
	assert.Contains(t, msg.Body, "Grand total: 550.00")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "quotation-QT-004.pdf", msg.Attachments[0].Filename)
}

func TestQuotationEmailJobSkipsWhenNotRequested(t *testing.T) {
	job, renderer, sender := newEmailJob(stubSource{4: emailQuotation(false)})
	task, err := NewQuotationEmailTask(4)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Zero(t, renderer.calls)
	assert.Empty(t, sender.sent)
}

func TestQuotationEmailJobMissingQuotationSkipsRetry(t *testing.T) {
	job, _, _ := newEmailJob(stubSource{})
	task, err := NewQuotationEmailTask(9)
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestQuotationEmailJobRenderFailureRetries(t *testing.T) {
	job, renderer, sender := newEmailJob(stubSource{4: emailQuotation(true)})
	renderer.err = httpx.ErrExport
	task, err := NewQuotationEmailTask(4)
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, sender.sent)
}

func TestNewQuotationEmailTaskRejectsBadID(t *testing.T) {
	_, err := NewQuotationEmailTask(0)
	assert.Error(t, err)
}

type stubPurger struct {
	retention time.Duration
	purged    int64
}

func (p *stubPurger) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	p.retention = retention
	return p.purged, nil
}

func TestIdempotencyCleanupUsesPayloadRetention(t *testing.T) {
	store := &stubPurger{purged: 3}
	job := NewIdempotencyCleanupJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(48)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, store.retention)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultIdempotencyRetention, store.retention)
}

func TestSMTPMailerBuildsMultipartMessage(t *testing.T) {
	var captured []byte
	var rcpt []string
	mailer := NewSMTPMailer("127.0.0.1", 1025, "no-reply@quotedesk.local")
	mailer.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "127.0.0.1:1025", addr)
		rcpt = to
		captured = msg
		return nil
	}

	pdf := bytes.Repeat([]byte("%PDF"), 50)
	err := mailer.Send(context.Background(), Message{
		To:          "buyer@globex.com",
		Subject:     "Quotation QT-004",
		Body:        "Please find attached.",
		Attachments: []Attachment{{Filename: "quotation-QT-004.pdf", ContentType: "application/pdf", Data: pdf}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer@globex.com"}, rcpt)

	parsed, err := mail.ReadMessage(bytes.NewReader(captured))
	require.NoError(t, err)
	assert.Equal(t, "buyer@globex.com", parsed.Header.Get("To"))
	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	body, err := reader.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Please find attached.", string(text))

	att, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "quotation-QT-004.pdf", att.FileName())
	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)
}

func TestSMTPMailerRejectsEmptyRecipient(t *testing.T) {
	mailer := NewSMTPMailer("127.0.0.1", 1025, "no-reply@quotedesk.local")
	assert.Error(t, mailer.Send(context.Background(), Message{}))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", inspector: nil, status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, status: http.StatusOK, pending: 3},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var out queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, QueueDefault, out.Queue)
			assert.Equal(t, tc.pending, out.Pending)
		})
	}
}
