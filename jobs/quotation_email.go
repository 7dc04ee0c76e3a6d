package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotation"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// QuotationSource loads stored quotations.
type QuotationSource interface {
	Get(ctx context.Context, id int64) (quotation.Quotation, error)
}

// PDFRenderer exports a quotation as PDF.
type PDFRenderer interface {
	PDF(ctx context.Context, q quotation.Quotation) ([]byte, error)
}

// QuotationEmailJob mails the PDF of a quotation to its client.
type QuotationEmailJob struct {
	Quotations QuotationSource
	Renderer   PDFRenderer
	Mailer     Sender
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewQuotationEmailJob wires dependencies for the email handler.
func NewQuotationEmailJob(quotations QuotationSource, renderer PDFRenderer, mailer Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuotationEmailJob {
	return &QuotationEmailJob{
		Quotations: quotations,
		Renderer:   renderer,
		Mailer:     mailer,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// Handle processes TaskQuotationEmail tasks.
func (j *QuotationEmailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Quotations == nil || j.Renderer == nil || j.Mailer == nil {
		return errors.New("quotation email: handler not configured")
	}
	var payload QuotationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.QuotationID <= 0 {
		return fmt.Errorf("quotation email: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskQuotationEmail)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("id", payload.QuotationID))
	q, err := j.Quotations.Get(ctx, payload.QuotationID)
	if errors.Is(err, httpx.ErrNotFound) {
		logger.Warn("quotation for email no longer exists")
		return fmt.Errorf("quotation email: %w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("quotation email: load: %w", err)
	}
	if !q.EmailClient {
		logger.Info("client email not requested, skipping")
		return nil
	}

	pdf, err := j.Renderer.PDF(ctx, q)
	if err != nil {
		return fmt.Errorf("quotation email: render: %w", err)
	}
	msg := Message{
		To:      q.Client.Email,
		Subject: fmt.Sprintf("Quotation %s from %s", q.QuotationID, q.Company.Name),
		Body:    emailBody(q),
		Attachments: []Attachment{{
			Filename:    q.Filename("pdf"),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := j.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("quotation email: %w", err)
	}
	j.metrics().AddItems(TaskQuotationEmail, 1)
	logger.Info("quotation emailed", slog.String("quotation_id", q.QuotationID))
	return nil
}

func emailBody(q quotation.Quotation) string {
	greeting := "Hello,"
	if name := strings.TrimSpace(q.Client.Name); name != "" {
		greeting = "Hello " + name + ","
	}
	var b strings.Builder
	b.WriteString(greeting + "\n\n")
	fmt.Fprintf(&b, "Please find attached quotation %s from %s.\n", q.QuotationID, q.Company.Name)
	fmt.Fprintf(&b, "Grand total: %s\n\n", quotation.FormatMoney(q.GrandTotal()))
	b.WriteString("Thank you for considering us for your project!\n\n")
	b.WriteString(q.Company.Name + "\n" + q.Company.Email + "\n")
	return b.String()
}

func (j *QuotationEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *QuotationEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
