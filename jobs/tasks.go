package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationEmail mails a stored quotation's PDF to its client.
	TaskQuotationEmail = "quotation:email"
	// TaskIdempotencyCleanup purges expired submission keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// QuotationEmailPayload identifies the quotation to mail.
type QuotationEmailPayload struct {
	QuotationID int64 `json:"quotation_id"`
}

// NewQuotationEmailTask constructs an Asynq task.
func NewQuotationEmailTask(id int64) (*asynq.Task, error) {
	if id <= 0 {
		return nil, fmt.Errorf("quotation email: invalid id %d", id)
	}
	data, err := json.Marshal(QuotationEmailPayload{QuotationID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IdempotencyCleanupPayload sets how many hours of keys to keep.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task registered on the cron.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
