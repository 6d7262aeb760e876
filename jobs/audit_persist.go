package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/taskforge/taskforge/internal/audit"
	"github.com/taskforge/taskforge/internal/observability"
)

const (
	// QueueAudit holds audit entries the recorder could not persist inline.
	QueueAudit = "audit"
	// TaskAuditPersist re-persists a spooled audit entry.
	TaskAuditPersist = "audit:persist"
)

// NewAuditPersistTask builds a task carrying entry.
func NewAuditPersistTask(entry audit.Entry, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode audit entry: %w", err)
	}
	opts = append([]asynq.Option{asynq.Queue(QueueAudit)}, opts...)
	return asynq.NewTask(TaskAuditPersist, body, opts...), nil
}

// AuditPersistJob writes spooled entries to the audit store.
type AuditPersistJob struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAuditPersistJob constructs the job handler.
func NewAuditPersistJob(store audit.Store, logger *slog.Logger, metrics *observability.Metrics) *AuditPersistJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPersistJob{store: store, logger: logger, metrics: metrics}
}

// Handle inserts the entry. Store errors are returned so asynq retries with
// backoff; malformed payloads are dropped.
func (j *AuditPersistJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.store == nil {
		return errors.New("jobs: audit persist not configured")
	}
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		j.logger.Error("audit persist: bad payload", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := j.store.Insert(ctx, entry); err != nil {
		j.metrics.ObserveAuditWrite(observability.AuditWriteFailed)
		j.logger.Warn("audit persist retry",
			slog.Any("error", err),
			slog.Int64("user_id", entry.UserID),
			slog.String("action", entry.Action),
		)
		return err
	}
	j.metrics.ObserveAuditWrite(observability.AuditWriteOK)
	return nil
}
