package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskforge/taskforge/internal/observability"
	"github.com/taskforge/taskforge/internal/rbac"
)

// Store persists audit entries. Entries are never updated or deleted.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
}

// Spool accepts entries the store rejected so they can be retried later.
type Spool interface {
	Enqueue(ctx context.Context, entry Entry) error
}

// Request describes the operation being audited.
type Request struct {
	Method string
	// Path is the request URI, query string included.
	Path string
	User *rbac.RequestUser
}

// Recorder writes one entry per audited request.
type Recorder struct {
	store   Store
	spool   Spool
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// RecorderConfig collects Recorder dependencies. Only Store is required.
type RecorderConfig struct {
	Store   Store
	Spool   Spool
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewRecorder constructs a Recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   cfg.Store,
		spool:   cfg.Spool,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Do runs fn and records its outcome. The error from fn is always returned
// unchanged. Successes and denials are recorded; other failures are not.
// Nothing is recorded for unaudited paths or when no user is bound.
func (r *Recorder) Do(ctx context.Context, req Request, fn func(context.Context) error) error {
	if !IsAudited(req.Path) {
		return fn(ctx)
	}
	start := r.now()
	err := fn(ctx)
	if req.User == nil {
		return err
	}
	if err != nil && !IsDenial(err) {
		return err
	}

	meta := map[string]any{
		"method":     req.Method,
		"path":       req.Path,
		"durationMs": r.now().Sub(start).Milliseconds(),
	}
	entry := Entry{
		Timestamp:  r.now(),
		UserID:     req.User.UserID,
		OrgID:      req.User.OrganizationID,
		Action:     ActionFromMethod(req.Method),
		Resource:   ResourceFromPath(req.Path),
		ResourceID: ResourceIDFromPath(req.Path),
		Allowed:    err == nil,
		Meta:       meta,
	}
	if err != nil {
		reason := err.Error()
		entry.Reason = &reason
		meta["errorType"] = ErrorType(err)
	}
	r.metrics.ObserveDecision(entry.Allowed)
	r.persist(context.WithoutCancel(ctx), entry)
	return err
}

// Wrap runs fn under rec and returns its result unchanged.
func Wrap[T any](ctx context.Context, rec *Recorder, req Request, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := rec.Do(ctx, req, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (r *Recorder) persist(ctx context.Context, entry Entry) {
	if r.store == nil {
		r.logger.Error("audit write failed", slog.String("error", "audit: store not configured"))
		r.metrics.ObserveAuditWrite(observability.AuditWriteFailed)
		return
	}
	err := r.store.Insert(ctx, entry)
	if err == nil {
		r.metrics.ObserveAuditWrite(observability.AuditWriteOK)
		return
	}
	r.metrics.ObserveAuditWrite(observability.AuditWriteFailed)
	r.logger.Error("audit write failed",
		slog.Any("error", err),
		slog.Int64("user_id", entry.UserID),
		slog.String("action", entry.Action),
		slog.String("resource", entry.Resource),
		slog.Int64("resource_id", entry.ResourceID),
	)
	if r.spool == nil {
		return
	}
	if err := r.spool.Enqueue(ctx, entry); err != nil {
		r.logger.Error("audit spool failed", slog.Any("error", err))
		return
	}
	r.metrics.ObserveAuditWrite(observability.AuditWriteSpooled)
}
