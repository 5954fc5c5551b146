package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/autoshop-erp/autoshop/internal/jobs"
)

// SessionPurger deletes session audit rows that expired before now.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyPurger deletes idempotency keys older than the retention window.
type IdempotencyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionsCleanupJob keeps the auth_sessions and idempotency_keys tables small.
type SessionsCleanupJob struct {
	Sessions    SessionPurger
	Idempotency IdempotencyPurger
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewSessionsCleanupJob initialises the cleanup handler. idempotency may be nil.
func NewSessionsCleanupJob(sessions SessionPurger, idempotency IdempotencyPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsCleanupJob {
	return &SessionsCleanupJob{
		Sessions:    sessions,
		Idempotency: idempotency,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs one cleanup pass.
func (j *SessionsCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("sessions cleanup: handler not configured")
	}
	payload := SessionsCleanupPayload{IdempotencyRetention: 24 * time.Hour}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskSessionsCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessions, err := j.Sessions.DeleteExpiredSessions(ctx, j.clock())
	if err != nil {
		logger.Error("purge expired sessions", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged("sessions", sessions)

	var keys int64
	if j.Idempotency != nil && payload.IdempotencyRetention > 0 {
		keys, err = j.Idempotency.Cleanup(ctx, payload.IdempotencyRetention)
		if err != nil {
			logger.Error("purge idempotency keys", slog.Any("error", err))
			return err
		}
		j.Metrics.AddPurged("idempotency_keys", keys)
	}
	logger.Info("sessions cleanup finished", slog.Int64("sessions", sessions), slog.Int64("idempotency_keys", keys))
	return nil
}
