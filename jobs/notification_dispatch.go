package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/autoshop-erp/autoshop/internal/jobs"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// NotificationMarker records that a notification document was delivered.
type NotificationMarker interface {
	MarkDispatched(ctx context.Context, id string, at time.Time) error
}

// NotificationDispatchJob delivers notifications created through the API.
type NotificationDispatchJob struct {
	Store   NotificationMarker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewNotificationDispatchJob initialises the dispatch handler.
func NewNotificationDispatchJob(store NotificationMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationDispatchJob {
	return &NotificationDispatchJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle marks the notification dispatched. Unknown documents are not retried.
func (j *NotificationDispatchJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("notification dispatch: handler not configured")
	}
	var payload NotificationDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.DocumentID == "" {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskNotificationDispatch)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("document_id", payload.DocumentID), slog.Int64("created_by", payload.CreatedBy))
	if err := j.Store.MarkDispatched(ctx, payload.DocumentID, j.clock()); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.Warn("notification vanished before dispatch")
			return fmt.Errorf("notification %s: %w", payload.DocumentID, asynq.SkipRetry)
		}
		logger.Error("mark dispatched", slog.Any("error", err))
		return err
	}
	logger.Info("notification dispatched")
	return nil
}

func (j *NotificationDispatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
