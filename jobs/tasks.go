package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationDispatch delivers a freshly created notification.
	TaskNotificationDispatch = "notification:dispatch"
	// TaskSessionsCleanup purges expired session audit rows and stale idempotency keys.
	TaskSessionsCleanup = "auth:sessions_cleanup"
)

// NotificationDispatchPayload identifies the notification document to deliver.
type NotificationDispatchPayload struct {
	DocumentID string `json:"document_id"`
	CreatedBy  int64  `json:"created_by"`
}

// NewNotificationDispatchTask constructs a dispatch task.
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// SessionsCleanupPayload configures the cleanup run.
type SessionsCleanupPayload struct {
	IdempotencyRetention time.Duration `json:"idempotency_retention"`
}

// NewSessionsCleanupTask builds a cleanup task. A non-positive retention
// falls back to 24 hours.
func NewSessionsCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	body, err := json.Marshal(SessionsCleanupPayload{IdempotencyRetention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsCleanup, body, asynq.Queue(QueueDefault)), nil
}
