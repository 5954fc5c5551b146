package documents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/autoshop-erp/autoshop/internal/rbac"
	"github.com/autoshop-erp/autoshop/internal/shared"
	"github.com/autoshop-erp/autoshop/jobs"
)

// NotificationEnqueuer schedules delivery of a created notification;
// *jobs.Client satisfies it.
type NotificationEnqueuer interface {
	EnqueueNotification(ctx context.Context, payload jobs.NotificationDispatchPayload) (*asynq.TaskInfo, error)
}

// Service implements document CRUD on top of a Store.
type Service struct {
	store    Store
	enqueuer NotificationEnqueuer
	logger   *slog.Logger
}

// NewService builds Service instance. enqueuer may be nil.
func NewService(store Store, enqueuer NotificationEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, enqueuer: enqueuer, logger: logger}
}

// List returns a page of documents in collection.
func (s *Service) List(ctx context.Context, collection string, page, perPage int) (ListResult, error) {
	norm := shared.NewPagination(page, perPage, 0)
	items, total, err := s.store.List(ctx, collection, shared.Offset(norm.Page, norm.PerPage), norm.PerPage)
	if err != nil {
		return ListResult{}, fmt.Errorf("documents: list %s: %w", collection, err)
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(norm.Page, norm.PerPage, total)}, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, collection, id string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrNotFound
	}
	return s.store.Get(ctx, collection, id)
}

// Create stores body as a new document. Notifications are queued for dispatch
// once stored; a queue failure is logged and does not fail the request.
func (s *Service) Create(ctx context.Context, actor *rbac.Identity, collection string, body []byte, idempotencyKey string) (*Document, error) {
	if err := rbac.RequireIdentity(actor); err != nil {
		return nil, err
	}
	data, err := objectBody(body)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Create(ctx, NewDocument{
		ID:             uuid.NewString(),
		Collection:     collection,
		Data:           data,
		CreatedBy:      actor.UserID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if collection == NotificationsPath && s.enqueuer != nil {
		payload := jobs.NotificationDispatchPayload{DocumentID: doc.ID, CreatedBy: actor.UserID}
		if _, err := s.enqueuer.EnqueueNotification(ctx, payload); err != nil {
			s.logger.Warn("enqueue notification", slog.String("document_id", doc.ID), slog.Any("error", err))
		}
	}
	return doc, nil
}

// Update merges the top-level keys of body into the stored document.
func (s *Service) Update(ctx context.Context, actor *rbac.Identity, collection, id string, body []byte) (*Document, error) {
	if err := rbac.RequireIdentity(actor); err != nil {
		return nil, err
	}
	patch, err := objectBody(body)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrNotFound
	}
	return s.store.Merge(ctx, collection, id, patch, actor.UserID)
}

// Delete removes one document.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.ErrNotFound
	}
	deleted, err := s.store.Delete(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("documents: delete %s/%s: %w", collection, id, err)
	}
	if !deleted {
		return shared.ErrNotFound
	}
	return nil
}

// Count returns the number of documents in collection.
func (s *Service) Count(ctx context.Context, collection string) (int, error) {
	return s.store.Count(ctx, collection)
}
