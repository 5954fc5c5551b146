package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoshop-erp/autoshop/internal/platform/db"
	"github.com/autoshop-erp/autoshop/internal/shared"
)

// Store defines persistence operations for documents.
type Store interface {
	List(ctx context.Context, collection string, offset, limit int) ([]Document, int, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, doc NewDocument) (*Document, error)
	Merge(ctx context.Context, collection, id string, patch json.RawMessage, actorID int64) (*Document, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	Count(ctx context.Context, collection string) (int, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
}

// PGStore implements Store on a JSONB documents table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const documentColumns = `id::text, collection, data, created_by, updated_by, created_at, updated_at, dispatched_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var data []byte
	if err := row.Scan(&doc.ID, &doc.Collection, &data, &doc.CreatedBy, &doc.UpdatedBy, &doc.CreatedAt, &doc.UpdatedAt, &doc.DispatchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	doc.Data = data
	return &doc, nil
}

// List returns a page of documents, newest first, with the collection total.
func (s *PGStore) List(ctx context.Context, collection string, offset, limit int) ([]Document, int, error) {
	total, err := s.Count(ctx, collection)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		collection, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	docs := make([]Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}
	return docs, total, rows.Err()
}

// Get fetches one document.
func (s *PGStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = $1 AND id::text = $2`, collection, id))
}

// Create inserts the document. A non-empty idempotency key is recorded in the
// same transaction so a replayed request fails without a second insert.
func (s *PGStore) Create(ctx context.Context, in NewDocument) (*Document, error) {
	var created *Document
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if in.IdempotencyKey != "" {
			if err := shared.InsertIdempotencyKey(ctx, tx, in.IdempotencyKey, "documents:"+in.Collection); err != nil {
				return err
			}
		}
		doc, err := scanDocument(tx.QueryRow(ctx,
			`INSERT INTO documents (id, collection, data, created_by, updated_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4, NOW(), NOW())
			 RETURNING `+documentColumns,
			in.ID, in.Collection, []byte(in.Data), in.CreatedBy))
		if err != nil {
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Merge applies a top-level JSON merge of patch into the stored data.
func (s *PGStore) Merge(ctx context.Context, collection, id string, patch json.RawMessage, actorID int64) (*Document, error) {
	return scanDocument(s.pool.QueryRow(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_by = $4, updated_at = NOW()
		 WHERE collection = $1 AND id::text = $2
		 RETURNING `+documentColumns,
		collection, id, []byte(patch), actorID))
}

// Delete removes a document, reporting whether a row was deleted.
func (s *PGStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id::text = $2`, collection, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of documents in collection.
func (s *PGStore) Count(ctx context.Context, collection string) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE collection = $1`, collection).Scan(&total)
	return total, err
}

// MarkDispatched stamps a notification as delivered.
func (s *PGStore) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET dispatched_at = $2 WHERE collection = $3 AND id::text = $1`, id, at.UTC(), NotificationsPath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Store = (*PGStore)(nil)
