package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore reads audit_logs from PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const windowQuery = `SELECT l.id, l.occurred_at, l.actor_id, COALESCE(u.email, ''), l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l
LEFT JOIN users u ON u.id = l.actor_id
WHERE ($1::timestamptz IS NULL OR l.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR l.occurred_at < $2)
  AND ($3::bigint IS NULL OR l.actor_id = $3)
  AND ($4::text IS NULL OR l.entity = $4)
  AND ($5::text IS NULL OR l.action = $5)
ORDER BY l.occurred_at DESC, l.id DESC
LIMIT $6 OFFSET $7`

// Window returns rows matching filters, newest first.
func (s *PGStore) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	to := filters.To
	if !to.IsZero() {
		to = to.Add(24 * time.Hour)
	}
	rows, err := s.pool.Query(ctx, windowQuery,
		toPgTime(filters.From),
		toPgTime(to),
		pgtype.Int8{Int64: filters.ActorID, Valid: filters.ActorID > 0},
		optionalText(filters.Entity),
		optionalText(filters.Action),
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		row.At = row.At.UTC()
		row.Meta = meta
		out = append(out, row)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
