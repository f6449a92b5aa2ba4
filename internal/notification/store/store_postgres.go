package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"licensing/internal/notification"
	"licensing/pkg/platform/tx"
)

// Postgres stores outbox rows in the outbox table. Append joins the
// transaction bound to ctx so events commit with the state change.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, event notification.Event) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.AggregateID, string(event.Type), []byte(event.Payload), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnpublished locks the oldest unpublished rows so concurrent workers
// do not publish the same batch.
func (s *Postgres) FetchUnpublished(ctx context.Context, limit int) ([]notification.Event, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []notification.Event
	for rows.Next() {
		var (
			e         notification.Event
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &eventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.Type = notification.EventType(eventType)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[]) AND published_at IS NULL`,
		time.Now().UTC(), pq.Array(strs))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
