package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const eventColumns = "id, stream_id, stream_type, version, event_type, payload, created_at, published_at"

type eventStore struct {
	s *Store
}

// Append writes events at the end of the stream. Called inside RunInTx it
// commits or rolls back together with the state change that produced them.
func (e *eventStore) Append(ctx context.Context, streamID string, streamType string, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	var version int
	err := e.s.q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1",
		streamID,
	).Scan(&version)
	if err != nil {
		return dbError("failed to get current stream version", err)
	}

	createdAt := now()
	for _, event := range events {
		version++

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		_, err = e.s.q.ExecContext(ctx,
			`INSERT INTO events (id, stream_id, stream_type, version, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), streamID, streamType, version, event.EventType(), string(payload), createdAt,
		)
		if err != nil {
			return dbError(fmt.Sprintf("failed to insert event %s", event.EventType()), err)
		}
	}
	return nil
}

func (e *eventStore) Load(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	return e.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE stream_id = $1 ORDER BY version ASC",
		streamID,
	)
}

func (e *eventStore) Unpublished(ctx context.Context, limit int) ([]entity.EventStoreRecord, error) {
	return e.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE published_at IS NULL ORDER BY created_at, stream_id, version LIMIT $1",
		limit,
	)
}

func (e *eventStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := e.s.q.ExecContext(ctx,
		"UPDATE events SET published_at = $1 WHERE id = $2 AND published_at IS NULL",
		at.UTC(), id,
	)
	if err != nil {
		return dbError(fmt.Sprintf("failed to mark event %s published", id), err)
	}
	return nil
}

func (e *eventStore) query(ctx context.Context, query string, args ...any) ([]entity.EventStoreRecord, error) {
	rows, err := e.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to load events", err)
	}
	defer rows.Close()

	var records []entity.EventStoreRecord
	for rows.Next() {
		var (
			record      entity.EventStoreRecord
			payload     string
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&record.ID, &record.StreamID, &record.StreamType, &record.Version,
			&record.EventType, &payload, &record.CreatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		record.Payload = []byte(payload)
		if publishedAt.Valid {
			t := publishedAt.Time
			record.PublishedAt = &t
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return records, nil
}
