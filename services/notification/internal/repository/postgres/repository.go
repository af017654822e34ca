package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/repository"
)

// Repository реализует InboxRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// UpsertInboxPending вставляет событие или увеличивает attempts у pending записи.
// Запись со статусом sent не трогается.
func (r *Repository) UpsertInboxPending(ctx context.Context, e repository.InboxEvent) (*repository.InboxUpsertResult, error) {
	var (
		status   string
		attempts int
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notification_inbox (event_id, event_type, aggregate_id, occurred_at, topic, partition, message_offset)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO UPDATE SET
		   attempts = CASE WHEN notification_inbox.status = 'pending'
		                   THEN notification_inbox.attempts + 1
		                   ELSE notification_inbox.attempts END,
		   topic = EXCLUDED.topic,
		   partition = EXCLUDED.partition,
		   message_offset = EXCLUDED.message_offset
		 RETURNING status, attempts`,
		e.EventID, e.EventType, e.AggregateID, e.OccurredAt, e.Topic, e.Partition, e.Offset,
	).Scan(&status, &attempts)
	if err != nil {
		return nil, fmt.Errorf("upsert inbox event: %w", err)
	}

	if status == "sent" {
		return &repository.InboxUpsertResult{AlreadyProcessed: true, Attempts: attempts}, nil
	}
	return &repository.InboxUpsertResult{CanProcess: true, Attempts: attempts}, nil
}

// MarkInboxSent переводит запись в статус sent
func (r *Repository) MarkInboxSent(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_inbox SET status = 'sent', last_error = '', processed_at = now() WHERE event_id = $1`,
		eventID)
	if err != nil {
		return fmt.Errorf("mark inbox sent: %w", err)
	}
	return nil
}

// MarkInboxFailed сохраняет last_error, запись остаётся pending
func (r *Repository) MarkInboxFailed(ctx context.Context, eventID string, errString string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_inbox SET last_error = $2 WHERE event_id = $1 AND status = 'pending'`,
		eventID, errString)
	if err != nil {
		return fmt.Errorf("mark inbox failed: %w", err)
	}
	return nil
}
