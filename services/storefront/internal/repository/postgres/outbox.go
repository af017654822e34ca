package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// OutboxRepository реализует repository.OutboxRepository используя PostgreSQL
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository создаёт outbox репозиторий
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

// Add вызывается внутри WithinTx вместе с изменением состояния
func (r *OutboxRepository) Add(ctx context.Context, e repository.OutboxEvent) error {
	status := e.Status
	if status == "" {
		status = repository.OutboxPending
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO outbox_events (event_id, topic, aggregate_id, event_type, payload, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.EventID, e.Topic, e.AggregateID, e.EventType, string(e.Payload), status)
	return mapError(err)
}

// ClaimPending выбирает строки под FOR UPDATE SKIP LOCKED и в том же UPDATE
// проставляет claimed_until: аренда переживает конец неявной транзакции
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]repository.OutboxEvent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`UPDATE outbox_events o
		 SET claimed_until = now() + make_interval(secs => $2)
		 FROM (
		     SELECT event_id
		     FROM outbox_events
		     WHERE status = 'pending' AND (claimed_until IS NULL OR claimed_until < now())
		     ORDER BY created_at
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 ) claimed
		 WHERE o.event_id = claimed.event_id
		 RETURNING o.event_id, o.topic, o.aggregate_id, o.event_type, o.payload::text, o.status,
		           o.attempts, o.last_error, o.created_at, o.claimed_until`,
		limit, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.OutboxEvent, 0)
	for rows.Next() {
		var (
			e       repository.OutboxEvent
			payload string
		)
		if err := rows.Scan(&e.EventID, &e.Topic, &e.AggregateID, &e.EventType, &payload, &e.Status,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.ClaimedUntil); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING не сохраняет порядок подзапроса
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, eventID string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE outbox_events SET status = 'sent', last_error = '', sent_at = now() WHERE event_id = $1`,
		eventID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID, errMsg string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2, claimed_until = NULL WHERE event_id = $1`,
		eventID, errMsg)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
