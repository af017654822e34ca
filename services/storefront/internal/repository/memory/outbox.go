package memory

import (
	"context"
	"time"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Outbox реализует OutboxRepository
type Outbox struct{ store *Store }

var _ repository.OutboxRepository = (*Outbox)(nil)

func (r *Outbox) Add(ctx context.Context, e repository.OutboxEvent) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, existing := range r.store.outbox {
		if existing.EventID == e.EventID {
			return repository.ErrAlreadyExists
		}
	}
	if e.Status == "" {
		e.Status = repository.OutboxPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.store.now()
	}
	r.store.outbox = append(r.store.outbox, e)
	return nil
}

func (r *Outbox) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]repository.OutboxEvent, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	now := r.store.now()
	out := make([]repository.OutboxEvent, 0)
	for i := range r.store.outbox {
		e := &r.store.outbox[i]
		if e.Status != repository.OutboxPending || e.ClaimedUntil.After(now) {
			continue
		}
		e.ClaimedUntil = now.Add(lease)
		out = append(out, *e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Outbox) MarkSent(ctx context.Context, eventID string) error {
	return r.update(ctx, eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxSent
		e.LastError = ""
	})
}

func (r *Outbox) MarkFailed(ctx context.Context, eventID, errMsg string) error {
	return r.update(ctx, eventID, func(e *repository.OutboxEvent) {
		e.Attempts++
		e.LastError = errMsg
		e.ClaimedUntil = time.Time{}
	})
}

// All копия всех событий (для тестов)
func (r *Outbox) All() []repository.OutboxEvent {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]repository.OutboxEvent(nil), r.store.outbox...)
}

func (r *Outbox) update(ctx context.Context, eventID string, fn func(e *repository.OutboxEvent)) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for i := range r.store.outbox {
		if r.store.outbox[i].EventID == eventID {
			fn(&r.store.outbox[i])
			return nil
		}
	}
	return repository.ErrNotFound
}
