package memory

import (
	"context"
	"sort"
	"time"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Orders реализует OrderRepository
type Orders struct{ store *Store }

var _ repository.OrderRepository = (*Orders)(nil)

func copyOrder(o repository.Order) repository.Order {
	o.Items = append([]repository.OrderItem(nil), o.Items...)
	return o
}

func (r *Orders) Create(ctx context.Context, o repository.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if _, ok := r.store.orders[o.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.store.now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if o.Version == 0 {
		o.Version = 1
	}
	r.store.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *Orders) GetByID(ctx context.Context, id string) (repository.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	o, ok := r.store.orders[id]
	if !ok {
		return repository.Order{}, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *Orders) List(ctx context.Context, q repository.OrderQuery) ([]repository.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]repository.Order, 0)
	for _, o := range r.store.orders {
		if q.DoctorID != "" && o.DoctorID != q.DoctorID {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, o.Status) {
			continue
		}
		if !q.From.IsZero() && o.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !o.CreatedAt.Before(q.To) {
			continue
		}
		o.Items = nil
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if q.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, q.Limit, q.Offset), nil
}

func containsStatus(list []repository.OrderStatus, s repository.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *Orders) UpdateStatus(ctx context.Context, id string, expectedVersion int, status repository.OrderStatus, cancelReason string, at time.Time) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	o, ok := r.store.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	o.Status = status
	if cancelReason != "" {
		o.CancelReason = cancelReason
	}
	o.Version++
	o.UpdatedAt = at
	r.store.orders[id] = o
	return nil
}
