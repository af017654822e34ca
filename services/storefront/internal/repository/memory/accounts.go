package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Accounts реализует AccountRepository
type Accounts struct{ store *Store }

var _ repository.AccountRepository = (*Accounts)(nil)

func (r *Accounts) Create(ctx context.Context, a repository.Account) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if _, ok := r.store.accounts[a.ID]; ok {
		return repository.ErrAlreadyExists
	}
	for _, existing := range r.store.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrAlreadyExists
		}
	}
	now := r.store.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.store.accounts[a.ID] = a
	return nil
}

func (r *Accounts) GetByID(ctx context.Context, id string) (repository.Account, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	a, ok := r.store.accounts[id]
	if !ok {
		return repository.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (r *Accounts) GetByEmail(ctx context.Context, email string) (repository.Account, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	for _, a := range r.store.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return repository.Account{}, repository.ErrNotFound
}

// GetByIDForUpdate внутри WithinTx блокировка уже эксклюзивная
func (r *Accounts) GetByIDForUpdate(ctx context.Context, id string) (repository.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *Accounts) Update(ctx context.Context, a repository.Account) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	existing, ok := r.store.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Email = existing.Email
	a.PasswordHash = existing.PasswordHash
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.store.now()
	r.store.accounts[a.ID] = a
	return nil
}

func (r *Accounts) List(ctx context.Context, q repository.AccountQuery) ([]repository.Account, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]repository.Account, 0)
	for _, a := range r.store.accounts {
		if q.Role != "" && a.Role != q.Role {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q.Limit, q.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
