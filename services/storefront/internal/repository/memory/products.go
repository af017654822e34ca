package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Products реализует ProductRepository
type Products struct{ store *Store }

var _ repository.ProductRepository = (*Products)(nil)

func (r *Products) Create(ctx context.Context, p repository.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if _, ok := r.store.products[p.ID]; ok {
		return repository.ErrAlreadyExists
	}
	for _, existing := range r.store.products {
		if strings.EqualFold(existing.SKU, p.SKU) {
			return repository.ErrAlreadyExists
		}
	}
	now := r.store.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.store.products[p.ID] = p
	return nil
}

func (r *Products) Update(ctx context.Context, p repository.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	existing, ok := r.store.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	// остаток и SKU меняются только через AdjustStock / UpsertBySKU
	p.SKU = existing.SKU
	p.Stock = existing.Stock
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.store.now()
	r.store.products[p.ID] = p
	return nil
}

func (r *Products) GetByID(ctx context.Context, id string) (repository.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	p, ok := r.store.products[id]
	if !ok {
		return repository.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Products) GetByIDs(ctx context.Context, ids []string) (map[string]repository.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make(map[string]repository.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *Products) List(ctx context.Context, q repository.ProductQuery) ([]repository.Product, int, error) {
	q = q.Normalize()

	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]repository.Product, 0)
	for _, p := range r.store.products {
		if !q.IncludeInactive && !p.Active {
			continue
		}
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) &&
			!strings.Contains(strings.ToLower(p.Manufacturer), search) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	if q.Offset >= total {
		return []repository.Product{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func (r *Products) AdjustStock(ctx context.Context, id string, delta int) (repository.Product, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	p, ok := r.store.products[id]
	if !ok {
		return repository.Product{}, repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return repository.Product{}, repository.ErrInsufficientStock
	}
	p.Stock += delta
	p.UpdatedAt = r.store.now()
	r.store.products[id] = p
	return p, nil
}

func (r *Products) UpsertBySKU(ctx context.Context, p repository.Product) (bool, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	now := r.store.now()
	for id, existing := range r.store.products {
		if strings.EqualFold(existing.SKU, p.SKU) {
			p.ID = id
			p.CreatedAt = existing.CreatedAt
			p.UpdatedAt = now
			r.store.products[id] = p
			return false, nil
		}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	r.store.products[p.ID] = p
	return true, nil
}
