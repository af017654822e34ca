// Package cache содержит декораторы репозиториев с in-process TTL кэшем.
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// DefaultTTL время жизни закэшированной выборки каталога
const DefaultTTL = 30 * time.Second

type listResult struct {
	items []repository.Product
	total int
}

// ProductRepository кэширует GetByID и List поверх основного репозитория.
// Любая запись сбрасывает весь кэш. Запись внутри транзакции видна другим
// только после коммита, поэтому вызывающий после коммита обязан вызвать Invalidate.
type ProductRepository struct {
	primary repository.ProductRepository
	c       *gocache.Cache
}

// NewProductRepository оборачивает primary; ttl <= 0 заменяется на DefaultTTL
func NewProductRepository(primary repository.ProductRepository, ttl time.Duration) *ProductRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProductRepository{
		primary: primary,
		c:       gocache.New(ttl, time.Minute),
	}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func productKey(id string) string { return "product:" + id }

func listKey(q repository.ProductQuery) string {
	return fmt.Sprintf("list:%s|%s|%t|%d|%d", q.Search, q.Category, q.IncludeInactive, q.Limit, q.Offset)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	if v, ok := r.c.Get(productKey(id)); ok {
		return v.(repository.Product), nil
	}
	p, err := r.primary.GetByID(ctx, id)
	if err != nil {
		return repository.Product{}, err
	}
	r.c.SetDefault(productKey(id), p)
	return p, nil
}

// GetByIDs не кэшируется: используется при расчёте корзины, где нужен актуальный остаток
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]repository.Product, error) {
	return r.primary.GetByIDs(ctx, ids)
}

func (r *ProductRepository) List(ctx context.Context, q repository.ProductQuery) ([]repository.Product, int, error) {
	q = q.Normalize()
	key := listKey(q)
	if v, ok := r.c.Get(key); ok {
		res := v.(listResult)
		return res.items, res.total, nil
	}
	items, total, err := r.primary.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	r.c.SetDefault(key, listResult{items: items, total: total})
	return items, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p repository.Product) error {
	defer r.c.Flush()
	return r.primary.Create(ctx, p)
}

func (r *ProductRepository) Update(ctx context.Context, p repository.Product) error {
	defer r.c.Flush()
	return r.primary.Update(ctx, p)
}

func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (repository.Product, error) {
	defer r.c.Flush()
	return r.primary.AdjustStock(ctx, id, delta)
}

func (r *ProductRepository) UpsertBySKU(ctx context.Context, p repository.Product) (bool, error) {
	defer r.c.Flush()
	return r.primary.UpsertBySKU(ctx, p)
}

// Invalidate сбрасывает кэш (после коммита транзакции, изменившей остатки)
func (r *ProductRepository) Invalidate() {
	r.c.Flush()
}

// Primary репозиторий без кэша: для read-modify-write
func (r *ProductRepository) Primary() repository.ProductRepository {
	return r.primary
}
