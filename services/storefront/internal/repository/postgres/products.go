package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// ProductRepository реализует repository.ProductRepository используя PostgreSQL
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository создаёт репозиторий каталога
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, sku, name, description, category, manufacturer, unit, price::text, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (repository.Product, error) {
	var p repository.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Manufacturer, &p.Unit,
		&p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepository) Create(ctx context.Context, p repository.Product) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO products (id, sku, name, description, category, manufacturer, unit, price, stock, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Manufacturer, p.Unit, p.Price.String(), p.Stock, p.Active)
	return mapError(err)
}

func (r *ProductRepository) Update(ctx context.Context, p repository.Product) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, category = $4, manufacturer = $5, unit = $6,
		     price = $7, active = $8, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.Manufacturer, p.Unit, p.Price.String(), p.Active)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	p, err := scanProduct(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return repository.Product{}, mapError(err)
	}
	return p, nil
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]repository.Product, error) {
	out := make(map[string]repository.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *ProductRepository) List(ctx context.Context, q repository.ProductQuery) ([]repository.Product, int, error) {
	q = q.Normalize()
	search := strings.TrimSpace(q.Search)

	const where = `
		WHERE ($1 OR active)
		  AND ($2 = '' OR lower(category) = lower($2))
		  AND ($3 = '' OR name ILIKE '%'||$3||'%' OR sku ILIKE '%'||$3||'%' OR manufacturer ILIKE '%'||$3||'%')`

	db := conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM products`+where,
		q.IncludeInactive, q.Category, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := db.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+`
		 ORDER BY name, id
		 LIMIT $4 OFFSET $5`,
		q.IncludeInactive, q.Category, search, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]repository.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// AdjustStock условный UPDATE: строка меняется только если остаток не уйдёт в минус
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (repository.Product, error) {
	db := conn(ctx, r.pool)
	p, err := scanProduct(db.QueryRow(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now()
		 WHERE id = $1 AND stock + $2 >= 0
		 RETURNING `+productColumns, id, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repository.Product{}, mapError(err)
	}

	// отличаем отсутствующий товар от нехватки остатка
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return repository.Product{}, err
	}
	if !exists {
		return repository.Product{}, repository.ErrNotFound
	}
	return repository.Product{}, repository.ErrInsufficientStock
}

func (r *ProductRepository) UpsertBySKU(ctx context.Context, p repository.Product) (bool, error) {
	var created bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO products (id, sku, name, description, category, manufacturer, unit, price, stock, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (lower(sku)) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   category = EXCLUDED.category,
		   manufacturer = EXCLUDED.manufacturer,
		   unit = EXCLUDED.unit,
		   price = EXCLUDED.price,
		   stock = EXCLUDED.stock,
		   active = EXCLUDED.active,
		   updated_at = now()
		 RETURNING (xmax = 0)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Manufacturer, p.Unit, p.Price.String(), p.Stock, p.Active,
	).Scan(&created)
	if err != nil {
		return false, mapError(err)
	}
	return created, nil
}
