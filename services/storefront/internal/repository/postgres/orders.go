package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// OrderRepository реализует repository.OrderRepository используя PostgreSQL
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository создаёт репозиторий заказов
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// Create сохраняет order и order_items.
// Вне WithinTx открывает собственную транзакцию, чтобы заказ не остался без позиций.
func (r *OrderRepository) Create(ctx context.Context, o repository.Order) error {
	return NewTxManager(r.pool).WithinTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.pool)

		createdAt := o.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		version := o.Version
		if version == 0 {
			version = 1
		}

		_, err := db.Exec(ctx,
			`INSERT INTO orders (id, doctor_id, status, total, note, cancel_reason, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			o.ID, o.DoctorID, o.Status, o.Total.String(), o.Note, o.CancelReason, version, createdAt)
		if err != nil {
			return mapError(err)
		}

		for i, item := range o.Items {
			_, err = db.Exec(ctx,
				`INSERT INTO order_items (order_id, line_no, product_id, sku, name, quantity, unit_price, line_total)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				o.ID, i+1, item.ProductID, item.SKU, item.Name, item.Quantity, item.UnitPrice.String(), item.LineTotal.String())
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", i+1, mapError(err))
			}
		}
		return nil
	})
}

// GetByID собирает order и order_items в доменную модель
func (r *OrderRepository) GetByID(ctx context.Context, id string) (repository.Order, error) {
	db := conn(ctx, r.pool)

	var o repository.Order
	err := db.QueryRow(ctx,
		`SELECT id, doctor_id, status, total::text, note, cancel_reason, version, created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		id).Scan(&o.ID, &o.DoctorID, &o.Status, &o.Total, &o.Note, &o.CancelReason, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return repository.Order{}, mapError(err)
	}

	rows, err := db.Query(ctx,
		`SELECT product_id, sku, name, quantity, unit_price::text, line_total::text
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY line_no`,
		id)
	if err != nil {
		return repository.Order{}, err
	}
	defer rows.Close()

	o.Items = make([]repository.OrderItem, 0)
	for rows.Next() {
		var item repository.OrderItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return repository.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return repository.Order{}, err
	}

	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, q repository.OrderQuery) ([]repository.Order, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}

	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	limit := q.Limit
	if limit < 0 {
		limit = 0
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, doctor_id, status, total::text, note, cancel_reason, version, created_at, updated_at
		 FROM orders
		 WHERE ($1 = '' OR doctor_id::text = $1)
		   AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		   AND ($3::timestamptz IS NULL OR created_at >= $3)
		   AND ($4::timestamptz IS NULL OR created_at < $4)
		 ORDER BY created_at `+direction+`, id
		 LIMIT NULLIF($5::int, 0) OFFSET $6`,
		q.DoctorID, statuses, nullTime(q.From), nullTime(q.To), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.Order, 0)
	for rows.Next() {
		var o repository.Order
		if err := rows.Scan(&o.ID, &o.DoctorID, &o.Status, &o.Total, &o.Note, &o.CancelReason, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus optimistic lock по version
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int, status repository.OrderStatus, cancelReason string, at time.Time) error {
	db := conn(ctx, r.pool)
	tag, err := db.Exec(ctx,
		`UPDATE orders
		 SET status = $3,
		     cancel_reason = CASE WHEN $4 = '' THEN cancel_reason ELSE $4 END,
		     version = version + 1,
		     updated_at = $5
		 WHERE id = $1 AND version = $2`,
		id, expectedVersion, status, cancelReason, at)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
