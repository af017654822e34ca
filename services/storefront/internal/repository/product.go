package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product позиция каталога
type Product struct {
	ID           string
	SKU          string
	Name         string
	Description  string
	Category     string
	Manufacturer string
	Unit         string
	Price        decimal.Decimal
	Stock        int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductQuery фильтр каталога
type ProductQuery struct {
	Search          string
	Category        string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Normalize приводит пагинацию к допустимым значениям: limit 1..100 (по умолчанию 20), offset >= 0
func (q ProductQuery) Normalize() ProductQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProductRepository --dir=. --output=./mocks --outpkg=mocks

// ProductRepository хранилище каталога
type ProductRepository interface {
	// Create возвращает ErrAlreadyExists при дубликате SKU
	Create(ctx context.Context, p Product) error
	// Update перезаписывает описательные поля, цену и флаг active; ErrNotFound если нет
	Update(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	// GetByIDs отсутствующие id просто не попадают в результат
	GetByIDs(ctx context.Context, ids []string) (map[string]Product, error)
	// List возвращает страницу и общее количество по фильтру
	List(ctx context.Context, q ProductQuery) ([]Product, int, error)
	// AdjustStock атомарно меняет остаток на delta; ErrInsufficientStock если результат < 0
	AdjustStock(ctx context.Context, id string, delta int) (Product, error)
	// UpsertBySKU создаёт или обновляет товар по SKU (seed)
	UpsertBySKU(ctx context.Context, p Product) (created bool, err error)
}
