package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderDelivered, OrderCancelled},
}

// CanTransitionTo pending → processing|cancelled, processing → delivered|cancelled; остальные терминальные
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Valid проверяет, что статус из известного набора
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order заказ врача; цены позиций зафиксированы на момент оформления
type Order struct {
	ID           string
	DoctorID     string
	Status       OrderStatus
	Items        []OrderItem
	Total        decimal.Decimal
	Note         string
	CancelReason string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem позиция заказа
type OrderItem struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// OrderQuery фильтр заказов
type OrderQuery struct {
	DoctorID string
	Statuses []OrderStatus
	From     time.Time
	To       time.Time
	// Ascending сортировка по created_at от старых к новым (сверка оплат)
	Ascending bool
	Limit     int
	Offset    int
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=OrderRepository --dir=. --output=./mocks --outpkg=mocks

// OrderRepository хранилище заказов
type OrderRepository interface {
	// Create сохраняет заказ с позициями
	Create(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	// List без позиций (Items == nil); Limit <= 0: без ограничения
	List(ctx context.Context, q OrderQuery) ([]Order, error)
	// UpdateStatus меняет статус если version совпадает, иначе ErrVersionConflict
	UpdateStatus(ctx context.Context, id string, expectedVersion int, status OrderStatus, cancelReason string, at time.Time) error
}
