package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности (email, sku, payment reference)
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock остаток товара ушёл бы в минус
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrVersionConflict запись изменена параллельно (optimistic lock)
	ErrVersionConflict = errors.New("version conflict")
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=TxManager --dir=. --output=./mocks --outpkg=mocks

// TxManager выполняет fn в одной транзакции.
// Репозитории, вызванные с полученным ctx, работают внутри неё.
// Ошибка fn откатывает транзакцию.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
