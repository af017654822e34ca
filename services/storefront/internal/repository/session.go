package repository

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound сессия не найдена или истекла
var ErrSessionNotFound = errors.New("session not found")

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=SessionRepository --dir=. --output=./mocks --outpkg=mocks

// SessionRepository хранилище сессий (Redis hash с TTL)
type SessionRepository interface {
	CreateSession(ctx context.Context, accountID string, ttl time.Duration) (sessionID string, err error)
	// GetAccountID возвращает ErrSessionNotFound для отсутствующей или истёкшей сессии
	GetAccountID(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// RefreshSession продлевает TTL (sliding window)
	RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) error
	// DeleteAccountSessions отзывает все сессии аккаунта, возвращает число удалённых
	DeleteAccountSessions(ctx context.Context, accountID string) (int, error)
}

// CartItem строка корзины
type CartItem struct {
	ProductID string
	Quantity  int
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=CartRepository --dir=. --output=./mocks --outpkg=mocks

// CartRepository корзина врача
type CartRepository interface {
	Get(ctx context.Context, doctorID string) ([]CartItem, error)
	// SetItem quantity <= 0 удаляет строку
	SetItem(ctx context.Context, doctorID, productID string, quantity int) error
	RemoveItem(ctx context.Context, doctorID, productID string) error
	// RemoveItems удаляет перечисленные строки, остальные не трогает
	RemoveItems(ctx context.Context, doctorID string, productIDs []string) error
	Clear(ctx context.Context, doctorID string) error
}
