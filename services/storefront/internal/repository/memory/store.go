package memory

import (
	"context"
	"sync"
	"time"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Store объединённое in-memory хранилище всех репозиториев storefront.
// Используется в тестах и при локальной разработке без PostgreSQL.
type Store struct {
	mu       sync.RWMutex
	products map[string]repository.Product
	accounts map[string]repository.Account
	orders   map[string]repository.Order
	entries  []repository.CreditTransaction
	payments []repository.Payment
	outbox   []repository.OutboxEvent
	carts    map[string]map[string]int
	sessions map[string]session

	now func() time.Time
}

type session struct {
	accountID string
	expiresAt time.Time
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		products: make(map[string]repository.Product),
		accounts: make(map[string]repository.Account),
		orders:   make(map[string]repository.Order),
		carts:    make(map[string]map[string]int),
		sessions: make(map[string]session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

func isTx(ctx context.Context) bool {
	v, ok := ctx.Value(txKey{}).(bool)
	return ok && v
}

// внутри WithinTx блокировка уже взята
func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

var _ repository.TxManager = (*Store)(nil)

// WithinTx сериализует fn под общей блокировкой записи.
// При ошибке состояние откатывается к снимку, сделанному до fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products map[string]repository.Product
	accounts map[string]repository.Account
	orders   map[string]repository.Order
	entries  []repository.CreditTransaction
	payments []repository.Payment
	outbox   []repository.OutboxEvent
}

// carts и sessions живут в Redis вне транзакций, в снимок не попадают
func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products: make(map[string]repository.Product, len(s.products)),
		accounts: make(map[string]repository.Account, len(s.accounts)),
		orders:   make(map[string]repository.Order, len(s.orders)),
		entries:  append([]repository.CreditTransaction(nil), s.entries...),
		payments: append([]repository.Payment(nil), s.payments...),
		outbox:   append([]repository.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = copyOrder(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.accounts = snap.accounts
	s.orders = snap.orders
	s.entries = snap.entries
	s.payments = snap.payments
	s.outbox = snap.outbox
}

// SetClock подменяет источник времени (тесты выписок и сверки)
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Products репозиторий товаров поверх Store
func (s *Store) Products() *Products { return &Products{store: s} }

// Accounts репозиторий аккаунтов поверх Store
func (s *Store) Accounts() *Accounts { return &Accounts{store: s} }

// Orders репозиторий заказов поверх Store
func (s *Store) Orders() *Orders { return &Orders{store: s} }

// Ledger репозиторий проводок и оплат поверх Store
func (s *Store) Ledger() *Ledger { return &Ledger{store: s} }

// Outbox репозиторий outbox поверх Store
func (s *Store) Outbox() *Outbox { return &Outbox{store: s} }

// Carts репозиторий корзин поверх Store
func (s *Store) Carts() *Carts { return &Carts{store: s} }

// Sessions репозиторий сессий поверх Store
func (s *Store) Sessions() *Sessions { return &Sessions{store: s} }
