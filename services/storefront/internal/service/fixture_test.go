package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/memory"
)

var (
	testTopics = Topics{Orders: "pharma.orders", Payments: "pharma.payments", Doctors: "pharma.doctors"}
	adminActor = Actor{ID: "admin-1", Role: repository.RoleAdmin}
)

// fixture сервисы поверх in-memory хранилища
type fixture struct {
	store    *memory.Store
	accounts *AccountService
	catalog  *CatalogService
	carts    *CartService
	orders   *OrderService
	ledger   *LedgerService
	clock    *testClock
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store.SetClock(clock.now)
	logger := zap.NewNop()

	f := &fixture{
		store:    store,
		accounts: NewAccountService(logger, store, store.Accounts(), store.Sessions(), store.Outbox(), testTopics, nil, time.Hour),
		catalog:  NewCatalogService(logger, store.Products(), nil),
		carts:    NewCartService(logger, store.Carts(), store.Products()),
		orders: NewOrderService(logger, OrderDeps{
			Tx:       store,
			Accounts: store.Accounts(),
			Products: store.Products(),
			Orders:   store.Orders(),
			Ledger:   store.Ledger(),
			Carts:    store.Carts(),
			Outbox:   store.Outbox(),
			Topics:   testTopics,
		}),
		ledger: NewLedgerService(logger, LedgerDeps{
			Tx:       store,
			Accounts: store.Accounts(),
			Orders:   store.Orders(),
			Ledger:   store.Ledger(),
			Outbox:   store.Outbox(),
			Topics:   testTopics,
		}),
		clock: clock,
	}
	f.accounts.now = clock.now
	f.orders.now = clock.now
	f.ledger.now = clock.now
	return f
}

// doctor регистрирует и одобряет врача
func (f *fixture) doctor(t *testing.T, email string, creditLimit int64) repository.Account {
	t.Helper()
	ctx := context.Background()

	acc, err := f.accounts.Register(ctx, RegisterInput{
		Email:         email,
		Password:      "s3cret-pass",
		FullName:      "Dr. " + email,
		Phone:         "+919800000001",
		ClinicName:    "City Clinic",
		LicenseNumber: "MCI-" + email,
	})
	require.NoError(t, err)

	acc, err = f.accounts.ApproveDoctor(ctx, adminActor, acc.ID, decimal.NewFromInt(creditLimit))
	require.NoError(t, err)
	return acc
}

func (f *fixture) product(t *testing.T, sku string, price string, stock int) repository.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), adminActor, CreateProductInput{
		SKU:    sku,
		Name:   "Product " + sku,
		Unit:   "box of 10",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) balance(t *testing.T, doctorID string) decimal.Decimal {
	t.Helper()
	b, err := f.store.Ledger().Balance(context.Background(), doctorID, time.Time{})
	require.NoError(t, err)
	return b
}

// outboxEvents разобранные события outbox заданного типа
func (f *fixture) outboxEvents(t *testing.T, eventType string) []events.Envelope {
	t.Helper()
	var out []events.Envelope
	for _, e := range f.store.Outbox().All() {
		if e.EventType != eventType {
			continue
		}
		var env events.Envelope
		require.NoError(t, json.Unmarshal(e.Payload, &env))
		out = append(out, env)
	}
	return out
}

func doctorActor(acc repository.Account) Actor {
	return Actor{ID: acc.ID, Role: repository.RoleDoctor}
}
