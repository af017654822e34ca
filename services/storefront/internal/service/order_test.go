package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service/mocks"
)

func TestMergeLines(t *testing.T) {
	tests := []struct {
		name    string
		items   []OrderLineInput
		want    []OrderLineInput
		wantErr string
	}{
		{
			name:  "duplicates are summed in first-seen order",
			items: []OrderLineInput{{"p2", 1}, {"p1", 2}, {"p2", 3}},
			want:  []OrderLineInput{{"p2", 4}, {"p1", 2}},
		},
		{
			name:    "zero quantity",
			items:   []OrderLineInput{{"p1", 0}},
			wantErr: "items[0].quantity",
		},
		{
			name:    "missing product",
			items:   []OrderLineInput{{"p1", 1}, {" ", 1}},
			wantErr: "items[1].product_id",
		},
		{
			name:    "single line over limit",
			items:   []OrderLineInput{{"p1", maxLineQuantity + 1}},
			wantErr: "items[0].quantity",
		},
		{
			name:    "overflowing duplicates rejected before summing",
			items:   []OrderLineInput{{"p1", math.MaxInt}, {"p1", math.MaxInt}},
			wantErr: "items[0].quantity",
		},
		{
			name:    "merged quantity over limit",
			items:   []OrderLineInput{{"p1", maxLineQuantity}, {"p1", 1}},
			wantErr: "must not exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeLines(tt.items)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	amx := f.product(t, "AMX-500", "85.50", 10)
	pcm := f.product(t, "PCM-650", "12.00", 100)

	order, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		DoctorID: doc.ID,
		Items:    []OrderLineInput{{amx.ID, 2}, {pcm.ID, 5}, {amx.ID, 1}},
		Note:     " urgent ",
	})
	require.NoError(t, err)

	assert.Equal(t, repository.OrderPending, order.Status)
	assert.Equal(t, "urgent", order.Note)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, "256.50", order.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "316.50", order.Total.StringFixed(2))

	assert.Equal(t, 7, f.stock(t, amx.ID))
	assert.Equal(t, 95, f.stock(t, pcm.ID))
	assert.Equal(t, "316.50", f.balance(t, doc.ID).StringFixed(2))

	stored, err := f.orders.GetOrder(ctx, doctorActor(doc), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Total.String(), stored.Total.String())
	assert.Len(t, stored.Items, 2)

	placed := f.outboxEvents(t, events.OrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, order.ID, placed[0].Order.ID)
	assert.Equal(t, "316.50", placed[0].Order.Total)
	assert.Equal(t, 2, placed[0].Order.ItemsCount)
	assert.Equal(t, doc.Phone, placed[0].Doctor.Phone)
}

func TestOrderService_PlaceOrder_FromCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	amx := f.product(t, "AMX-500", "85.00", 10)

	_, err := f.carts.SetItem(ctx, doc.ID, amx.ID, 4)
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "340.00", order.Total.StringFixed(2))

	cart, err := f.carts.GetCart(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// пустая корзина: пустой заказ
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID})
	require.ErrorIs(t, err, ErrEmptyOrder)
}

// cartWithLateAdd имитирует добавление строки в корзину сразу после её чтения заказом
type cartWithLateAdd struct {
	repository.CartRepository
	afterGet func(ctx context.Context)
}

func (c cartWithLateAdd) Get(ctx context.Context, doctorID string) ([]repository.CartItem, error) {
	items, err := c.CartRepository.Get(ctx, doctorID)
	if err == nil && c.afterGet != nil {
		c.afterGet(ctx)
	}
	return items, err
}

func TestOrderService_PlaceOrder_FromCart_KeepsLinesAddedMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	amx := f.product(t, "AMX-500", "85.00", 10)
	pcm := f.product(t, "PCM-650", "12.00", 10)

	require.NoError(t, f.store.Carts().SetItem(ctx, doc.ID, amx.ID, 2))

	svc := NewOrderService(zap.NewNop(), OrderDeps{
		Tx:       f.store,
		Accounts: f.store.Accounts(),
		Products: f.store.Products(),
		Orders:   f.store.Orders(),
		Ledger:   f.store.Ledger(),
		Carts: cartWithLateAdd{
			CartRepository: f.store.Carts(),
			afterGet: func(ctx context.Context) {
				require.NoError(t, f.store.Carts().SetItem(ctx, doc.ID, pcm.ID, 3))
			},
		},
		Outbox: f.store.Outbox(),
		Topics: testTopics,
	})

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, amx.ID, order.Items[0].ProductID)

	left, err := f.store.Carts().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []repository.CartItem{{ProductID: pcm.ID, Quantity: 3}}, left)
}

func TestOrderService_PlaceOrder_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("pending doctor", func(t *testing.T) {
		f := newFixture(t)
		acc, err := f.accounts.Register(ctx, RegisterInput{
			Email: "new@clinic.in", Password: "s3cret-pass", FullName: "Dr. New", Phone: "+919800000002", LicenseNumber: "MCI-1",
		})
		require.NoError(t, err)
		p := f.product(t, "AMX-500", "10.00", 5)

		_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: acc.ID, Items: []OrderLineInput{{p.ID, 1}}})
		require.ErrorIs(t, err, ErrDoctorNotApproved)
		assert.Equal(t, 5, f.stock(t, p.ID))
	})

	t.Run("suspended doctor", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)
		_, err := f.accounts.SuspendDoctor(ctx, adminActor, doc.ID)
		require.NoError(t, err)
		p := f.product(t, "AMX-500", "10.00", 5)

		_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
		require.ErrorIs(t, err, ErrDoctorNotApproved)
	})

	t.Run("insufficient stock rolls back earlier lines", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)
		a := f.product(t, "AMX-500", "10.00", 5)
		b := f.product(t, "PCM-650", "10.00", 1)

		_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{a.ID, 2}, {b.ID, 2}}})
		require.ErrorIs(t, err, repository.ErrInsufficientStock)

		assert.Equal(t, 5, f.stock(t, a.ID))
		assert.Equal(t, 1, f.stock(t, b.ID))
		assert.True(t, f.balance(t, doc.ID).IsZero())
		assert.Empty(t, f.outboxEvents(t, events.OrderPlaced))
	})

	t.Run("credit limit exceeded", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 500)
		p := f.product(t, "AMX-500", "100.00", 50)

		_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 4}}})
		require.NoError(t, err)

		// 400 + 200 > 500
		_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 2}}})
		require.ErrorIs(t, err, ErrCreditLimitExceeded)
		assert.Equal(t, 46, f.stock(t, p.ID))

		// ровно до лимита можно
		_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
		require.NoError(t, err)
		assert.Equal(t, "500.00", f.balance(t, doc.ID).StringFixed(2))
	})

	t.Run("inactive product", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)
		p := f.product(t, "AMX-500", "10.00", 5)
		inactive := false
		_, err := f.catalog.UpdateProduct(ctx, adminActor, p.ID, UpdateProductInput{Active: &inactive})
		require.NoError(t, err)

		_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, 5, f.stock(t, p.ID))
	})

	t.Run("overflowing duplicate quantities", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)
		p := f.product(t, "AMX-500", "85.50", 10)

		_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
			DoctorID: doc.ID,
			Items:    []OrderLineInput{{p.ID, math.MaxInt}, {p.ID, math.MaxInt}},
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, 10, f.stock(t, p.ID))
		assert.True(t, f.balance(t, doc.ID).IsZero())
		assert.Empty(t, f.outboxEvents(t, events.OrderPlaced))
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)

		_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{"missing", 1}}})
		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, repository.Account, repository.Product, repository.Order) {
		f := newFixture(t)
		doc := f.doctor(t, "rao@clinic.in", 0)
		p := f.product(t, "AMX-500", "50.00", 10)
		o, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 3}}})
		require.NoError(t, err)
		return f, doc, p, o
	}

	t.Run("doctor cancels pending order", func(t *testing.T) {
		f, doc, p, o := setup(t)
		f.clock.advance(time.Hour)

		got, err := f.orders.UpdateStatus(ctx, doctorActor(doc), UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled, Reason: "ordered by mistake"})
		require.NoError(t, err)
		assert.Equal(t, repository.OrderCancelled, got.Status)
		assert.Equal(t, "ordered by mistake", got.CancelReason)
		assert.Equal(t, 2, got.Version)

		assert.Equal(t, 10, f.stock(t, p.ID))
		assert.True(t, f.balance(t, doc.ID).IsZero())

		entries, err := f.store.Ledger().List(ctx, doc.ID, repository.LedgerQuery{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, repository.ReasonOrderReversal, entries[1].Reason)
		assert.Equal(t, o.ID, entries[1].OrderID)

		changed := f.outboxEvents(t, events.OrderStatusChanged)
		require.Len(t, changed, 1)
		assert.Equal(t, "pending", changed[0].Order.PreviousStatus)
		assert.Equal(t, "cancelled", changed[0].Order.Status)
		assert.Equal(t, "ordered by mistake", changed[0].Order.Reason)
	})

	t.Run("admin walks the lifecycle", func(t *testing.T) {
		f, doc, p, o := setup(t)

		for _, to := range []repository.OrderStatus{repository.OrderProcessing, repository.OrderDelivered} {
			got, err := f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: to})
			require.NoError(t, err)
			assert.Equal(t, to, got.Status)
		}

		// delivered терминальный
		_, err := f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled})
		require.ErrorIs(t, err, ErrInvalidStateTransition)

		assert.Equal(t, 7, f.stock(t, p.ID))
		assert.Equal(t, "150.00", f.balance(t, doc.ID).StringFixed(2))
		assert.Len(t, f.outboxEvents(t, events.OrderStatusChanged), 2)
	})

	t.Run("admin cancels processing order", func(t *testing.T) {
		f, doc, p, o := setup(t)
		_, err := f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: repository.OrderProcessing})
		require.NoError(t, err)

		_, err = f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled, Reason: "out of cold chain"})
		require.NoError(t, err)
		assert.Equal(t, 10, f.stock(t, p.ID))
		assert.True(t, f.balance(t, doc.ID).IsZero())
	})

	t.Run("doctor restrictions", func(t *testing.T) {
		f, doc, _, o := setup(t)
		other := f.doctor(t, "other@clinic.in", 0)

		_, err := f.orders.UpdateStatus(ctx, doctorActor(doc), UpdateStatusInput{OrderID: o.ID, Status: repository.OrderProcessing})
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.orders.UpdateStatus(ctx, doctorActor(other), UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled})
		require.ErrorIs(t, err, repository.ErrNotFound)

		_, err = f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: repository.OrderProcessing})
		require.NoError(t, err)
		_, err = f.orders.UpdateStatus(ctx, doctorActor(doc), UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled})
		require.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		f, _, _, o := setup(t)
		_, err := f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: "shipped"})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestOrderService_GetAndList_ScopedToDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	other := f.doctor(t, "other@clinic.in", 0)
	p := f.product(t, "AMX-500", "10.00", 100)

	mine, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: other.ID, Items: []OrderLineInput{{p.ID, 1}}})
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, doctorActor(other), mine.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// врач не может подменить doctor_id в фильтре
	list, err := f.orders.ListOrders(ctx, doctorActor(doc), repository.OrderQuery{DoctorID: other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.orders.ListOrders(ctx, adminActor, repository.OrderQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.orders.ListOrders(ctx, adminActor, repository.OrderQuery{Statuses: []repository.OrderStatus{"lost"}})
	assert.True(t, IsValidation(err))
}

func TestOrderService_PublishesChangesAndMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "AMX-500", "10.00", 10)

	publisher := mocks.NewChangePublisher(t)
	metrics := mocks.NewBusinessMetrics(t)
	svc := NewOrderService(zap.NewNop(), OrderDeps{
		Tx:       f.store,
		Accounts: f.store.Accounts(),
		Products: f.store.Products(),
		Orders:   f.store.Orders(),
		Ledger:   f.store.Ledger(),
		Carts:    f.store.Carts(),
		Outbox:   f.store.Outbox(),
		Topics:   testTopics,
		Changes:  publisher,
		Metrics:  metrics,
	})

	var tables []realtime.Table
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("realtime.Change")).
		Run(func(args mock.Arguments) {
			tables = append(tables, args.Get(1).(realtime.Change).Table)
		}).
		Return(errors.New("redis down"))
	metrics.On("OrderPlaced").Once()

	// ошибка публикации не ломает заказ
	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
	require.NoError(t, err)
	assert.Equal(t, []realtime.Table{realtime.TableOrders, realtime.TableLedger, realtime.TableProducts}, tables)
}

func TestOrderService_PlaceOrder_DebitMatchesTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "INS-100", "0.10", 1000)

	o, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 3}}})
	require.NoError(t, err)

	entries, err := f.store.Ledger().List(ctx, doc.ID, repository.LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("0.30")))
	assert.True(t, entries[0].Amount.Equal(o.Total))
	assert.Equal(t, repository.Debit, entries[0].Kind)
	assert.Equal(t, o.ID, entries[0].OrderID)
}

func TestOrderService_InvalidatesCatalogCacheAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "AMX-500", "10.00", 10)

	invalidator := mocks.NewCacheInvalidator(t)
	svc := NewOrderService(zap.NewNop(), OrderDeps{
		Tx:       f.store,
		Accounts: f.store.Accounts(),
		Products: f.store.Products(),
		Orders:   f.store.Orders(),
		Ledger:   f.store.Ledger(),
		Carts:    f.store.Carts(),
		Outbox:   f.store.Outbox(),
		Topics:   testTopics,
		Cache:    invalidator,
	})

	var stockAtFlush []int
	invalidator.On("Invalidate").Run(func(mock.Arguments) {
		stockAtFlush = append(stockAtFlush, f.stock(t, p.ID))
	}).Times(2)

	// отклонённый заказ кэш не трогает
	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 11}}})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Empty(t, stockAtFlush)

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 4}}})
	require.NoError(t, err)
	assert.Equal(t, []int{6}, stockAtFlush)

	// переход без возврата на склад кэш не трогает
	_, err = svc.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: order.ID, Status: repository.OrderProcessing})
	require.NoError(t, err)
	assert.Equal(t, []int{6}, stockAtFlush)

	_, err = svc.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: order.ID, Status: repository.OrderCancelled, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, []int{6, 10}, stockAtFlush)
}
