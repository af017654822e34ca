package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// OrderService оформление заказов и их жизненный цикл
type OrderService struct {
	logger   *zap.Logger
	tx       repository.TxManager
	accounts repository.AccountRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	ledger   repository.LedgerRepository
	carts    repository.CartRepository
	events   eventWriter
	changes  ChangePublisher
	metrics  BusinessMetrics
	cache    CacheInvalidator
	now      func() time.Time
}

// OrderDeps зависимости OrderService
type OrderDeps struct {
	Tx       repository.TxManager
	Accounts repository.AccountRepository
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Ledger   repository.LedgerRepository
	Carts    repository.CartRepository
	Outbox   repository.OutboxRepository
	Topics   Topics
	Changes  ChangePublisher
	Metrics  BusinessMetrics
	// Cache сбрасывается после коммита; nil если каталог не кэшируется
	Cache CacheInvalidator
}

// NewOrderService создаёт OrderService
func NewOrderService(logger *zap.Logger, deps OrderDeps) *OrderService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	cache := deps.Cache
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &OrderService{
		logger:   logger,
		tx:       deps.Tx,
		accounts: deps.Accounts,
		products: deps.Products,
		orders:   deps.Orders,
		ledger:   deps.Ledger,
		carts:    deps.Carts,
		events:   eventWriter{outbox: deps.Outbox, topics: deps.Topics},
		changes:  deps.Changes,
		metrics:  metrics,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OrderLineInput строка заказа
type OrderLineInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderInput входные данные заказа; пустые Items означают «заказать корзину»
type PlaceOrderInput struct {
	DoctorID string
	Items    []OrderLineInput
	Note     string
}

// mergeLines складывает повторяющиеся товары, сохраняя порядок первого вхождения
func mergeLines(items []OrderLineInput) ([]OrderLineInput, error) {
	merged := make([]OrderLineInput, 0, len(items))
	index := make(map[string]int, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if it.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		if it.Quantity > maxLineQuantity {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must not exceed %d", maxLineQuantity))
		}
		pos, ok := index[it.ProductID]
		if !ok {
			index[it.ProductID] = len(merged)
			merged = append(merged, it)
			continue
		}
		// обе части <= maxLineQuantity, сумма не переполняет int
		merged[pos].Quantity += it.Quantity
		if merged[pos].Quantity > maxLineQuantity {
			return nil, invalid("quantity", fmt.Sprintf("product %s: must not exceed %d", it.ProductID, maxLineQuantity))
		}
	}
	return merged, nil
}

// PlaceOrder оформляет заказ в одной транзакции:
// блокировка врача, списание остатков, фиксация цен, проверка кредитного лимита,
// запись заказа, дебетовой проводки и события order.placed.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (repository.Order, error) {
	items := in.Items
	fromCart := false
	if len(items) == 0 {
		cartItems, err := s.carts.Get(ctx, in.DoctorID)
		if err != nil {
			return repository.Order{}, fmt.Errorf("get cart: %w", err)
		}
		for _, ci := range cartItems {
			items = append(items, OrderLineInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
		fromCart = true
	}
	if len(items) == 0 {
		return repository.Order{}, ErrEmptyOrder
	}

	lines, err := mergeLines(items)
	if err != nil {
		return repository.Order{}, err
	}

	now := s.now()
	order := repository.Order{
		ID:        uuid.NewString(),
		DoctorID:  in.DoctorID,
		Status:    repository.OrderPending,
		Items:     make([]repository.OrderItem, 0, len(lines)),
		Total:     decimal.Zero,
		Note:      strings.TrimSpace(in.Note),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	debit := repository.CreditTransaction{
		ID:        uuid.NewString(),
		DoctorID:  in.DoctorID,
		Kind:      repository.Debit,
		Reason:    repository.ReasonOrder,
		OrderID:   order.ID,
		CreatedBy: in.DoctorID,
		CreatedAt: now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 1. врач блокируется до конца транзакции: параллельные заказы видят актуальный баланс
		doctor, err := s.accounts.GetByIDForUpdate(ctx, in.DoctorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDoctorNotApproved
			}
			return fmt.Errorf("lock doctor: %w", err)
		}
		if doctor.Role != repository.RoleDoctor || doctor.Status != repository.StatusApproved {
			return ErrDoctorNotApproved
		}

		// 2. списание остатков и фиксация цен
		for _, line := range lines {
			p, err := s.products.AdjustStock(ctx, line.ProductID, -line.Quantity)
			if err != nil {
				return fmt.Errorf("product %s: %w", line.ProductID, err)
			}
			if !p.Active {
				return invalid("items", fmt.Sprintf("product %s is not available", p.SKU))
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			order.Items = append(order.Items, repository.OrderItem{
				ProductID: p.ID,
				SKU:       p.SKU,
				Name:      p.Name,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
				LineTotal: lineTotal,
			})
			order.Total = order.Total.Add(lineTotal)
		}

		// 3. кредитный лимит
		if doctor.CreditLimit.IsPositive() {
			balance, err := s.ledger.Balance(ctx, doctor.ID, time.Time{})
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}
			if balance.Add(order.Total).GreaterThan(doctor.CreditLimit) {
				return fmt.Errorf("balance %s + order %s > limit %s: %w",
					balance.StringFixed(2), order.Total.StringFixed(2), doctor.CreditLimit.StringFixed(2), ErrCreditLimitExceeded)
			}
		}

		// 4. заказ, проводка, событие
		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		debit.Amount = order.Total
		if err := s.ledger.Append(ctx, debit); err != nil {
			return fmt.Errorf("append order debit: %w", err)
		}
		return s.events.write(ctx, s.events.topics.Orders, order.ID, events.Envelope{
			EventType:  events.OrderPlaced,
			OccurredAt: now,
			Doctor:     doctorRef(doctor),
			Order:      orderRef(order, "", ""),
		})
	})
	if err != nil {
		s.logger.Info("order rejected", zap.String("doctor_id", in.DoctorID), zap.Error(err))
		return repository.Order{}, err
	}
	s.cache.Invalidate()

	if fromCart {
		// строки, добавленные после чтения корзины, остаются
		ordered := make([]string, 0, len(lines))
		for _, line := range lines {
			ordered = append(ordered, line.ProductID)
		}
		if err := s.carts.RemoveItems(ctx, in.DoctorID, ordered); err != nil {
			s.logger.Warn("failed to clear cart after order", zap.String("doctor_id", in.DoctorID), zap.Error(err))
		}
	}

	s.metrics.OrderPlaced()
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("doctor_id", order.DoctorID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	changes := []realtime.Change{
		{Table: realtime.TableOrders, Action: realtime.ActionInsert, ID: order.ID, DoctorID: order.DoctorID},
		{Table: realtime.TableLedger, Action: realtime.ActionInsert, ID: debit.ID, DoctorID: order.DoctorID},
	}
	for _, item := range order.Items {
		changes = append(changes, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: item.ProductID})
	}
	publishChanges(ctx, s.changes, s.logger, changes...)
	return order, nil
}

// GetOrder заказ с позициями; чужой заказ для врача не существует
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (repository.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return repository.Order{}, err
	}
	if !actor.IsAdmin() && o.DoctorID != actor.ID {
		return repository.Order{}, repository.ErrNotFound
	}
	return o, nil
}

// ListOrders врач видит только свои заказы
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, q repository.OrderQuery) ([]repository.Order, error) {
	if !actor.IsAdmin() {
		q.DoctorID = actor.ID
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, invalid("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, invalid("from", "must be before to")
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	orders, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatusInput смена статуса заказа
type UpdateStatusInput struct {
	OrderID string
	Status  repository.OrderStatus
	Reason  string
}

// UpdateStatus администратор выполняет любой допустимый переход, врач может только отменить свой pending заказ.
// Отмена возвращает товар на склад и сторнирует долг кредитовой проводкой.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, in UpdateStatusInput) (repository.Order, error) {
	if !in.Status.Valid() {
		return repository.Order{}, invalid("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	reason := strings.TrimSpace(in.Reason)

	var (
		updated  repository.Order
		previous repository.OrderStatus
		reversal *repository.CreditTransaction
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if o.DoctorID != actor.ID {
				return repository.ErrNotFound
			}
			if in.Status != repository.OrderCancelled {
				return ErrForbidden
			}
			if o.Status != repository.OrderPending {
				return fmt.Errorf("doctor can cancel only pending orders: %w", ErrInvalidStateTransition)
			}
		}
		if !o.Status.CanTransitionTo(in.Status) {
			return fmt.Errorf("%s → %s: %w", o.Status, in.Status, ErrInvalidStateTransition)
		}

		now := s.now()
		cancelReason := ""
		if in.Status == repository.OrderCancelled {
			cancelReason = reason
		}
		if err := s.orders.UpdateStatus(ctx, o.ID, o.Version, in.Status, cancelReason, now); err != nil {
			return err
		}

		if in.Status == repository.OrderCancelled {
			for _, item := range o.Items {
				if _, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
					return fmt.Errorf("restock product %s: %w", item.ProductID, err)
				}
			}
			if o.Total.IsPositive() {
				reversal = &repository.CreditTransaction{
					ID:        uuid.NewString(),
					DoctorID:  o.DoctorID,
					Kind:      repository.Credit,
					Amount:    o.Total,
					Reason:    repository.ReasonOrderReversal,
					OrderID:   o.ID,
					Note:      reason,
					CreatedBy: actor.ID,
					CreatedAt: now,
				}
				if err := s.ledger.Append(ctx, *reversal); err != nil {
					return fmt.Errorf("append order reversal: %w", err)
				}
			}
		}

		doctor, err := s.accounts.GetByID(ctx, o.DoctorID)
		if err != nil {
			return fmt.Errorf("get doctor: %w", err)
		}

		previous = o.Status
		o.Status = in.Status
		o.CancelReason = cancelReason
		o.Version++
		o.UpdatedAt = now
		updated = o

		return s.events.write(ctx, s.events.topics.Orders, o.ID, events.Envelope{
			EventType:  events.OrderStatusChanged,
			OccurredAt: now,
			Doctor:     doctorRef(doctor),
			Order:      orderRef(o, previous, reason),
		})
	})
	if err != nil {
		return repository.Order{}, err
	}
	if updated.Status == repository.OrderCancelled {
		s.cache.Invalidate()
	}

	s.metrics.OrderStatusChanged(string(updated.Status))
	s.logger.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID),
	)

	changes := []realtime.Change{
		{Table: realtime.TableOrders, Action: realtime.ActionUpdate, ID: updated.ID, DoctorID: updated.DoctorID},
	}
	if reversal != nil {
		changes = append(changes, realtime.Change{Table: realtime.TableLedger, Action: realtime.ActionInsert, ID: reversal.ID, DoctorID: updated.DoctorID})
		for _, item := range updated.Items {
			changes = append(changes, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: item.ProductID})
		}
	}
	publishChanges(ctx, s.changes, s.logger, changes...)
	return updated, nil
}
