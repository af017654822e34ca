package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// PaymentState состояние оплаты заказа после сверки
type PaymentState string

const (
	PaymentUnpaid  PaymentState = "unpaid"
	PaymentPartial PaymentState = "partial"
	PaymentPaid    PaymentState = "paid"
)

// OrderAllocation заказ и покрывшая его часть оплат
type OrderAllocation struct {
	OrderID      string
	Status       repository.OrderStatus
	CreatedAt    time.Time
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Outstanding  decimal.Decimal
	PaymentState PaymentState
}

// Reconciliation результат сверки оплат и заказов врача
type Reconciliation struct {
	DoctorID string
	Orders   []OrderAllocation
	// Funding оплаты + кредитовые корректировки − дебетовые корректировки
	Funding          decimal.Decimal
	TotalOrdered     decimal.Decimal
	TotalOutstanding decimal.Decimal
	// UnappliedCredit остаток оплат сверх всех заказов (аванс)
	UnappliedCredit decimal.Decimal
	// OutstandingAdjustments дебетовые корректировки, не покрытые оплатами
	OutstandingAdjustments decimal.Decimal
	Balance                decimal.Decimal
	// Consistent Balance == TotalOutstanding − UnappliedCredit + OutstandingAdjustments
	Consistent bool
}

// Allocate распределяет оплаты по не отменённым заказам от старых к новым.
// Чистая функция: сверка ничего не записывает.
func Allocate(orders []repository.Order, entries []repository.CreditTransaction) Reconciliation {
	rec := Reconciliation{
		Orders:                 make([]OrderAllocation, 0, len(orders)),
		Funding:                decimal.Zero,
		TotalOrdered:           decimal.Zero,
		TotalOutstanding:       decimal.Zero,
		UnappliedCredit:        decimal.Zero,
		OutstandingAdjustments: decimal.Zero,
		Balance:                decimal.Zero,
	}

	for _, e := range entries {
		rec.Balance = rec.Balance.Add(e.Signed())
		switch e.Reason {
		case repository.ReasonPayment, repository.ReasonAdjustment:
			rec.Funding = rec.Funding.Sub(e.Signed())
		}
	}

	pool := rec.Funding
	if pool.IsNegative() {
		rec.OutstandingAdjustments = pool.Neg()
		pool = decimal.Zero
	}

	sorted := make([]repository.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != repository.OrderCancelled {
			sorted = append(sorted, o)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	for _, o := range sorted {
		paid := decimal.Min(pool, o.Total)
		pool = pool.Sub(paid)

		a := OrderAllocation{
			OrderID:     o.ID,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
			Total:       o.Total,
			Paid:        paid,
			Outstanding: o.Total.Sub(paid),
		}
		switch {
		case a.Outstanding.IsZero():
			a.PaymentState = PaymentPaid
		case paid.IsZero():
			a.PaymentState = PaymentUnpaid
		default:
			a.PaymentState = PaymentPartial
		}

		rec.Orders = append(rec.Orders, a)
		rec.TotalOrdered = rec.TotalOrdered.Add(o.Total)
		rec.TotalOutstanding = rec.TotalOutstanding.Add(a.Outstanding)
	}
	rec.UnappliedCredit = pool

	expected := rec.TotalOutstanding.Sub(rec.UnappliedCredit).Add(rec.OutstandingAdjustments)
	rec.Consistent = rec.Balance.Equal(expected)
	return rec
}
