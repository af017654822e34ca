package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind направление проводки
type EntryKind string

const (
	// Debit увеличивает долг врача
	Debit EntryKind = "debit"
	// Credit уменьшает долг врача
	Credit EntryKind = "credit"
)

// EntryReason причина проводки
type EntryReason string

const (
	ReasonOrder         EntryReason = "order"
	ReasonOrderReversal EntryReason = "order_reversal"
	ReasonPayment       EntryReason = "payment"
	ReasonAdjustment    EntryReason = "adjustment"
)

// CreditTransaction проводка по кредитному счёту врача. Записи только добавляются.
type CreditTransaction struct {
	ID        string
	DoctorID  string
	Kind      EntryKind
	Amount    decimal.Decimal // всегда > 0, знак задаёт Kind
	Reason    EntryReason
	OrderID   string
	PaymentID string
	Note      string
	CreatedBy string
	CreatedAt time.Time
}

// Signed сумма со знаком: debit положительный, credit отрицательный
func (t CreditTransaction) Signed() decimal.Decimal {
	if t.Kind == Credit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Payment поступившая оплата
type Payment struct {
	ID         string
	DoctorID   string
	Amount     decimal.Decimal
	Method     string
	Reference  string // уникален в пределах врача
	ReceivedAt time.Time
	Note       string
	RecordedBy string
	CreatedAt  time.Time
}

// LedgerTotals суммы проводок врача в разрезе причины и направления
type LedgerTotals map[EntryReason]map[EntryKind]decimal.Decimal

// Sum сумма по причине и направлению (ноль, если проводок нет)
func (t LedgerTotals) Sum(reason EntryReason, kind EntryKind) decimal.Decimal {
	if byKind, ok := t[reason]; ok {
		if v, ok := byKind[kind]; ok {
			return v
		}
	}
	return decimal.Zero
}

// Balance Σdebit − Σcredit по всем причинам
func (t LedgerTotals) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, byKind := range t {
		total = total.Add(byKind[Debit]).Sub(byKind[Credit])
	}
	return total
}

// LedgerQuery период выписки; нулевые границы: без ограничения
type LedgerQuery struct {
	From time.Time
	To   time.Time
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=LedgerRepository --dir=. --output=./mocks --outpkg=mocks

// LedgerRepository хранилище кредитных проводок и оплат
type LedgerRepository interface {
	Append(ctx context.Context, tx CreditTransaction) error
	// Balance Σdebit − Σcredit; before != zero ограничивает проводками строго раньше before
	Balance(ctx context.Context, doctorID string, before time.Time) (decimal.Decimal, error)
	// List проводки за период по возрастанию created_at
	List(ctx context.Context, doctorID string, q LedgerQuery) ([]CreditTransaction, error)
	Totals(ctx context.Context, doctorID string) (LedgerTotals, error)
	// CreatePayment возвращает ErrAlreadyExists при повторном reference
	CreatePayment(ctx context.Context, p Payment) error
	GetPaymentByReference(ctx context.Context, doctorID, reference string) (Payment, error)
}
