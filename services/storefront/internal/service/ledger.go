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

// PaymentMethods допустимые способы оплаты
var PaymentMethods = map[string]bool{
	"cash":          true,
	"bank_transfer": true,
	"upi":           true,
	"cheque":        true,
	"card":          true,
}

// LedgerService кредитный счёт врача: баланс, выписка, оплаты, корректировки, сверка
type LedgerService struct {
	logger   *zap.Logger
	tx       repository.TxManager
	accounts repository.AccountRepository
	orders   repository.OrderRepository
	ledger   repository.LedgerRepository
	events   eventWriter
	changes  ChangePublisher
	metrics  BusinessMetrics
	now      func() time.Time
}

// LedgerDeps зависимости LedgerService
type LedgerDeps struct {
	Tx       repository.TxManager
	Accounts repository.AccountRepository
	Orders   repository.OrderRepository
	Ledger   repository.LedgerRepository
	Outbox   repository.OutboxRepository
	Topics   Topics
	Changes  ChangePublisher
	Metrics  BusinessMetrics
}

// NewLedgerService создаёт LedgerService
func NewLedgerService(logger *zap.Logger, deps LedgerDeps) *LedgerService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &LedgerService{
		logger:   logger,
		tx:       deps.Tx,
		accounts: deps.Accounts,
		orders:   deps.Orders,
		ledger:   deps.Ledger,
		events:   eventWriter{outbox: deps.Outbox, topics: deps.Topics},
		changes:  deps.Changes,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// doctorFor врач доступен администратору и самому себе
func (s *LedgerService) doctorFor(ctx context.Context, actor Actor, doctorID string) (repository.Account, error) {
	if !actor.IsAdmin() && actor.ID != doctorID {
		return repository.Account{}, repository.ErrNotFound
	}
	acc, err := s.accounts.GetByID(ctx, doctorID)
	if err != nil {
		return repository.Account{}, err
	}
	if acc.Role != repository.RoleDoctor {
		return repository.Account{}, repository.ErrNotFound
	}
	return acc, nil
}

// BalanceOutput сводка по кредитному счёту
type BalanceOutput struct {
	DoctorID    string
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
	// AvailableCredit nil, если лимит не задан
	AvailableCredit *decimal.Decimal
	Ordered         decimal.Decimal
	Paid            decimal.Decimal
	Adjusted        decimal.Decimal
}

// Balance долг врача: положительный баланс: врач должен
func (s *LedgerService) Balance(ctx context.Context, actor Actor, doctorID string) (*BalanceOutput, error) {
	acc, err := s.doctorFor(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}

	totals, err := s.ledger.Totals(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get ledger totals: %w", err)
	}

	out := &BalanceOutput{
		DoctorID:    doctorID,
		Balance:     totals.Balance(),
		CreditLimit: acc.CreditLimit,
		Ordered: totals.Sum(repository.ReasonOrder, repository.Debit).
			Sub(totals.Sum(repository.ReasonOrderReversal, repository.Credit)),
		Paid: totals.Sum(repository.ReasonPayment, repository.Credit),
		Adjusted: totals.Sum(repository.ReasonAdjustment, repository.Debit).
			Sub(totals.Sum(repository.ReasonAdjustment, repository.Credit)),
	}
	if acc.CreditLimit.IsPositive() {
		available := acc.CreditLimit.Sub(out.Balance)
		out.AvailableCredit = &available
	}
	return out, nil
}

// StatementEntry проводка с балансом после неё
type StatementEntry struct {
	repository.CreditTransaction
	Balance decimal.Decimal
}

// Statement выписка за период
type Statement struct {
	DoctorID       string
	From           time.Time
	To             time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	Entries        []StatementEntry
}

// Statement проводки за [from, to) с нарастающим балансом; входящий баланс считается по всему до from
func (s *LedgerService) Statement(ctx context.Context, actor Actor, doctorID string, from, to time.Time) (*Statement, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, invalid("from", "must be before to")
	}
	if _, err := s.doctorFor(ctx, actor, doctorID); err != nil {
		return nil, err
	}

	opening := decimal.Zero
	if !from.IsZero() {
		var err error
		opening, err = s.ledger.Balance(ctx, doctorID, from)
		if err != nil {
			return nil, fmt.Errorf("get opening balance: %w", err)
		}
	}

	entries, err := s.ledger.List(ctx, doctorID, repository.LedgerQuery{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	st := &Statement{
		DoctorID:       doctorID,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Entries:        make([]StatementEntry, 0, len(entries)),
	}
	running := opening
	for _, e := range entries {
		running = running.Add(e.Signed())
		if e.Kind == repository.Debit {
			st.TotalDebit = st.TotalDebit.Add(e.Amount)
		} else {
			st.TotalCredit = st.TotalCredit.Add(e.Amount)
		}
		st.Entries = append(st.Entries, StatementEntry{CreditTransaction: e, Balance: running})
	}
	st.ClosingBalance = running
	return st, nil
}

// RecordPaymentInput поступившая оплата
type RecordPaymentInput struct {
	DoctorID   string
	Amount     decimal.Decimal
	Method     string
	Reference  string
	ReceivedAt time.Time
	Note       string
}

func (in RecordPaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !PaymentMethods[in.Method] {
		return invalid("method", fmt.Sprintf("unsupported payment method %q", in.Method))
	}
	if in.Reference == "" {
		return invalid("reference", "is required")
	}
	return nil
}

// RecordPaymentOutput результат; Duplicate: оплата с таким reference уже была, ничего не записано
type RecordPaymentOutput struct {
	Payment   repository.Payment
	Balance   decimal.Decimal
	Duplicate bool
}

// RecordPayment идемпотентна по (врач, reference): оплата, кредитовая проводка и событие в одной транзакции
func (s *LedgerService) RecordPayment(ctx context.Context, actor Actor, in RecordPaymentInput) (*RecordPaymentOutput, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	in.Method = strings.ToLower(strings.TrimSpace(in.Method))
	in.Reference = strings.TrimSpace(in.Reference)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = s.now()
	}

	if out, err := s.existingPayment(ctx, in.DoctorID, in.Reference); err == nil {
		return out, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	payment := repository.Payment{
		ID:         uuid.NewString(),
		DoctorID:   in.DoctorID,
		Amount:     in.Amount.Round(2),
		Method:     in.Method,
		Reference:  in.Reference,
		ReceivedAt: in.ReceivedAt.UTC(),
		Note:       strings.TrimSpace(in.Note),
		RecordedBy: actor.ID,
		CreatedAt:  now,
	}
	credit := repository.CreditTransaction{
		ID:        uuid.NewString(),
		DoctorID:  in.DoctorID,
		Kind:      repository.Credit,
		Amount:    payment.Amount,
		Reason:    repository.ReasonPayment,
		PaymentID: payment.ID,
		Note:      payment.Note,
		CreatedBy: actor.ID,
		CreatedAt: now,
	}

	var balance decimal.Decimal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		doctor, err := s.accounts.GetByIDForUpdate(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Role != repository.RoleDoctor {
			return repository.ErrNotFound
		}
		if err := s.ledger.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, credit); err != nil {
			return fmt.Errorf("append payment credit: %w", err)
		}
		balance, err = s.ledger.Balance(ctx, in.DoctorID, time.Time{})
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		return s.events.write(ctx, s.events.topics.Payments, payment.ID, events.Envelope{
			EventType:  events.PaymentRecorded,
			OccurredAt: now,
			Doctor:     doctorRef(doctor),
			Payment: &events.Payment{
				ID:        payment.ID,
				Amount:    payment.Amount.StringFixed(2),
				Method:    payment.Method,
				Reference: payment.Reference,
				Balance:   balance.StringFixed(2),
			},
		})
	})
	if err != nil {
		// параллельная запись того же reference
		if errors.Is(err, repository.ErrAlreadyExists) {
			return s.existingPayment(ctx, in.DoctorID, in.Reference)
		}
		return nil, err
	}

	s.metrics.PaymentRecorded()
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("doctor_id", payment.DoctorID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("reference", payment.Reference),
	)
	publishChanges(ctx, s.changes, s.logger,
		realtime.Change{Table: realtime.TableLedger, Action: realtime.ActionInsert, ID: credit.ID, DoctorID: payment.DoctorID},
	)
	return &RecordPaymentOutput{Payment: payment, Balance: balance}, nil
}

func (s *LedgerService) existingPayment(ctx context.Context, doctorID, reference string) (*RecordPaymentOutput, error) {
	p, err := s.ledger.GetPaymentByReference(ctx, doctorID, reference)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(ctx, doctorID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	s.logger.Info("duplicate payment reference", zap.String("doctor_id", doctorID), zap.String("reference", reference))
	return &RecordPaymentOutput{Payment: p, Balance: balance, Duplicate: true}, nil
}

// AdjustInput ручная корректировка долга
type AdjustInput struct {
	DoctorID string
	Kind     repository.EntryKind
	Amount   decimal.Decimal
	Note     string
}

// Adjust debit увеличивает долг, credit уменьшает (admin)
func (s *LedgerService) Adjust(ctx context.Context, actor Actor, in AdjustInput) (repository.CreditTransaction, error) {
	if !actor.IsAdmin() {
		return repository.CreditTransaction{}, ErrForbidden
	}
	if in.Kind != repository.Debit && in.Kind != repository.Credit {
		return repository.CreditTransaction{}, invalid("kind", "must be debit or credit")
	}
	if !in.Amount.IsPositive() {
		return repository.CreditTransaction{}, invalid("amount", "must be greater than zero")
	}
	note := strings.TrimSpace(in.Note)
	if note == "" {
		return repository.CreditTransaction{}, invalid("note", "is required")
	}

	entry := repository.CreditTransaction{
		ID:        uuid.NewString(),
		DoctorID:  in.DoctorID,
		Kind:      in.Kind,
		Amount:    in.Amount.Round(2),
		Reason:    repository.ReasonAdjustment,
		Note:      note,
		CreatedBy: actor.ID,
		CreatedAt: s.now(),
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		doctor, err := s.accounts.GetByIDForUpdate(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Role != repository.RoleDoctor {
			return repository.ErrNotFound
		}
		return s.ledger.Append(ctx, entry)
	})
	if err != nil {
		return repository.CreditTransaction{}, err
	}

	s.logger.Info("ledger adjusted",
		zap.String("doctor_id", entry.DoctorID),
		zap.String("kind", string(entry.Kind)),
		zap.String("amount", entry.Amount.StringFixed(2)),
		zap.String("actor_id", actor.ID),
	)
	publishChanges(ctx, s.changes, s.logger,
		realtime.Change{Table: realtime.TableLedger, Action: realtime.ActionInsert, ID: entry.ID, DoctorID: entry.DoctorID},
	)
	return entry, nil
}

// Reconcile распределяет оплаты по заказам FIFO (admin)
func (s *LedgerService) Reconcile(ctx context.Context, actor Actor, doctorID string) (*Reconciliation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.doctorFor(ctx, actor, doctorID); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, repository.OrderQuery{
		DoctorID:  doctorID,
		Statuses:  []repository.OrderStatus{repository.OrderPending, repository.OrderProcessing, repository.OrderDelivered},
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	entries, err := s.ledger.List(ctx, doctorID, repository.LedgerQuery{})
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	rec := Allocate(orders, entries)
	rec.DoctorID = doctorID
	if !rec.Consistent {
		s.logger.Warn("ledger is inconsistent with orders",
			zap.String("doctor_id", doctorID),
			zap.String("balance", rec.Balance.StringFixed(2)),
			zap.String("outstanding", rec.TotalOutstanding.StringFixed(2)),
			zap.String("unapplied", rec.UnappliedCredit.StringFixed(2)),
		)
	}
	return &rec, nil
}
