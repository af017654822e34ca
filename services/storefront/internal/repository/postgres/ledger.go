package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// LedgerRepository реализует repository.LedgerRepository используя PostgreSQL
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository создаёт репозиторий кредитных проводок
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) Append(ctx context.Context, tx repository.CreditTransaction) error {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO credit_transactions (id, doctor_id, kind, amount, reason, order_id, payment_id, note, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tx.ID, tx.DoctorID, tx.Kind, tx.Amount.String(), tx.Reason,
		nullString(tx.OrderID), nullString(tx.PaymentID), tx.Note, tx.CreatedBy, createdAt)
	return mapError(err)
}

// Balance Σdebit − Σcredit одним агрегатом
func (r *LedgerRepository) Balance(ctx context.Context, doctorID string, before time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'debit' THEN amount ELSE -amount END), 0)::text
		 FROM credit_transactions
		 WHERE doctor_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)`,
		doctorID, nullTime(before)).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return balance, nil
}

func (r *LedgerRepository) List(ctx context.Context, doctorID string, q repository.LedgerQuery) ([]repository.CreditTransaction, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, doctor_id, kind, amount::text, reason,
		        COALESCE(order_id::text, ''), COALESCE(payment_id::text, ''), note, created_by, created_at
		 FROM credit_transactions
		 WHERE doctor_id = $1
		   AND ($2::timestamptz IS NULL OR created_at >= $2)
		   AND ($3::timestamptz IS NULL OR created_at < $3)
		 ORDER BY created_at, id`,
		doctorID, nullTime(q.From), nullTime(q.To))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]repository.CreditTransaction, 0)
	for rows.Next() {
		var t repository.CreditTransaction
		if err := rows.Scan(&t.ID, &t.DoctorID, &t.Kind, &t.Amount, &t.Reason,
			&t.OrderID, &t.PaymentID, &t.Note, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) Totals(ctx context.Context, doctorID string) (repository.LedgerTotals, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT reason, kind, SUM(amount)::text
		 FROM credit_transactions
		 WHERE doctor_id = $1
		 GROUP BY reason, kind`,
		doctorID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	totals := repository.LedgerTotals{}
	for rows.Next() {
		var (
			reason repository.EntryReason
			kind   repository.EntryKind
			sum    decimal.Decimal
		)
		if err := rows.Scan(&reason, &kind, &sum); err != nil {
			return nil, err
		}
		if totals[reason] == nil {
			totals[reason] = map[repository.EntryKind]decimal.Decimal{}
		}
		totals[reason][kind] = sum
	}
	return totals, rows.Err()
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, p repository.Payment) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO payments (id, doctor_id, amount, method, reference, received_at, note, recorded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.DoctorID, p.Amount.String(), p.Method, p.Reference, p.ReceivedAt, p.Note, p.RecordedBy, createdAt)
	return mapError(err)
}

func (r *LedgerRepository) GetPaymentByReference(ctx context.Context, doctorID, reference string) (repository.Payment, error) {
	var p repository.Payment
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, doctor_id, amount::text, method, reference, received_at, note, recorded_by, created_at
		 FROM payments
		 WHERE doctor_id = $1 AND reference = $2`,
		doctorID, reference).Scan(&p.ID, &p.DoctorID, &p.Amount, &p.Method, &p.Reference, &p.ReceivedAt, &p.Note, &p.RecordedBy, &p.CreatedAt)
	if err != nil {
		return repository.Payment{}, mapError(err)
	}
	return p, nil
}
