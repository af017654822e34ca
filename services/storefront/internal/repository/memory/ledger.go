package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Ledger реализует LedgerRepository
type Ledger struct{ store *Store }

var _ repository.LedgerRepository = (*Ledger)(nil)

func (r *Ledger) Append(ctx context.Context, tx repository.CreditTransaction) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.store.now()
	}
	r.store.entries = append(r.store.entries, tx)
	return nil
}

func (r *Ledger) Balance(ctx context.Context, doctorID string, before time.Time) (decimal.Decimal, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	balance := decimal.Zero
	for _, e := range r.store.entries {
		if e.DoctorID != doctorID {
			continue
		}
		if !before.IsZero() && !e.CreatedAt.Before(before) {
			continue
		}
		balance = balance.Add(e.Signed())
	}
	return balance, nil
}

func (r *Ledger) List(ctx context.Context, doctorID string, q repository.LedgerQuery) ([]repository.CreditTransaction, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	out := make([]repository.CreditTransaction, 0)
	for _, e := range r.store.entries {
		if e.DoctorID != doctorID {
			continue
		}
		if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Ledger) Totals(ctx context.Context, doctorID string) (repository.LedgerTotals, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	totals := repository.LedgerTotals{}
	for _, e := range r.store.entries {
		if e.DoctorID != doctorID {
			continue
		}
		if totals[e.Reason] == nil {
			totals[e.Reason] = map[repository.EntryKind]decimal.Decimal{}
		}
		totals[e.Reason][e.Kind] = totals[e.Reason][e.Kind].Add(e.Amount)
	}
	return totals, nil
}

func (r *Ledger) CreatePayment(ctx context.Context, p repository.Payment) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, existing := range r.store.payments {
		if existing.DoctorID == p.DoctorID && existing.Reference == p.Reference {
			return repository.ErrAlreadyExists
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.store.now()
	}
	r.store.payments = append(r.store.payments, p)
	return nil
}

func (r *Ledger) GetPaymentByReference(ctx context.Context, doctorID, reference string) (repository.Payment, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	for _, p := range r.store.payments {
		if p.DoctorID == doctorID && p.Reference == reference {
			return p, nil
		}
	}
	return repository.Payment{}, repository.ErrNotFound
}
