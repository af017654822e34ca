package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

func TestLedgerService_RecordPayment_IsIdempotentPerReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "AMX-500", "100.00", 10)
	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 3}}})
	require.NoError(t, err)

	in := RecordPaymentInput{
		DoctorID:  doc.ID,
		Amount:    decimal.NewFromInt(120),
		Method:    "UPI",
		Reference: " UTR-0001 ",
	}
	first, err := f.ledger.RecordPayment(ctx, adminActor, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "upi", first.Payment.Method)
	assert.Equal(t, "UTR-0001", first.Payment.Reference)
	assert.Equal(t, "180.00", first.Balance.StringFixed(2))

	again, err := f.ledger.RecordPayment(ctx, adminActor, in)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assert.Equal(t, "180.00", again.Balance.StringFixed(2))

	recorded := f.outboxEvents(t, events.PaymentRecorded)
	require.Len(t, recorded, 1)
	assert.Equal(t, "120.00", recorded[0].Payment.Amount)
	assert.Equal(t, "180.00", recorded[0].Payment.Balance)

	// тот же reference у другого врача: это другая оплата
	other := f.doctor(t, "other@clinic.in", 0)
	in.DoctorID = other.ID
	third, err := f.ledger.RecordPayment(ctx, adminActor, in)
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
	assert.Equal(t, "-120.00", third.Balance.StringFixed(2))
}

func TestLedgerService_RecordPayment_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)

	tests := []struct {
		name      string
		in        RecordPaymentInput
		wantField string
		wantErr   error
	}{
		{name: "zero amount", in: RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.Zero, Method: "cash", Reference: "R1"}, wantField: "amount"},
		{name: "unknown method", in: RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(1), Method: "barter", Reference: "R1"}, wantField: "method"},
		{name: "no reference", in: RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(1), Method: "cash"}, wantField: "reference"},
		{name: "unknown doctor", in: RecordPaymentInput{DoctorID: "ghost", Amount: decimal.NewFromInt(1), Method: "cash", Reference: "R1"}, wantErr: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordPayment(ctx, adminActor, tt.in)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	_, err := f.ledger.RecordPayment(ctx, doctorActor(doc), RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(1), Method: "cash", Reference: "R1"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLedgerService_Statement_RunningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "AMX-500", "100.00", 100)

	// день 1: заказ 200
	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 2}}})
	require.NoError(t, err)

	// день 2: оплата 150, заказ 300
	f.clock.advance(24 * time.Hour)
	periodStart := f.clock.now()
	_, err = f.ledger.RecordPayment(ctx, adminActor, RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(150), Method: "cash", Reference: "RCPT-1"})
	require.NoError(t, err)
	f.clock.advance(time.Hour)
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 3}}})
	require.NoError(t, err)

	// день 3: корректировка −25
	f.clock.advance(24 * time.Hour)
	periodEnd := f.clock.now()
	_, err = f.ledger.Adjust(ctx, adminActor, AdjustInput{DoctorID: doc.ID, Kind: repository.Credit, Amount: decimal.NewFromInt(25), Note: "damaged strip"})
	require.NoError(t, err)

	st, err := f.ledger.Statement(ctx, doctorActor(doc), doc.ID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, "200.00", st.OpeningBalance.StringFixed(2))
	require.Len(t, st.Entries, 2)
	assert.Equal(t, "50.00", st.Entries[0].Balance.StringFixed(2))
	assert.Equal(t, "350.00", st.Entries[1].Balance.StringFixed(2))
	assert.Equal(t, "350.00", st.ClosingBalance.StringFixed(2))
	assert.Equal(t, "300.00", st.TotalDebit.StringFixed(2))
	assert.Equal(t, "150.00", st.TotalCredit.StringFixed(2))

	full, err := f.ledger.Statement(ctx, adminActor, doc.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, full.OpeningBalance.IsZero())
	require.Len(t, full.Entries, 4)
	assert.Equal(t, "325.00", full.ClosingBalance.StringFixed(2))
	assert.True(t, full.ClosingBalance.Equal(f.balance(t, doc.ID)))

	_, err = f.ledger.Statement(ctx, adminActor, doc.ID, periodEnd, periodStart)
	assert.True(t, IsValidation(err))

	other := f.doctor(t, "other@clinic.in", 0)
	_, err = f.ledger.Statement(ctx, doctorActor(other), doc.ID, time.Time{}, time.Time{})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerService_Balance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 1000)
	p := f.product(t, "AMX-500", "100.00", 100)

	o, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 4}}})
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, 1}}})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: o.ID, Status: repository.OrderCancelled})
	require.NoError(t, err)
	_, err = f.ledger.RecordPayment(ctx, adminActor, RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(30), Method: "cash", Reference: "R1"})
	require.NoError(t, err)
	_, err = f.ledger.Adjust(ctx, adminActor, AdjustInput{DoctorID: doc.ID, Kind: repository.Debit, Amount: decimal.NewFromInt(5), Note: "courier fee"})
	require.NoError(t, err)

	out, err := f.ledger.Balance(ctx, doctorActor(doc), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", out.Balance.StringFixed(2))
	assert.Equal(t, "100.00", out.Ordered.StringFixed(2))
	assert.Equal(t, "30.00", out.Paid.StringFixed(2))
	assert.Equal(t, "5.00", out.Adjusted.StringFixed(2))
	require.NotNil(t, out.AvailableCredit)
	assert.Equal(t, "925.00", out.AvailableCredit.StringFixed(2))
}

func TestLedgerService_Adjust_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)

	_, err := f.ledger.Adjust(ctx, adminActor, AdjustInput{DoctorID: doc.ID, Kind: "refund", Amount: decimal.NewFromInt(1), Note: "x"})
	assert.True(t, IsValidation(err))
	_, err = f.ledger.Adjust(ctx, adminActor, AdjustInput{DoctorID: doc.ID, Kind: repository.Debit, Amount: decimal.NewFromInt(-1), Note: "x"})
	assert.True(t, IsValidation(err))
	_, err = f.ledger.Adjust(ctx, adminActor, AdjustInput{DoctorID: doc.ID, Kind: repository.Debit, Amount: decimal.NewFromInt(1), Note: " "})
	assert.True(t, IsValidation(err))
	_, err = f.ledger.Adjust(ctx, doctorActor(doc), AdjustInput{DoctorID: doc.ID, Kind: repository.Credit, Amount: decimal.NewFromInt(1), Note: "gift"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLedgerService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	p := f.product(t, "AMX-500", "100.00", 100)

	var ids []string
	for _, qty := range []int{1, 2, 3} {
		o, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{DoctorID: doc.ID, Items: []OrderLineInput{{p.ID, qty}}})
		require.NoError(t, err)
		ids = append(ids, o.ID)
		f.clock.advance(time.Hour)
	}
	_, err := f.orders.UpdateStatus(ctx, adminActor, UpdateStatusInput{OrderID: ids[1], Status: repository.OrderCancelled})
	require.NoError(t, err)
	_, err = f.ledger.RecordPayment(ctx, adminActor, RecordPaymentInput{DoctorID: doc.ID, Amount: decimal.NewFromInt(250), Method: "bank_transfer", Reference: "NEFT-9"})
	require.NoError(t, err)

	rec, err := f.ledger.Reconcile(ctx, adminActor, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, rec.DoctorID)
	require.Len(t, rec.Orders, 2)
	assert.Equal(t, ids[0], rec.Orders[0].OrderID)
	assert.Equal(t, PaymentPaid, rec.Orders[0].PaymentState)
	assert.Equal(t, ids[2], rec.Orders[1].OrderID)
	assert.Equal(t, PaymentPartial, rec.Orders[1].PaymentState)
	assert.Equal(t, "150.00", rec.Orders[1].Paid.StringFixed(2))
	assert.Equal(t, "150.00", rec.TotalOutstanding.StringFixed(2))
	assert.Equal(t, "150.00", rec.Balance.StringFixed(2))
	assert.True(t, rec.Consistent)

	_, err = f.ledger.Reconcile(ctx, doctorActor(doc), doc.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
