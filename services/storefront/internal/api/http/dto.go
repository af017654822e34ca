package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// money деньги в JSON строкой с двумя знаками
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type productResponse struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	Price        string    `json:"price"`
	Stock        int       `json:"stock"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toProduct(p repository.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Manufacturer: p.Manufacturer,
		Unit:         p.Unit,
		Price:        money(p.Price),
		Stock:        p.Stock,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type productListResponse struct {
	Items  []productResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type accountResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	FullName        string     `json:"full_name"`
	Phone           string     `json:"phone,omitempty"`
	ClinicName      string     `json:"clinic_name,omitempty"`
	LicenseNumber   string     `json:"license_number,omitempty"`
	City            string     `json:"city,omitempty"`
	CreditLimit     string     `json:"credit_limit"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toAccount(a repository.Account) accountResponse {
	return accountResponse{
		ID:              a.ID,
		Email:           a.Email,
		Role:            string(a.Role),
		Status:          string(a.Status),
		FullName:        a.FullName,
		Phone:           a.Phone,
		ClinicName:      a.ClinicName,
		LicenseNumber:   a.LicenseNumber,
		City:            a.City,
		CreditLimit:     money(a.CreditLimit),
		RejectionReason: a.RejectionReason,
		ApprovedAt:      a.ApprovedAt,
		CreatedAt:       a.CreatedAt,
	}
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	DoctorID     string              `json:"doctor_id"`
	Status       string              `json:"status"`
	Items        []orderItemResponse `json:"items,omitempty"`
	Total        string              `json:"total"`
	Note         string              `json:"note,omitempty"`
	CancelReason string              `json:"cancel_reason,omitempty"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func toOrder(o repository.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		DoctorID:     o.DoctorID,
		Status:       string(o.Status),
		Total:        money(o.Total),
		Note:         o.Note,
		CancelReason: o.CancelReason,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
			LineTotal: money(it.LineTotal),
		})
	}
	return resp
}

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
	Available bool   `json:"available"`
}

type cartResponse struct {
	Lines    []cartLineResponse `json:"lines"`
	Subtotal string             `json:"subtotal"`
}

func toCart(c *service.Cart) cartResponse {
	resp := cartResponse{Lines: make([]cartLineResponse, 0, len(c.Lines)), Subtotal: money(c.Subtotal)}
	for _, l := range c.Lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			Unit:      l.Unit,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			LineTotal: money(l.LineTotal),
			Available: l.Available,
		})
	}
	return resp
}

type balanceResponse struct {
	DoctorID        string  `json:"doctor_id"`
	Balance         string  `json:"balance"`
	CreditLimit     string  `json:"credit_limit"`
	AvailableCredit *string `json:"available_credit,omitempty"`
	Ordered         string  `json:"ordered"`
	Paid            string  `json:"paid"`
	Adjusted        string  `json:"adjusted"`
}

func toBalance(b *service.BalanceOutput) balanceResponse {
	resp := balanceResponse{
		DoctorID:    b.DoctorID,
		Balance:     money(b.Balance),
		CreditLimit: money(b.CreditLimit),
		Ordered:     money(b.Ordered),
		Paid:        money(b.Paid),
		Adjusted:    money(b.Adjusted),
	}
	if b.AvailableCredit != nil {
		v := money(*b.AvailableCredit)
		resp.AvailableCredit = &v
	}
	return resp
}

type transactionResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
	OrderID   string    `json:"order_id,omitempty"`
	PaymentID string    `json:"payment_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Balance   string    `json:"balance,omitempty"`
}

func toTransaction(t repository.CreditTransaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Amount:    money(t.Amount),
		Reason:    string(t.Reason),
		OrderID:   t.OrderID,
		PaymentID: t.PaymentID,
		Note:      t.Note,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
	}
}

type statementResponse struct {
	DoctorID       string                `json:"doctor_id"`
	From           *time.Time            `json:"from,omitempty"`
	To             *time.Time            `json:"to,omitempty"`
	OpeningBalance string                `json:"opening_balance"`
	ClosingBalance string                `json:"closing_balance"`
	TotalDebit     string                `json:"total_debit"`
	TotalCredit    string                `json:"total_credit"`
	Entries        []transactionResponse `json:"entries"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toStatement(s *service.Statement) statementResponse {
	resp := statementResponse{
		DoctorID:       s.DoctorID,
		From:           optTime(s.From),
		To:             optTime(s.To),
		OpeningBalance: money(s.OpeningBalance),
		ClosingBalance: money(s.ClosingBalance),
		TotalDebit:     money(s.TotalDebit),
		TotalCredit:    money(s.TotalCredit),
		Entries:        make([]transactionResponse, 0, len(s.Entries)),
	}
	for _, e := range s.Entries {
		tr := toTransaction(e.CreditTransaction)
		tr.Balance = money(e.Balance)
		resp.Entries = append(resp.Entries, tr)
	}
	return resp
}

type paymentResponse struct {
	ID         string    `json:"id"`
	DoctorID   string    `json:"doctor_id"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference"`
	ReceivedAt time.Time `json:"received_at"`
	Note       string    `json:"note,omitempty"`
	RecordedBy string    `json:"recorded_by"`
}

type recordPaymentResponse struct {
	Payment   paymentResponse `json:"payment"`
	Balance   string          `json:"balance"`
	Duplicate bool            `json:"duplicate"`
}

func toRecordPayment(out *service.RecordPaymentOutput) recordPaymentResponse {
	p := out.Payment
	return recordPaymentResponse{
		Payment: paymentResponse{
			ID:         p.ID,
			DoctorID:   p.DoctorID,
			Amount:     money(p.Amount),
			Method:     p.Method,
			Reference:  p.Reference,
			ReceivedAt: p.ReceivedAt,
			Note:       p.Note,
			RecordedBy: p.RecordedBy,
		},
		Balance:   money(out.Balance),
		Duplicate: out.Duplicate,
	}
}

type allocationResponse struct {
	OrderID      string    `json:"order_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Total        string    `json:"total"`
	Paid         string    `json:"paid"`
	Outstanding  string    `json:"outstanding"`
	PaymentState string    `json:"payment_state"`
}

type reconciliationResponse struct {
	DoctorID               string               `json:"doctor_id"`
	Orders                 []allocationResponse `json:"orders"`
	Funding                string               `json:"funding"`
	TotalOrdered           string               `json:"total_ordered"`
	TotalOutstanding       string               `json:"total_outstanding"`
	UnappliedCredit        string               `json:"unapplied_credit"`
	OutstandingAdjustments string               `json:"outstanding_adjustments"`
	Balance                string               `json:"balance"`
	Consistent             bool                 `json:"consistent"`
}

func toReconciliation(r *service.Reconciliation) reconciliationResponse {
	resp := reconciliationResponse{
		DoctorID:               r.DoctorID,
		Orders:                 make([]allocationResponse, 0, len(r.Orders)),
		Funding:                money(r.Funding),
		TotalOrdered:           money(r.TotalOrdered),
		TotalOutstanding:       money(r.TotalOutstanding),
		UnappliedCredit:        money(r.UnappliedCredit),
		OutstandingAdjustments: money(r.OutstandingAdjustments),
		Balance:                money(r.Balance),
		Consistent:             r.Consistent,
	}
	for _, a := range r.Orders {
		resp.Orders = append(resp.Orders, allocationResponse{
			OrderID:      a.OrderID,
			Status:       string(a.Status),
			CreatedAt:    a.CreatedAt,
			Total:        money(a.Total),
			Paid:         money(a.Paid),
			Outstanding:  money(a.Outstanding),
			PaymentState: string(a.PaymentState),
		})
	}
	return resp
}
