package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// Balance GET /api/v1/ledger/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, actor(r).ID)
}

// Statement GET /api/v1/ledger/statement?from=&to=
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, actor(r).ID)
}

// DoctorLedger GET /api/v1/admin/doctors/{id}/ledger?from=&to=; выписка вместе с балансом
func (h *Handler) DoctorLedger(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request, doctorID string) {
	out, err := h.ledger.Balance(r.Context(), actor(r), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalance(out))
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request, doctorID string) {
	from, err := queryTime(r, "from")
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	out, err := h.ledger.Statement(r.Context(), actor(r), doctorID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatement(out))
}

// Reconciliation GET /api/v1/admin/doctors/{id}/reconciliation
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	out, err := h.ledger.Reconcile(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliation(out))
}

type recordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
	ReceivedAt *time.Time      `json:"received_at"`
	Note       string          `json:"note"`
}

// RecordPayment POST /api/v1/admin/doctors/{id}/payments; повтор reference отвечает 200 с duplicate=true
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	in := service.RecordPaymentInput{
		DoctorID:  chi.URLParam(r, "id"),
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Note:      req.Note,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = *req.ReceivedAt
	}

	out, err := h.ledger.RecordPayment(r.Context(), actor(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, toRecordPayment(out))
}

type adjustmentRequest struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Adjust POST /api/v1/admin/doctors/{id}/adjustments
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	tx, err := h.ledger.Adjust(r.Context(), actor(r), service.AdjustInput{
		DoctorID: chi.URLParam(r, "id"),
		Kind:     repository.EntryKind(strings.ToLower(req.Kind)),
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransaction(tx))
}
