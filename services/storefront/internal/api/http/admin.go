package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

type approveDoctorRequest struct {
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type rejectDoctorRequest struct {
	Reason string `json:"reason"`
}

type creditLimitRequest struct {
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type accountListResponse struct {
	Items  []accountResponse `json:"items"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ListDoctors GET /api/v1/admin/doctors?status=&limit=&offset=
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	status := repository.AccountStatus(r.URL.Query().Get("status"))
	doctors, err := h.accounts.ListDoctors(r.Context(), actor(r), status, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := accountListResponse{Items: make([]accountResponse, 0, len(doctors)), Limit: limit, Offset: offset}
	for _, d := range doctors {
		resp.Items = append(resp.Items, toAccount(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDoctor GET /api/v1/admin/doctors/{id}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.GetAccount(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// ApproveDoctor POST /api/v1/admin/doctors/{id}/approve; тело с лимитом необязательно
func (h *Handler) ApproveDoctor(w http.ResponseWriter, r *http.Request) {
	var req approveDoctorRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.badRequest(w, err.Error())
			return
		}
	}

	acc, err := h.accounts.ApproveDoctor(r.Context(), actor(r), chi.URLParam(r, "id"), req.CreditLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.L(r.Context(), h.logger).Info("doctor approved",
		zap.String("doctor_id", acc.ID),
		zap.String("credit_limit", money(acc.CreditLimit)),
	)
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// RejectDoctor POST /api/v1/admin/doctors/{id}/reject
func (h *Handler) RejectDoctor(w http.ResponseWriter, r *http.Request) {
	var req rejectDoctorRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	acc, err := h.accounts.RejectDoctor(r.Context(), actor(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.L(r.Context(), h.logger).Info("doctor rejected", zap.String("doctor_id", acc.ID))
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// SuspendDoctor POST /api/v1/admin/doctors/{id}/suspend
func (h *Handler) SuspendDoctor(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.SuspendDoctor(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// SetCreditLimit PUT /api/v1/admin/doctors/{id}/credit-limit
func (h *Handler) SetCreditLimit(w http.ResponseWriter, r *http.Request) {
	var req creditLimitRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	acc, err := h.accounts.SetCreditLimit(r.Context(), actor(r), chi.URLParam(r, "id"), req.CreditLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// DoctorBalance GET /api/v1/admin/doctors/{id}/balance
func (h *Handler) DoctorBalance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, chi.URLParam(r, "id"))
}
