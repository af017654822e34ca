package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/authctx"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	ClinicName    string `json:"clinic_name"`
	LicenseNumber string `json:"license_number"`
	City          string `json:"city"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string          `json:"session_id"`
	Account   accountResponse `json:"account"`
}

// Register POST /api/v1/auth/register: заявка врача, статус pending
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	acc, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		Phone:         req.Phone,
		ClinicName:    req.ClinicName,
		LicenseNumber: req.LicenseNumber,
		City:          req.City,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	observability.L(r.Context(), h.logger).Info("doctor registered", zap.String("account_id", acc.ID))
	writeJSON(w, http.StatusCreated, toAccount(acc))
}

// Login POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	out, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{SessionID: out.SessionID, Account: toAccount(out.Account)})
}

// Logout POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, _ := authctx.SessionIDFromContext(r.Context())
	if err := h.accounts.Logout(r.Context(), sid); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acc, ok := authctx.AccountFromContext(r.Context())
	if !ok {
		h.writeError(w, r, service.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(acc))
}
