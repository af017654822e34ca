package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/authctx"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// maxBodyBytes ограничение тела JSON запроса
const maxBodyBytes = 1 << 20

// Handler HTTP-обработчики storefront; вся бизнес-логика в service
type Handler struct {
	logger   *zap.Logger
	accounts *service.AccountService
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	ledger   *service.LedgerService
}

// NewHandler создаёт Handler
func NewHandler(
	logger *zap.Logger,
	accounts *service.AccountService,
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	ledger *service.LedgerService,
) *Handler {
	return &Handler{
		logger:   logger,
		accounts: accounts,
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		ledger:   ledger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor сопоставляет ошибку service/repository с HTTP статусом
func statusFor(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, service.ErrEmptyOrder):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDoctorNotApproved), errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrAccountRejected):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrCreditLimitExceeded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError JSON ошибка; 5xx логируются, текст наружу не отдаётся
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context(), h.logger).Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	resp := errorResponse{Error: err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decode читает JSON тело; неизвестные поля: ошибка
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// actor владелец сессии из context (middleware.WithSession); анонимный: пустой Actor
func actor(r *http.Request) service.Actor {
	acc, ok := authctx.AccountFromContext(r.Context())
	if !ok {
		return service.Actor{}
	}
	return service.Actor{ID: acc.ID, Role: acc.Role}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// queryTime RFC3339 или дата YYYY-MM-DD (начало дня UTC)
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be RFC3339 or YYYY-MM-DD", name)
}
