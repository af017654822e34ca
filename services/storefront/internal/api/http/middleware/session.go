package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/authctx"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/service"
)

// SessionHeader заголовок с id сессии
const SessionHeader = "x-session-id"

// Authenticator разрешает сессию во владельца
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (repository.Account, error)
}

// writeError JSON ошибка без зависимости от пакета обработчиков
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithSession читает x-session-id и кладёт владельца в context.
// required=false пропускает анонимные запросы (каталог), но невалидная сессия всё равно 401.
func WithSession(auth Authenticator, required bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(SessionHeader)
			if sid == "" {
				if required {
					writeError(w, http.StatusUnauthorized, "session_id is required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			acc, err := auth.Authenticate(r.Context(), sid)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrUnauthenticated):
					writeError(w, http.StatusUnauthorized, err.Error())
				case errors.Is(err, service.ErrAccountRejected):
					writeError(w, http.StatusForbidden, err.Error())
				default:
					observability.L(r.Context(), logger).Error("failed to authenticate session", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal error")
				}
				return
			}

			ctx := authctx.WithSessionID(r.Context(), sid)
			ctx = authctx.WithAccount(ctx, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только указанную роль
func RequireRole(role repository.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc, ok := authctx.AccountFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "session_id is required")
				return
			}
			if acc.Role != role {
				writeError(w, http.StatusForbidden, service.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
