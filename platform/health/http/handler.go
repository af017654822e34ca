package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check именованная проверка зависимости (postgres, redis, ...)
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Ping строит Check из любого клиента с методом Ping(ctx) error (pgxpool.Pool)
func Ping(name string, p interface {
	Ping(ctx context.Context) error
}) Check {
	return Check{Name: name, Fn: p.Ping}
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler возвращает readiness endpoint.
// 200 {"status":"ok"} если все проверки прошли, иначе 503 {"status":"not ready"} с ошибкой по каждой упавшей.
func Handler(timeout time.Duration, checks ...Check) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := response{Status: "ok"}
		code := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
