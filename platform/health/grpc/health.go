// Package grpc отдаёт readiness воркеров без HTTP API через стандартный grpc.health.v1.
// Статус не выставляется руками: он выводится из тех же проверок зависимостей,
// что и HTTP /health storefront.
package grpc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	healthhttp "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/http"
)

const defaultCheckTimeout = 2 * time.Second

// Health общий статус ("") SERVING только когда прошли все проверки.
// Каждая проверка дополнительно публикуется отдельным сервисом с именем Check.Name.
type Health struct {
	srv     *health.Server
	logger  *zap.Logger
	checks  []healthhttp.Check
	timeout time.Duration

	mu      sync.Mutex
	failing map[string]bool
	stopped bool
	checked bool
}

// New до первого Refresh все сервисы NOT_SERVING
func New(logger *zap.Logger, timeout time.Duration, checks ...healthhttp.Check) *Health {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	srv := health.NewServer()
	srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, c := range checks {
		srv.SetServingStatus(c.Name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return &Health{
		srv:     srv,
		logger:  logger,
		checks:  checks,
		timeout: timeout,
		failing: make(map[string]bool, len(checks)),
	}
}

// Register вызывать до Serve
func (h *Health) Register(grpcSrv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcSrv, h.srv)
}

// Refresh прогоняет проверки и обновляет статусы; в логах только смены состояния.
// Возвращает true, если все проверки прошли.
func (h *Health) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]error, len(h.checks))
	for _, c := range h.checks {
		results[c.Name] = c.Fn(ctx)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}

	ready := true
	for name, err := range results {
		if err != nil {
			ready = false
			if !h.failing[name] {
				h.logger.Warn("dependency check failed, reporting NOT_SERVING", zap.String("check", name), zap.Error(err))
			}
			h.failing[name] = true
			h.srv.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			continue
		}
		if h.failing[name] {
			h.logger.Info("dependency check recovered", zap.String("check", name))
		}
		delete(h.failing, name)
		h.srv.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	overall := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ready {
		overall = grpc_health_v1.HealthCheckResponse_SERVING
		if !h.checked {
			h.logger.Info("all dependency checks passed, reporting SERVING")
		}
	}
	h.checked = true
	h.srv.SetServingStatus("", overall)
	return ready
}

// Watch сразу выполняет Refresh и повторяет его каждые interval до отмены ctx
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	h.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() == nil {
				h.Refresh(ctx)
			}
		}
	}
}

// Shutdown необратимо переводит всё в NOT_SERVING; последующие Refresh игнорируются
func (h *Health) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	h.srv.Shutdown()
}
