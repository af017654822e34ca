package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager выполняет graceful shutdown: ждёт SIGINT/SIGTERM (или отмену контекста)
// и вызывает зарегистрированные функции в обратном порядке регистрации
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	funcs []shutdownFunc
	done  bool
}

type shutdownFunc struct {
	name string
	fn   func(context.Context) error
}

// New создаёт Manager; timeout применяется к каждой функции отдельно
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Add регистрирует функцию. Ресурс, открытый первым, закрывается последним
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, shutdownFunc{name: name, fn: fn})
}

// Wait блокируется до SIGINT/SIGTERM, затем выполняет shutdown
func (m *Manager) Wait() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	m.WaitContext(ctx)
}

// WaitContext блокируется до отмены ctx, затем выполняет shutdown
func (m *Manager) WaitContext(ctx context.Context) {
	<-ctx.Done()
	m.logger.Info("Received shutdown signal, starting graceful shutdown")
	m.Shutdown()
}

// Shutdown выполняет зарегистрированные функции один раз; ошибки логируются и не прерывают остальные
func (m *Manager) Shutdown() []error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	funcs := make([]shutdownFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := f.fn(ctx)
		cancel()

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			m.logger.Error("Shutdown function failed",
				zap.String("name", f.name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			continue
		}
		m.logger.Info("Shutdown function completed",
			zap.String("name", f.name),
			zap.Duration("duration", time.Since(start)))
	}

	m.logger.Info("Graceful shutdown completed")
	return errs
}

// ShutdownHTTPServer адаптирует http.Server.Shutdown
func ShutdownHTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return srv.Shutdown
}

// ShutdownGRPCServer делает GracefulStop, по таймауту контекста Stop
func ShutdownGRPCServer(srv interface {
	GracefulStop()
	Stop()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return fmt.Errorf("graceful stop timeout exceeded, forced stop")
		}
	}
}

// ClosePool закрывает пул соединений (pgxpool)
func ClosePool(pool interface {
	Close()
}) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

// CloseFunc адаптирует io.Closer-подобные ресурсы (kafka writer/reader, redis client)
func CloseFunc(closer interface {
	Close() error
}) func(context.Context) error {
	return func(context.Context) error {
		return closer.Close()
	}
}

// ShutdownHealth переводит gRPC health в NOT_SERVING до остановки сервера
func ShutdownHealth(health interface {
	Shutdown()
}) func(context.Context) error {
	return func(context.Context) error {
		health.Shutdown()
		return nil
	}
}
