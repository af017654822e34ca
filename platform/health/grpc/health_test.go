package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/health/grpc_health_v1"

	healthhttp "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/http"
)

const (
	serving    = grpc_health_v1.HealthCheckResponse_SERVING
	notServing = grpc_health_v1.HealthCheckResponse_NOT_SERVING
)

func status(t *testing.T, h *Health, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.srv.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_RefreshFollowsChecks(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var pgDown atomic.Bool
	h := New(zap.New(core), time.Second,
		healthhttp.Check{Name: "postgres", Fn: func(context.Context) error {
			if pgDown.Load() {
				return errors.New("connection refused")
			}
			return nil
		}},
		healthhttp.Check{Name: "kafka", Fn: func(context.Context) error { return nil }},
	)
	ctx := context.Background()

	assert.Equal(t, notServing, status(t, h, ""))
	assert.Equal(t, notServing, status(t, h, "postgres"))

	require.True(t, h.Refresh(ctx))
	assert.Equal(t, serving, status(t, h, ""))
	assert.Equal(t, serving, status(t, h, "postgres"))

	pgDown.Store(true)
	require.False(t, h.Refresh(ctx))
	require.False(t, h.Refresh(ctx))
	assert.Equal(t, notServing, status(t, h, ""))
	assert.Equal(t, notServing, status(t, h, "postgres"))
	assert.Equal(t, serving, status(t, h, "kafka"))
	// повторный сбой не дублирует предупреждение
	assert.Equal(t, 1, logs.FilterMessage("dependency check failed, reporting NOT_SERVING").Len())

	pgDown.Store(false)
	require.True(t, h.Refresh(ctx))
	assert.Equal(t, serving, status(t, h, ""))
	assert.Equal(t, 1, logs.FilterMessage("dependency check recovered").Len())
}

func TestHealth_RefreshTimesOutSlowCheck(t *testing.T) {
	h := New(zap.NewNop(), 10*time.Millisecond, healthhttp.Check{Name: "postgres", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	require.False(t, h.Refresh(context.Background()))
	assert.Equal(t, notServing, status(t, h, ""))
}

func TestHealth_ShutdownIsFinal(t *testing.T) {
	h := New(zap.NewNop(), time.Second)
	require.True(t, h.Refresh(context.Background()))
	assert.Equal(t, serving, status(t, h, ""))

	h.Shutdown()
	assert.Equal(t, notServing, status(t, h, ""))

	require.False(t, h.Refresh(context.Background()))
	assert.Equal(t, notServing, status(t, h, ""))
}

func TestHealth_WatchRefreshesUntilCancel(t *testing.T) {
	var calls atomic.Int32
	h := New(zap.NewNop(), time.Second, healthhttp.Check{Name: "postgres", Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, serving, status(t, h, ""))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
