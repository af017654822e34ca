package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_RunsInReverseOrder(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	var order []string
	m.Add("postgres", func(context.Context) error {
		order = append(order, "postgres")
		return nil
	})
	m.Add("redis", func(context.Context) error {
		order = append(order, "redis")
		return nil
	})
	m.Add("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})

	errs := m.Shutdown()
	require.Empty(t, errs)
	require.Equal(t, []string{"http", "redis", "postgres"}, order)
}

func TestManager_ContinuesAfterError(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	called := false
	m.Add("first", func(context.Context) error {
		called = true
		return nil
	})
	m.Add("broken", func(context.Context) error {
		return errors.New("boom")
	})

	errs := m.Shutdown()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "broken")
	require.True(t, called)
}

func TestManager_ShutdownOnce(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	calls := 0
	m.Add("counter", func(context.Context) error {
		calls++
		return nil
	})

	m.Shutdown()
	m.Shutdown()
	require.Equal(t, 1, calls)
}

func TestManager_WaitContext(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	closed := make(chan struct{})
	m.Add("closer", func(context.Context) error {
		close(closed)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.WaitContext(ctx)
	cancel()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("shutdown function was not called")
	}
}

func TestManager_FunctionTimeout(t *testing.T) {
	m := New(20*time.Millisecond, zap.NewNop())

	m.Add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errs := m.Shutdown()
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], context.DeadlineExceeded)
}
