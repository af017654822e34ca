package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSplitFullMethod(t *testing.T) {
	tests := []struct {
		in   string
		want rpcName
	}{
		{in: "/grpc.health.v1.Health/Check", want: rpcName{service: "grpc.health.v1.Health", method: "Check"}},
		{in: "noslash", want: rpcName{service: "noslash", method: "noslash"}},
		{in: "", want: rpcName{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitFullMethod(tt.in))
		})
	}
}

func TestGRPCUnaryServerInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	interceptor := GRPCUnaryServerInterceptor("test", zap.New(core))

	call := func(method string, handlerErr error) (any, error) {
		return interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: method},
			func(ctx context.Context, req any) (any, error) {
				require.NotNil(t, LoggerFromContext(ctx, nil))
				return "resp", handlerErr
			})
	}

	t.Run("success is not logged", func(t *testing.T) {
		resp, err := call("/pharma.Orders/Get", nil)
		require.NoError(t, err)
		assert.Equal(t, "resp", resp)
		assert.Zero(t, logs.Len())
	})

	t.Run("client error logged as warn", func(t *testing.T) {
		_, err := call("/pharma.Orders/Get", status.Error(codes.NotFound, "no order"))
		require.Error(t, err)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "NotFound", entries[0].ContextMap()["code"])
	})

	t.Run("plain error logged as error", func(t *testing.T) {
		_, err := call("/pharma.Orders/Get", errors.New("boom"))
		require.Error(t, err)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("health check failures are quiet", func(t *testing.T) {
		_, err := call("/grpc.health.v1.Health/Check", status.Error(codes.NotFound, "unknown service"))
		require.Error(t, err)
		assert.Zero(t, logs.Len())
	})
}
