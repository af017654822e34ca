// Package grpc поднимает gRPC сервер notification. Сейчас на нём только grpc_health_v1 для readiness.
package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	platformhealth "github.com/byteracerx/upkar-pharma-orders-sub001/platform/health/grpc"
	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
)

// ServiceName имя сервиса в trace и health
const ServiceName = "notification"

// NewServer создаёт gRPC сервер с tracing interceptor и зарегистрированным health
func NewServer(health *platformhealth.Health, logger *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(observability.GRPCUnaryServerInterceptor(ServiceName, logger)),
	)
	health.Register(srv)
	return srv
}
