package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// rpcName части "/package.Service/Method"
type rpcName struct {
	service string
	method  string
}

func splitFullMethod(fullMethod string) rpcName {
	name := strings.TrimPrefix(fullMethod, "/")
	svc, method, ok := strings.Cut(name, "/")
	if !ok || svc == "" || method == "" {
		return rpcName{service: fullMethod, method: fullMethod}
	}
	return rpcName{service: svc, method: method}
}

func (n rpcName) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", n.service),
		attribute.String("rpc.method", n.method),
	}
}

// isHealthCheck kubelet и docker дёргают Check каждые несколько секунд
func (n rpcName) isHealthCheck() bool {
	return n.service == "grpc.health.v1.Health"
}

// GRPCUnaryServerInterceptor продолжает trace из incoming metadata, кладёт в ctx
// logger с trace-полями и пишет код ответа в span. Ошибки логируются, кроме health check.
func GRPCUnaryServerInterceptor(serviceName string, logger *zap.Logger) grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(serviceName)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = otel.GetTextMapPropagator().Extract(ctx, NewMetadataCarrier(md))
		}

		name := splitFullMethod(info.FullMethod)
		ctx, span := tracer.Start(ctx, info.FullMethod,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(name.attributes()...),
		)
		defer span.End()

		log := logger.With(TraceFields(ctx)...)
		started := time.Now()
		resp, err := handler(WithLogger(ctx, log), req)

		code := status.Code(err)
		span.SetAttributes(attribute.Int("rpc.grpc.status_code", int(code)))
		if err == nil {
			return resp, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, code.String())
		if !name.isHealthCheck() {
			lvl := zap.WarnLevel
			if code == grpccodes.Internal || code == grpccodes.Unknown {
				lvl = zap.ErrorLevel
			}
			log.Log(lvl, "grpc call failed",
				zap.String("method", info.FullMethod),
				zap.Stringer("code", code),
				zap.Duration("duration", time.Since(started)),
				zap.Error(err),
			)
		}
		return resp, err
	}
}
