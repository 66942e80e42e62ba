package grpcapi

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer собирает gRPC-сервер с сервисом чтения и health
func NewServer(handler LedgerReadServer, jwtSecret, jwtIssuer string, logger *zap.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(AuthInterceptor(jwtSecret, jwtIssuer)))
	RegisterLedgerReadServer(server, handler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	logger.Debug("grpc services registered", zap.String("service", ServiceName))
	return server, healthServer
}
