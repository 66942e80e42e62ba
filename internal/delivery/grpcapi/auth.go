package grpcapi

import (
	"context"
	"strings"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/delivery/http/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

// AuthInterceptor требует bearer-токен сервиса или админа; health открыт
func AuthInterceptor(secret, issuer string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata required")
		}
		token := strings.TrimSpace(values[0])
		if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
			token = strings.TrimSpace(token[7:])
		}

		claims, err := middleware.ParseToken(secret, issuer, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired access token")
		}
		if claims.Role != middleware.RoleAdmin && claims.Role != middleware.RoleService {
			return nil, status.Error(codes.PermissionDenied, "insufficient role")
		}
		return handler(ctx, req)
	}
}
