package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationMetadataKey)
	if len(values) == 0 {
		return ""
	}
	token, _ := strings.CutPrefix(values[0], common.BearerPrefix)
	return strings.TrimSpace(token)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if s.overloaded() {
		return nil, status.Error(codes.Unavailable, common.ErrServerOverloaded.Error())
	}

	accessToken := bearerToken(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.users.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	if r, ok := req.(*healthpb.HealthCheckRequest); ok && r.GetService() == ReportsService {
		switch {
		case !user.BillingActive:
			return nil, status.Error(codes.FailedPrecondition, common.ErrBillingRequired.Error())
		case user.Membership != users.MembershipPremium:
			return nil, status.Error(codes.PermissionDenied, common.ErrUpgradeRequired.Error())
		}
	}

	s.logger.Debug(ctx, "authenticated call", "method", info.FullMethod, "user_id", user.ID)
	ctx = context.WithValue(ctx, UserIDKey, user.ID)

	return handler(ctx, req)
}
