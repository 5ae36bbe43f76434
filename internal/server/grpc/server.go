// Package grpc serves the development server's gRPC endpoint: the standard
// health service behind bearer authentication, with a paid-only service name.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReportsService is the health service name that requires an active,
// premium membership.
const ReportsService = "sessionkeeper.Reports"

type GRPCServer struct {
	address    string
	users      *users.Service
	overloaded func() bool
	logger     logging.Logger
	health     *health.Server
}

// NewGRPCServer builds the server. overloaded may be nil.
func NewGRPCServer(a string, l logging.Logger, us *users.Service, overloaded func() bool) *GRPCServer {
	if overloaded == nil {
		overloaded = func() bool { return false }
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ReportsService, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		users:      us,
		overloaded: overloaded,
		health:     hs,
	}
}

// NewServer returns a grpc.Server with the interceptor chain and services
// registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
