package admin

import (
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/frappy-project/frappy-core/logging"
)

// Server wraps a grpc.Server exposing the admin Service over a TCP
// listener, with OpenTelemetry span propagation on every RPC
// (SPEC_FULL.md §4.J).
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     logging.Logger
}

// Listen starts listening on addr and registers the admin service.
func Listen(addr string, svc *Service, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	Register(gs, svc)

	return &Server{grpcServer: gs, listener: lis, logger: logger}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks accepting connections until Stop is called.
func (s *Server) Serve() error {
	s.logger.Info("admin grpc server listening", "addr", s.Addr())
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
