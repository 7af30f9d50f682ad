// Package admin implements the read-only gRPC introspection/health
// surface (SPEC_FULL.md §4.J): a hand-written grpc.ServiceDesc (no
// .proto codegen step in this environment) exchanging protobuf
// well-known types so google.golang.org/protobuf stays genuinely
// exercised at the wire level without generated marshal code.
package admin

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/frappy-project/frappy-core/logging"
)

// Snapshot is the narrow surface the admin surface needs from the
// running node: the already-built descriptive JSON and a liveness
// check (SPEC_FULL.md §4.J "read-only snapshot of the descriptive
// JSON and live health").
type Snapshot interface {
	DescriptiveJSON() []byte
	Health() (bool, map[string]any)
}

// Service implements the admin surface against a Snapshot.
type Service struct {
	snapshot Snapshot
	logger   logging.Logger
	started  time.Time
}

// NewService builds the admin Service.
func NewService(snapshot Snapshot, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{snapshot: snapshot, logger: logger, started: time.Now()}
}

// Describe returns the node's descriptive JSON as a protobuf Struct.
func (s *Service) Describe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	var m map[string]any
	if err := json.Unmarshal(s.snapshot.DescriptiveJSON(), &m); err != nil {
		return nil, status.Errorf(codes.Internal, "decode descriptive json: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build struct: %v", err)
	}
	return out, nil
}

// Health reports liveness and a free-form detail map.
func (s *Service) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ok, detail := s.snapshot.Health()
	if detail == nil {
		detail = map[string]any{}
	}
	detail["healthy"] = ok
	detail["uptime_seconds"] = time.Since(s.started).Seconds()

	out, err := structpb.NewStruct(detail)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build struct: %v", err)
	}
	return out, nil
}

// serviceDesc is hand-written because no protoc codegen step runs in
// this environment; the wire messages (Empty, Struct) are the
// well-known types shipped inside google.golang.org/protobuf itself,
// so encoding/decoding still exercises real proto.Marshal/Unmarshal.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "frappy.admin.v1.Admin",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Describe",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				svc := srv.(*Service)
				if interceptor == nil {
					return svc.Describe(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frappy.admin.v1.Admin/Describe"}
				handler := func(ctx context.Context, req any) (any, error) {
					return svc.Describe(ctx, req.(*emptypb.Empty))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "Health",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				svc := srv.(*Service)
				if interceptor == nil {
					return svc.Health(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frappy.admin.v1.Admin/Health"}
				handler := func(ctx context.Context, req any) (any, error) {
					return svc.Health(ctx, req.(*emptypb.Empty))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "frappy/admin.proto",
}

// Register attaches the admin service to a grpc.Server.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}
