package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
	schema "github.com/hanpama/fieldmerge/internal/schema"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

// Server implements fieldmerge.v1.Validator on dynamic messages.
type Server struct {
	schema *schema.Schema
	method protoreflect.MethodDescriptor
}

// validatorServer is the handler type of the service description.
type validatorServer interface {
	validate(ctx context.Context, req *dynamicpb.Message) (*dynamicpb.Message, error)
}

var _ validatorServer = (*Server)(nil)

func NewServer(sch *schema.Schema) (*Server, error) {
	method, err := methodDescriptor()
	if err != nil {
		return nil, err
	}
	return &Server{schema: sch, method: method}, nil
}

// Register adds the Validator service to reg.
func (s *Server) Register(reg grpc.ServiceRegistrar) {
	reg.RegisterService(s.serviceDesc(), s)
}

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: string(s.method.Parent().FullName()),
		HandlerType: (*validatorServer)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: string(s.method.Name()),
			Handler:    s.handle,
		}},
		Metadata: ProtoFile,
	}
}

func (s *Server) handle(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := dynamicpb.NewMessage(s.method.Input())
	if err := dec(in); err != nil {
		return nil, err
	}
	h := srv.(validatorServer)
	if interceptor == nil {
		return h.validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return h.validate(ctx, req.(*dynamicpb.Message))
	})
}

func (s *Server) validate(ctx context.Context, in *dynamicpb.Message) (resp *dynamicpb.Message, err error) {
	ctx, _ = reqid.NewContext(ctx)
	service := string(s.method.Parent().FullName())
	method := string(s.method.Name())
	remote := ""
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCServerStart{Service: service, Method: method, Peer: remote})
	defer func() {
		eventbus.Publish(ctx, events.GRPCServerFinish{
			Service:  service,
			Method:   method,
			Peer:     remote,
			Code:     status.Code(err),
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	req := decodeRequest(in)
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "missing query")
	}
	report := validator.ValidateRequest(ctx, s.schema, req)
	return encodeResponse(s.method.Output(), report.Errors), nil
}
