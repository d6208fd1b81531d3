package rpc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	language "github.com/hanpama/fieldmerge/internal/language"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

// Options configures the client.
//
// Defaults:
// - RPCTimeout:  3s (used only if the call context has no deadline)
// - DialOptions: insecure credentials with the default connect backoff
type Options struct {
	RPCTimeout  time.Duration
	DialOptions []grpc.DialOption
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{RPCTimeout: 3 * time.Second}
}

func WithRPCTimeout(d time.Duration) Option { return func(o *Options) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}

// Client calls a remote Validator service.
type Client struct {
	opts   *Options
	target string
	cc     *grpc.ClientConn
	method protoreflect.MethodDescriptor
	closed atomic.Bool
}

// NewClient prepares a client for target. The connection is established lazily.
func NewClient(target string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	method, err := methodDescriptor()
	if err != nil {
		return nil, err
	}
	cc, err := grpc.NewClient(target, o.DialOptions...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", target, err)
	}
	return &Client{opts: o, target: target, cc: cc, method: method}, nil
}

// Validate sends req to the remote service and returns its diagnostics.
// A nil list means the document is valid.
func (c *Client) Validate(ctx context.Context, req validator.Request) (diagnostics language.ErrorList, err error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("rpc: client closed")
	}
	if _, ok := ctx.Deadline(); !ok && c.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RPCTimeout)
		defer cancel()
	}
	if req.OperationName != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-fieldmerge-operation", req.OperationName)
	}

	service := string(c.method.Parent().FullName())
	method := string(c.method.Name())
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: method, Target: c.target})
	defer func() {
		eventbus.Publish(ctx, events.GRPCClientFinish{
			Service:  service,
			Method:   method,
			Target:   c.target,
			Code:     status.Code(err),
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	in := encodeRequest(c.method.Input(), req)
	out := dynamicpb.NewMessage(c.method.Output())
	if err = c.cc.Invoke(ctx, FullMethod, in, out); err != nil {
		return nil, err
	}
	return decodeResponse(out), nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.cc.Close()
}
