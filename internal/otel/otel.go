package otel

import (
	"context"
	"errors"
	"sync"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
	validator "github.com/hanpama/fieldmerge/internal/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hanpama/fieldmerge"

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(tp.Tracer(instrumentationName))
	return func(ctx context.Context) error {
		unsubscribe()
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

// Subscribe turns bus events into spans of tracer. Spans of one request are
// correlated through the request ID in the event context.
func Subscribe(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // rid -> trace.Span
	validateSpans sync.Map // rid -> trace.Span
	grpcSpans     sync.Map // rid -> trace.Span
	grpcCallSpans sync.Map // rid -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid int64, maps ...*sync.Map) context.Context {
	for _, m := range maps {
		if v, ok := m.Load(rid); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func finish(ctx context.Context, m *sync.Map) (trace.Span, bool) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := m.LoadAndDelete(rid)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			span, ok := finish(ctx, &s.httpSpans)
			if !ok {
				return
			}
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "grpc.server", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Peer),
			)
			s.grpcSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			span, ok := finish(ctx, &s.grpcSpans)
			if !ok {
				return
			}
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ValidationStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.grpcSpans, &s.httpSpans)
			_, span := s.tracer.Start(parent, "graphql.validate")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.Int("graphql.document.operations", e.Operations),
				attribute.Int("graphql.document.fragments", e.Fragments),
			)
			s.validateSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ValidationFinish) {
			span, ok := finish(ctx, &s.validateSpans)
			if !ok {
				return
			}
			span.SetAttributes(
				attribute.Int("graphql.error_count", len(e.Errors)),
				attribute.Int("fieldmerge.comparisons", e.Counters[validator.CounterComparisons]),
				attribute.Int("fieldmerge.cache_hits", e.Counters[validator.CounterCacheHits]),
			)
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := s.parent(ctx, rid, &s.httpSpans)
			_, span := s.tracer.Start(parent, "grpc.client", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Target),
			)
			s.grpcCallSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			span, ok := finish(ctx, &s.grpcCallSpans)
			if !ok {
				return
			}
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
