// Package logging builds the zap logger and logs bus events.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

// New builds a logger at level ("debug", "info", "warn", "error").
// development selects zap's console encoder and stack traces on warnings.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Subscribe logs finished HTTP requests, validations and gRPC calls.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logger.Debug("http request",
				requestID(ctx),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.String("route", e.Route),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ValidationFinish) {
			logger.Info("validated document",
				requestID(ctx),
				zap.String("operation", e.OperationName),
				zap.Int("operations", e.Operations),
				zap.Int("errors", len(e.Errors)),
				zap.Int("comparisons", e.Counters[validator.CounterComparisons]),
				zap.Int("cache_hits", e.Counters[validator.CounterCacheHits]),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			fields := []zap.Field{
				requestID(ctx),
				zap.String("method", e.Service+"/"+e.Method),
				zap.String("peer", e.Peer),
				zap.Stringer("code", e.Code),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				logger.Warn("grpc call failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("grpc call", fields...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			fields := []zap.Field{
				requestID(ctx),
				zap.String("method", e.Service+"/"+e.Method),
				zap.String("target", e.Target),
				zap.Stringer("code", e.Code),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				logger.Warn("grpc client call failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("grpc client call", fields...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func requestID(ctx context.Context) zap.Field {
	if id, ok := reqid.FromContext(ctx); ok {
		return zap.Int64("request_id", id)
	}
	return zap.Skip()
}
