package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hanpama/fieldmerge/internal/config"
	"github.com/hanpama/fieldmerge/internal/eventbus"
	"github.com/hanpama/fieldmerge/internal/logging"
	"github.com/hanpama/fieldmerge/internal/metrics"
	"github.com/hanpama/fieldmerge/internal/otel"
	"github.com/hanpama/fieldmerge/internal/rpc"
	"github.com/hanpama/fieldmerge/internal/server"
)

func (e env) cmdServe(ctx context.Context, args []string) error {
	configPath := ""
	flagCfg := config.Default()
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML configuration file")
	bindConfigFlags(fs, &flagCfg)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(e.stderr, serveUsage)
		return err
	}
	cfg, err := resolveConfig(fs, configPath, flagCfg)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	httpLis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	var grpcLis net.Listener
	if cfg.GRPC.Addr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}
	return serve(ctx, cfg, logger, httpLis, grpcLis)
}

// serve runs the HTTP service on httpLis and, when grpcLis is not nil, the
// gRPC service until ctx is done or one of them fails.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, httpLis, grpcLis net.Listener) error {
	defer func() {
		_ = httpLis.Close()
		if grpcLis != nil {
			_ = grpcLis.Close()
		}
	}()
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	defer logging.Subscribe(logger)()

	shutdownTracing, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	defer metrics.New(reg).Subscribe()()

	sch, err := loadSchema(cfg.Schema.Root)
	if err != nil {
		return err
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithCacheSize(cfg.Server.CacheSize),
		server.WithMetrics(metrics.Handler(reg)),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	httpSrv := &http.Server{Handler: h, ReadHeaderTimeout: cfg.Server.Timeout}

	var grpcSrv *grpc.Server
	if grpcLis != nil {
		rpcSrv, err := rpc.NewServer(sch)
		if err != nil {
			return fmt.Errorf("rpc init: %w", err)
		}
		grpcSrv = grpc.NewServer()
		rpcSrv.Register(grpcSrv)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", httpLis.Addr().String()))
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", grpcLis.Addr().String()))
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}
