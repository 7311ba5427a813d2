package serve

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/bibbank/approval/pkg/observability"
)

// ExecutableDir is the directory of the running binary, falling back to the
// working directory when it cannot be resolved.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Run initialises logging, metrics and tracing, builds the service and serves
// it until ctx is cancelled.
func Run(ctx context.Context, cfg Config, svc Service) error {
	name := svc.Profile.Service

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: name,
	})

	logger.Info("starting "+name,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"on_missing_model", cfg.OnMissingModel,
		"environment", cfg.Environment,
	)

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: name,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    true,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	meter, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName:       name,
		ProcessCollectors: true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = meter.Shutdown(context.Background()) }()

	app, err := Build(cfg, svc, Deps{
		Logger:  logger,
		Meter:   meter,
		Metrics: metricsHandler,
	})
	if err != nil {
		return err
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPAddress())
	if err != nil {
		_ = app.Close(context.Background())
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddress(), err)
	}

	var grpcLis net.Listener
	if cfg.GRPCPort != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddress())
		if err != nil {
			_ = httpLis.Close()
			_ = app.Close(context.Background())
			return fmt.Errorf("listen %s: %w", cfg.GRPCAddress(), err)
		}
	}

	if err := app.Serve(ctx, httpLis, grpcLis); err != nil {
		return err
	}
	logger.Info(name + " stopped")
	return nil
}
