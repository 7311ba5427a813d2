// Package serve wires a prediction profile into a running service: model
// location, the prediction pipeline, HTTP and gRPC transports, metrics,
// tracing and event publishing.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/approval/pkg/approval"
	approvalgrpc "github.com/bibbank/approval/pkg/approval/grpc"
	"github.com/bibbank/approval/pkg/approval/messaging"
	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/approval/rest"
	pkgkafka "github.com/bibbank/approval/pkg/kafka"
)

const (
	defaultEventBuffer  = 256
	defaultEventTimeout = 5 * time.Second
)

// Config holds the settings shared by every approval service.
type Config struct {
	Environment string
	HTTPPort    string
	// GRPCPort empty disables the gRPC listener.
	GRPCPort  string
	LogLevel  string
	LogFormat string

	PredictTimeout time.Duration
	OnMissingModel model.MissingModelPolicy
	// RulesFile replaces the profile's embedded rule table when set.
	RulesFile string
	StaticDir string

	// Kafka.Brokers empty disables event publishing.
	Kafka        pkgkafka.Config
	KafkaTopic   string
	EventBuffer  int
	EventTimeout time.Duration

	// OTLPEndpoint empty disables trace export.
	OTLPEndpoint string

	GRPCTLSCertFile string
	GRPCTLSKeyFile  string
	GRPCReflection  bool
}

// HTTPAddress returns the full HTTP listen address.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

// GRPCAddress returns the full gRPC listen address.
func (c Config) GRPCAddress() string {
	return fmt.Sprintf(":%s", c.GRPCPort)
}

// Service describes one deployable: its profile, test page and the files
// its model may live in.
type Service struct {
	Profile    approval.Profile
	PageFile   string
	Candidates model.Candidates
}

// App is an assembled service, ready to serve.
type App struct {
	cfg       Config
	predictor *approval.Predictor
	handler   http.Handler
	grpc      *approvalgrpc.Server
	publisher *messaging.AsyncPublisher
	producer  *pkgkafka.Producer
	logger    *slog.Logger
}

// Deps carries the process wide collaborators Build does not create itself.
type Deps struct {
	Logger *slog.Logger
	// Meter, when set, records prediction metrics.
	Meter metric.MeterProvider
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// Clock overrides the time source, mainly for tests.
	Clock func() time.Time
}

// Build locates the model, compiles the rules and assembles the transports.
// It returns approval.ErrModelNotFound when the policy is fail and no model
// could be loaded.
func Build(cfg Config, svc Service, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profile := svc.Profile
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	registry, err := model.Locate(svc.Candidates, cfg.OnMissingModel, logger)
	if err != nil {
		return nil, err
	}

	set, err := ruleSet(cfg, profile, logger)
	if err != nil {
		return nil, err
	}
	engine, err := profile.NewRuleEngine(set, logger)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	pipelineOpts := []approval.PipelineOption{approval.WithPipelineLogger(logger)}
	if cfg.PredictTimeout > 0 {
		pipelineOpts = append(pipelineOpts, approval.WithStageTimeout(cfg.PredictTimeout))
	}
	pipeline := approval.NewPipeline(registry, profile.Schema, engine, profile.Strategies, pipelineOpts...)

	app := &App{cfg: cfg, logger: logger}

	predictorOpts := []approval.PredictorOption{approval.WithLogger(logger)}
	if deps.Clock != nil {
		predictorOpts = append(predictorOpts, approval.WithClock(deps.Clock))
	}
	if deps.Meter != nil {
		m, err := approval.NewMetrics(deps.Meter)
		if err != nil {
			return nil, fmt.Errorf("prediction metrics: %w", err)
		}
		predictorOpts = append(predictorOpts, approval.WithMetrics(m))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := pkgkafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		buffer, timeout := cfg.EventBuffer, cfg.EventTimeout
		if buffer <= 0 {
			buffer = defaultEventBuffer
		}
		if timeout <= 0 {
			timeout = defaultEventTimeout
		}
		app.producer = producer
		app.publisher = messaging.NewAsyncPublisher(
			messaging.NewKafkaPublisher(producer, cfg.KafkaTopic, logger),
			buffer, timeout, logger,
		)
		predictorOpts = append(predictorOpts, approval.WithPublisher(app.publisher))
		logger.Info("publishing prediction events", "brokers", cfg.Kafka.Brokers, "topic", cfg.KafkaTopic)
	}
	app.predictor = approval.NewPredictor(profile, pipeline, predictorOpts...)

	handlerOpts := []rest.Option{rest.WithLogger(logger)}
	if cfg.StaticDir != "" {
		handlerOpts = append(handlerOpts, rest.WithStaticDir(cfg.StaticDir))
	}
	if deps.Clock != nil {
		handlerOpts = append(handlerOpts, rest.WithClock(deps.Clock))
	}
	mux := http.NewServeMux()
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	rest.NewHandler(app.predictor, svc.PageFile, handlerOpts...).RegisterRoutes(mux)
	app.handler = rest.Chain(mux,
		rest.RecoveryMiddleware(logger),
		rest.RequestIDMiddleware(),
		rest.LoggingMiddleware(logger),
		rest.CORSMiddleware(),
	)

	if cfg.GRPCPort != "" {
		app.grpc = approvalgrpc.NewServer(
			approvalgrpc.NewApprovalHandler(app.predictor, logger),
			approvalgrpc.ServerConfig{
				ServiceName: profile.Service,
				TLSCertFile: cfg.GRPCTLSCertFile,
				TLSKeyFile:  cfg.GRPCTLSKeyFile,
				Reflection:  cfg.GRPCReflection,
			},
			logger,
		)
	}

	return app, nil
}

func ruleSet(cfg Config, profile approval.Profile, logger *slog.Logger) (approval.RuleSet, error) {
	if cfg.RulesFile == "" {
		set, err := profile.RuleSet()
		if err != nil {
			return approval.RuleSet{}, fmt.Errorf("embedded rules: %w", err)
		}
		return set, nil
	}
	set, err := approval.LoadRuleSet(cfg.RulesFile)
	if err != nil {
		return approval.RuleSet{}, err
	}
	logger.Info("rule table loaded", "path", cfg.RulesFile, "rules", len(set.Rules))
	return set, nil
}

// Predictor returns the assembled prediction use case.
func (a *App) Predictor() *approval.Predictor {
	return a.predictor
}

// Handler returns the HTTP handler with middleware applied.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve runs the HTTP and gRPC listeners until ctx is cancelled or one of
// them fails, then shuts both down.
func (a *App) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	httpServer := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)

	if a.grpc != nil && grpcLis != nil {
		go func() {
			if err := a.grpc.ServeListener(grpcLis); err != nil {
				errCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("HTTP server starting", "address", httpLis.Addr().String())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		a.logger.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.grpc != nil {
		a.grpc.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		a.logger.Error("event publisher shutdown error", "error", err)
	}
	return serveErr
}

// Close drains pending events and closes the Kafka producer.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close(ctx))
		a.publisher = nil
	}
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
		a.producer = nil
	}
	return errors.Join(errs...)
}
