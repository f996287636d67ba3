package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/warmup/internal/catalog"
	"github.com/MrSnakeDoc/warmup/internal/config"
	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/httpserver"
	"github.com/MrSnakeDoc/warmup/internal/httpserver/deps"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/query"
	"github.com/MrSnakeDoc/warmup/internal/scheduler"
	"github.com/MrSnakeDoc/warmup/internal/store"
	"github.com/MrSnakeDoc/warmup/internal/telemetry"
	"github.com/MrSnakeDoc/warmup/internal/version"
)

const tracerName = "github.com/MrSnakeDoc/warmup"

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	store        store.Store
	telemetry    *telemetry.Telemetry
	orchestrator *scheduler.Orchestrator
	coordinator  *scheduler.Coordinator
	reporter     *scheduler.StoreReporter
	listener     net.Listener
}

// Option customizes an App.
type Option func(*App)

// WithListener serves on ln instead of listening on cfg.ListenPort.
func WithListener(ln net.Listener) Option {
	return func(a *App) { a.listener = ln }
}

// New wires the store, telemetry, startup orchestration and HTTP host.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger, opts ...Option) (*App, error) {
	redactedCfg := cfg.Redacted()
	loggerClient.Debug("configuration loaded", logger.String("config", fmt.Sprintf("%+v", redactedCfg)))

	plan, err := scheduler.BuildPlan(cfg.ChecksFile, cfg.CheckScale)
	if err != nil {
		return nil, fmt.Errorf("failed to build health check plan: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		ServiceVersion: version.Version,
		Metrics:        cfg.Metrics,
		Tracing:        cfg.Tracing,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SamplingRatio:  cfg.SamplingRatio,
	}, loggerClient)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewMetrics(tel.MeterProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	tracer := tel.Tracer(tracerName)

	st, err := openStore(ctx, cfg, loggerClient)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	checks := scheduler.NewHealthChecks(
		plan,
		catalog.NewPinger(cfg.PingURL, cfg.PingTimeout),
		loggerClient.With(logger.String("component", "health_checks")),
		metrics,
		tracer,
	)
	engine := scheduler.NewSyncEngine(
		catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout),
		st,
		scheduler.SyncOptions{
			TargetCount:  cfg.TargetCount,
			PageSize:     cfg.PageSize,
			BatchDelay:   cfg.BatchDelay,
			ResetOnStart: cfg.ResetOnStart,
		},
		loggerClient.With(logger.String("component", "sync")),
		metrics,
		tracer,
	)
	orchestrator := scheduler.NewOrchestrator(checks, engine, loggerClient, metrics, tracer)
	coordinator := scheduler.NewCoordinator(cfg.Mode, orchestrator, loggerClient)

	var reporter *scheduler.StoreReporter
	if cfg.StoreReportInterval > 0 {
		reporter = scheduler.NewStoreReporter(st, loggerClient, metrics, cfg.StoreReportInterval)
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateBurst:      cfg.RateLimitBurst,
		RatePerMinute:  cfg.RateLimitPerMinute,
		Queries:        query.NewService(st),
		Lifecycle:      coordinator,
		Startup:        orchestrator,
		MetricsHandler: tel.MetricsHandler(),
	}

	a := &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       httpserver.New(cfg.ListenPort, loggerClient, d),
		store:        st,
		telemetry:    tel,
		orchestrator: orchestrator,
		coordinator:  coordinator,
		reporter:     reporter,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Coordinator exposes the readiness signal.
func (a *App) Coordinator() *scheduler.Coordinator {
	return a.coordinator
}

// Orchestrator exposes the startup task.
func (a *App) Orchestrator() *scheduler.Orchestrator {
	return a.orchestrator
}

// Run starts the orchestration and the HTTP host, and blocks until ctx is
// cancelled, SIGINT/SIGTERM arrives, or the server fails. In gate mode the
// listener only opens once the orchestration has returned.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("🚀 Starting warmup",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("go", version.GoVersion),
		logger.String("mode", a.cfg.Mode.String()),
		logger.String("store", a.cfg.Store),
		logger.String("addr", a.cfg.ListenPort))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	if a.reporter != nil {
		a.reporter.Start(ctx)
		defer a.reporter.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.coordinator.RunOrchestration(gctx)
		return nil
	})
	g.Go(func() error {
		if a.coordinator.Mode() == domain.ModeGate {
			a.logger.Info("gate mode: holding the listener until startup finishes")
			if err := a.coordinator.WaitReady(gctx); err != nil {
				a.logger.Info("shutdown requested before startup finished, listener never opened")
				if a.listener != nil {
					_ = a.listener.Close()
				}
				return nil
			}
		}
		return a.serve(gctx)
	})
	return g.Wait()
}

func (a *App) serve(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", a.cfg.ListenPort); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.cfg.ListenPort, err)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("⏳ Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errCh
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	} else {
		a.logger.Info("✅ Store closed cleanly", logger.String("store", a.cfg.Store))
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown completed with errors", logger.Error(err))
		return
	}
	a.logger.Info("✅ warmup stopped cleanly")
}
