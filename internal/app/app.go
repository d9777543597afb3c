// Package app wires the reading store, services and HTTP surfaces into the
// components run by the cmd binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/errgroup"

	"plantwatch/internal/advisor"
	"plantwatch/internal/api/handlers"
	"plantwatch/internal/config"
	"plantwatch/internal/core"
	"plantwatch/internal/dashboard"
	"plantwatch/internal/db"
	"plantwatch/internal/ingest"
	"plantwatch/internal/telemetry"
)

const (
	// sweepInterval is how often expired page sessions are dropped.
	sweepInterval = time.Minute
	// metricsFlushInterval is how often buffered datums are published.
	metricsFlushInterval = time.Minute
)

// Metrics is every telemetry sink the components report to.
type Metrics interface {
	core.MetricsCollector
	ingest.Metrics
	dashboard.CycleMetrics
}

// Deps are the process-wide dependencies shared by the components.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	Store  db.ReadingStore
	// Metrics is nil when metrics are disabled.
	Metrics Metrics

	collector *telemetry.Collector
}

// OpenDeps opens the configured store and, when enabled, the CloudWatch
// collector.
func OpenDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Deps, error) {
	store, err := db.Open(ctx, cfg.Store, logger)
	if err != nil {
		return Deps{}, fmt.Errorf("opening reading store: %w", err)
	}

	d := Deps{Config: cfg, Logger: logger, Store: store}
	if !cfg.Observability.EnableMetrics {
		return d, nil
	}

	collector, err := telemetry.NewFromConfig(ctx, cfg.Observability, logger)
	if err != nil {
		_ = store.Close()
		return Deps{}, fmt.Errorf("creating metrics collector: %w", err)
	}
	d.Metrics = collector
	d.collector = collector
	return d, nil
}

// RunMetrics periodically publishes buffered metrics until ctx is
// cancelled. It returns at once when metrics are disabled.
func (d Deps) RunMetrics(ctx context.Context) error {
	if d.collector == nil {
		return nil
	}
	d.collector.Run(ctx, metricsFlushInterval)
	return nil
}

// Close flushes metrics and closes the store.
func (d Deps) Close() error {
	if d.collector != nil {
		_ = d.collector.Close()
	}
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

func (d Deps) newServer() (*core.Server, error) {
	srv, err := core.NewServer(d.Config, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if d.Metrics != nil {
		srv.Metrics = d.Metrics
	}
	srv.HealthProbes = append(srv.HealthProbes, db.StoreProbe{Store: d.Store})
	return srv, nil
}

// NewIngestServer builds the sensor-facing server with POST /endpoint
// mounted.
func NewIngestServer(d Deps) (*core.Server, error) {
	srv, err := d.newServer()
	if err != nil {
		return nil, err
	}

	var opts []ingest.Option
	if d.Metrics != nil {
		opts = append(opts, ingest.WithMetrics(d.Metrics))
	}
	svc := ingest.NewService(d.Store, srv.Validator, d.Logger, d.Config.Store.Timeout, opts...)

	srv.RouteRegistrars = append(srv.RouteRegistrars, handlers.NewIngestHandler(svc, d.Logger).RegisterRoutes)
	srv.MountRoutes()
	return srv, nil
}

// Dashboard is the refresh orchestrator, its page sessions and the HTTP
// surface serving both.
type Dashboard struct {
	Server       *core.Server
	Orchestrator *dashboard.Orchestrator
	Sessions     *dashboard.SessionStore

	addr   string
	logger *slog.Logger
}

// NewDashboard wires a Dashboard. The ETL step refreshes the store so that
// readings ingested since the last cycle are visible to its queries.
func NewDashboard(d Deps) (*Dashboard, error) {
	srv, err := d.newServer()
	if err != nil {
		return nil, err
	}
	srv.Middlewares = append(srv.Middlewares, func(next http.Handler) http.Handler {
		return gzhttp.GzipHandler(next)
	})

	cfg := d.Config.Dashboard
	var cycleMetrics dashboard.CycleMetrics
	if d.Metrics != nil {
		cycleMetrics = d.Metrics
	}

	orch := dashboard.NewOrchestrator(
		dashboard.ETLFunc(d.Store.Flush),
		d.Store,
		dashboard.OrchestratorConfig{
			Interval:            cfg.RefreshInterval,
			StoreTimeout:        d.Config.Store.Timeout,
			CollaboratorTimeout: cfg.CollaboratorTimeout,
		},
		d.Logger,
		cycleMetrics,
	)
	sessions := dashboard.NewSessionStore(
		advisor.NewEngine(orch, cfg.Location()),
		dashboard.SessionConfig{
			TTL:                 cfg.SessionTTL,
			MaxSessions:         cfg.MaxSessions,
			CollaboratorTimeout: cfg.CollaboratorTimeout,
		},
		d.Logger,
	)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		handlers.NewDashboardHandler(orch, sessions, d.Logger).RegisterRoutes)
	srv.MountRoutes()

	return &Dashboard{
		Server:       srv,
		Orchestrator: orch,
		Sessions:     sessions,
		addr:         ":" + cfg.Port,
		logger:       d.Logger,
	}, nil
}

// Run serves HTTP, drives the refresh loop and sweeps sessions until ctx is
// cancelled or one of them fails.
func (d *Dashboard) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.Server.ListenAndServe(ctx, d.addr)
	})
	g.Go(func() error {
		return d.Orchestrator.Run(ctx)
	})
	g.Go(func() error {
		return d.Sessions.RunSweeper(ctx, sweepInterval)
	})

	return g.Wait()
}
