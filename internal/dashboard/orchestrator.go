// Package dashboard implements the refresh orchestrator that publishes the
// chart and gauge render state, the per-session recommendation trigger and
// the pure derivations both rely on.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"plantwatch/internal/types"
)

// ETL prepares analytics-ready data before each cycle's fetches.
type ETL interface {
	Run(ctx context.Context) error
}

// ETLFunc adapts a function to ETL.
type ETLFunc func(ctx context.Context) error

func (f ETLFunc) Run(ctx context.Context) error { return f(ctx) }

// Fetcher is the read side of the reading store.
type Fetcher interface {
	History(ctx context.Context) ([]types.Reading, error)
	Latest(ctx context.Context) (*types.Reading, error)
}

// CycleMetrics receives one observation per refresh cycle.
type CycleMetrics interface {
	RecordCycle(outcome string, duration time.Duration)
}

// RenderState is one complete, immutable render: the chart and both gauges
// from the same cycle. Gauges are nil when the store is empty.
type RenderState struct {
	Cycle       uint64         `json:"cycle"`
	RenderedAt  time.Time      `json:"rendered_at"`
	Chart       TrendChart     `json:"chart"`
	Humidity    *GaugeSpec     `json:"humidity,omitempty"`
	Temperature *GaugeSpec     `json:"temperature,omitempty"`
	Latest      *types.Reading `json:"latest,omitempty"`
}

// Status summarizes orchestrator health.
type Status struct {
	CompletedCycles uint64     `json:"completed_cycles"`
	FailedCycles    uint64     `json:"failed_cycles"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastErrorAt     *time.Time `json:"last_error_at,omitempty"`
	Interval        string     `json:"interval"`
	ETLBreaker      string     `json:"etl_breaker"`
	StoreBreaker    string     `json:"store_breaker"`
}

// OrchestratorConfig tunes an Orchestrator.
type OrchestratorConfig struct {
	Interval            time.Duration
	StoreTimeout        time.Duration
	CollaboratorTimeout time.Duration
	// BreakerCooldown is how long an open breaker waits before probing.
	BreakerCooldown time.Duration
}

// Orchestrator runs refresh cycles and publishes the resulting RenderState.
// Cycles never overlap: a trigger arriving while one is in flight joins it.
type Orchestrator struct {
	etl     ETL
	fetcher Fetcher
	cfg     OrchestratorConfig
	logger  *slog.Logger
	metrics CycleMetrics
	now     func() time.Time

	etlGuard   *Guard[struct{}]
	storeGuard *Guard[fetchResult]

	group  singleflight.Group
	state  atomic.Pointer[RenderState]
	cycles atomic.Uint64

	mu     sync.Mutex
	status Status
}

type fetchResult struct {
	history []types.Reading
	latest  *types.Reading
}

// NewOrchestrator wires an Orchestrator. metrics may be nil.
func NewOrchestrator(etl ETL, fetcher Fetcher, cfg OrchestratorConfig, logger *slog.Logger, metrics CycleMetrics) *Orchestrator {
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = cfg.Interval
	}
	return &Orchestrator{
		etl:        etl,
		fetcher:    fetcher,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		etlGuard:   NewGuard[struct{}]("etl", cfg.CollaboratorTimeout, cfg.BreakerCooldown),
		storeGuard: NewStoreGuard[fetchResult](cfg.StoreTimeout, cfg.BreakerCooldown),
		status:     Status{Interval: cfg.Interval.String()},
	}
}

// Snapshot returns the last published render, or nil before the first
// successful cycle.
func (o *Orchestrator) Snapshot() *RenderState {
	return o.state.Load()
}

// Latest returns the most recent reading fetched by a successful cycle.
func (o *Orchestrator) Latest() *types.Reading {
	rs := o.state.Load()
	if rs == nil {
		return nil
	}
	return rs.Latest
}

// Status returns a copy of the orchestrator status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	s := o.status
	o.mu.Unlock()
	s.ETLBreaker = o.etlGuard.State()
	s.StoreBreaker = o.storeGuard.State()
	return s
}

// Refresh runs one cycle, or waits for the one already in flight, and
// returns the render it published. On failure the previous render stays in
// place and the error is returned. The cycle is detached from ctx
// cancellation so that an abandoned caller does not abort it for everyone
// else joined to it.
func (o *Orchestrator) Refresh(ctx context.Context) (*RenderState, error) {
	ch := o.group.DoChan("refresh", func() (any, error) {
		return o.cycle(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RenderState), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run refreshes once immediately and then on every tick until ctx is
// cancelled. Cycle failures are logged and never stop the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("refresh loop started", "interval", o.cfg.Interval)

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		// Errors are logged inside cycle.
		_, _ = o.Refresh(ctx)

		select {
		case <-ctx.Done():
			o.logger.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) cycle(ctx context.Context) (rs *RenderState, err error) {
	n := o.cycles.Add(1)
	start := o.now()
	logger := o.logger.With("cycle", n)
	logger.Debug("refresh cycle started")

	defer func() {
		duration := o.now().Sub(start)
		outcome := "success"
		if err != nil {
			outcome = "failure"
			logger.Error("refresh cycle aborted, previous render retained",
				"error", err,
				"duration", duration,
			)
			o.recordFailure(err)
		} else {
			logger.Info("refresh cycle completed",
				"readings", len(rs.Chart.Series[0].X),
				"duration", duration,
			)
		}
		if o.metrics != nil {
			o.metrics.RecordCycle(outcome, duration)
		}
	}()

	if _, err := o.etlGuard.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.etl.Run(ctx)
	}); err != nil {
		return nil, err
	}

	fetched, err := o.storeGuard.Do(ctx, func(ctx context.Context) (fetchResult, error) {
		history, err := o.fetcher.History(ctx)
		if err != nil {
			return fetchResult{}, err
		}
		latest, err := o.fetcher.Latest(ctx)
		if err != nil {
			return fetchResult{}, err
		}
		return fetchResult{history: history, latest: latest}, nil
	})
	if err != nil {
		return nil, err
	}

	rs, err = o.render(n, fetched)
	if err != nil {
		return nil, err
	}

	o.state.Store(rs)
	o.recordSuccess(rs.RenderedAt)
	return rs, nil
}

func (o *Orchestrator) render(n uint64, fetched fetchResult) (*RenderState, error) {
	rs := &RenderState{
		Cycle:      n,
		RenderedAt: o.now().UTC(),
		Chart:      DeriveTrendChart(fetched.history),
		Latest:     fetched.latest,
	}
	if fetched.latest == nil {
		return rs, nil
	}

	humidity, err := DeriveGauge(fetched.latest.Humidity, GaugeHumidity)
	if err != nil {
		return nil, err
	}
	temperature, err := DeriveGauge(fetched.latest.Temperature, GaugeTemperature)
	if err != nil {
		return nil, err
	}
	rs.Humidity = &humidity
	rs.Temperature = &temperature
	return rs, nil
}

func (o *Orchestrator) recordSuccess(at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.CompletedCycles++
	o.status.LastSuccessAt = &at
}

func (o *Orchestrator) recordFailure(err error) {
	at := o.now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.FailedCycles++
	o.status.LastError = err.Error()
	o.status.LastErrorAt = &at
}
