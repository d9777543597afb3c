// Package main runs the ingestion service and the dashboard in one process
// sharing one reading store. The embedded badger store admits a single
// process per directory, so local setups without CrateDB use this binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"plantwatch/internal/app"
	"plantwatch/internal/config"
	"plantwatch/internal/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("plantwatch standalone starting",
		"environment", cfg.Environment,
		"build", cfg.Build,
		"ingest_port", cfg.Ingest.Port,
		"dashboard_port", cfg.Dashboard.Port,
		"store_driver", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.OpenDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// Both surfaces must drain before the shared store closes.
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("closing dependencies", "error", err)
		}
	}()

	ingestSrv, err := app.NewIngestServer(deps)
	if err != nil {
		return err
	}
	dash, err := app.NewDashboard(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ingestSrv.ListenAndServe(ctx, ":"+cfg.Ingest.Port) })
	g.Go(func() error { return dash.Run(ctx) })
	g.Go(func() error { return deps.RunMetrics(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("standalone stopped cleanly")
	return nil
}
