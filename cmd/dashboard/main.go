// Package main is the entry point for the PlantWatch dashboard.
//
// It runs the refresh orchestrator on REFRESH_INTERVAL and serves the
// dashboard page and its JSON API on DASHBOARD_PORT until SIGINT or SIGTERM.
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
	logger.Info("plantwatch dashboard starting",
		"environment", cfg.Environment,
		"build", cfg.Build,
		"refresh_interval", cfg.Dashboard.RefreshInterval,
		"store_driver", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.OpenDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("closing dependencies", "error", err)
		}
	}()

	dash, err := app.NewDashboard(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Run(ctx) })
	g.Go(func() error { return deps.RunMetrics(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("dashboard stopped cleanly")
	return nil
}
