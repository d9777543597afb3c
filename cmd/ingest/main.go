// Package main is the entry point for the PlantWatch ingestion service.
//
// It loads configuration, opens the reading store and serves POST /endpoint.
// Inside AWS Lambda it answers API Gateway proxy events through the same
// router; elsewhere it listens on INGEST_PORT until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

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

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("plantwatch ingest starting",
		"environment", cfg.Environment,
		"build", cfg.Build,
		"store_driver", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.OpenDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := app.NewIngestServer(deps)
	if err != nil {
		_ = deps.Close()
		return err
	}

	go func() { _ = deps.RunMetrics(ctx) }()

	if isLambdaEnvironment() {
		// lambda.Start never returns.
		lambda.Start(srv.LambdaHandler())
		return nil
	}

	srv.OnShutdown(deps)

	if err := srv.ListenAndServe(ctx, ":"+cfg.Ingest.Port); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}
