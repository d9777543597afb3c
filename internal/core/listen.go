package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// shutdownGracePeriod bounds how long in-flight requests may drain.
const shutdownGracePeriod = 10 * time.Second

// ListenAndServe runs the server on addr until ctx is cancelled, then shuts
// the listener down gracefully and releases registered resources.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.Logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		s.Logger.Info("initiating graceful shutdown", "addr", addr)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("HTTP server shutdown error", "error", err)
	}
	return s.Shutdown(shutdownCtx)
}
