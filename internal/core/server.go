// Package core provides the HTTP chassis shared by the ingestion service and
// the dashboard. It builds a chi router and enforces cross-cutting concerns
// (panic recovery, request IDs, timeouts, logging, metrics) before requests
// reach domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"plantwatch/internal/config"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	// endpoint is the chi route pattern, never the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of domain routes on the router.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies of an HTTP surface, allowing for
// easy injection during testing.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// RouteRegistrars are populated by the entry point to avoid import
	// cycles between core and the handler packages.
	RouteRegistrars []RouteRegistrar

	// Middlewares are appended after the global chain (e.g. compression).
	Middlewares []func(http.Handler) http.Handler

	// RequestTimeout bounds every request context. Zero uses the default.
	RequestTimeout time.Duration

	closers []io.Closer
	router  *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. The caller mounts routes via MountRoutes after wiring
// RouteRegistrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a resource (store handle, metrics flusher) to be
// closed by Shutdown, in reverse registration order.
func (s *Server) OnShutdown(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Shutdown releases every registered resource. All closers run even when
// one fails; the errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.Logger.ErrorContext(ctx, "error closing resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing resources: %w", err)
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
