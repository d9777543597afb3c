package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"plantwatch/internal/config"
)

// mockMetricsCollector implements MetricsCollector for testing.
type mockMetricsCollector struct {
	mu    sync.Mutex
	calls []metricsCall
}

type metricsCall struct {
	method, endpoint, status string
	duration                 time.Duration
}

func (m *mockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricsCall{method, endpoint, status, duration})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(&config.Config{Environment: "local"}, slog.Default())
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	return srv
}

func TestNewServer_Success(t *testing.T) {
	cfg := &config.Config{Environment: "local"}
	logger := slog.Default()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	if srv.Config != cfg {
		t.Error("Config field not set correctly")
	}
	if srv.Logger != logger {
		t.Error("Logger field not set correctly")
	}
	if srv.Validator == nil {
		t.Error("Validator should be initialized by constructor")
	}
	if srv.Handler() == nil || srv.Router() == nil {
		t.Error("router should be initialized by constructor")
	}
}

func TestNewServer_NilArguments(t *testing.T) {
	if _, err := NewServer(nil, slog.Default()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	srv := newTestServer(t)

	var order []string
	srv.OnShutdown(closerFunc(func() error { order = append(order, "store"); return nil }))
	srv.OnShutdown(closerFunc(func() error { order = append(order, "metrics"); return nil }))

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "metrics" || order[1] != "store" {
		t.Errorf("unexpected close order: %v", order)
	}
}

func TestShutdown_JoinsErrors(t *testing.T) {
	srv := newTestServer(t)

	boom := errors.New("boom")
	closed := false
	srv.OnShutdown(closerFunc(func() error { closed = true; return nil }))
	srv.OnShutdown(closerFunc(func() error { return boom }))

	err := srv.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom error, got %v", err)
	}
	if !closed {
		t.Error("remaining closers must run after a failure")
	}
}
