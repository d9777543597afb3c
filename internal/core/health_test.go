package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func runHealth(t *testing.T, probes ...HealthProbe) (*httptest.ResponseRecorder, healthResponse) {
	t.Helper()
	srv := newTestServer(t)
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	return rec, body
}

func TestHandleHealth_NoProbes(t *testing.T) {
	rec, body := runHealth(t)
	if rec.Code != http.StatusOK || body.Status != "healthy" {
		t.Errorf("expected healthy 200, got %d %q", rec.Code, body.Status)
	}
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	rec, body := runHealth(t, ProbeFunc{ProbeName: "store", Fn: func(context.Context) error { return nil }})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body.Components["store"].Status != "healthy" {
		t.Errorf("unexpected component status: %+v", body.Components)
	}
}

func TestHandleHealth_ProbeFailure(t *testing.T) {
	rec, body := runHealth(t,
		ProbeFunc{ProbeName: "store", Fn: func(context.Context) error { return errors.New("connection refused") }},
	)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.Components["store"].Message != "connection refused" {
		t.Errorf("unexpected message: %+v", body.Components["store"])
	}
}

func TestHandleHealth_ProbePanicIsUnhealthy(t *testing.T) {
	rec, body := runHealth(t, ProbeFunc{ProbeName: "store", Fn: func(context.Context) error { panic("bad") }})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.Components["store"].Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %+v", body.Components["store"])
	}
}

func TestHandleHealth_SlowProbeTimesOut(t *testing.T) {
	slow := ProbeFunc{ProbeName: "store", Fn: func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()
		}
	}}

	start := time.Now()
	rec, _ := runHealth(t, slow)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("health check must not wait for slow probes")
	}
}
