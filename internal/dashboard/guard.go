package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"plantwatch/internal/types"
)

// Guard bounds a collaborator call with a timeout, converts panics into
// errors and trips a circuit breaker after repeated failures so that a dead
// collaborator is not hammered every cycle.
type Guard[T any] struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[T]
	wrap    func(message string, err error) *types.AppError
}

// NewGuard creates a Guard that opens after five consecutive failures and
// probes again after cooldown.
func NewGuard[T any](name string, timeout, cooldown time.Duration) *Guard[T] {
	return &Guard[T]{
		name:    name,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		wrap: types.ErrCollaborator,
	}
}

// NewStoreGuard is a Guard whose plain failures are PersistenceErrors.
func NewStoreGuard[T any](timeout, cooldown time.Duration) *Guard[T] {
	g := NewGuard[T]("store", timeout, cooldown)
	g.wrap = types.ErrPersistence
	return g
}

// Do runs fn under the guard. Every failure, including an open breaker or
// a timeout, is returned as an AppError: fn's own AppError when it returned
// one, upstream_unavailable for an open breaker, otherwise the guard's
// wrapping kind.
func (g *Guard[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (v T, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%s panicked: %v", g.name, rec)
			}
		}()
		return fn(ctx)
	})
	if err == nil {
		return result, nil
	}

	var appErr *types.AppError
	switch {
	case errors.As(err, &appErr):
		return result, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return result, types.NewAppError(types.ErrCodeUpstreamUnavailable, g.name+" is unavailable", err)
	default:
		return result, g.wrap(g.name+" failed", err)
	}
}

// State reports the breaker state for status output.
func (g *Guard[T]) State() string {
	return g.breaker.State().String()
}
