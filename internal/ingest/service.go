// Package ingest accepts sensor readings, stamps them with a server-side id
// and timestamp, and appends them to the reading store.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"plantwatch/internal/core"
	"plantwatch/internal/db"
	"plantwatch/internal/types"
)

// SubmitRequest is the sensor payload. Pointer fields distinguish a missing
// (or null) value from zero; any other payload fields are ignored.
type SubmitRequest struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity" validate:"required"`
}

// Metrics receives one count per stored reading.
type Metrics interface {
	RecordIngested()
}

// Service is the ingestion contract. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	store     db.ReadingStore
	validator *core.Validator
	logger    *slog.Logger
	timeout   time.Duration
	metrics   Metrics

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service writing to store. Every store call is
// bounded by timeout.
func NewService(store db.ReadingStore, validator *core.Validator, logger *slog.Logger, timeout time.Duration, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: validator,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req, persists it as a new Reading and returns its id.
// Validation failures are InvalidPayload and touch nothing; store failures
// are PersistenceError and are not retried. Out-of-range values are stored
// as given.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return "", err
	}

	reading := types.Reading{
		ID:          s.newID(),
		Temperature: *req.Temperature,
		Humidity:    *req.Humidity,
		Timestamp:   s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Insert(ctx, reading); err != nil {
		s.logger.ErrorContext(ctx, "failed to store reading",
			"id", reading.ID,
			"error", err,
			"request_id", types.GetRequestID(ctx),
		)
		if types.HasCode(err, types.ErrCodeInternalPersistence) {
			return "", err
		}
		return "", types.ErrPersistence("failed to insert reading", err)
	}

	// The row is committed; a failed flush only delays visibility.
	if err := s.store.Flush(ctx); err != nil {
		s.logger.WarnContext(ctx, "reading stored but flush failed",
			"id", reading.ID,
			"error", err,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordIngested()
	}
	s.logger.DebugContext(ctx, "reading stored", "reading", reading.String())

	return reading.ID, nil
}
