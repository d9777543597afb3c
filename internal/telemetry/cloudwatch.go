// Package telemetry publishes request and refresh-cycle metrics to AWS
// CloudWatch. Datums are buffered in memory and sent in batches so that
// recording never blocks a request or a refresh cycle.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"plantwatch/internal/config"
	"plantwatch/internal/types"
)

const (
	// maxBatch is the PutMetricData datum limit per call.
	maxBatch = 1000
	// maxPending caps the buffer; datums beyond it are dropped.
	maxPending = 10 * maxBatch

	flushTimeout = 5 * time.Second
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Collector buffers metric datums and publishes them on Flush.
type Collector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
	dropped int
}

// NewCollector creates a Collector publishing to namespace. An empty
// namespace falls back to the default.
func NewCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *Collector {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &Collector{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// NewFromConfig loads the AWS SDK configuration and builds a CloudWatch
// backed Collector. EndpointURL, when set, points the client at LocalStack.
func NewFromConfig(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (*Collector, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var optFns []func(*cloudwatch.Options)
	if cfg.EndpointURL != "" {
		optFns = append(optFns, func(o *cloudwatch.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}

	return NewCollector(cloudwatch.NewFromConfig(awsCfg, optFns...), cfg.MetricNamespace, logger), nil
}

// RecordRequest buffers APIRequest (count) and APILatency datums
// dimensioned by method, endpoint and status.
func (c *Collector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimMethod, method),
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimStatus, status),
	}
	now := time.Now()
	c.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequest),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
			Timestamp:  aws.Time(now),
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
			Timestamp:  aws.Time(now),
		},
	)
}

// RecordCycle buffers RefreshCycle (count) and RefreshDuration datums for
// one refresh cycle with the given outcome ("success" or "failure").
func (c *Collector) RecordCycle(outcome string, duration time.Duration) {
	dims := []cwtypes.Dimension{dimension(types.DimOutcome, outcome)}
	now := time.Now()
	c.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricRefreshCycle),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
			Timestamp:  aws.Time(now),
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricRefreshDuration),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
			Timestamp:  aws.Time(now),
		},
	)
}

// RecordIngested buffers one ReadingIngested count.
func (c *Collector) RecordIngested() {
	c.add(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReadingIngested),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	})
}

func (c *Collector) add(datums ...cwtypes.MetricDatum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending)+len(datums) > maxPending {
		c.dropped += len(datums)
		return
	}
	c.pending = append(c.pending, datums...)
}

// Flush publishes every buffered datum. Failed batches are logged and
// discarded.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	dropped := c.dropped
	c.pending = nil
	c.dropped = 0
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Warn("metric buffer full, datums dropped", "dropped", dropped)
	}

	for len(batch) > 0 {
		n := min(len(batch), maxBatch)
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: batch[:n],
		}
		if _, err := c.client.PutMetricData(ctx, input); err != nil {
			c.logger.Error("failed to publish metrics",
				"error", err.Error(),
				"datums", n,
			)
		}
		batch = batch[n:]
	}
}

// Run flushes on every interval tick until ctx is cancelled, then performs
// a final flush.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flushWithTimeout()
			return
		case <-ticker.C:
			c.flushWithTimeout()
		}
	}
}

// Close flushes anything still buffered.
func (c *Collector) Close() error {
	c.flushWithTimeout()
	return nil
}

func (c *Collector) flushWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	c.Flush(ctx)
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
