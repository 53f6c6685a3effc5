package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/statuscompliance/databinder"

// OTelCollector records fetch lifecycle events as OpenTelemetry metrics and
// span events. Construct it with the application's providers; pass nil to
// fall back to no-op providers.
type OTelCollector struct {
	fetches   metric.Int64Counter
	attempts  metric.Int64Counter
	failures  metric.Int64Counter
	batches   metric.Int64Counter
	durations metric.Float64Histogram
}

var _ Collector = (*OTelCollector)(nil)

// NewOTel creates a collector backed by the given meter provider. The
// instruments follow the databinder.fetch.* naming scheme.
func NewOTel(provider metric.MeterProvider) (*OTelCollector, error) {
	if provider == nil {
		provider = metricnoop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	fetches, err := meter.Int64Counter("databinder.fetch.count",
		metric.WithDescription("Logical fetches started"))
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter("databinder.fetch.attempts",
		metric.WithDescription("Individual attempts started"))
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("databinder.fetch.attempt_failures",
		metric.WithDescription("Individual attempt failures"))
	if err != nil {
		return nil, err
	}

	batches, err := meter.Int64Counter("databinder.batch.count",
		metric.WithDescription("Batches yielded to consumers"))
	if err != nil {
		return nil, err
	}

	durations, err := meter.Float64Histogram("databinder.fetch.duration",
		metric.WithDescription("Logical fetch duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &OTelCollector{
		fetches:   fetches,
		attempts:  attempts,
		failures:  failures,
		batches:   batches,
		durations: durations,
	}, nil
}

// FetchStarted counts the fetch and annotates any active span.
func (c *OTelCollector) FetchStarted(ctx context.Context, source, operation string) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
	)
	c.fetches.Add(ctx, 1, attrs)

	span := trace.SpanFromContext(ctx)
	span.AddEvent("fetch.started", trace.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
	))
}

// AttemptStarted counts one attempt with its index.
func (c *OTelCollector) AttemptStarted(ctx context.Context, source, operation string, attempt int) {
	c.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
		attribute.Int("attempt", attempt),
	))

	span := trace.SpanFromContext(ctx)
	span.AddEvent("fetch.attempt_started", trace.WithAttributes(
		attribute.Int("attempt", attempt),
	))
}

// AttemptFailed counts one failed attempt with its index.
func (c *OTelCollector) AttemptFailed(ctx context.Context, source, operation string, attempt int, duration time.Duration, err error) {
	c.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
		attribute.Int("attempt", attempt),
	))

	span := trace.SpanFromContext(ctx)
	span.AddEvent("fetch.attempt_failed", trace.WithAttributes(
		attribute.Int("attempt", attempt),
		attribute.String("error", err.Error()),
		attribute.Int64("duration_ms", duration.Milliseconds()),
	))
}

// FetchCompleted records the final duration and outcome.
func (c *OTelCollector) FetchCompleted(ctx context.Context, source, operation string, attempts int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.durations.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
		attribute.Int("attempts", attempts),
	))
}

// BatchYielded counts one batch handed to a consumer.
func (c *OTelCollector) BatchYielded(ctx context.Context, source string, index, size int) {
	c.batches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Int("batch_index", index),
		attribute.Int("batch_size", size),
	))
}
