// Package telemetry defines the fetch lifecycle event collector. The core
// emits events at defined points (attempt start, attempt failure, final
// outcome, batch yield) without depending on what the collector does with
// them. Collectors are injected per client rather than held in a process-wide
// singleton so tests can supply a no-op or recording implementation.
package telemetry

import (
	"context"
	"time"
)

// Collector receives structured fetch lifecycle events.
type Collector interface {
	// FetchStarted marks the beginning of one logical fetch.
	FetchStarted(ctx context.Context, source, operation string)

	// AttemptStarted marks the beginning of one attempt within a fetch, with
	// its zero-based index.
	AttemptStarted(ctx context.Context, source, operation string, attempt int)

	// AttemptFailed reports one failed attempt, with its zero-based index
	// and duration.
	AttemptFailed(ctx context.Context, source, operation string, attempt int, duration time.Duration, err error)

	// FetchCompleted reports the final outcome of a logical fetch. attempts
	// is the total number of attempts made; err is nil on success.
	FetchCompleted(ctx context.Context, source, operation string, attempts int, duration time.Duration, err error)

	// BatchYielded reports one batch handed to a consumer by the iterator.
	BatchYielded(ctx context.Context, source string, index, size int)
}

// noopCollector discards every event. Used when telemetry is disabled,
// ensuring zero overhead.
type noopCollector struct{}

func (noopCollector) FetchStarted(context.Context, string, string) {}

func (noopCollector) AttemptStarted(context.Context, string, string, int) {}

func (noopCollector) AttemptFailed(context.Context, string, string, int, time.Duration, error) {}

func (noopCollector) FetchCompleted(context.Context, string, string, int, time.Duration, error) {}

func (noopCollector) BatchYielded(context.Context, string, int, int) {}

// Noop returns a collector that discards every event.
func Noop() Collector { return noopCollector{} }
