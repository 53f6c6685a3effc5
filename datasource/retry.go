package datasource

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Retry and backoff defaults.
const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 300 * time.Millisecond
	DefaultMaxDelay       = 10 * time.Second
	DefaultJitterFactor   = 0.3
	DefaultAttemptTimeout = 30 * time.Second
)

// RetryPolicy controls the retry loop for one logical fetch. It is immutable
// for the duration of a call; the retry loop holds no state across calls.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// 0 means a single attempt with no retries.
	MaxRetries uint

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// Exponential doubles the delay on each attempt when true; otherwise the
	// delay stays at BaseDelay.
	Exponential bool

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// JitterFactor in [0,1] scales each delay by a uniform random factor in
	// [1-JitterFactor, 1+JitterFactor] to avoid synchronized retry storms.
	JitterFactor float64

	// AttemptTimeout bounds each individual attempt. 0 disables the
	// per-attempt deadline. Timeouts are per attempt, not per logical call.
	AttemptTimeout time.Duration

	// Retryable overrides the default retryability decision. It receives the
	// attempt error and the zero-based attempt index.
	Retryable func(err error, attempt int) bool

	// Test hooks. Nil means real sleep and real randomness.
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// DefaultRetryPolicy returns the policy used when a call supplies none:
// 3 retries, 300ms base delay, exponential backoff capped at 10s, 0.3 jitter
// and a 30s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultBaseDelay,
		Exponential:    true,
		MaxDelay:       DefaultMaxDelay,
		JitterFactor:   DefaultJitterFactor,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Retry runs op under the given policy until it succeeds, retries are
// exhausted, or ctx is canceled. It never swallows an error: every exit path
// returns op's value or the last classified error.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	sleep := policy.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	random := policy.rand
	if random == nil {
		random = rand.Float64
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := runAttempt(ctx, policy, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// A cancellation that fired while the attempt was in flight stops the
		// loop; the attempt's own failure is what the caller sees.
		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(policy, err, attempt) || uint(attempt) >= policy.MaxRetries {
			return zero, lastErr
		}

		delay := backoffDelay(policy, attempt, random)
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return zero, lastErr
		}
	}
}

// runAttempt executes op once under the per-attempt deadline and classifies
// deadline expiry as a taxonomy timeout so the next iteration can retry it.
func runAttempt[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx := ctx
	if policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()
	}

	result, err := op(attemptCtx)
	if err != nil && isDeadlineError(err) && ctx.Err() == nil {
		var zero T
		return zero, NewTimeoutError("attempt exceeded deadline", policy.AttemptTimeout, err)
	}
	return result, err
}

// shouldRetry applies the caller predicate when present, falling back to the
// default taxonomy classification. Configuration errors indicate a setup
// defect and are never retried regardless of the predicate.
func shouldRetry(policy RetryPolicy, err error, attempt int) bool {
	if IsErrorType(err, ConfigError) {
		return false
	}
	if policy.Retryable != nil {
		return policy.Retryable(err, attempt)
	}
	return IsRetryable(err)
}

// backoffDelay computes the sleep before the retry following the given
// zero-based attempt: exponential doubling capped at MaxDelay, then scaled by
// a uniform random factor in [1-jitter, 1+jitter].
func backoffDelay(policy RetryPolicy, attempt int, random func() float64) time.Duration {
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	base := float64(policy.BaseDelay)
	if policy.Exponential {
		base = math.Min(base*math.Exp2(float64(attempt)), float64(maxDelay))
	}

	jitter := policy.JitterFactor
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	factor := 1 - jitter + random()*2*jitter

	d := time.Duration(math.Floor(base * factor))
	if d < 0 {
		d = 0
	}
	return d
}

// sleepCtx waits for d or until ctx is canceled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
