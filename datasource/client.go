// Package datasource implements the resilient fetch pipeline: request
// construction and authentication merging, the retry/backoff engine, error
// classification and response-format negotiation. It is the only package
// that talks to remote endpoints; everything above it consumes classified
// errors and response envelopes.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/statuscompliance/databinder/logger"
	"github.com/statuscompliance/databinder/telemetry"
)

// Client executes logical fetch operations against one configured
// datasource. A Client is safe for concurrent use: it holds no per-call
// state, and each call's retry loop is self-contained.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        logger.Logger
	collector  telemetry.Collector
	limiter    *rate.Limiter
}

// New constructs a client for the given resolved datasource configuration.
// The base URL is validated eagerly so misconfiguration fails at
// construction instead of on the first call.
func New(cfg Config, opts ...Option) (*Client, error) {
	if _, err := BuildURL(cfg, "", CallOptions{}); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger.Noop(),
		collector:  telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the configured datasource identity.
func (c *Client) Name() string { return c.cfg.Name }

// Fetch performs one logical fetch of the named endpoint, retrying transient
// failures per the resolved policy, and renders the outcome in the requested
// response format. Every error returned is a classified ClientError.
func (c *Client) Fetch(ctx context.Context, endpoint string, opts CallOptions) (*Response, error) {
	policy := c.policyFor(opts)
	start := time.Now()

	c.collector.FetchStarted(ctx, c.cfg.Name, endpoint)
	c.log.Debug().
		Str("source", c.cfg.Name).
		Str("operation", endpoint).
		Msg("fetch started")

	attempts := 0
	resp, err := Retry(ctx, policy, func(attemptCtx context.Context) (*Response, error) {
		attempt := attempts
		attempts++
		attemptStart := time.Now()

		c.collector.AttemptStarted(ctx, c.cfg.Name, endpoint, attempt)
		c.log.Debug().
			Str("source", c.cfg.Name).
			Str("operation", endpoint).
			Int("attempt", attempt).
			Msg("fetch attempt started")

		result, attemptErr := c.attempt(attemptCtx, endpoint, opts)
		if attemptErr != nil {
			c.collector.AttemptFailed(ctx, c.cfg.Name, endpoint, attempt, time.Since(attemptStart), attemptErr)
			c.log.Warn().
				Err(attemptErr).
				Str("source", c.cfg.Name).
				Str("operation", endpoint).
				Int("attempt", attempt).
				Dur("duration", time.Since(attemptStart)).
				Msg("fetch attempt failed")
		}
		return result, attemptErr
	})

	err = ensureClassified(err)
	c.collector.FetchCompleted(ctx, c.cfg.Name, endpoint, attempts, time.Since(start), err)

	if err != nil {
		c.log.Error().
			Err(err).
			Str("source", c.cfg.Name).
			Str("operation", endpoint).
			Int("attempts", attempts).
			Dur("duration", time.Since(start)).
			Msg("fetch failed")
		return nil, err
	}

	c.log.Info().
		Str("source", c.cfg.Name).
		Str("operation", endpoint).
		Int("attempts", attempts).
		Dur("duration", time.Since(start)).
		Msg("fetch completed")
	return resp, nil
}

// attempt performs a single outbound call: build the request fresh, wait for
// rate-limit clearance, execute, classify, and render.
func (c *Client) attempt(ctx context.Context, endpoint string, opts CallOptions) (*Response, error) {
	spec, err := buildRequest(ctx, c.cfg, endpoint, opts)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			return nil, waitErr
		}
	}

	var bodyReader io.Reader
	if len(spec.Body) > 0 {
		bodyReader = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, bodyReader)
	if err != nil {
		return nil, NewConfigError(err.Error(), "request")
	}
	for key, value := range spec.Headers {
		req.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if isDeadlineError(err) {
			// Let the retry engine stamp the configured duration on it.
			return nil, err
		}
		return nil, withRequestContext(
			NewNetworkError("request failed", 0, err), spec.URL, spec.Method)
	}

	success := httpResp.StatusCode >= 200 && httpResp.StatusCode <= 299
	if !success && !opts.AllowErrorStatus {
		defer httpResp.Body.Close()
		_, _ = io.Copy(io.Discard, httpResp.Body)
		return nil, withRequestContext(
			statusError(httpResp.StatusCode), spec.URL, spec.Method)
	}

	if opts.Format == FormatStream {
		// The open body is handed to the caller unbuffered.
		return render(c.cfg, opts, httpResp, nil), nil
	}

	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, withRequestContext(
			NewNetworkError("reading response body failed", httpResp.StatusCode, err), spec.URL, spec.Method)
	}

	return render(c.cfg, opts, httpResp, raw), nil
}

// policyFor resolves the retry policy for one call: per-call override, then
// datasource-level policy, then the package defaults. The per-attempt abort
// deadline follows the datasource timeout unless the call sets its own.
func (c *Client) policyFor(opts CallOptions) RetryPolicy {
	var policy RetryPolicy
	switch {
	case opts.Retry != nil:
		policy = *opts.Retry
	case c.cfg.Retry != nil:
		policy = *c.cfg.Retry
	default:
		policy = DefaultRetryPolicy()
	}

	if policy.AttemptTimeout <= 0 {
		if c.cfg.Timeout > 0 {
			policy.AttemptTimeout = c.cfg.Timeout
		} else {
			policy.AttemptTimeout = DefaultAttemptTimeout
		}
	}
	return policy
}

// statusError maps a non-2xx HTTP status to its taxonomy error.
func statusError(status int) ClientError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthError("authentication rejected by remote", status)
	case status == http.StatusNotFound:
		return NewNotFoundError("remote resource not found")
	case status >= 500:
		return NewNetworkError("server error", status, nil)
	default:
		return NewNetworkError("unexpected response status", status, nil)
	}
}

// ensureClassified guarantees that no raw error crosses the package
// boundary: anything that is not already a taxonomy error is wrapped as a
// network error with the original message preserved.
func ensureClassified(err error) error {
	if err == nil {
		return nil
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return NewNetworkError(err.Error(), 0, err)
}
