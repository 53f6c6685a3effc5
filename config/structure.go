package config

import (
	"time"

	"github.com/statuscompliance/databinder/datasource"
)

// Config is the root configuration: logging plus the datasource catalog.
type Config struct {
	Log         LogConfig             `koanf:"log"`
	Datasources map[string]Datasource `koanf:"datasources" validate:"dive"`
}

// LogConfig controls the module's structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// Datasource declares one remote source: where it lives, how to
// authenticate, which logical endpoints it exposes and how aggressively to
// retry and throttle calls against it.
type Datasource struct {
	// Type names the provider family (e.g. "rest", "github", "graph").
	// The core treats all of them as REST; the name tags telemetry.
	Type string `koanf:"type"`

	// BaseURL is the absolute address endpoints resolve against.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Timeout bounds each outbound attempt.
	Timeout time.Duration `koanf:"timeout"`

	// Headers are sent on every request to this source.
	Headers map[string]string `koanf:"headers"`

	// Endpoints maps logical endpoint names to URL paths.
	Endpoints map[string]string `koanf:"endpoints"`

	// Auth is the datasource-level credential layer.
	Auth *datasource.AuthConfig `koanf:"auth"`

	// Retry tunes the backoff loop. Zero values fall back to the package
	// defaults (3 retries, 300ms base, exponential, 10s cap, 0.3 jitter).
	Retry RetrySettings `koanf:"retry"`

	// RateLimit throttles outbound calls client-side. Zero disables it.
	RateLimit RateLimitSettings `koanf:"rate_limit"`

	// PropertyMap renames item keys when this source is consumed through
	// the batch iterator. Unmatched keys pass through unchanged.
	PropertyMap map[string]string `koanf:"property_map"`

	// Method is the endpoint fetched when the source is consumed through
	// the batch iterator without an explicit endpoint.
	Method string `koanf:"method"`
}

// RetrySettings is the declarative form of a retry policy.
type RetrySettings struct {
	// MaxRetries is a pointer so an omitted field keeps the package default
	// while an explicit 0 disables retries.
	MaxRetries     *uint         `koanf:"max_retries"`
	BaseDelay      time.Duration `koanf:"base_delay"`
	MaxDelay       time.Duration `koanf:"max_delay"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
	Jitter         float64       `koanf:"jitter" validate:"gte=0,lte=1"`

	// Backoff is "exponential" (default) or "fixed".
	Backoff string `koanf:"backoff" validate:"omitempty,oneof=exponential fixed"`
}

// RateLimitSettings throttles a datasource's outbound calls.
type RateLimitSettings struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

// zero reports whether the settings block was left entirely unset.
func (r RetrySettings) zero() bool {
	return r.MaxRetries == nil && r.BaseDelay == 0 && r.MaxDelay == 0 &&
		r.AttemptTimeout == 0 && r.Jitter == 0 && r.Backoff == ""
}

// Policy converts the declarative settings into a retry policy, or nil when
// the block is unset so the client falls back to its defaults.
func (r RetrySettings) Policy() *datasource.RetryPolicy {
	if r.zero() {
		return nil
	}

	policy := datasource.DefaultRetryPolicy()
	if r.MaxRetries != nil {
		policy.MaxRetries = *r.MaxRetries
	}
	if r.BaseDelay > 0 {
		policy.BaseDelay = r.BaseDelay
	}
	if r.MaxDelay > 0 {
		policy.MaxDelay = r.MaxDelay
	}
	if r.AttemptTimeout > 0 {
		policy.AttemptTimeout = r.AttemptTimeout
	}
	if r.Jitter > 0 {
		policy.JitterFactor = r.Jitter
	}
	policy.Exponential = r.Backoff != "fixed"
	return &policy
}

// ClientConfig resolves this declaration into the executor's configuration,
// tagged with the given datasource id.
func (d Datasource) ClientConfig(id string) datasource.Config {
	return datasource.Config{
		Name:      id,
		BaseURL:   d.BaseURL,
		Headers:   d.Headers,
		Timeout:   d.Timeout,
		Endpoints: d.Endpoints,
		Auth:      d.Auth,
		Retry:     d.Retry.Policy(),
	}
}
