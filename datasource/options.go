package datasource

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/statuscompliance/databinder/logger"
	"github.com/statuscompliance/databinder/telemetry"
)

// Format selects the rendering of a fetch result.
type Format string

const (
	// FormatDefault returns decoded data plus minimal metadata.
	FormatDefault Format = ""
	// FormatFull returns status, headers and the raw body without reshaping.
	FormatFull Format = "full"
	// FormatBatch coerces the body to an item list and adds pagination metadata.
	FormatBatch Format = "batch"
	// FormatIterator is accepted at the boundary and served by the batch
	// iterator layer; the executor itself treats it like FormatBatch.
	FormatIterator Format = "iterator"
	// FormatStream exposes the open response body instead of buffering it.
	// The caller owns closing the stream.
	FormatStream Format = "stream"
)

// DefaultPageSize is the page size applied when pagination is enabled
// without an explicit size.
const DefaultPageSize = 100

// Config is the resolved configuration of one datasource, as produced by the
// registry/catalog layer. The executor treats it as already validated beyond
// the base-URL checks performed by the request builder.
type Config struct {
	// Name tags responses and telemetry events with the datasource identity.
	Name string

	// BaseURL is the absolute address all endpoints resolve against.
	BaseURL string

	// Headers are sent on every request, before per-call overrides.
	Headers map[string]string

	// Timeout bounds each attempt's outbound call. Zero falls back to the
	// retry policy's attempt timeout.
	Timeout time.Duration

	// Endpoints maps logical endpoint names to URL paths. Unmapped names are
	// used literally.
	Endpoints map[string]string

	// Auth is the datasource-level credential layer.
	Auth *AuthConfig

	// Retry is the policy applied when a call does not supply its own.
	Retry *RetryPolicy
}

// Pagination controls the page query parameters attached to a request.
type Pagination struct {
	Enabled  bool
	Page     int
	PageSize int
}

// Sort describes one sort entry, serialized as "field:direction".
type Sort struct {
	Field     string
	Direction string
}

// CallOptions carries the per-call knobs of one logical fetch. Fields the
// executor understands are named and typed; provider-specific keys go in
// Extra and are passed through untouched.
type CallOptions struct {
	// Method is the HTTP verb, defaulting to GET.
	Method string

	// Body is encoded as JSON unless it is already []byte or string.
	Body any

	// Headers are per-call header overrides, applied over Config.Headers.
	Headers map[string]string

	// Cookies are explicit per-call cookies, unioned over auth-layer cookies.
	Cookies map[string]string

	// Auth overrides or patches the datasource-level credentials.
	Auth *AuthConfig

	// Pagination, Filters and Sorts shape the query string.
	Pagination *Pagination
	Filters    map[string]any
	Sorts      []Sort

	// Format selects the response rendering.
	Format Format

	// AllowErrorStatus disables status-to-error mapping: non-2xx responses
	// are returned as envelopes with error metadata instead of failing.
	AllowErrorStatus bool

	// Retry overrides the datasource-level policy for this call.
	Retry *RetryPolicy

	// Extra is the open extension map for provider-specific options.
	Extra map[string]any
}

// requestedPageSize returns the page size the caller asked for, used by the
// batch format's has-next-page heuristic.
func (o CallOptions) requestedPageSize() int {
	if o.Pagination != nil && o.Pagination.PageSize > 0 {
		return o.Pagination.PageSize
	}
	return DefaultPageSize
}

// Option configures a Client during construction.
type Option func(c *Client)

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// point the datasource at an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger used for attempt and outcome events.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithCollector sets the telemetry collector receiving fetch lifecycle
// events. The default is a no-op collector.
func WithCollector(collector telemetry.Collector) Option {
	return func(c *Client) {
		c.collector = collector
	}
}

// WithRateLimit throttles outbound calls to the given requests per second
// with the given burst. Zero or negative rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}
