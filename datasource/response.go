package datasource

import (
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Metadata accompanies every response envelope. Pagination fields are only
// populated by the batch format.
type Metadata struct {
	Timestamp   time.Time   `json:"timestamp"`
	Source      string      `json:"source"`
	Status      int         `json:"status,omitempty"`
	Headers     http.Header `json:"headers,omitempty"`
	TotalItems  int         `json:"totalItems,omitempty"`
	CurrentPage int         `json:"currentPage,omitempty"`
	HasNextPage bool        `json:"hasNextPage,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Response is the envelope produced by one fetch. Exactly one of Data/Raw or
// Stream carries the payload depending on the requested format; Stream is
// only set for FormatStream and must be closed by the caller.
type Response struct {
	Data     any           `json:"data"`
	Raw      []byte        `json:"-"`
	Stream   io.ReadCloser `json:"-"`
	Metadata Metadata      `json:"metadata"`
}

// decodeJSON decodes a response body leniently. A missing or unparseable
// body yields an empty object rather than an error: absence of a parseable
// body is not an error condition for all endpoints.
func decodeJSON(raw []byte) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]any{}
	}
	if decoded == nil {
		return map[string]any{}
	}
	return decoded
}

// coerceItems turns a decoded body into an item list: the body itself when it
// already is a list, a known items/data field when present, and a
// single-element wrap otherwise. An empty body produces an empty list.
func coerceItems(raw []byte) []any {
	if len(raw) == 0 {
		return []any{}
	}

	decoded := decodeJSON(raw)
	switch d := decoded.(type) {
	case []any:
		return d
	case map[string]any:
		if items, ok := d["items"].([]any); ok {
			return items
		}
		if items, ok := d["data"].([]any); ok {
			return items
		}
		if len(d) == 0 {
			return []any{}
		}
		return []any{d}
	default:
		return []any{d}
	}
}

// render produces the response envelope for one successful (or tolerated
// non-2xx) HTTP exchange according to the requested format.
func render(cfg Config, opts CallOptions, httpResp *http.Response, raw []byte) *Response {
	meta := Metadata{
		Timestamp: time.Now(),
		Source:    cfg.Name,
		Status:    httpResp.StatusCode,
	}
	if opts.AllowErrorStatus && (httpResp.StatusCode < 200 || httpResp.StatusCode > 299) {
		meta.Error = http.StatusText(httpResp.StatusCode)
	}

	switch opts.Format {
	case FormatStream:
		meta.Headers = httpResp.Header
		return &Response{Stream: httpResp.Body, Metadata: meta}

	case FormatFull:
		meta.Headers = httpResp.Header
		return &Response{Data: decodeJSON(raw), Raw: raw, Metadata: meta}

	case FormatBatch, FormatIterator:
		items := coerceItems(raw)
		meta.TotalItems = len(items)
		meta.CurrentPage = 1
		if opts.Pagination != nil && opts.Pagination.Enabled && opts.Pagination.Page > 0 {
			meta.CurrentPage = opts.Pagination.Page
		}
		// Heuristic: a page exactly filling the requested size is assumed to
		// have a successor. The server may not expose a total count, so the
		// last real page can report one extra empty page.
		meta.HasNextPage = len(items) == opts.requestedPageSize()
		return &Response{Data: items, Metadata: meta}

	default:
		return &Response{Data: decodeJSON(raw), Metadata: meta}
	}
}
