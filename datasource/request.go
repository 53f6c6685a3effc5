package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/statuscompliance/databinder/internal/sanitize"
	"github.com/statuscompliance/databinder/trace"
)

// RequestSpec is the resolved, side-effect-free description of one outbound
// call. A fresh spec is built per attempt so auth overrides and timeouts are
// recomputed each time rather than reused across retries.
type RequestSpec struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// BuildURL resolves a logical endpoint name against the datasource's named
// endpoint table and base address into an absolute, sanitized URL with
// pagination, filter and sort query parameters attached. Identical inputs
// always yield an identical URL string.
func BuildURL(cfg Config, endpoint string, opts CallOptions) (string, error) {
	base := sanitize.URL(cfg.BaseURL)
	if base == "" {
		return "", NewConfigError("base URL is missing or malformed", "baseUrl")
	}

	path := endpoint
	if mapped, ok := cfg.Endpoints[endpoint]; ok && mapped != "" {
		path = mapped
	}
	path = strings.Trim(sanitize.String(path), "/")

	full := strings.TrimRight(base, "/")
	if path != "" {
		full += "/" + path
	}

	query := url.Values{}

	if opts.Pagination != nil && opts.Pagination.Enabled {
		page := opts.Pagination.Page
		if page <= 0 {
			page = 1
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("pageSize", strconv.Itoa(opts.requestedPageSize()))
	}

	for key, value := range opts.Filters {
		cleanKey := sanitize.String(key)
		if cleanKey == "" {
			continue
		}
		query.Set(cleanKey, sanitize.String(filterValue(value)))
	}

	if len(opts.Sorts) > 0 {
		entries := make([]string, 0, len(opts.Sorts))
		for _, s := range opts.Sorts {
			field := sanitize.String(s.Field)
			if field == "" {
				continue
			}
			direction := sanitize.String(s.Direction)
			if direction == "" {
				direction = "asc"
			}
			entries = append(entries, field+":"+direction)
		}
		if len(entries) > 0 {
			query.Set("sort", strings.Join(entries, ","))
		}
	}

	// url.Values.Encode emits keys in sorted order, keeping BuildURL
	// idempotent for identical inputs.
	if encoded := query.Encode(); encoded != "" {
		full += "?" + encoded
	}

	return full, nil
}

// filterValue serializes one filter entry: scalars verbatim, composite values
// JSON-encoded.
func filterValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// buildRequest assembles the full request spec for one attempt: resolved URL,
// verb, merged headers (datasource headers, per-call overrides, then auth)
// and encoded body.
func buildRequest(ctx context.Context, cfg Config, endpoint string, opts CallOptions) (*RequestSpec, error) {
	resolved, err := BuildURL(cfg, endpoint, opts)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "GET"
	}

	headers := make(map[string]string, len(cfg.Headers)+len(opts.Headers)+2)
	for k, v := range cfg.Headers {
		if clean := sanitize.String(k); clean != "" {
			headers[clean] = sanitize.String(v)
		}
	}
	for k, v := range opts.Headers {
		if clean := sanitize.String(k); clean != "" {
			headers[clean] = sanitize.String(v)
		}
	}
	if _, ok := headers[trace.HeaderXRequestID]; !ok {
		headers[trace.HeaderXRequestID] = trace.EnsureTraceID(ctx)
	}

	ApplyAuth(headers, cfg.Auth, opts.Auth, opts.Cookies)

	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = contentType
		}
	}

	return &RequestSpec{
		URL:     resolved,
		Method:  method,
		Headers: headers,
		Body:    body,
		Timeout: cfg.Timeout,
	}, nil
}

// encodeBody turns a call body into wire bytes. Raw byte slices and strings
// pass through untouched; anything else is JSON-encoded.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", NewConfigError(fmt.Sprintf("request body is not serializable: %v", err), "body")
		}
		return encoded, "application/json", nil
	}
}
