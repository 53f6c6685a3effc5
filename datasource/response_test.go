package datasource

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONLenient(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected any
	}{
		{"object", []byte(`{"a":1}`), map[string]any{"a": float64(1)}},
		{"array", []byte(`[1,2]`), []any{float64(1), float64(2)}},
		{"scalar", []byte(`"x"`), "x"},
		{"empty body yields empty object", nil, map[string]any{}},
		{"invalid json yields empty object", []byte("<html>"), map[string]any{}},
		{"null yields empty object", []byte("null"), map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeJSON(tt.raw))
		})
	}
}

func TestCoerceItems(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected int
	}{
		{"body already a list", []byte(`[1,2,3]`), 3},
		{"items field", []byte(`{"items":[1,2]}`), 2},
		{"data field", []byte(`{"data":["a"]}`), 1},
		{"single object wrapped", []byte(`{"id":1}`), 1},
		{"scalar wrapped", []byte(`7`), 1},
		{"empty body", nil, 0},
		{"empty object", []byte(`{}`), 0},
		{"unparseable body", []byte("nope"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, coerceItems(tt.raw), tt.expected)
		})
	}
}

func TestCoerceItemsPrefersItemsOverData(t *testing.T) {
	items := coerceItems([]byte(`{"items":[1],"data":[2,3]}`))
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0])
}

func makeHTTPResponse(status int, headers http.Header) *http.Response {
	if headers == nil {
		headers = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: headers}
}

func TestRenderDefaultFormat(t *testing.T) {
	cfg := Config{Name: "src"}
	resp := render(cfg, CallOptions{}, makeHTTPResponse(200, nil), []byte(`{"k":"v"}`))

	assert.Equal(t, map[string]any{"k": "v"}, resp.Data)
	assert.Equal(t, "src", resp.Metadata.Source)
	assert.Equal(t, 200, resp.Metadata.Status)
	assert.Nil(t, resp.Metadata.Headers, "default format carries minimal metadata")
	assert.Nil(t, resp.Raw)
	assert.False(t, resp.Metadata.Timestamp.IsZero())
}

func TestRenderFullFormat(t *testing.T) {
	cfg := Config{Name: "src"}
	headers := http.Header{"X-Total": []string{"9"}}
	raw := []byte(`{"k":"v"}`)

	resp := render(cfg, CallOptions{Format: FormatFull}, makeHTTPResponse(201, headers), raw)

	assert.Equal(t, raw, resp.Raw)
	assert.Equal(t, headers, resp.Metadata.Headers)
	assert.Equal(t, 201, resp.Metadata.Status)
}

func TestRenderBatchFormat(t *testing.T) {
	cfg := Config{Name: "src"}
	opts := CallOptions{
		Format:     FormatBatch,
		Pagination: &Pagination{Enabled: true, Page: 2, PageSize: 3},
	}

	resp := render(cfg, opts, makeHTTPResponse(200, nil), []byte(`[1,2,3]`))

	items, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, resp.Metadata.TotalItems)
	assert.Equal(t, 2, resp.Metadata.CurrentPage)
	assert.True(t, resp.Metadata.HasNextPage, "a full page is assumed to have a successor")
}

func TestRenderBatchFormatShortPageHasNoNext(t *testing.T) {
	cfg := Config{Name: "src"}
	opts := CallOptions{
		Format:     FormatBatch,
		Pagination: &Pagination{Enabled: true, PageSize: 10},
	}

	resp := render(cfg, opts, makeHTTPResponse(200, nil), []byte(`[1,2,3]`))

	assert.Equal(t, 1, resp.Metadata.CurrentPage)
	assert.False(t, resp.Metadata.HasNextPage)
}

func TestRenderStreamFormatKeepsBodyOpen(t *testing.T) {
	cfg := Config{Name: "src"}
	httpResp := makeHTTPResponse(200, http.Header{"Content-Type": []string{"application/octet-stream"}})

	resp := render(cfg, CallOptions{Format: FormatStream}, httpResp, nil)

	assert.Nil(t, resp.Data)
	assert.Equal(t, httpResp.Body, resp.Stream)
	assert.NotNil(t, resp.Metadata.Headers)
}

func TestRenderToleratedErrorStatusCarriesErrorMetadata(t *testing.T) {
	cfg := Config{Name: "src"}
	opts := CallOptions{AllowErrorStatus: true}

	resp := render(cfg, opts, makeHTTPResponse(502, nil), []byte(`{}`))

	assert.Equal(t, 502, resp.Metadata.Status)
	assert.Equal(t, http.StatusText(502), resp.Metadata.Error)
}
