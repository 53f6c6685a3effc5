package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuscompliance/databinder/config"
	"github.com/statuscompliance/databinder/datasource"
)

// noRetry keeps failure-path tests fast.
func noRetry() *datasource.RetryPolicy {
	return &datasource.RetryPolicy{MaxRetries: 0, AttemptTimeout: time.Second}
}

func catalog(datasources map[string]config.Datasource) *config.Config {
	return &config.Config{Datasources: datasources}
}

func TestGetCachesClients(t *testing.T) {
	reg := New(catalog(map[string]config.Datasource{
		"api": {BaseURL: "https://api.example.com"},
	}))

	first, err := reg.Get("api")
	require.NoError(t, err)
	second, err := reg.Get("api")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGetUnknownID(t *testing.T) {
	reg := New(catalog(nil))

	_, err := reg.Get("ghost")
	require.Error(t, err)
	assert.True(t, datasource.IsErrorType(err, datasource.ConfigError))
}

func TestGetInvalidBaseURL(t *testing.T) {
	reg := New(catalog(map[string]config.Datasource{
		"broken": {BaseURL: "not-a-url"},
	}))

	_, err := reg.Get("broken")
	require.Error(t, err)
	assert.True(t, datasource.IsErrorType(err, datasource.ConfigError))
}

func TestFetchAllOrderAndIsolation(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items": [{"id": 1}]}`))
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	reg := New(catalog(map[string]config.Datasource{
		"alpha": {BaseURL: ok.URL},
		"beta":  {BaseURL: bad.URL},
		"gamma": {BaseURL: ok.URL},
	}))

	results := reg.FetchAll(context.Background(), []string{"alpha", "beta", "gamma"},
		datasource.CallOptions{Retry: noRetry()})

	require.Len(t, results, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"},
		[]string{results[0].ID, results[1].ID, results[2].ID})

	assert.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Response)

	assert.Error(t, results[1].Err)
	assert.True(t, datasource.IsServerError(results[1].Err))
	assert.Nil(t, results[1].Response)

	assert.NoError(t, results[2].Err)
}

func TestFetchAllUnknownIDIsNotFatal(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ok.Close()

	reg := New(catalog(map[string]config.Datasource{"known": {BaseURL: ok.URL}}))

	results := reg.FetchAll(context.Background(), []string{"ghost", "known"},
		datasource.CallOptions{Retry: noRetry()})

	require.Len(t, results, 2)
	assert.True(t, datasource.IsErrorType(results[0].Err, datasource.ConfigError))
	assert.NoError(t, results[1].Err)
}

func TestFetchAllConcurrent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"value": 1}`))
	}))
	defer srv.Close()

	reg := New(catalog(map[string]config.Datasource{
		"a": {BaseURL: srv.URL},
		"b": {BaseURL: srv.URL},
		"c": {BaseURL: srv.URL},
	}), WithConcurrency(3))

	results := reg.FetchAll(context.Background(), []string{"a", "b", "c"},
		datasource.CallOptions{Retry: noRetry()})

	require.Len(t, results, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, results[i].ID)
		assert.NoError(t, results[i].Err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestIterate(t *testing.T) {
	items := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// pagination must be disabled on iterator fetches
		assert.Empty(t, r.URL.Query().Get("page"))
		w.Write([]byte(`{"items": [{"login": "a"}, {"login": "b"}, {"login": "c"}]}`))
	}))
	defer items.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	reg := New(catalog(map[string]config.Datasource{
		"users": {
			BaseURL:     items.URL,
			PropertyMap: map[string]string{"login": "username"},
		},
		"down": {BaseURL: bad.URL},
	}))

	it := reg.Iterate([]string{"users", "down"}, 2, datasource.CallOptions{Retry: noRetry()})

	first, ok := it.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "users", first.Metadata.Source)
	require.Len(t, first.Data, 2)
	assert.True(t, first.Metadata.HasNextPage)
	obj := first.Data[0].(map[string]any)
	assert.Equal(t, "a", obj["username"])
	assert.NotContains(t, obj, "login")

	second, ok := it.Next(context.Background())
	require.True(t, ok)
	require.Len(t, second.Data, 1)
	assert.False(t, second.Metadata.HasNextPage)
	assert.Equal(t, 2, second.Metadata.CurrentPage)

	terminal, ok := it.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "down", terminal.Metadata.Source)
	assert.Empty(t, terminal.Data)
	assert.NotEmpty(t, terminal.Metadata.Error)

	_, ok = it.Next(context.Background())
	assert.False(t, ok)
}

func TestIterateUsesConfiguredMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/issues", r.URL.Path)
		w.Write([]byte(`[{"id": 1}]`))
	}))
	defer srv.Close()

	reg := New(catalog(map[string]config.Datasource{
		"tracker": {
			BaseURL:   srv.URL,
			Endpoints: map[string]string{"issues": "/v1/issues"},
			Method:    "issues",
		},
	}))

	it := reg.Iterate([]string{"tracker"}, 10, datasource.CallOptions{Retry: noRetry()})

	b, ok := it.Next(context.Background())
	require.True(t, ok)
	assert.Len(t, b.Data, 1)
}
