// Package registry resolves configured datasource ids into live clients and
// provides the multi-source entry points: fan-out fetches and the batch
// iterator surface.
package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/statuscompliance/databinder/batch"
	"github.com/statuscompliance/databinder/config"
	"github.com/statuscompliance/databinder/datasource"
	"github.com/statuscompliance/databinder/logger"
	"github.com/statuscompliance/databinder/telemetry"
)

// Registry builds and caches one datasource client per configured id.
// Safe for concurrent use.
type Registry struct {
	cfg         *config.Config
	log         logger.Logger
	collector   telemetry.Collector
	clientOpts  []datasource.Option
	concurrency int

	mu      sync.Mutex
	clients map[string]*datasource.Client
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger propagated to every client the registry builds.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithCollector sets the telemetry collector propagated to every client and
// to batch iterators.
func WithCollector(c telemetry.Collector) Option {
	return func(r *Registry) {
		if c != nil {
			r.collector = c
		}
	}
}

// WithClientOptions appends extra options applied to every client the
// registry builds, e.g. a shared HTTP client.
func WithClientOptions(opts ...datasource.Option) Option {
	return func(r *Registry) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// WithConcurrency allows FetchAll to run up to n fetches in parallel.
// Values below 2 keep the default sequential behavior.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		r.concurrency = n
	}
}

// New builds a registry over the given catalog.
func New(cfg *config.Config, opts ...Option) *Registry {
	r := &Registry{
		cfg:       cfg,
		log:       logger.Noop(),
		collector: telemetry.Noop(),
		clients:   make(map[string]*datasource.Client),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the client for a configured datasource id, building and
// caching it on first use. An unknown id is a configuration error.
func (r *Registry) Get(id string) (*datasource.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[id]; ok {
		return client, nil
	}

	ds, ok := r.cfg.Datasources[id]
	if !ok {
		return nil, datasource.NewConfigError("datasource is not configured", id)
	}

	opts := []datasource.Option{
		datasource.WithLogger(r.log.WithFields(map[string]any{"datasource": id})),
		datasource.WithCollector(r.collector),
	}
	if ds.RateLimit.RequestsPerSecond > 0 {
		opts = append(opts, datasource.WithRateLimit(ds.RateLimit.RequestsPerSecond, ds.RateLimit.Burst))
	}
	opts = append(opts, r.clientOpts...)

	client, err := datasource.New(ds.ClientConfig(id), opts...)
	if err != nil {
		return nil, err
	}

	r.clients[id] = client
	return client, nil
}

// Result is one datasource's outcome from FetchAll. Exactly one of Response
// and Err is set.
type Result struct {
	ID       string
	Response *datasource.Response
	Err      error
}

// FetchAll fetches every listed datasource with the shared call options,
// returning one result per id in the given order. A failure on one source
// never aborts the others. Fetches run sequentially unless the registry was
// built with WithConcurrency.
func (r *Registry) FetchAll(ctx context.Context, ids []string, opts datasource.CallOptions) []Result {
	results := make([]Result, len(ids))

	if r.concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, id := range ids {
			g.Go(func() error {
				results[i] = r.fetchOne(gctx, id, opts)
				return nil
			})
		}
		// Goroutines only record per-id results, they never return errors.
		_ = g.Wait()
		return results
	}

	for i, id := range ids {
		results[i] = r.fetchOne(ctx, id, opts)
	}
	return results
}

func (r *Registry) fetchOne(ctx context.Context, id string, opts datasource.CallOptions) Result {
	client, err := r.Get(id)
	if err != nil {
		return Result{ID: id, Err: err}
	}

	resp, err := client.Fetch(ctx, r.endpointFor(id), opts)
	return Result{ID: id, Response: resp, Err: err}
}

// Iterate returns a batch iterator over the listed datasource ids: each
// source's complete result set is fetched in one call, renamed per its
// configured property map, and sliced into chunks of the given size.
func (r *Registry) Iterate(ids []string, size int, opts datasource.CallOptions) *batch.Iterator {
	fetch := func(ctx context.Context, id string) ([]any, error) {
		client, err := r.Get(id)
		if err != nil {
			return nil, err
		}

		callOpts := opts
		callOpts.Format = datasource.FormatIterator
		// The complete result set is needed to slice deterministically.
		callOpts.Pagination = &datasource.Pagination{Enabled: false}

		resp, err := client.Fetch(ctx, r.endpointFor(id), callOpts)
		if err != nil {
			return nil, err
		}

		items, _ := resp.Data.([]any)
		return batch.RenameKeys(items, r.cfg.Datasources[id].PropertyMap), nil
	}

	return batch.New(fetch, ids, size, batch.WithCollector(r.collector))
}

// endpointFor resolves the endpoint fetched for a datasource when consumed
// through the multi-source surfaces: its configured method, or the base URL
// itself when unset.
func (r *Registry) endpointFor(id string) string {
	return r.cfg.Datasources[id].Method
}
