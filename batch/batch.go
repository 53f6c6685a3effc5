// Package batch slices multi-source fetch results into fixed-size chunks and
// exposes them as a forward-only, pull-based iterator. One sub-sequence is
// produced per datasource id, in the given id order, with no interleaving.
package batch

import (
	"context"
	"time"

	"github.com/statuscompliance/databinder/telemetry"
)

// DefaultSize is the chunk size used when the caller passes a non-positive
// batch size.
const DefaultSize = 100

// Metadata describes one yielded chunk's position within its source's
// result set.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	HasNextPage bool      `json:"hasNextPage"`
	TotalItems  int       `json:"totalItems"`
	BatchIndex  int       `json:"batchIndex"`
	BatchSize   int       `json:"batchSize"`
	Error       string    `json:"error,omitempty"`
}

// Batch is one chunk of a source's result set. A batch with a non-empty
// Metadata.Error is terminal for its source: Data is empty and the iterator
// moves on to the next id.
type Batch struct {
	Data     []any    `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// FetchFunc retrieves the complete item list for one datasource id. The
// iterator calls it at most once per id.
type FetchFunc func(ctx context.Context, id string) ([]any, error)

// Option configures an Iterator.
type Option func(*Iterator)

// WithCollector wires telemetry for yielded batches.
func WithCollector(c telemetry.Collector) Option {
	return func(it *Iterator) {
		if c != nil {
			it.collector = c
		}
	}
}

// Iterator yields batches source by source. It is forward-only and
// non-restartable; consuming the same ids twice requires a fresh Iterator.
// Not safe for concurrent use.
type Iterator struct {
	fetch     FetchFunc
	ids       []string
	size      int
	collector telemetry.Collector

	idIndex     int
	items       []any
	loaded      bool
	chunk       int
	totalChunks int
	yielded     int
}

// New builds an iterator over the given datasource ids. Ids are consumed in
// the order given; a failure on one id never aborts the others.
func New(fetch FetchFunc, ids []string, size int, opts ...Option) *Iterator {
	if size <= 0 {
		size = DefaultSize
	}

	it := &Iterator{
		fetch:     fetch,
		ids:       ids,
		size:      size,
		collector: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Next yields the next batch, or (nil, false) when every id is exhausted.
// A fetch failure for an id yields exactly one terminal error batch for
// that id before advancing to the next one.
func (it *Iterator) Next(ctx context.Context) (*Batch, bool) {
	for it.idIndex < len(it.ids) {
		id := it.ids[it.idIndex]

		if !it.loaded {
			items, err := it.fetch(ctx, id)
			if err != nil {
				it.advance()
				return it.yield(ctx, it.errorBatch(id, err)), true
			}
			it.items = items
			it.loaded = true
			it.chunk = 0
			it.totalChunks = chunkCount(len(items), it.size)
		}

		// An empty result set produces zero chunks for this id.
		if it.chunk >= it.totalChunks {
			it.advance()
			continue
		}

		batch := it.sliceBatch(id)
		it.chunk++
		return it.yield(ctx, batch), true
	}

	return nil, false
}

func (it *Iterator) sliceBatch(id string) *Batch {
	start := it.chunk * it.size
	end := start + it.size
	if end > len(it.items) {
		end = len(it.items)
	}

	return &Batch{
		Data: it.items[start:end],
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			Source:      id,
			CurrentPage: it.chunk + 1,
			TotalPages:  it.totalChunks,
			HasNextPage: it.chunk < it.totalChunks-1,
			TotalItems:  len(it.items),
			BatchIndex:  it.yielded,
			BatchSize:   it.size,
		},
	}
}

func (it *Iterator) errorBatch(id string, err error) *Batch {
	return &Batch{
		Data: []any{},
		Metadata: Metadata{
			Timestamp:  time.Now().UTC(),
			Source:     id,
			BatchIndex: it.yielded,
			BatchSize:  it.size,
			Error:      err.Error(),
		},
	}
}

func (it *Iterator) yield(ctx context.Context, b *Batch) *Batch {
	it.collector.BatchYielded(ctx, b.Metadata.Source, b.Metadata.BatchIndex, len(b.Data))
	it.yielded++
	return b
}

func (it *Iterator) advance() {
	it.idIndex++
	it.loaded = false
	it.items = nil
	it.chunk = 0
	it.totalChunks = 0
}

func chunkCount(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}

// RenameKeys applies a property-rename mapping to every object item:
// matching keys are renamed, unmatched keys pass through unchanged, and
// non-object items are returned untouched. The input slice is not modified.
func RenameKeys(items []any, mapping map[string]string) []any {
	if len(mapping) == 0 || len(items) == 0 {
		return items
	}

	out := make([]any, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out[i] = item
			continue
		}

		renamed := make(map[string]any, len(obj))
		for key, value := range obj {
			if target, ok := mapping[key]; ok {
				key = target
			}
			renamed[key] = value
		}
		out[i] = renamed
	}
	return out
}
