package folio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("folio: not found")

// FetchFunc loads a full collection from its source.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// RecordCache is an in-memory cache of one record collection with TTL.
//
// A failed fetch fills the cache with an empty collection for the full TTL;
// the failure reason stays available through LastError.
type RecordCache[T any] struct {
	mu      sync.RWMutex
	name    string
	ttl     time.Duration
	fetch   FetchFunc[T]
	slugOf  func(T) string
	now     func() time.Time
	log     zerolog.Logger
	records []T
	bySlug  map[string]int
	fetched time.Time
	filled  bool
	lastErr error
}

// NewRecordCache creates a RecordCache backed by fetch. slugOf indexes the
// records for Lookup.
func NewRecordCache[T any](name string, ttl time.Duration, fetch FetchFunc[T], slugOf func(T) string) *RecordCache[T] {
	return &RecordCache[T]{
		name:   name,
		ttl:    ttl,
		fetch:  fetch,
		slugOf: slugOf,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
}

// SetClock replaces time.Now.
func (c *RecordCache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// SetLogger sets the logger that receives fetch failures.
func (c *RecordCache[T]) SetLogger(log zerolog.Logger) {
	c.mu.Lock()
	c.log = log.With().Str("cache", c.name).Logger()
	c.mu.Unlock()
}

func (c *RecordCache[T]) valid() bool {
	return c.filled && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *RecordCache[T]) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.bySlug = nil
	c.filled = false
	c.mu.Unlock()
}

func (c *RecordCache[T]) load(ctx context.Context) {
	if c.valid() {
		return
	}
	records, err := c.fetch(ctx)
	c.lastErr = err
	if err != nil {
		c.log.Error().Err(err).Msg("fetch failed, serving empty collection")
		records = []T{}
	}
	if records == nil {
		records = []T{}
	}
	index := make(map[string]int, len(records))
	for i, r := range records {
		if s := c.slugOf(r); s != "" {
			if _, dup := index[s]; !dup {
				index[s] = i
			}
		}
	}
	c.records = records
	c.bySlug = index
	c.fetched = c.now()
	c.filled = true
	c.log.Debug().Int("records", len(records)).Msg("cache filled")
}

// ensureLoaded returns the cached records after making sure they are fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *RecordCache[T]) ensureLoaded(ctx context.Context) ([]T, map[string]int) {
	c.mu.RLock()
	if c.valid() {
		records, index := c.records, c.bySlug
		c.mu.RUnlock()
		return records, index
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	return c.records, c.bySlug
}

// Get returns the collection. Within the TTL every call returns the same
// slice without refetching. Callers must not modify it.
func (c *RecordCache[T]) Get(ctx context.Context) []T {
	records, _ := c.ensureLoaded(ctx)
	return records
}

// Lookup returns the record with the given slug.
func (c *RecordCache[T]) Lookup(ctx context.Context, slug string) (T, error) {
	records, index := c.ensureLoaded(ctx)
	if i, ok := index[slug]; ok {
		return records[i], nil
	}
	var zero T
	return zero, ErrNotFound
}

// LastError returns the error of the most recent fetch, or nil.
func (c *RecordCache[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}
