// Package query is a keyed, stale-while-revalidate cache for upstream API
// results. Fresh entries are served directly; stale entries are served and
// refreshed in the background; entries idle past their GC time are evicted.
// Concurrent misses for one key share a single upstream call.
package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/placemap/internal/monitoring"
	"github.com/sells-group/placemap/internal/resilience"
)

// Options describes the caching and retry policy of one query.
type Options struct {
	// Name labels metrics and logs, e.g. "place" or "trade_areas".
	Name string

	// StaleTime is how long a result is served without refetching.
	StaleTime time.Duration

	// GCTime is how long an unused result is kept before eviction.
	GCTime time.Duration

	// Retry is applied to every upstream call.
	Retry resilience.Policy
}

// Cache is a concurrent-safe LRU cache of query results.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // LRU order: front=oldest, back=newest
	inflight   map[string]int
	maxEntries int

	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
	metrics *monitoring.Metrics

	hits   atomic.Int64
	stale  atomic.Int64
	misses atomic.Int64
}

type entry struct {
	value      any
	fetchedAt  time.Time
	lastAccess time.Time
	gcTime     time.Duration
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	InFlight   int     `json:"in_flight"`
	Hits       int64   `json:"hits"`
	Stale      int64   `json:"stale"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics reports lookups and fetches to m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithFetchTimeout bounds each detached upstream fetch, retries included.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCache creates a Cache holding at most maxEntries results.
func NewCache(maxEntries int, opts ...Option) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c := &Cache{
		entries:    make(map[string]*entry),
		inflight:   make(map[string]int),
		maxEntries: maxEntries,
		timeout:    2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached result for key or loads it with fn.
//
// A fresh hit returns immediately. A stale hit also returns immediately and
// starts one background refresh. A miss waits for the load; concurrent
// misses share it. The load runs detached from ctx: if ctx ends first,
// Fetch returns ctx.Err() but the load still completes and fills the cache.
// Failed loads are never cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	load := func(ctx context.Context) (any, error) { return fn(ctx) }

	if raw, fresh, ok := c.lookup(key, opts); ok {
		v, ok := raw.(T)
		if !ok {
			return zero, eris.Errorf("query: cached value for %q has type %T", key, raw)
		}
		if fresh {
			c.hits.Add(1)
			c.observeLookup(opts.Name, "hit")
		} else {
			c.stale.Add(1)
			c.observeLookup(opts.Name, "stale")
			c.refresh(ctx, key, opts, load)
		}
		return v, nil
	}

	c.misses.Add(1)
	c.observeLookup(opts.Name, "miss")

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key, opts, load)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, eris.Errorf("query: loaded value for %q has type %T", key, res.Val)
		}
		return v, nil
	}
}

// Peek returns the cached value for key without loading, regardless of
// freshness.
func Peek[T any](c *Cache, key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// refresh reloads key in the background, joining a load already running.
func (c *Cache) refresh(ctx context.Context, key string, opts Options, load func(context.Context) (any, error)) {
	go func() {
		_, _, _ = c.group.Do(key, func() (any, error) {
			return c.load(context.WithoutCancel(ctx), key, opts, load)
		})
	}()
}

// load runs one upstream call with retries and stores the result.
func (c *Cache) load(ctx context.Context, key string, opts Options, fn func(context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.Lock()
	c.inflight[key]++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.inflight[key]--; c.inflight[key] <= 0 {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
	}()

	start := time.Now()
	v, err := resilience.DoVal(ctx, opts.Retry, fn)
	c.observeFetch(opts.Name, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	c.put(key, v, opts)
	return v, nil
}

// lookup returns the entry value and whether it is fresh. Entries idle past
// their GC time are evicted and reported missing.
func (c *Cache) lookup(key string, opts Options) (any, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false, false
	}

	now := c.now()
	e.lastAccess = now
	c.removeFromOrder(key)
	c.order = append(c.order, key)

	fresh := now.Sub(e.fetchedAt) < opts.StaleTime
	return e.value, fresh, true
}

// put stores a result, evicting idle entries and then the least recently
// used ones if at capacity.
func (c *Cache) put(key string, v any, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	gc := opts.GCTime
	if gc < opts.StaleTime {
		gc = opts.StaleTime
	}

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &entry{value: v, fetchedAt: now, lastAccess: now, gcTime: gc}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	c.sweepLocked()
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &entry{value: v, fetchedAt: now, lastAccess: now, gcTime: gc}
	c.order = append(c.order, key)
}

// Sweep evicts every entry idle past its GC time and returns the count.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *Cache) sweepLocked() int {
	var (
		remaining []string
		removed   int
	)
	for _, key := range c.order {
		if e := c.entries[key]; e != nil && c.expired(e) {
			delete(c.entries, key)
			removed++
			continue
		}
		remaining = append(remaining, key)
	}
	c.order = remaining
	return removed
}

func (c *Cache) expired(e *entry) bool {
	return e.gcTime > 0 && c.now().Sub(e.lastAccess) > e.gcTime
}

// Has reports whether a result for key is cached, fresh or stale.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && !c.expired(e)
}

// InFlight reports whether an upstream call for key is running.
func (c *Cache) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[key] > 0
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	inflight := len(c.inflight)
	c.mu.Unlock()

	hits := c.hits.Load()
	stale := c.stale.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + stale + misses; total > 0 {
		hitRate = float64(hits+stale) / float64(total)
	}

	return Stats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		InFlight:   inflight,
		Hits:       hits,
		Stale:      stale,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// removeFromOrder removes a key from the LRU order slice.
func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) observeLookup(name, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CacheLookups.WithLabelValues(name, result).Inc()
}

func (c *Cache) observeFetch(name string, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case resilience.IsNotFound(err):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.UpstreamFetches.WithLabelValues(name, outcome).Inc()
	c.metrics.UpstreamDuration.WithLabelValues(name).Observe(d.Seconds())
}
