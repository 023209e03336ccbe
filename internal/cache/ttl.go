// Package cache holds the process-wide TTL cache and the in-flight request
// registry that sit in front of the degradation chain.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/metrics"
)

// DefaultSize bounds the number of entries when Options.Size is unset.
const DefaultSize = 1024

// Entry is a cached value with its insertion time and lifetime.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the entry must no longer be served at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// Options configures a TTL cache.
type Options struct {
	// Name labels the cache in metrics.
	Name string
	// Size is the maximum number of entries kept; least recently used
	// entries are evicted first.
	Size int
	// SweepInterval is the minimum time between lazy sweeps on write.
	SweepInterval time.Duration
	Clock         clock.Clock
}

// TTL is a bounded key/value cache whose entries expire after a per-entry
// TTL. Expired entries are never returned; they are removed on lookup and
// by a lazy sweep that runs on write.
type TTL[V any] struct {
	name          string
	clk           clock.Clock
	sweepInterval time.Duration

	mu        sync.Mutex
	entries   *lru.Cache[string, Entry[V]]
	lastSweep time.Time
}

// Loader produces a value on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// New creates an empty TTL cache.
func New[V any](opts Options) (*TTL[V], error) {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	entries, err := lru.New[string, Entry[V]](opts.Size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &TTL[V]{
		name:          opts.Name,
		clk:           opts.Clock,
		sweepInterval: opts.SweepInterval,
		entries:       entries,
		lastSweep:     opts.Clock.Now(),
	}, nil
}

// Get returns the value for key if present and unexpired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries.Get(key)
	if !ok {
		metrics.CacheRequestsTotal.WithLabelValues(c.name, "miss").Inc()
		return zero, false
	}
	if e.Expired(c.clk.Now()) {
		c.entries.Remove(key)
		metrics.CacheRequestsTotal.WithLabelValues(c.name, "expired").Inc()
		return zero, false
	}
	metrics.CacheRequestsTotal.WithLabelValues(c.name, "hit").Inc()
	return e.Value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	c.maybeSweepLocked(now)
	c.entries.Add(key, Entry[V]{Value: value, InsertedAt: now, TTL: ttl})
}

// GetOrLoad returns the cached value for key, or calls loader, stores a
// successful result for ttl and returns it. Failures are never cached.
// Concurrent misses on the same key may each call loader.
func (c *TTL[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := loader(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.clk.Now())
}

// RunSweeper sweeps expired entries every sweep interval, so idle caches
// release memory too. When ctx ends it clears the cache and returns.
func (c *TTL[V]) RunSweeper(ctx context.Context) {
	defer c.Clear()
	if c.sweepInterval <= 0 {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.clk.After(c.sweepInterval):
			c.Sweep()
		}
	}
}

func (c *TTL[V]) maybeSweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.sweepInterval {
		return
	}
	c.sweepLocked(now)
}

func (c *TTL[V]) sweepLocked(now time.Time) int {
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && e.Expired(now) {
			c.entries.Remove(key)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}

// Clear drops every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Len returns the number of stored entries, expired or not.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
