package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/agentmart/internal/metrics"
)

// Inflight ensures at most one fetch per key is running. Callers arriving
// while a fetch is in progress wait for its result instead of starting
// another. The key is forgotten as soon as the fetch completes, so it is
// not a cache.
type Inflight[V any] struct {
	name  string
	group singleflight.Group

	mu    sync.Mutex
	calls map[string]*call
}

// call is the shared run for one key. Its context outlives any single
// caller and is cancelled once no caller is waiting.
type call struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewInflight creates an empty registry. name labels it in metrics.
func NewInflight[V any](name string) *Inflight[V] {
	return &Inflight[V]{name: name, calls: make(map[string]*call)}
}

// Do runs loader for key unless a run is already in flight, in which case
// it waits for that run. A caller whose ctx ends stops waiting; the run
// keeps going while other callers wait on it and its context is cancelled
// when the last one leaves.
func (f *Inflight[V]) Do(ctx context.Context, key string, loader Loader[V]) (V, error) {
	c := f.join(ctx, key)
	ch := f.group.DoChan(key, func() (any, error) {
		return loader(c.ctx)
	})

	var zero V
	select {
	case res := <-ch:
		f.leave(key, c, false)
		if res.Shared {
			metrics.InflightSharedTotal.WithLabelValues(f.name).Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		f.leave(key, c, true)
		return zero, ctx.Err()
	}
}

func (f *Inflight[V]) join(ctx context.Context, key string) *call {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[key]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call{ctx: runCtx, cancel: cancel}
		f.calls[key] = c
	}
	c.waiters++
	return c
}

func (f *Inflight[V]) leave(key string, c *call, abandoned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.waiters--
	if c.waiters > 0 {
		return
	}
	if f.calls[key] == c {
		delete(f.calls, key)
	}
	if abandoned {
		// The cancelled run may still be finishing; later callers must
		// start a fresh one instead of joining it.
		f.group.Forget(key)
	}
	c.cancel()
}

// Waiting returns the number of callers currently waiting on key.
func (f *Inflight[V]) Waiting(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[key]; ok {
		return c.waiters
	}
	return 0
}
