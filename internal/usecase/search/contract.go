package search

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/agentmart/internal/cache"
	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
)

// Store reads listings and column samples from the backing store.
type Store interface {
	QueryListings(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error)
	SampleColumn(ctx context.Context, q db.SampleQuery) ([]string, error)
}

// Cache keeps answers for a limited time. Loader failures are not stored.
type Cache[V any] interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader cache.Loader[V]) (V, error)
}

// Flight collapses concurrent loads of the same key into one.
type Flight[V any] interface {
	Do(ctx context.Context, key string, loader cache.Loader[V]) (V, error)
}

// uncached carries an answer that is served to the caller but must not be
// stored, through the error path of Cache.GetOrLoad.
type uncached[V any] struct {
	value  V
	reason string
}

func (u *uncached[V]) Error() string { return "answer not cached: " + u.reason }

// served unwraps an answer carried by uncached.
func served[V any](err error) (V, bool) {
	var u *uncached[V]
	if errors.As(err, &u) {
		return u.value, true
	}
	var zero V
	return zero, false
}
