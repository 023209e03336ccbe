package db

import (
	"context"

	"github.com/kailas-cloud/agentmart/internal/domain/listing"
)

// ListingStore is the read facade over the backing store.
// Consumers depend on the narrow sub-interfaces (ISP).
type ListingStore interface {
	Pinger
	ListingQuerier
	ColumnSampler
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListingQuerier reads pages of listings in one of the degradation shapes.
type ListingQuerier interface {
	QueryListings(ctx context.Context, q ListingQuery) ([]listing.Summary, error)
}

// ColumnSampler reads a bounded sample of raw column values.
// No aggregation happens server-side; callers tally the sample.
type ColumnSampler interface {
	SampleColumn(ctx context.Context, q SampleQuery) ([]string, error)
}
