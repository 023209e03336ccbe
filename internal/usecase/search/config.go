package search

import "time"

// Config holds tier deadlines, cache lifetimes and facet sampling bounds.
type Config struct {
	RichTimeout    time.Duration
	ReducedTimeout time.Duration
	MinimalTimeout time.Duration
	// MinimalLimit caps the page size of the minimal tier.
	MinimalLimit int

	ResultTTL time.Duration
	FacetsTTL time.Duration

	FacetTimeout     time.Duration
	FacetSampleLimit int
	FacetMaxValues   int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RichTimeout:      8 * time.Second,
		ReducedTimeout:   3 * time.Second,
		MinimalTimeout:   3 * time.Second,
		MinimalLimit:     12,
		ResultTTL:        2 * time.Minute,
		FacetsTTL:        10 * time.Minute,
		FacetTimeout:     1200 * time.Millisecond,
		FacetSampleLimit: 200,
		FacetMaxValues:   20,
	}
}
