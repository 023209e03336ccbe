package domain

import "errors"

var (
	// ErrInvalidFilters signals search parameters that cannot form a valid query.
	ErrInvalidFilters = errors.New("invalid filters")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
