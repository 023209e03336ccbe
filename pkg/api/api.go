// Package api defines the JSON bodies of the agentmart HTTP API.
// Both the server and pkg/client encode and decode these types.
package api

import "time"

// DegradedHeader is set to "true" on search responses served by a
// fallback tier or by no tier at all.
const DegradedHeader = "X-Search-Degraded"

// ErrorCode is a machine readable error category.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest   ErrorCode = "bad_request"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeRateLimited  ErrorCode = "rate_limited"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Author is the publisher of a listing.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// Category is the category a listing belongs to.
type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Rating is the aggregate of user reviews.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Listing is one search hit. Fields a fallback tier does not load are omitted.
type Listing struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Author      *Author    `json:"author,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Language    string     `json:"language,omitempty"`
	Framework   string     `json:"framework,omitempty"`
	Featured    bool       `json:"featured"`
	Rating      *Rating    `json:"rating,omitempty"`
	Downloads   int64      `json:"downloads"`
	Stars       int64      `json:"stars"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Items    []Listing `json:"items"`
	Count    int       `json:"count"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
	HasMore  bool      `json:"has_more"`
	Degraded bool      `json:"degraded"`
	Tier     string    `json:"tier,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	TimedOut bool      `json:"timed_out,omitempty"`
}

// FacetCount is one facet value and its approximate frequency.
type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FacetsResponse holds value counts per dimension. Fallback lists the
// dimensions served from static defaults.
type FacetsResponse struct {
	Categories []FacetCount `json:"categories"`
	Languages  []FacetCount `json:"languages"`
	Frameworks []FacetCount `json:"frameworks"`
	Tags       []FacetCount `json:"tags"`
	Fallback   []string     `json:"fallback,omitempty"`
}

// HealthResponse reports the aggregated health status.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}
