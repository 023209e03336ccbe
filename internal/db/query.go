package db

import (
	"fmt"

	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
)

// Shape selects how much work a listing query does.
type Shape int

const (
	// ShapeRich joins author and category, applies every filter and the requested sort.
	ShapeRich Shape = iota
	// ShapeReduced applies the same filters to the listing set only, core columns, no joins.
	ShapeReduced
	// ShapeMinimal ignores filters: newest published listings, pagination only.
	ShapeMinimal
)

func (s Shape) String() string {
	switch s {
	case ShapeRich:
		return "rich"
	case ShapeReduced:
		return "reduced"
	case ShapeMinimal:
		return "minimal"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ListingQuery is the input for QueryListings.
// Limit and Offset override the page carried by Filters so a tier can
// tighten the page without rebuilding the filters.
type ListingQuery struct {
	Shape   Shape
	Filters filters.Filters
	Limit   int
	Offset  int
}

// Sampled tables and columns. Implementations only accept these pairs.
const (
	TableListings    = "listings"
	TableListingTags = "listing_tags"

	ColumnCategory  = "category"
	ColumnLanguage  = "language"
	ColumnFramework = "framework"
	ColumnTag       = "tag"
)

// Predicate restricts which rows a sample reads from.
type Predicate int

const (
	// PredicateNone samples every row.
	PredicateNone Predicate = iota
	// PredicatePublished samples only published listings.
	PredicatePublished
)

// SampleQuery is the input for SampleColumn.
type SampleQuery struct {
	Table     string
	Column    string
	Predicate Predicate
	Limit     int
}

// Validate checks the table/column pair and the sample bound.
func (q SampleQuery) Validate() error {
	if q.Limit <= 0 {
		return fmt.Errorf("sample limit must be positive")
	}
	if !IsSampleable(q.Table, q.Column) {
		return fmt.Errorf("column %s.%s is not sampleable", q.Table, q.Column)
	}
	return nil
}

// IsSampleable reports whether table.column may be sampled.
func IsSampleable(table, column string) bool {
	switch table {
	case TableListings:
		return column == ColumnCategory || column == ColumnLanguage || column == ColumnFramework
	case TableListingTags:
		return column == ColumnTag
	default:
		return false
	}
}
