// Package sorting defines the result orderings a search may request.
package sorting

// Order is the requested result ordering.
type Order string

// Supported orderings.
const (
	Relevance Order = "relevance"
	Newest    Order = "newest"
	Updated   Order = "updated"
	Rating    Order = "rating"
	Downloads Order = "downloads"
	Trending  Order = "trending"
)

// IsValid checks if the order is one of the supported values.
func (o Order) IsValid() bool {
	switch o {
	case Relevance, Newest, Updated, Rating, Downloads, Trending:
		return true
	}
	return false
}
