// Package listing holds the denormalized listing summary returned by search.
package listing

import "time"

// AuthorRef identifies the publisher of a listing.
type AuthorRef struct {
	ID          string
	Username    string
	DisplayName string
}

// CategoryRef identifies the category a listing belongs to.
type CategoryRef struct {
	ID   string
	Slug string
	Name string
}

// Rating is the aggregate of user reviews.
type Rating struct {
	Average float64
	Count   int
}

// Summary is one search hit. Richer query tiers fill more fields; a
// minimal tier leaves Author, Category, Tags and the counters zero.
// Summaries are never mutated after a store produced them.
type Summary struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Author      *AuthorRef
	Category    *CategoryRef
	Tags        []string
	Language    string
	Framework   string
	Featured    bool
	Rating      Rating
	Downloads   int64
	Stars       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
