package sqlstore

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Driver:       DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		Migrate:      true,
	})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(s.Close)
	seed(t, s)
	return s
}

type seedListing struct {
	id, slug, title, description string
	author, category             string
	language, framework          string
	featured                     bool
	status                       string
	rating                       float64
	ratingCount                  int
	downloads, stars             int64
	trending                     float64
	created                      time.Time
	tags                         []string
}

func day(month time.Month) time.Time {
	return time.Date(2025, month, 1, 12, 0, 0, 0, time.UTC)
}

var seedListings = []seedListing{
	{
		id: "l1", slug: "code-bot", title: "Code Bot", description: "A bot that writes code",
		author: "a1", category: "c1", language: "python", framework: "langchain", featured: true,
		status: "published", rating: 4.5, ratingCount: 10, downloads: 100, stars: 50, trending: 1,
		created: day(time.January), tags: []string{"llm", "ai", "coding"},
	},
	{
		id: "l2", slug: "research-bot", title: "Research Bot", description: "Summarizes papers",
		author: "a2", category: "c2", language: "python", framework: "llamaindex",
		status: "published", rating: 4.0, ratingCount: 3, downloads: 300, stars: 20, trending: 5,
		created: day(time.February), tags: []string{"ai", "research"},
	},
	{
		id: "l3", slug: "go-helper", title: "Go Helper", description: "Helps with bot tasks in Go",
		author: "a1", category: "c1", language: "go",
		status: "published", rating: 3.5, ratingCount: 2, downloads: 50, stars: 80, trending: 2,
		created: day(time.March), tags: []string{"go"},
	},
	{
		id: "l4", slug: "draft-bot", title: "Draft Bot", description: "Not ready",
		author: "a1", category: "c1", language: "python",
		status: "draft", created: day(time.April), tags: []string{"ai"},
	},
	{
		id: "l5", slug: "data-agent", title: "Data Agent", description: "Analyzes data, 100%_sure",
		author: "a2", language: "typescript", framework: "crewai",
		status: "published", rating: 5.0, ratingCount: 1, downloads: 10, stars: 5, trending: 9,
		created: day(time.May), tags: []string{"data", "llm"},
	},
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	exec := func(query string, vals ...any) {
		t.Helper()
		if _, err := s.db.ExecContext(ctx, query, vals...); err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
	}

	exec(`INSERT INTO authors (id, username, display_name) VALUES ('a1', 'alice', 'Alice'), ('a2', 'bob', 'Bob')`)
	exec(`INSERT INTO categories (id, slug, name) VALUES ('c1', 'coding', 'Coding'), ('c2', 'research', 'Research')`)

	for _, l := range seedListings {
		var category any
		if l.category != "" {
			category = l.category
		}
		exec(`INSERT INTO listings (id, slug, title, description, author_id, category_id, language, framework,
			featured, status, rating_avg, rating_count, downloads, stars, trending_score, created_at, updated_at)
			VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16, ?16)`,
			l.id, l.slug, l.title, l.description, l.author, category, l.language, l.framework,
			l.featured, l.status, l.rating, l.ratingCount, l.downloads, l.stars, l.trending, l.created)
		for _, tag := range l.tags {
			exec(`INSERT INTO listing_tags (listing_id, tag) VALUES (?1, ?2)`, l.id, tag)
		}
	}
}
