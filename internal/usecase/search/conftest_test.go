package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/agentmart/internal/cache"
	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// --- Mocks ---

type mockStore struct {
	mu       sync.Mutex
	queries  []db.ListingQuery
	samples  []db.SampleQuery
	listFn   func(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error)
	sampleFn func(ctx context.Context, q db.SampleQuery) ([]string, error)
}

func (m *mockStore) QueryListings(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	return m.listFn(ctx, q)
}

func (m *mockStore) SampleColumn(ctx context.Context, q db.SampleQuery) ([]string, error) {
	m.mu.Lock()
	m.samples = append(m.samples, q)
	m.mu.Unlock()
	return m.sampleFn(ctx, q)
}

func (m *mockStore) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func (m *mockStore) shapes() []db.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Shape, len(m.queries))
	for i, q := range m.queries {
		out[i] = q.Shape
	}
	return out
}

func (m *mockStore) sampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

// catalog answers every shape by paging over items.
func catalog(items ...listing.Summary) func(context.Context, db.ListingQuery) ([]listing.Summary, error) {
	return func(_ context.Context, q db.ListingQuery) ([]listing.Summary, error) {
		if q.Offset >= len(items) {
			return []listing.Summary{}, nil
		}
		end := min(q.Offset+q.Limit, len(items))
		return items[q.Offset:end], nil
	}
}

func bot(id string) listing.Summary {
	return listing.Summary{ID: id, Slug: id, Title: "Bot " + id}
}

type fixture struct {
	svc    *Service
	store  *mockStore
	clk    *clock.FakeClock
	pages  *cache.TTL[Page]
	flight *cache.Inflight[Page]
	facets *cache.TTL[facet.Set]
}

func newFixture(t *testing.T, store *mockStore, cfg Config) *fixture {
	t.Helper()
	clk := clock.Fake(epoch)

	pages, err := cache.New[Page](cache.Options{Name: "test_pages", Clock: clk, SweepInterval: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	facets, err := cache.New[facet.Set](cache.Options{Name: "test_facets", Clock: clk, SweepInterval: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	flight := cache.NewInflight[Page]("test_pages")

	svc := New(store, Deps{
		Pages:        pages,
		PageFlight:   flight,
		Facets:       facets,
		FacetsFlight: cache.NewInflight[facet.Set]("test_facets"),
	}, cfg, clk)

	return &fixture{svc: svc, store: store, clk: clk, pages: pages, flight: flight, facets: facets}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}
