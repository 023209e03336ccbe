package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
)

func sampleByColumn(values map[string][]string) func(context.Context, db.SampleQuery) ([]string, error) {
	return func(_ context.Context, q db.SampleQuery) ([]string, error) {
		return values[q.Column], nil
	}
}

func names(counts []facet.Count) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Name
	}
	return out
}

func TestFacets_TalliesSamples(t *testing.T) {
	store := &mockStore{sampleFn: sampleByColumn(map[string][]string{
		db.ColumnCategory:  {"coding", "research", "coding"},
		db.ColumnLanguage:  {"python", "go", "python", "python"},
		db.ColumnFramework: {"langchain"},
		db.ColumnTag:       {"llm", "ai", "llm"},
	})}
	fx := newFixture(t, store, DefaultConfig())

	set := fx.svc.Facets(context.Background())

	if len(set.Fallback) != 0 {
		t.Errorf("fallback dimensions = %v, want none", set.Fallback)
	}
	if set.Languages[0] != (facet.Count{Name: "python", Count: 3}) {
		t.Errorf("languages = %+v", set.Languages)
	}
	if got := names(set.Categories); !equal(got, []string{"coding", "research"}) {
		t.Errorf("categories = %v", got)
	}
	for _, q := range fx.store.samples {
		if q.Limit != 200 || q.Predicate != db.PredicatePublished {
			t.Errorf("sample query %+v not bounded to published rows", q)
		}
	}
}

func TestFacets_SlowLanguageFallsBack(t *testing.T) {
	store := &mockStore{sampleFn: func(ctx context.Context, q db.SampleQuery) ([]string, error) {
		switch q.Column {
		case db.ColumnLanguage:
			<-ctx.Done()
			return nil, db.Wrap(db.OpSampleColumn, ctx.Err())
		case db.ColumnCategory:
			return []string{"coding", "coding", "research"}, nil
		case db.ColumnFramework:
			return []string{"crewai"}, nil
		default:
			return []string{"agent"}, nil
		}
	}}
	fx := newFixture(t, store, DefaultConfig())

	done := make(chan facet.Set, 1)
	go func() { done <- fx.svc.Facets(context.Background()) }()

	// Every dimension has scheduled its deadline and only the slow one is
	// still waiting on it.
	waitFor(t, func() bool { return fx.clk.Scheduled() == 4 && fx.clk.Pending() == 1 })
	fx.clk.Advance(1200 * time.Millisecond)
	set := <-done

	if got, want := names(set.Languages), names(facet.Fallback(facet.Languages)); !equal(got, want) {
		t.Errorf("languages = %v, want fallback %v", got, want)
	}
	for _, c := range set.Languages {
		if c.Count != 0 {
			t.Errorf("fallback count for %s = %d, want 0", c.Name, c.Count)
		}
	}
	if len(set.Fallback) != 1 || set.Fallback[0] != facet.Languages {
		t.Errorf("fallback dimensions = %v, want [languages]", set.Fallback)
	}
	if set.Categories[0] != (facet.Count{Name: "coding", Count: 2}) {
		t.Errorf("categories = %+v", set.Categories)
	}
	if got := names(set.Frameworks); !equal(got, []string{"crewai"}) {
		t.Errorf("frameworks = %v", got)
	}

	calls := fx.store.sampleCount()
	fx.svc.Facets(context.Background())
	if fx.store.sampleCount() != calls {
		t.Error("partially live facets should be cached")
	}
}

func TestFacets_FailuresServeFallbackUncached(t *testing.T) {
	boom := db.NewError(db.KindConnection, db.OpSampleColumn, "", errors.New("connection refused"))
	store := &mockStore{sampleFn: func(context.Context, db.SampleQuery) ([]string, error) {
		return nil, boom
	}}
	fx := newFixture(t, store, DefaultConfig())

	set := fx.svc.Facets(context.Background())
	if !set.AllFallback() {
		t.Fatalf("fallback dimensions = %v, want all", set.Fallback)
	}
	if got, want := names(set.Tags), names(facet.Fallback(facet.Tags)); !equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}

	fx.svc.Facets(context.Background())
	if fx.store.sampleCount() != 8 {
		t.Errorf("samples = %d, want 8: an all-fallback set must not be cached", fx.store.sampleCount())
	}
}

func TestFacets_CallerGoneCancelsSamplesUncached(t *testing.T) {
	var live atomic.Bool
	store := &mockStore{sampleFn: func(ctx context.Context, q db.SampleQuery) ([]string, error) {
		if live.Load() {
			return []string{"x"}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fx := newFixture(t, store, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan facet.Set, 1)
	go func() { done <- fx.svc.Facets(ctx) }()

	waitFor(t, func() bool { return fx.store.sampleCount() == len(facet.Dimensions) })
	cancel()
	if set := <-done; !set.AllFallback() {
		t.Errorf("fallback dimensions = %v, want all", set.Fallback)
	}

	live.Store(true)
	set := fx.svc.Facets(context.Background())
	if len(set.Fallback) != 0 {
		t.Errorf("fallback dimensions = %v, want none after a fresh run", set.Fallback)
	}
	if fx.store.sampleCount() != 2*len(facet.Dimensions) {
		t.Errorf("samples = %d, want %d: a cancelled run must not be cached",
			fx.store.sampleCount(), 2*len(facet.Dimensions))
	}
}

func TestFacets_EmptySampleFallsBack(t *testing.T) {
	store := &mockStore{sampleFn: sampleByColumn(map[string][]string{
		db.ColumnCategory: {"coding"},
	})}
	fx := newFixture(t, store, DefaultConfig())

	set := fx.svc.Facets(context.Background())
	if len(set.Fallback) != 3 {
		t.Errorf("fallback dimensions = %v, want 3", set.Fallback)
	}
	if got := names(set.Frameworks); !equal(got, names(facet.Fallback(facet.Frameworks))) {
		t.Errorf("frameworks = %v", got)
	}
}

func TestFacets_CapsValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FacetMaxValues = 2
	store := &mockStore{sampleFn: sampleByColumn(map[string][]string{
		db.ColumnCategory:  {"a", "b", "c", "c"},
		db.ColumnLanguage:  {"go"},
		db.ColumnFramework: {"crewai"},
		db.ColumnTag:       {"x", "y", "z"},
	})}
	fx := newFixture(t, store, cfg)

	set := fx.svc.Facets(context.Background())
	if got := names(set.Categories); !equal(got, []string{"c", "a"}) {
		t.Errorf("categories = %v, want [c a]", got)
	}
	if len(set.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", set.Tags)
	}
}

func TestFacets_ExpireAfterTTL(t *testing.T) {
	store := &mockStore{sampleFn: sampleByColumn(map[string][]string{
		db.ColumnCategory:  {"coding"},
		db.ColumnLanguage:  {"go"},
		db.ColumnFramework: {"crewai"},
		db.ColumnTag:       {"ai"},
	})}
	fx := newFixture(t, store, DefaultConfig())

	fx.svc.Facets(context.Background())
	fx.clk.Advance(10 * time.Minute)
	fx.svc.Facets(context.Background())
	if fx.store.sampleCount() != 8 {
		t.Errorf("samples = %d, want 8 after ttl", fx.store.sampleCount())
	}
}
