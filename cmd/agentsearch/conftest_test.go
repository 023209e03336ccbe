package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/session"
	"github.com/kailas-cloud/agentmart/pkg/api"
	"github.com/kailas-cloud/agentmart/pkg/client"
)

// mockAPI serves pages from a fixed catalog and records every call.
type mockAPI struct {
	mu      sync.Mutex
	catalog []api.Listing
	params  []client.SearchParams
	facets  *api.FacetsResponse
	err     error
}

func (m *mockAPI) Search(_ context.Context, p client.SearchParams) (*api.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, p)
	if m.err != nil {
		return nil, m.err
	}
	start := min(p.Offset, len(m.catalog))
	end := min(start+p.Limit, len(m.catalog))
	items := append([]api.Listing(nil), m.catalog[start:end]...)
	return &api.SearchResponse{
		Items:   items,
		Count:   len(items),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: len(items) >= p.Limit,
	}, nil
}

func (m *mockAPI) Facets(context.Context) (*api.FacetsResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.facets, nil
}

func (m *mockAPI) calls() []client.SearchParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.SearchParams(nil), m.params...)
}

type fixture struct {
	repl *repl
	api  *mockAPI
	clk  *clock.FakeClock
	out  *bytes.Buffer
}

func newFixture(t *testing.T, m *mockAPI, limit int) *fixture {
	t.Helper()
	initial, err := filters.New(filters.Params{Limit: limit})
	if err != nil {
		t.Fatalf("filters.New: %v", err)
	}
	clk := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	sess := session.New(newFetcher(m), session.Options{Filters: &initial, Clock: clk})
	t.Cleanup(sess.Close)

	out := &bytes.Buffer{}
	return &fixture{repl: newREPL(sess, m, out), api: m, clk: clk, out: out}
}

func (f *fixture) output() string {
	f.repl.mu.Lock()
	defer f.repl.mu.Unlock()
	return f.out.String()
}

// waitOutput polls until the output contains want.
func (f *fixture) waitOutput(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(f.output(), want) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, f.output())
}

// search types text and lets the debounce elapse.
func (f *fixture) search(text string) {
	f.repl.handle(context.Background(), text)
	f.clk.Advance(session.DefaultDebounce)
}

func bots() []api.Listing {
	return []api.Listing{
		{ID: "1", Title: "Research Bot", Author: &api.Author{Username: "ada"}, Language: "python"},
		{ID: "2", Title: "Chat Bot", Rating: &api.Rating{Average: 4.5, Count: 12}},
		{ID: "3", Title: "Code Bot"},
	}
}
