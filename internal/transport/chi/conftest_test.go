package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	healthuc "github.com/kailas-cloud/agentmart/internal/usecase/health"
	searchuc "github.com/kailas-cloud/agentmart/internal/usecase/search"
)

// --- Mocks ---

type mockSearch struct {
	mu      sync.Mutex
	page    searchuc.Page
	facets  facet.Set
	queries []filters.Filters
}

func (m *mockSearch) Search(_ context.Context, f filters.Filters) searchuc.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, f)
	p := m.page
	p.Limit = f.Limit()
	p.Offset = f.Offset()
	return p
}

func (m *mockSearch) Facets(context.Context) facet.Set { return m.facets }

func (m *mockSearch) last(t *testing.T) filters.Filters {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		t.Fatal("search was not called")
	}
	return m.queries[len(m.queries)-1]
}

func (m *mockSearch) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func healthy() *mockHealth {
	return &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}
}

func newTestRouter(t *testing.T, search *mockSearch, health *mockHealth, cfg RouterConfig) http.Handler {
	t.Helper()
	h, err := NewRouter(NewServer(search, health, zap.NewNop()), cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h
}

func do(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}
