package chi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/domain"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/domain/search/sorting"
	"github.com/kailas-cloud/agentmart/internal/logger"
	healthuc "github.com/kailas-cloud/agentmart/internal/usecase/health"
	searchuc "github.com/kailas-cloud/agentmart/internal/usecase/search"
	"github.com/kailas-cloud/agentmart/internal/version"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

// SearchService runs listing searches and facet aggregation. Neither call fails.
type SearchService interface {
	Search(ctx context.Context, f filters.Filters) searchuc.Page
	Facets(ctx context.Context) facet.Set
}

// HealthService reports backing store health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the listing search API.
type Server struct {
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFilters, http.StatusBadRequest, api.ErrorCodeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, api.ErrorCodeRateLimited),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, api.ErrorCodeNotFound),
	}
	return s
}

// searchParams mirrors the query string of GET /v1/listings/search.
type searchParams struct {
	Q         *string   `form:"q"`
	Category  *string   `form:"category"`
	Tags      *[]string `form:"tags"`
	Language  *string   `form:"language"`
	Framework *string   `form:"framework"`
	Featured  *bool     `form:"featured"`
	Sort      *string   `form:"sort"`
	Limit     *int      `form:"limit"`
	Offset    *int      `form:"offset"`
}

// SearchListings handles GET /v1/listings/search.
func (s *Server) SearchListings(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	f, err := filters.New(params.toFilterParams())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	page := s.search.Search(r.Context(), f)
	if page.Degraded {
		w.Header().Set(api.DegradedHeader, "true")
	}
	writeJSON(w, http.StatusOK, pageToAPI(page))
}

// ListingFacets handles GET /v1/listings/facets.
func (s *Server) ListingFacets(w http.ResponseWriter, r *http.Request) {
	set := s.search.Facets(r.Context())
	if len(set.Fallback) > 0 {
		w.Header().Set(api.DegradedHeader, "true")
	}
	writeJSON(w, http.StatusOK, facetsToAPI(set))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, api.HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	q := r.URL.Query()

	binds := []struct {
		name string
		dest any
	}{
		{filters.KeyQuery, &p.Q},
		{filters.KeyCategory, &p.Category},
		{filters.KeyTags, &p.Tags},
		{filters.KeyLanguage, &p.Language},
		{filters.KeyFramework, &p.Framework},
		{filters.KeyFeatured, &p.Featured},
		{filters.KeySort, &p.Sort},
		{filters.KeyLimit, &p.Limit},
		{"offset", &p.Offset},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return searchParams{}, fmt.Errorf("%w: invalid format for parameter %s", domain.ErrInvalidFilters, b.name)
		}
	}
	return p, nil
}

func (p searchParams) toFilterParams() filters.Params {
	out := filters.Params{
		Query:     deref(p.Q),
		Category:  deref(p.Category),
		Language:  deref(p.Language),
		Framework: deref(p.Framework),
		Featured:  p.Featured,
		SortBy:    sorting.Order(deref(p.Sort)),
	}
	if p.Tags != nil {
		// Both tags=a&tags=b and tags=a,b are accepted.
		for _, t := range *p.Tags {
			out.Tags = append(out.Tags, strings.Split(t, ",")...)
		}
	}
	if p.Limit != nil {
		out.Limit = *p.Limit
	}
	if p.Offset != nil {
		out.Offset = *p.Offset
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, api.ErrorCodeInternal, "internal error")
}
