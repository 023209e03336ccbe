package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/metrics"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

// RouterConfig holds the middleware settings of the API router.
type RouterConfig struct {
	APIKeys   []string
	RateLimit RateLimit
}

// NewRouter mounts the API routes and the middleware chain.
func NewRouter(s *Server, cfg RouterConfig) (http.Handler, error) {
	limit, err := RateLimitMiddleware(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit middleware: %w", err)
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(limit)
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, api.ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, api.ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1/listings", func(r chi.Router) {
		r.Get("/search", s.SearchListings)
		r.Get("/facets", s.ListingFacets)
	})

	s.logger.Debug("router ready", zap.Bool("auth", len(cfg.APIKeys) > 0), zap.Float64("rps", cfg.RateLimit.RPS))
	return r, nil
}
