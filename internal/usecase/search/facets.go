package search

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	"github.com/kailas-cloud/agentmart/internal/logger"
	"github.com/kailas-cloud/agentmart/internal/metrics"
	"github.com/kailas-cloud/agentmart/internal/resilience"
)

const facetsKey = "facets"

// Facet fallback reasons.
const (
	fallbackTimeout = "timeout"
	fallbackError   = "error"
	fallbackEmpty   = "empty"
)

var facetColumns = map[facet.Dimension]db.SampleQuery{
	facet.Categories: {Table: db.TableListings, Column: db.ColumnCategory, Predicate: db.PredicatePublished},
	facet.Languages:  {Table: db.TableListings, Column: db.ColumnLanguage, Predicate: db.PredicatePublished},
	facet.Frameworks: {Table: db.TableListings, Column: db.ColumnFramework, Predicate: db.PredicatePublished},
	facet.Tags:       {Table: db.TableListingTags, Column: db.ColumnTag, Predicate: db.PredicatePublished},
}

// sample is the outcome of one dimension. live is false for fallbacks.
type sample struct {
	counts []facet.Count
	live   bool
}

// Facets returns approximate value counts for every facet dimension.
// Dimensions that are slow or failing are served from static fallbacks.
// A set made only of fallbacks, or collected after every caller left,
// is returned but not cached.
func (s *Service) Facets(ctx context.Context) facet.Set {
	set, err := s.facets.GetOrLoad(ctx, facetsKey, s.cfg.FacetsTTL, func(ctx context.Context) (facet.Set, error) {
		return s.facetsFlight.Do(ctx, facetsKey, func(ctx context.Context) (facet.Set, error) {
			set := s.collectFacets(ctx)
			switch {
			case ctx.Err() != nil:
				return set, &uncached[facet.Set]{value: set, reason: "cancelled"}
			case set.AllFallback():
				return set, &uncached[facet.Set]{value: set, reason: "all fallback"}
			}
			return set, nil
		})
	})
	if err != nil {
		if set, ok := served[facet.Set](err); ok {
			return set
		}
		return facet.FallbackSet()
	}
	return set
}

func (s *Service) collectFacets(ctx context.Context) facet.Set {
	results := make([]sample, len(facet.Dimensions))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range facet.Dimensions {
		g.Go(func() error {
			results[i] = s.facetDimension(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	var set facet.Set
	for i, d := range facet.Dimensions {
		set.Put(d, results[i].counts)
		if !results[i].live {
			set.Fallback = append(set.Fallback, d)
		}
	}
	return set
}

func (s *Service) facetDimension(ctx context.Context, d facet.Dimension) sample {
	log := logger.FromContext(ctx)
	q := facetColumns[d]
	q.Limit = s.cfg.FacetSampleLimit

	fallback := sample{counts: facet.Fallback(d)}
	res, err := resilience.WithTimeout(ctx, s.clk, s.cfg.FacetTimeout, fallback,
		func(ctx context.Context) (sample, error) {
			values, err := s.store.SampleColumn(ctx, q)
			if err != nil {
				return sample{}, err
			}
			return sample{counts: facet.Tally(values, s.cfg.FacetMaxValues), live: true}, nil
		})

	if ctx.Err() != nil {
		return fallback
	}
	switch {
	case err != nil:
		metrics.FacetFallbacksTotal.WithLabelValues(string(d), fallbackError).Inc()
		log.Warn("facet sample failed, serving fallback", zap.String("dimension", string(d)), zap.Error(err))
		return fallback
	case !res.live:
		metrics.FacetFallbacksTotal.WithLabelValues(string(d), fallbackTimeout).Inc()
		log.Warn("facet sample timed out, serving fallback",
			zap.String("dimension", string(d)),
			zap.Duration("timeout", s.cfg.FacetTimeout),
		)
		return fallback
	case len(res.counts) == 0:
		metrics.FacetFallbacksTotal.WithLabelValues(string(d), fallbackEmpty).Inc()
		return fallback
	}
	return res
}
