package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agentmart/internal/clock"
	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/logger"
	"github.com/kailas-cloud/agentmart/internal/metrics"
	"github.com/kailas-cloud/agentmart/internal/resilience"
)

// Tier names, richest first.
const (
	TierRich    = "rich"
	TierReduced = "reduced"
	TierMinimal = "minimal"
)

// Reasons a page is degraded.
const (
	ReasonFallback  = "fallback"
	ReasonExhausted = "exhausted"
	ReasonCancelled = "cancelled"
)

// Page is one page of search results. A page is never an error: when no
// tier answers, Items is empty and Degraded is set.
type Page struct {
	Items  []listing.Summary
	Limit  int
	Offset int
	// HasMore reports a full page, so another one may follow.
	HasMore bool

	// Degraded is set when the rich tier did not answer.
	Degraded bool
	// Tier names the tier that answered; empty when none did.
	Tier   string
	Reason string
	// TimedOut is set when at least one tier ran out of time.
	TimedOut bool
}

// Service runs listing searches and facet aggregation through the
// degradation chain, behind the result caches.
type Service struct {
	store Store
	clk   clock.Clock
	cfg   Config

	pages        Cache[Page]
	pageFlight   Flight[Page]
	facets       Cache[facet.Set]
	facetsFlight Flight[facet.Set]
}

// Deps bundles the caches and in-flight registries a Service reads through.
type Deps struct {
	Pages        Cache[Page]
	PageFlight   Flight[Page]
	Facets       Cache[facet.Set]
	FacetsFlight Flight[facet.Set]
}

// New creates a search service.
func New(store Store, deps Deps, cfg Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		store:        store,
		clk:          clk,
		cfg:          cfg,
		pages:        deps.Pages,
		pageFlight:   deps.PageFlight,
		facets:       deps.Facets,
		facetsFlight: deps.FacetsFlight,
	}
}

// Search returns one page of listings matching f. Fresh cached pages are
// served as is; otherwise at most one fetch per page runs at a time and
// its answer is cached unless every tier failed. The fetch is cancelled
// once every caller waiting on it has gone.
func (s *Service) Search(ctx context.Context, f filters.Filters) Page {
	key := f.CacheKey()
	p, err := s.pages.GetOrLoad(ctx, key, s.cfg.ResultTTL, func(ctx context.Context) (Page, error) {
		return s.pageFlight.Do(ctx, key, func(ctx context.Context) (Page, error) {
			p := s.runTiers(ctx, f)
			switch {
			case ctx.Err() != nil:
				return p, &uncached[Page]{value: emptyPage(f, ReasonCancelled), reason: ReasonCancelled}
			case p.Reason == ReasonExhausted || p.Reason == ReasonCancelled:
				return p, &uncached[Page]{value: p, reason: p.Reason}
			}
			return p, nil
		})
	})
	if err != nil {
		if p, ok := served[Page](err); ok {
			return p
		}
		return emptyPage(f, ReasonCancelled)
	}
	return p
}

func (s *Service) runTiers(ctx context.Context, f filters.Filters) Page {
	log := logger.FromContext(ctx)
	start := s.clk.Now()

	res, err := resilience.FirstSuccess(ctx, s.clk, s.tiers(f))

	timedOut := false
	for _, fail := range res.Failures {
		kind := db.KindOf(fail.Err)
		if kind == "" {
			kind = db.KindQuery
		}
		if kind == db.KindTimeout {
			timedOut = true
		}
		metrics.SearchTierFailuresTotal.WithLabelValues(fail.Tier, string(kind)).Inc()
		log.Warn("search tier failed",
			zap.String("tier", fail.Tier),
			zap.String("kind", string(kind)),
			zap.Error(fail.Err),
		)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return emptyPage(f, ReasonCancelled)
		}
		metrics.SearchDegradedTotal.WithLabelValues(ReasonExhausted).Inc()
		log.Error("search exhausted every tier",
			zap.String("filters", f.Signature()),
			zap.Int("offset", f.Offset()),
			zap.Error(err),
		)
		p := emptyPage(f, ReasonExhausted)
		p.TimedOut = timedOut
		return p
	}

	metrics.SearchTierAnswersTotal.WithLabelValues(res.Tier).Inc()
	metrics.SearchDuration.WithLabelValues(res.Tier).Observe(s.clk.Now().Sub(start).Seconds())

	p := Page{
		Items:    res.Value,
		Limit:    f.Limit(),
		Offset:   f.Offset(),
		HasMore:  len(res.Value) >= f.Limit(),
		Tier:     res.Tier,
		TimedOut: timedOut,
	}
	if res.Tier != TierRich {
		p.Degraded = true
		p.Reason = ReasonFallback
		metrics.SearchDegradedTotal.WithLabelValues(ReasonFallback).Inc()
	}
	return p
}

// tiers lists the search attempts from richest to cheapest.
func (s *Service) tiers(f filters.Filters) []resilience.Tier[[]listing.Summary] {
	minimalLimit := f.Limit()
	if s.cfg.MinimalLimit > 0 && minimalLimit > s.cfg.MinimalLimit {
		minimalLimit = s.cfg.MinimalLimit
	}
	return []resilience.Tier[[]listing.Summary]{
		{Name: TierRich, Deadline: s.cfg.RichTimeout, Attempt: s.query(db.ShapeRich, f, f.Limit())},
		{Name: TierReduced, Deadline: s.cfg.ReducedTimeout, Attempt: s.query(db.ShapeReduced, f, f.Limit())},
		{Name: TierMinimal, Deadline: s.cfg.MinimalTimeout, Attempt: s.query(db.ShapeMinimal, f, minimalLimit)},
	}
}

func (s *Service) query(shape db.Shape, f filters.Filters, limit int) resilience.Op[[]listing.Summary] {
	return func(ctx context.Context) ([]listing.Summary, error) {
		items, err := s.store.QueryListings(ctx, db.ListingQuery{
			Shape:   shape,
			Filters: f,
			Limit:   limit,
			Offset:  f.Offset(),
		})
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []listing.Summary{}
		}
		return items, nil
	}
}

func emptyPage(f filters.Filters, reason string) Page {
	return Page{
		Items:    []listing.Summary{},
		Limit:    f.Limit(),
		Offset:   f.Offset(),
		Degraded: true,
		Reason:   reason,
	}
}
