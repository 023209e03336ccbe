package chi

import (
	"time"

	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/facet"
	searchuc "github.com/kailas-cloud/agentmart/internal/usecase/search"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

func pageToAPI(p searchuc.Page) api.SearchResponse {
	items := make([]api.Listing, len(p.Items))
	for i := range p.Items {
		items[i] = listingToAPI(&p.Items[i])
	}
	return api.SearchResponse{
		Items:    items,
		Count:    len(items),
		Limit:    p.Limit,
		Offset:   p.Offset,
		HasMore:  p.HasMore,
		Degraded: p.Degraded,
		Tier:     p.Tier,
		Reason:   p.Reason,
		TimedOut: p.TimedOut,
	}
}

func listingToAPI(s *listing.Summary) api.Listing {
	out := api.Listing{
		ID:          s.ID,
		Slug:        s.Slug,
		Title:       s.Title,
		Description: s.Description,
		Tags:        s.Tags,
		Language:    s.Language,
		Framework:   s.Framework,
		Featured:    s.Featured,
		Downloads:   s.Downloads,
		Stars:       s.Stars,
		CreatedAt:   timePtr(s.CreatedAt),
		UpdatedAt:   timePtr(s.UpdatedAt),
	}
	if s.Author != nil {
		out.Author = &api.Author{
			ID:          s.Author.ID,
			Username:    s.Author.Username,
			DisplayName: s.Author.DisplayName,
		}
	}
	if s.Category != nil {
		out.Category = &api.Category{
			ID:   s.Category.ID,
			Slug: s.Category.Slug,
			Name: s.Category.Name,
		}
	}
	if s.Rating.Count > 0 {
		out.Rating = &api.Rating{Average: s.Rating.Average, Count: s.Rating.Count}
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func facetsToAPI(set facet.Set) api.FacetsResponse {
	out := api.FacetsResponse{
		Categories: countsToAPI(set.Categories),
		Languages:  countsToAPI(set.Languages),
		Frameworks: countsToAPI(set.Frameworks),
		Tags:       countsToAPI(set.Tags),
	}
	for _, d := range set.Fallback {
		out.Fallback = append(out.Fallback, string(d))
	}
	return out
}

func countsToAPI(counts []facet.Count) []api.FacetCount {
	out := make([]api.FacetCount, len(counts))
	for i, c := range counts {
		out[i] = api.FacetCount{Name: c.Name, Count: c.Count}
	}
	return out
}
