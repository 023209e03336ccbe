package main

import (
	"context"

	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/session"
	"github.com/kailas-cloud/agentmart/pkg/api"
	"github.com/kailas-cloud/agentmart/pkg/client"
)

// searcher is the part of *client.Client the session needs.
type searcher interface {
	Search(ctx context.Context, p client.SearchParams) (*api.SearchResponse, error)
}

// newFetcher adapts the API client to a session fetcher.
func newFetcher(c searcher) session.FetchFunc {
	return func(ctx context.Context, f filters.Filters) (session.Result, error) {
		resp, err := c.Search(ctx, paramsFor(f))
		if err != nil {
			return session.Result{}, err
		}
		items := make([]listing.Summary, len(resp.Items))
		for i := range resp.Items {
			items[i] = summaryFromAPI(&resp.Items[i])
		}
		return session.Result{
			Items:    items,
			Degraded: resp.Degraded,
			TimedOut: resp.TimedOut,
		}, nil
	}
}

func paramsFor(f filters.Filters) client.SearchParams {
	return client.SearchParams{
		Query:     f.Query(),
		Category:  f.Category(),
		Tags:      f.Tags(),
		Language:  f.Language(),
		Framework: f.Framework(),
		Featured:  f.Featured(),
		Sort:      string(f.SortBy()),
		Limit:     f.Limit(),
		Offset:    f.Offset(),
	}
}

func summaryFromAPI(l *api.Listing) listing.Summary {
	s := listing.Summary{
		ID:          l.ID,
		Slug:        l.Slug,
		Title:       l.Title,
		Description: l.Description,
		Tags:        l.Tags,
		Language:    l.Language,
		Framework:   l.Framework,
		Featured:    l.Featured,
		Downloads:   l.Downloads,
		Stars:       l.Stars,
	}
	if l.Author != nil {
		s.Author = &listing.AuthorRef{ID: l.Author.ID, Username: l.Author.Username, DisplayName: l.Author.DisplayName}
	}
	if l.Category != nil {
		s.Category = &listing.CategoryRef{ID: l.Category.ID, Slug: l.Category.Slug, Name: l.Category.Name}
	}
	if l.Rating != nil {
		s.Rating = listing.Rating{Average: l.Rating.Average, Count: l.Rating.Count}
	}
	if l.CreatedAt != nil {
		s.CreatedAt = *l.CreatedAt
	}
	if l.UpdatedAt != nil {
		s.UpdatedAt = *l.UpdatedAt
	}
	return s
}
