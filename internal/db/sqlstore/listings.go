package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/domain/search/sorting"
)

const statusPublished = "published"

const coreColumns = `l.id, l.slug, l.title, l.description, l.language, l.framework, l.featured,
	l.rating_avg, l.rating_count, l.created_at`

const richColumns = coreColumns + `, l.downloads, l.stars, l.updated_at,
	a.id, a.username, a.display_name, c.id, c.slug, c.name`

// QueryListings reads one page of listings in the requested shape.
func (s *Store) QueryListings(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	switch q.Shape {
	case db.ShapeRich:
		return s.queryRich(ctx, q)
	case db.ShapeReduced:
		return s.queryReduced(ctx, q)
	case db.ShapeMinimal:
		return s.queryMinimal(ctx, q)
	default:
		return nil, db.NewError(db.KindQuery, db.OpQueryListings, "unknown shape "+q.Shape.String(), nil)
	}
}

func (s *Store) queryRich(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	a := &args{d: s.d}
	where, matchPh := s.buildWhere(a, q.Filters, true)

	query := `SELECT ` + richColumns + `
	FROM listings l
	JOIN authors a ON a.id = l.author_id
	LEFT JOIN categories c ON c.id = l.category_id
	WHERE ` + where + `
	ORDER BY ` + orderBy(q.Filters.SortBy(), s.d, matchPh) + `
	LIMIT ` + a.add(q.Limit) + ` OFFSET ` + a.add(q.Offset)

	rows, err := s.db.QueryContext(ctx, query, a.vals...)
	if err != nil {
		return nil, s.d.classify(db.OpQueryListings, err)
	}

	var out []listing.Summary
	for rows.Next() {
		var (
			item                    listing.Summary
			author                  listing.AuthorRef
			catID, catSlug, catName sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.Slug, &item.Title, &item.Description, &item.Language, &item.Framework, &item.Featured,
			&item.Rating.Average, &item.Rating.Count, &item.CreatedAt,
			&item.Downloads, &item.Stars, &item.UpdatedAt,
			&author.ID, &author.Username, &author.DisplayName,
			&catID, &catSlug, &catName,
		); err != nil {
			_ = rows.Close()
			return nil, s.d.classify(db.OpQueryListings, err)
		}
		item.Author = &author
		if catID.Valid {
			item.Category = &listing.CategoryRef{ID: catID.String, Slug: catSlug.String, Name: catName.String}
		}
		out = append(out, item)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.d.classify(db.OpQueryListings, err)
	}

	if err := s.attachTags(ctx, out); err != nil {
		return nil, err
	}
	return emptyIfNil(out), nil
}

func (s *Store) queryReduced(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	a := &args{d: s.d}
	where, matchPh := s.buildWhere(a, q.Filters, false)

	query := `SELECT ` + coreColumns + `
	FROM listings l
	WHERE ` + where + `
	ORDER BY ` + orderBy(q.Filters.SortBy(), s.d, matchPh) + `
	LIMIT ` + a.add(q.Limit) + ` OFFSET ` + a.add(q.Offset)

	return s.scanCore(ctx, query, a.vals)
}

func (s *Store) queryMinimal(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	a := &args{d: s.d}
	query := `SELECT ` + coreColumns + `
	FROM listings l
	WHERE l.status = ` + a.add(statusPublished) + `
	ORDER BY l.created_at DESC, l.id ASC
	LIMIT ` + a.add(q.Limit) + ` OFFSET ` + a.add(q.Offset)

	return s.scanCore(ctx, query, a.vals)
}

func (s *Store) scanCore(ctx context.Context, query string, vals []any) ([]listing.Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, vals...)
	if err != nil {
		return nil, s.d.classify(db.OpQueryListings, err)
	}

	var out []listing.Summary
	for rows.Next() {
		var item listing.Summary
		if err := rows.Scan(
			&item.ID, &item.Slug, &item.Title, &item.Description, &item.Language, &item.Framework, &item.Featured,
			&item.Rating.Average, &item.Rating.Count, &item.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, s.d.classify(db.OpQueryListings, err)
		}
		out = append(out, item)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.d.classify(db.OpQueryListings, err)
	}
	return emptyIfNil(out), nil
}

// buildWhere renders the filter set. joined reports whether the categories
// table is available as c. It returns the placeholder bound to the escaped
// text query, or "" when there is none.
func (s *Store) buildWhere(a *args, f filters.Filters, joined bool) (string, string) {
	clauses := []string{"l.status = " + a.add(statusPublished)}

	var matchPh string
	if f.HasQuery() {
		matchPh = a.add(escapeLike(f.Query()))
		clauses = append(clauses, "("+s.d.contains("l.title", matchPh)+" OR "+s.d.contains("l.description", matchPh)+")")
	}

	if cat := f.Category(); cat != "" {
		ph := a.add(cat)
		if joined {
			clauses = append(clauses, fmt.Sprintf("(l.category_id = %s OR c.slug = %s)", ph, ph))
		} else {
			clauses = append(clauses,
				fmt.Sprintf("(l.category_id = %s OR l.category_id IN (SELECT id FROM categories WHERE slug = %s))", ph, ph))
		}
	}

	if tags := f.Tags(); len(tags) > 0 {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM listing_tags t WHERE t.listing_id = l.id AND "+s.d.anyOf("t.tag", a, tags)+")")
	}

	if lang := f.Language(); lang != "" {
		clauses = append(clauses, "LOWER(l.language) = "+a.add(lang))
	}
	if fw := f.Framework(); fw != "" {
		clauses = append(clauses, "LOWER(l.framework) = "+a.add(fw))
	}
	if featured := f.Featured(); featured != nil {
		clauses = append(clauses, "l.featured = "+a.add(*featured))
	}

	return strings.Join(clauses, " AND "), matchPh
}

// orderBy always ends with l.id so that pages are stable.
func orderBy(o sorting.Order, d dialect, matchPh string) string {
	switch o {
	case sorting.Newest:
		return "l.created_at DESC, l.id ASC"
	case sorting.Updated:
		return "l.updated_at DESC, l.id ASC"
	case sorting.Rating:
		return "l.rating_avg DESC, l.rating_count DESC, l.id ASC"
	case sorting.Downloads:
		return "l.downloads DESC, l.id ASC"
	case sorting.Trending:
		return "l.trending_score DESC, l.id ASC"
	default:
		if matchPh != "" {
			return "CASE WHEN " + d.contains("l.title", matchPh) + " THEN 0 ELSE 1 END, " +
				"l.featured DESC, l.stars DESC, l.id ASC"
		}
		return "l.featured DESC, l.stars DESC, l.id ASC"
	}
}

// attachTags loads tags for a page of listings in one round-trip.
func (s *Store) attachTags(ctx context.Context, items []listing.Summary) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	index := make(map[string]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
	}

	a := &args{d: s.d}
	query := `SELECT listing_id, tag FROM listing_tags WHERE ` + s.d.anyOf("listing_id", a, ids) + ` ORDER BY tag`
	rows, err := s.db.QueryContext(ctx, query, a.vals...)
	if err != nil {
		return s.d.classify(db.OpLoadTags, err)
	}
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			_ = rows.Close()
			return s.d.classify(db.OpLoadTags, err)
		}
		if i, ok := index[id]; ok {
			items[i].Tags = append(items[i].Tags, tag)
		}
	}
	if err := closeRows(rows); err != nil {
		return s.d.classify(db.OpLoadTags, err)
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

func emptyIfNil(items []listing.Summary) []listing.Summary {
	if items == nil {
		return []listing.Summary{}
	}
	return items
}
