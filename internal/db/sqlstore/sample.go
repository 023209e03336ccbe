package sqlstore

import (
	"context"

	"github.com/kailas-cloud/agentmart/internal/db"
)

// SampleColumn reads at most q.Limit raw values of a whitelisted column.
func (s *Store) SampleColumn(ctx context.Context, q db.SampleQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, db.NewError(db.KindQuery, db.OpSampleColumn, err.Error(), nil)
	}

	a := &args{d: s.d}
	query := sampleStatement(a, q)

	rows, err := s.db.QueryContext(ctx, query, a.vals...)
	if err != nil {
		return nil, s.d.classify(db.OpSampleColumn, err)
	}

	out := make([]string, 0, q.Limit)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return nil, s.d.classify(db.OpSampleColumn, err)
		}
		out = append(out, v)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.d.classify(db.OpSampleColumn, err)
	}
	return out, nil
}

// sampleStatement renders the bounded read for a validated query. Only
// whitelisted identifiers reach the SQL text.
func sampleStatement(a *args, q db.SampleQuery) string {
	var query string
	published := ""

	switch q.Table + "." + q.Column {
	case db.TableListings + "." + db.ColumnCategory:
		query = `SELECT c.slug FROM listings l JOIN categories c ON c.id = l.category_id WHERE 1 = 1`
	case db.TableListings + "." + db.ColumnLanguage:
		query = `SELECT l.language FROM listings l WHERE l.language <> ''`
	case db.TableListings + "." + db.ColumnFramework:
		query = `SELECT l.framework FROM listings l WHERE l.framework <> ''`
	case db.TableListingTags + "." + db.ColumnTag:
		query = `SELECT t.tag FROM listing_tags t JOIN listings l ON l.id = t.listing_id WHERE 1 = 1`
	}

	if q.Predicate == db.PredicatePublished {
		published = ` AND l.status = ` + a.add(statusPublished)
	}
	return query + published + ` LIMIT ` + a.add(q.Limit)
}
