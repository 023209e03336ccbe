package redis

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/agentmart/internal/db"
	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/domain/search/filters"
	"github.com/kailas-cloud/agentmart/internal/domain/search/sorting"
)

const publishedFilter = "@" + fieldStatus + ":{published}"

var coreFields = []string{
	fieldID, fieldSlug, fieldTitle, fieldDescription, fieldLanguage, fieldFramework,
	fieldFeatured, fieldRatingAvg, fieldRatingCount, fieldCreatedAt,
}

var richFields = append(append([]string{}, coreFields...),
	fieldDownloads, fieldStars, fieldUpdatedAt, fieldTags,
	fieldAuthorID, fieldAuthorUsername, fieldAuthorDisplayName,
	fieldCategoryID, fieldCategorySlug, fieldCategoryName,
)

// QueryListings reads one page of listings via FT.SEARCH.
func (s *Store) QueryListings(ctx context.Context, q db.ListingQuery) ([]listing.Summary, error) {
	var query string
	var fields []string
	var sortBy []string

	switch q.Shape {
	case db.ShapeRich:
		query, fields = buildQuery(q.Filters), richFields
		sortBy = sortArgs(q.Filters)
	case db.ShapeReduced:
		query, fields = buildQuery(q.Filters), coreFields
		sortBy = sortArgs(q.Filters)
	case db.ShapeMinimal:
		query, fields = publishedFilter, coreFields
		sortBy = []string{"SORTBY", fieldCreatedAt, "DESC"}
	default:
		return nil, db.NewError(db.KindQuery, db.OpQueryListings, "unknown shape "+q.Shape.String(), nil)
	}

	args := []string{s.index, query}
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	args = append(args, fields...)
	args = append(args, sortBy...)
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, classify(db.OpSearch, err)
	}

	docs := parseListResult(raw)
	out := make([]listing.Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, toSummary(d, q.Shape == db.ShapeRich))
	}
	return out, nil
}

var sampleFields = map[string]string{
	db.TableListings + "." + db.ColumnCategory:  fieldCategorySlug,
	db.TableListings + "." + db.ColumnLanguage:  fieldLanguage,
	db.TableListings + "." + db.ColumnFramework: fieldFramework,
	db.TableListingTags + "." + db.ColumnTag:    fieldTags,
}

// SampleColumn reads the field backing table.column from at most q.Limit
// documents. Multi-valued tag fields are split and the result is capped
// at q.Limit values.
func (s *Store) SampleColumn(ctx context.Context, q db.SampleQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, db.NewError(db.KindQuery, db.OpSampleColumn, err.Error(), nil)
	}
	field := sampleFields[q.Table+"."+q.Column]

	query := "*"
	if q.Predicate == db.PredicatePublished {
		query = publishedFilter
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		s.index, query,
		"RETURN", "1", field,
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, classify(db.OpSampleColumn, err)
	}

	out := make([]string, 0, q.Limit)
	for _, d := range parseListResult(raw) {
		for _, v := range strings.Split(d[field], ",") {
			if v = strings.TrimSpace(v); v != "" && len(out) < q.Limit {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// --- Query building ---

func buildQuery(f filters.Filters) string {
	parts := []string{publishedFilter}

	if f.HasQuery() {
		parts = append(parts, "@"+fieldTitle+"|"+fieldDescription+":("+escapeQuery(f.Query())+")")
	}
	if cat := f.Category(); cat != "" {
		parts = append(parts, "("+buildTagFilter(fieldCategorySlug, cat)+" | "+buildTagFilter(fieldCategoryID, cat)+")")
	}
	if tags := f.Tags(); len(tags) > 0 {
		escaped := make([]string, len(tags))
		for i, t := range tags {
			escaped[i] = tagEscaper.Replace(t)
		}
		parts = append(parts, "@"+fieldTags+":{"+strings.Join(escaped, " | ")+"}")
	}
	if lang := f.Language(); lang != "" {
		parts = append(parts, buildTagFilter(fieldLanguage, lang))
	}
	if fw := f.Framework(); fw != "" {
		parts = append(parts, buildTagFilter(fieldFramework, fw))
	}
	if featured := f.Featured(); featured != nil {
		parts = append(parts, buildTagFilter(fieldFeatured, boolFlag(*featured)))
	}

	return strings.Join(parts, " ")
}

// sortArgs maps the ordering onto a single SORTBY. Relevance with a text
// query keeps the engine's scoring order.
func sortArgs(f filters.Filters) []string {
	var field string
	switch f.SortBy() {
	case sorting.Newest:
		field = fieldCreatedAt
	case sorting.Updated:
		field = fieldUpdatedAt
	case sorting.Rating:
		field = fieldRatingAvg
	case sorting.Downloads:
		field = fieldDownloads
	case sorting.Trending:
		field = fieldTrending
	default:
		if f.HasQuery() {
			return nil
		}
		field = fieldStars
	}
	return []string{"SORTBY", field, "DESC"}
}

func buildTagFilter(key, value string) string {
	return "@" + key + ":{" + tagEscaper.Replace(value) + "}"
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// --- Result parsing ---

// parseListResult decodes [total, key1, fields1, key2, fields2, ...].
func parseListResult(raw []rueidis.RedisMessage) []map[string]string {
	if len(raw) < 2 {
		return nil
	}
	docs := make([]map[string]string, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		docs = append(docs, parseFieldPairs(fields))
	}
	return docs
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func toSummary(m map[string]string, rich bool) listing.Summary {
	item := listing.Summary{
		ID:          m[fieldID],
		Slug:        m[fieldSlug],
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		Language:    m[fieldLanguage],
		Framework:   m[fieldFramework],
		Featured:    m[fieldFeatured] == "1",
		Rating: listing.Rating{
			Average: parseFloat(m[fieldRatingAvg]),
			Count:   int(parseInt(m[fieldRatingCount])),
		},
		CreatedAt: parseUnix(m[fieldCreatedAt]),
	}
	if !rich {
		return item
	}

	item.Downloads = parseInt(m[fieldDownloads])
	item.Stars = parseInt(m[fieldStars])
	item.UpdatedAt = parseUnix(m[fieldUpdatedAt])
	if tags := m[fieldTags]; tags != "" {
		item.Tags = strings.Split(tags, ",")
	}
	if id := m[fieldAuthorID]; id != "" {
		item.Author = &listing.AuthorRef{
			ID:          id,
			Username:    m[fieldAuthorUsername],
			DisplayName: m[fieldAuthorDisplayName],
		}
	}
	if id := m[fieldCategoryID]; id != "" {
		item.Category = &listing.CategoryRef{
			ID:   id,
			Slug: m[fieldCategorySlug],
			Name: m[fieldCategoryName],
		}
	}
	return item
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseUnix(s string) time.Time {
	sec := parseInt(s)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
