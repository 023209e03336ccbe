package redis

import (
	"context"

	"github.com/kailas-cloud/agentmart/internal/db"
)

type fieldType string

const (
	fieldText    fieldType = "TEXT"
	fieldTag     fieldType = "TAG"
	fieldNumeric fieldType = "NUMERIC"
)

type indexField struct {
	name      string
	typ       fieldType
	separator string
	sortable  bool
}

// Hash field names of a listing document.
const (
	fieldID                = "id"
	fieldSlug              = "slug"
	fieldTitle             = "title"
	fieldDescription       = "description"
	fieldAuthorID          = "author_id"
	fieldAuthorUsername    = "author_username"
	fieldAuthorDisplayName = "author_display_name"
	fieldCategoryID        = "category_id"
	fieldCategorySlug      = "category_slug"
	fieldCategoryName      = "category_name"
	fieldTags              = "tags"
	fieldLanguage          = "language"
	fieldFramework         = "framework"
	fieldFeatured          = "featured"
	fieldStatus            = "status"
	fieldRatingAvg         = "rating_avg"
	fieldRatingCount       = "rating_count"
	fieldDownloads         = "downloads"
	fieldStars             = "stars"
	fieldTrending          = "trending_score"
	fieldCreatedAt         = "created_at"
	fieldUpdatedAt         = "updated_at"
)

var listingSchema = []indexField{
	{name: fieldTitle, typ: fieldText},
	{name: fieldDescription, typ: fieldText},
	{name: fieldStatus, typ: fieldTag},
	{name: fieldCategoryID, typ: fieldTag},
	{name: fieldCategorySlug, typ: fieldTag},
	{name: fieldTags, typ: fieldTag, separator: ","},
	{name: fieldLanguage, typ: fieldTag},
	{name: fieldFramework, typ: fieldTag},
	{name: fieldFeatured, typ: fieldTag},
	{name: fieldRatingAvg, typ: fieldNumeric, sortable: true},
	{name: fieldRatingCount, typ: fieldNumeric},
	{name: fieldDownloads, typ: fieldNumeric, sortable: true},
	{name: fieldStars, typ: fieldNumeric, sortable: true},
	{name: fieldTrending, typ: fieldNumeric, sortable: true},
	{name: fieldCreatedAt, typ: fieldNumeric, sortable: true},
	{name: fieldUpdatedAt, typ: fieldNumeric, sortable: true},
}

// EnsureIndex creates the listing index unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(buildCreateArgs(s.index)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return classify(db.OpCreateIndex, err)
	}
	return nil
}

// indexExists checks index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) indexExists(ctx context.Context) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(s.index).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return false, nil
		}
		return false, classify(db.OpIndexInfo, err)
	}
	return true, nil
}

func buildCreateArgs(index string) []string {
	args := []string{index, "ON", "HASH", "PREFIX", "1", ListingKeyPrefix, "SCHEMA"}
	for _, f := range listingSchema {
		args = append(args, f.name, string(f.typ))
		if f.separator != "" {
			args = append(args, "SEPARATOR", f.separator)
		}
		if f.sortable {
			args = append(args, "SORTABLE")
		}
	}
	return args
}
