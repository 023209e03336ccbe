// Package filters holds the immutable search filter value and its stable
// serializations used for cache keys and page continuation.
package filters

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/agentmart/internal/domain"
	"github.com/kailas-cloud/agentmart/internal/domain/search/sorting"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in runes.
	MaxQueryLength = 256
	MaxTags        = 10
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Keys accepted by With.
const (
	KeyQuery     = "q"
	KeyCategory  = "category"
	KeyTags      = "tags"
	KeyLanguage  = "language"
	KeyFramework = "framework"
	KeyFeatured  = "featured"
	KeySort      = "sort"
	KeyLimit     = "limit"
)

// Params is the raw, unvalidated input to New.
type Params struct {
	Query     string
	Category  string
	Tags      []string
	Language  string
	Framework string
	Featured  *bool
	SortBy    sorting.Order
	Limit     int
	Offset    int
}

// Filters is a validated search request. It is a value: every modifier
// returns a copy and the tag slice is never shared with callers.
type Filters struct {
	query     string
	category  string
	tags      []string
	language  string
	framework string
	featured  *bool
	sortBy    sorting.Order
	limit     int
	offset    int
}

// New validates and normalizes search parameters.
// Defaults: sort=relevance, limit=20. Limit is clamped to MaxLimit.
// Tags are lower-cased, de-duplicated and sorted.
func New(p Params) (Filters, error) {
	query := strings.TrimSpace(p.Query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Filters{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidFilters, MaxQueryLength)
	}

	tags := normalizeTags(p.Tags)
	if len(tags) > MaxTags {
		return Filters{}, fmt.Errorf("%w: too many tags (max %d)", domain.ErrInvalidFilters, MaxTags)
	}

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = sorting.Relevance
	}
	if !sortBy.IsValid() {
		return Filters{}, fmt.Errorf("%w: invalid sort %q", domain.ErrInvalidFilters, sortBy)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if p.Offset < 0 {
		return Filters{}, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidFilters)
	}

	var featured *bool
	if p.Featured != nil {
		v := *p.Featured
		featured = &v
	}

	return Filters{
		query:     query,
		category:  strings.TrimSpace(p.Category),
		tags:      tags,
		language:  strings.ToLower(strings.TrimSpace(p.Language)),
		framework: strings.ToLower(strings.TrimSpace(p.Framework)),
		featured:  featured,
		sortBy:    sortBy,
		limit:     limit,
		offset:    p.Offset,
	}, nil
}

// Default returns an empty search with default sort and limit.
func Default() Filters {
	f, _ := New(Params{})
	return f
}

func normalizeTags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		// Tags travel comma-joined, so a comma always separates two tags.
		for t := range strings.SplitSeq(raw, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				out = append(out, t)
			}
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Query returns the free-text query.
func (f Filters) Query() string { return f.query }

// Category returns the category id or slug filter.
func (f Filters) Category() string { return f.category }

// Tags returns a copy of the normalized tag set.
func (f Filters) Tags() []string { return slices.Clone(f.tags) }

// Language returns the implementation language filter.
func (f Filters) Language() string { return f.language }

// Framework returns the agent framework filter.
func (f Filters) Framework() string { return f.framework }

// Featured returns the featured filter; nil means "either".
func (f Filters) Featured() *bool {
	if f.featured == nil {
		return nil
	}
	v := *f.featured
	return &v
}

// SortBy returns the requested ordering.
func (f Filters) SortBy() sorting.Order { return f.sortBy }

// Limit returns the page size.
func (f Filters) Limit() int { return f.limit }

// Offset returns the page offset.
func (f Filters) Offset() int { return f.offset }

// HasQuery reports whether a free-text query is present.
func (f Filters) HasQuery() bool { return f.query != "" }

// Params returns the filters as raw parameters.
func (f Filters) Params() Params {
	return Params{
		Query:     f.query,
		Category:  f.category,
		Tags:      f.Tags(),
		Language:  f.language,
		Framework: f.framework,
		Featured:  f.Featured(),
		SortBy:    f.sortBy,
		Limit:     f.limit,
		Offset:    f.offset,
	}
}

// Signature identifies the search independent of the page: two filters
// with equal signatures differ at most in offset.
func (f Filters) Signature() string {
	return f.values().Encode()
}

// CacheKey identifies one page of one search.
func (f Filters) CacheKey() string {
	v := f.values()
	v.Set("offset", strconv.Itoa(f.offset))
	return v.Encode()
}

// values encodes every field but offset. url.Values.Encode sorts keys,
// so the result does not depend on construction order.
func (f Filters) values() url.Values {
	v := url.Values{}
	v.Set(KeyQuery, f.query)
	v.Set(KeyCategory, f.category)
	v.Set(KeyTags, strings.Join(f.tags, ","))
	v.Set(KeyLanguage, f.language)
	v.Set(KeyFramework, f.framework)
	switch {
	case f.featured == nil:
		v.Set(KeyFeatured, "")
	case *f.featured:
		v.Set(KeyFeatured, "true")
	default:
		v.Set(KeyFeatured, "false")
	}
	v.Set(KeySort, string(f.sortBy))
	v.Set(KeyLimit, strconv.Itoa(f.limit))
	return v
}

// WithQuery returns a copy with a new query, starting from the first page.
func (f Filters) WithQuery(q string) (Filters, error) {
	p := f.Params()
	p.Query = q
	p.Offset = 0
	return New(p)
}

// WithOffset returns a copy pointing at another page of the same search.
func (f Filters) WithOffset(offset int) Filters {
	if offset < 0 {
		offset = 0
	}
	out := f
	out.tags = slices.Clone(f.tags)
	out.offset = offset
	return out
}

// With returns a copy with one filter changed by key, starting from the
// first page. An empty value clears the filter. Tags are comma separated.
func (f Filters) With(key, value string) (Filters, error) {
	p := f.Params()
	p.Offset = 0
	value = strings.TrimSpace(value)

	switch key {
	case KeyQuery, "query":
		p.Query = value
	case KeyCategory:
		p.Category = value
	case KeyTags, "tag":
		p.Tags = nil
		if value != "" {
			p.Tags = strings.Split(value, ",")
		}
	case KeyLanguage:
		p.Language = value
	case KeyFramework:
		p.Framework = value
	case KeyFeatured:
		p.Featured = nil
		if value != "" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Filters{}, fmt.Errorf("%w: featured must be a boolean", domain.ErrInvalidFilters)
			}
			p.Featured = &b
		}
	case KeySort:
		p.SortBy = sorting.Order(value)
	case KeyLimit:
		p.Limit = 0
		if value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return Filters{}, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalidFilters)
			}
			p.Limit = n
		}
	default:
		return Filters{}, fmt.Errorf("%w: unknown filter %q", domain.ErrInvalidFilters, key)
	}
	return New(p)
}
