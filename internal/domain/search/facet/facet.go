// Package facet defines facet dimensions, their counts and the static
// fallback lists served when a dimension cannot be sampled.
package facet

import (
	"cmp"
	"slices"
)

// Dimension is a filterable listing attribute with per-value counts.
type Dimension string

const (
	Categories Dimension = "categories"
	Languages  Dimension = "languages"
	Frameworks Dimension = "frameworks"
	Tags       Dimension = "tags"
)

// Dimensions lists every dimension in display order.
var Dimensions = []Dimension{Categories, Languages, Frameworks, Tags}

// Count is one facet value with its approximate count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Set is a snapshot of every facet dimension. Counts come from a bounded
// sample and are approximate.
type Set struct {
	Categories []Count `json:"categories"`
	Languages  []Count `json:"languages"`
	Frameworks []Count `json:"frameworks"`
	Tags       []Count `json:"tags"`

	// Fallback lists the dimensions served from static fallbacks.
	Fallback []Dimension `json:"-"`
}

// Get returns the counts for d.
func (s Set) Get(d Dimension) []Count {
	switch d {
	case Categories:
		return s.Categories
	case Languages:
		return s.Languages
	case Frameworks:
		return s.Frameworks
	case Tags:
		return s.Tags
	default:
		return nil
	}
}

// Put stores counts for d.
func (s *Set) Put(d Dimension, counts []Count) {
	switch d {
	case Categories:
		s.Categories = counts
	case Languages:
		s.Languages = counts
	case Frameworks:
		s.Frameworks = counts
	case Tags:
		s.Tags = counts
	}
}

// AllFallback reports whether no dimension carries live data.
func (s Set) AllFallback() bool {
	return len(s.Fallback) == len(Dimensions)
}

var fallbackNames = map[Dimension][]string{
	Categories: {"automation", "chatbots", "coding", "data-analysis", "research", "productivity"},
	Languages:  {"python", "typescript", "javascript", "go", "rust"},
	Frameworks: {"langchain", "llamaindex", "autogen", "crewai", "openai-agents"},
	Tags:       {"ai", "llm", "agent", "automation", "chatbot"},
}

// Fallback returns the hand-curated values for d with zero counts.
func Fallback(d Dimension) []Count {
	names := fallbackNames[d]
	out := make([]Count, len(names))
	for i, n := range names {
		out[i] = Count{Name: n}
	}
	return out
}

// FallbackSet returns a Set made only of static fallbacks.
func FallbackSet() Set {
	var s Set
	for _, d := range Dimensions {
		s.Put(d, Fallback(d))
	}
	s.Fallback = slices.Clone(Dimensions)
	return s
}

// Tally counts sampled values, highest count first, ties by name, keeping
// at most limit entries (all when limit <= 0). Empty values are ignored.
func Tally(values []string, limit int) []Count {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}

	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
