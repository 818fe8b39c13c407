// Package filter narrows which postings are worth announcing. The store keeps
// everything; notifications only carry what the operator asked for.
package filter

import (
	"strings"

	"github.com/yulin-dev/jobsift/internal/model"
)

// PostingFilter matches postings whose title contains any of the title
// keywords and which carry any of the wanted categories. Matching is
// case-insensitive. Empty keyword lists are treated as "match all".
type PostingFilter struct {
	titleKeywords []string
	categories    map[model.Category]struct{}
}

// New returns a filter that requires both a title keyword match and a
// category match (case-insensitive substring for titles, exact for
// categories). Empty lists pass everything.
func New(titleKeywords []string, categories []model.Category) *PostingFilter {
	catSet := make(map[model.Category]struct{}, len(categories))
	for _, c := range categories {
		catSet[c] = struct{}{}
	}
	return &PostingFilter{
		titleKeywords: titleKeywords,
		categories:    catSet,
	}
}

// Match reports whether the posting passes both the title and the category
// checks.
func (f *PostingFilter) Match(p model.Posting) bool {
	if len(f.titleKeywords) > 0 {
		titleLower := strings.ToLower(p.Title)
		matched := false
		for _, kw := range f.titleKeywords {
			if strings.Contains(titleLower, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.categories) > 0 {
		matched := false
		for _, c := range p.Categories {
			if _, ok := f.categories[c]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the postings that pass the filter, preserving order.
func (f *PostingFilter) Apply(postings []model.Posting) []model.Posting {
	var out []model.Posting
	for _, p := range postings {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
