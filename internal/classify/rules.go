package classify

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/yulin-dev/jobsift/internal/model"
)

// RuleEngine applies the deterministic correction layer that runs after every
// classification attempt, whichever backend produced it. It matches the fixed
// keyword tables against the posting text in a single Aho-Corasick pass.
type RuleEngine struct {
	matcher *ahocorasick.Matcher
	entries []ruleEntry // parallel to the matcher's keyword list
}

type ruleEntry struct {
	keyword  string
	category model.Category
	strong   bool
}

// NewRuleEngine builds the automaton from the trigger and strong keyword
// tables. The engine is immutable after construction and safe for concurrent
// use.
func NewRuleEngine() *RuleEngine {
	type key struct {
		kw  string
		cat model.Category
	}
	merged := make(map[key]bool)
	for cat, kws := range triggerKeywords {
		for _, kw := range kws {
			merged[key{strings.ToLower(kw), cat}] = false
		}
	}
	for cat, kws := range strongKeywords {
		for _, kw := range kws {
			merged[key{strings.ToLower(kw), cat}] = true
		}
	}

	entries := make([]ruleEntry, 0, len(merged))
	for k, strong := range merged {
		entries = append(entries, ruleEntry{keyword: k.kw, category: k.cat, strong: strong})
	}
	// Stable automaton layout so matches index the same entries every run.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].keyword != entries[j].keyword {
			return entries[i].keyword < entries[j].keyword
		}
		return entries[i].category < entries[j].category
	})

	keywords := make([]string, len(entries))
	for i, e := range entries {
		keywords[i] = e.keyword
	}

	return &RuleEngine{
		matcher: ahocorasick.NewStringMatcher(keywords),
		entries: entries,
	}
}

// Enforce corrects a proposed category set against the posting text:
// proposed categories without a single trigger hit are suppressed, categories
// with a strong keyword hit are force-added, the result is clamped to
// MaxCategories preferring the most keyword hits, and an empty result falls
// back to the reserved "other" category. Pure: same inputs, same output.
func (e *RuleEngine) Enforce(proposed []model.Category, title, description string) []model.Category {
	counts, strong := e.match(title, description)

	var kept []model.Category
	have := make(map[model.Category]bool)
	for _, c := range proposed {
		if _, valid := model.ParseCategory(string(c)); !valid || have[c] {
			continue
		}
		if counts[c] == 0 {
			continue // suppressed: the model asserted a category the text never mentions
		}
		have[c] = true
		kept = append(kept, c)
	}

	// Force-add in the canonical order so the outcome is deterministic.
	for _, c := range model.AllCategories {
		if strong[c] && !have[c] {
			have[c] = true
			kept = append(kept, c)
		}
	}

	if len(kept) > model.MaxCategories {
		rank := make(map[model.Category]int, len(model.AllCategories))
		for i, c := range model.AllCategories {
			rank[c] = i
		}
		sort.SliceStable(kept, func(i, j int) bool {
			if counts[kept[i]] != counts[kept[j]] {
				return counts[kept[i]] > counts[kept[j]]
			}
			return rank[kept[i]] < rank[kept[j]]
		})
		kept = kept[:model.MaxCategories]
	}

	if len(kept) == 0 {
		return []model.Category{model.CategoryOther}
	}
	return kept
}

// Suggest proposes categories from trigger hits alone, most hits first. It
// backs keyword-only classification when no model produced a proposal; the
// result still goes through Enforce like any other.
func (e *RuleEngine) Suggest(title, description string) []model.Category {
	counts, _ := e.match(title, description)
	if len(counts) == 0 {
		return nil
	}

	rank := make(map[model.Category]int, len(model.AllCategories))
	var out []model.Category
	for i, c := range model.AllCategories {
		rank[c] = i
		if counts[c] > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return rank[out[i]] < rank[out[j]]
	})
	if len(out) > model.MaxCategories {
		out = out[:model.MaxCategories]
	}
	return out
}

// match runs the automaton over the folded posting text: per-category
// distinct keyword hits plus whether a strong keyword fired.
func (e *RuleEngine) match(title, description string) (map[model.Category]int, map[model.Category]bool) {
	text := " " + strings.ToLower(strings.Join(strings.Fields(title+" "+description), " ")) + " "

	counts := make(map[model.Category]int)
	strong := make(map[model.Category]bool)
	for _, idx := range e.matcher.Match([]byte(text)) {
		if idx < 0 || idx >= len(e.entries) {
			continue
		}
		entry := e.entries[idx]
		counts[entry.category]++
		if entry.strong {
			strong[entry.category] = true
		}
	}
	return counts, strong
}
