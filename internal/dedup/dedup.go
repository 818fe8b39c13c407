// Package dedup decides whether a normalized posting is new, an update to a
// stored row, or a duplicate to skip.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Decision is the outcome of resolving one posting against the store.
type Decision int

const (
	New Decision = iota
	Update
	Skip
)

func (d Decision) String() string {
	switch d {
	case New:
		return "new"
	case Update:
		return "update"
	case Skip:
		return "skip"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Seen is the run-scoped set of content hashes already processed in the
// current pipeline pass. It stops one run from double-inserting near-identical
// postings fetched twice from the same or overlapping sources. Safe for
// concurrent use; each orchestrator invocation owns its own instance.
type Seen struct {
	mu sync.Mutex
	m  map[string]struct{}
}

// NewSeen returns an empty run-scoped set.
func NewSeen() *Seen {
	return &Seen{m: make(map[string]struct{})}
}

// Observe records hash and reports whether it was seen for the first time.
func (s *Seen) Observe(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.m[hash]; dup {
		return false
	}
	s.m[hash] = struct{}{}
	return true
}

// Resolve decides what to do with p. The order matters: the run-local set is
// checked first, then a URL collision under a different hash (the job was
// edited at the source) which takes precedence over the hash path, then the
// hash lookup itself.
func Resolve(ctx context.Context, p model.Posting, store model.JobStore, seen *Seen) (Decision, error) {
	if !seen.Observe(p.ContentHash) {
		return Skip, nil
	}

	byURL, found, err := store.FindByURL(ctx, p.OriginalURL)
	if err != nil {
		return Skip, fmt.Errorf("resolve %s by url: %w", p.OriginalURL, err)
	}
	if found && byURL.ContentHash != p.ContentHash {
		return Update, nil
	}

	byHash, found, err := store.FindByContentHash(ctx, p.ContentHash)
	if err != nil {
		return Skip, fmt.Errorf("resolve %s by hash: %w", p.OriginalURL, err)
	}
	if !found {
		return New, nil
	}
	if changed(byHash, p) {
		return Update, nil
	}
	return Skip, nil
}

// changed reports whether any mutable field differs between the stored row
// and the freshly scraped posting.
func changed(stored, fresh model.Posting) bool {
	if stored.Description != fresh.Description ||
		stored.RegionLimit != fresh.RegionLimit ||
		stored.WorkType != fresh.WorkType ||
		stored.ApplyURL != fresh.ApplyURL {
		return true
	}
	if len(stored.Tags) != len(fresh.Tags) {
		return true
	}
	for i := range stored.Tags {
		if stored.Tags[i] != fresh.Tags[i] {
			return true
		}
	}
	return false
}
