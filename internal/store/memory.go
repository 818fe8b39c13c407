package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

// MemoryStore is an in-memory JobStore used by tests and --dry-run. It
// enforces the same identity semantics as the durable stores: one row per
// content hash, one row per original URL.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]model.Posting
	reports []model.RunReport
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byID:   make(map[int64]model.Posting),
		now:    time.Now,
	}
}

var _ model.JobStore = (*MemoryStore)(nil)

// SetClock overrides the store's clock; tests use it to pin timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) UpsertByIdentity(_ context.Context, p model.Posting) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()

	// URL identity takes precedence: an existing URL under a different hash
	// means the job was edited at the source. If the edit duplicates another
	// row's content, that hash-keyed row wins instead; moving the hash onto
	// the URL row would break hash uniqueness.
	for id, row := range s.byID {
		if row.OriginalURL == p.OriginalURL {
			target, moveHash := id, true
			if row.ContentHash != p.ContentHash {
				for hid, hrow := range s.byID {
					if hid != id && hrow.ContentHash == p.ContentHash {
						target, moveHash = hid, false
						break
					}
				}
			}
			row = s.byID[target]
			s.refresh(&row, p, now, moveHash)
			s.byID[target] = row
			return false, nil
		}
	}
	for id, row := range s.byID {
		if row.ContentHash == p.ContentHash {
			s.refresh(&row, p, now, false)
			s.byID[id] = row
			return false, nil
		}
	}

	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	s.byID[p.ID] = p
	return true, nil
}

// refresh copies the mutable fields of fresh onto row. The content hash
// moves only on URL-keyed updates; hash-keyed matches already agree on it.
func (s *MemoryStore) refresh(row *model.Posting, fresh model.Posting, now time.Time, moveHash bool) {
	row.Title = fresh.Title
	row.Company = fresh.Company
	row.Categories = fresh.Categories
	row.Tags = fresh.Tags
	row.RegionLimit = fresh.RegionLimit
	row.WorkType = fresh.WorkType
	row.ApplyURL = fresh.ApplyURL
	row.Description = fresh.Description
	if fresh.DatePosted != nil {
		row.DatePosted = fresh.DatePosted
	}
	if moveHash {
		row.ContentHash = fresh.ContentHash
	}
	row.UpdatedAt = now
}

func (s *MemoryStore) FindByContentHash(_ context.Context, hash string) (model.Posting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.byID {
		if row.ContentHash == hash {
			return row, true, nil
		}
	}
	return model.Posting{}, false, nil
}

func (s *MemoryStore) FindByURL(_ context.Context, url string) (model.Posting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.byID {
		if row.OriginalURL == url {
			return row, true, nil
		}
	}
	return model.Posting{}, false, nil
}

func (s *MemoryStore) DeactivateOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, row := range s.byID {
		if row.IsActive && row.EffectiveDate().Before(cutoff) {
			row.IsActive = false
			row.UpdatedAt = s.now().UTC()
			s.byID[id] = row
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListPostings(_ context.Context, category model.Category) ([]model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Posting
	for _, row := range s.byID {
		if category != "" && !hasCategory(row, category) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasCategory(p model.Posting, c model.Category) bool {
	for _, have := range p.Categories {
		if have == c {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateCategories(_ context.Context, id int64, categories []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[id]
	if !ok {
		return nil
	}
	row.Categories = categories
	row.UpdatedAt = s.now().UTC()
	s.byID[id] = row
	return nil
}

func (s *MemoryStore) SaveReport(_ context.Context, r model.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *MemoryStore) RecentReports(_ context.Context, limit int) ([]model.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RunReport, len(s.reports))
	copy(out, s.reports)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
