// Package freshness deactivates postings that have aged out of the feed.
package freshness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Sweeper flags postings as inactive once their effective date falls behind
// the staleness window. Deactivation is a soft delete: rows stay queryable
// for dedup so a stale posting that reappears is an Update, not a New.
type Sweeper struct {
	store  model.JobStore
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a Sweeper with the given staleness window in days.
func NewSweeper(store model.JobStore, stalenessDays int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		maxAge: time.Duration(stalenessDays) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep deactivates every active posting older than the window and returns
// the number of postings deactivated.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.maxAge)

	n, err := s.store.DeactivateOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("freshness sweep: %w", err)
	}

	if n > 0 {
		s.logger.Info("deactivated stale postings", "count", n, "cutoff", cutoff)
	} else {
		s.logger.Debug("no stale postings found", "cutoff", cutoff)
	}
	return n, nil
}
