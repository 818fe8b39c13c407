package model

import (
	"context"
	"time"
)

// SourceAdapter turns one remote site into a sequence of raw postings.
// Fetch must respect ctx and must not retry internally; retry policy belongs
// to the orchestrator. A fetch may return a partial slice alongside a non-nil
// error (partial success); a fatal error returns an empty slice.
type SourceAdapter interface {
	// Name identifies the source site, e.g. "remoteok".
	Name() string
	// MinDelay is the minimum gap the orchestrator's rate limiter must leave
	// between consecutive requests to this source.
	MinDelay() time.Duration
	Fetch(ctx context.Context) ([]RawPosting, error)
}

// JobStore persists canonical postings and run reports. Implementations must
// uphold the uniqueness invariants: one row per ContentHash, one row per
// OriginalURL, across active and inactive postings alike.
type JobStore interface {
	// UpsertByIdentity inserts p or refreshes the existing row it collides
	// with. A URL match under a different content hash updates that row in
	// place (the job was edited at the source); a hash match refreshes the
	// mutable fields and bumps UpdatedAt. Returns whether a new row was
	// created.
	UpsertByIdentity(ctx context.Context, p Posting) (bool, error)
	FindByContentHash(ctx context.Context, hash string) (Posting, bool, error)
	FindByURL(ctx context.Context, url string) (Posting, bool, error)
	// DeactivateOlderThan marks active postings whose effective date is
	// before cutoff as inactive and returns how many rows changed.
	DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// ListPostings returns stored postings, optionally restricted to those
	// carrying the given category. Empty category means all.
	ListPostings(ctx context.Context, category Category) ([]Posting, error)
	UpdateCategories(ctx context.Context, id int64, categories []Category) error

	SaveReport(ctx context.Context, r RunReport) error
	RecentReports(ctx context.Context, limit int) ([]RunReport, error)
}

// Notifier announces postings that entered the store during a run. Delivery
// is best effort; a notifier must not fail the run over individual messages.
type Notifier interface {
	Notify(ctx context.Context, postings []Posting) error
}

// Classifier assigns 1..3 categories to a posting's text. Implementations
// must degrade rather than fail: a classification backend being down yields
// the reserved "other" category, not an error. The returned error is
// reserved for context cancellation.
type Classifier interface {
	Classify(ctx context.Context, title, description string) ([]Category, error)
}
