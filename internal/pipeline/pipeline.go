// Package pipeline orchestrates one ingestion run: fetch every enabled
// source, normalize, dedup, classify and persist, then sweep stale postings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yulin-dev/jobsift/internal/dedup"
	"github.com/yulin-dev/jobsift/internal/filter"
	"github.com/yulin-dev/jobsift/internal/freshness"
	"github.com/yulin-dev/jobsift/internal/model"
	"github.com/yulin-dev/jobsift/internal/normalize"
	"github.com/yulin-dev/jobsift/internal/ratelimit"
	"github.com/yulin-dev/jobsift/internal/retry"
)

// ErrAllSourcesFailed is returned by Run when no source produced a usable
// fetch. Individual source failures are isolated and reported, not returned.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Options configures a Pipeline.
type Options struct {
	Store               model.JobStore
	Classifier          model.Classifier
	Workers             int           // concurrent source workers
	SourceTimeout       time.Duration // wall-clock budget per source
	ClassifyConcurrency int           // concurrent classify+persist per source
	StalenessDays       int
	MaxRetries          int           // fetch retries per source
	RetryBaseDelay      time.Duration // initial backoff for fetch retries
	Logger              *slog.Logger

	// Notifier, when set, announces the run's new postings, narrowed by
	// NotifyFilter. Both optional.
	Notifier     model.Notifier
	NotifyFilter *filter.PostingFilter
}

// Pipeline runs the full ingestion cycle over a fixed set of sources.
// Sources are isolated from each other: a crash or failure in one worker
// never takes down the run.
type Pipeline struct {
	adapters   []model.SourceAdapter
	store      model.JobStore
	classifier model.Classifier
	sweeper    *freshness.Sweeper
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a Pipeline. Each adapter is wrapped with retry and per-source
// rate limiting; the limiter is shared so repeated runs in one process keep
// honoring source delays.
func New(adapters []model.SourceAdapter, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 3
	}
	if opts.ClassifyConcurrency < 1 {
		opts.ClassifyConcurrency = 4
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 10 * time.Minute
	}
	if opts.StalenessDays < 1 {
		opts.StalenessDays = 30
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter := ratelimit.NewSourceLimiter()
	wrapped := make([]model.SourceAdapter, 0, len(adapters))
	for _, a := range adapters {
		withRetry := retry.Wrap(a, opts.MaxRetries, opts.RetryBaseDelay, opts.Logger)
		wrapped = append(wrapped, ratelimit.Wrap(withRetry, limiter))
	}

	return &Pipeline{
		adapters:   wrapped,
		store:      opts.Store,
		classifier: opts.Classifier,
		sweeper:    freshness.NewSweeper(opts.Store, opts.StalenessDays, opts.Logger),
		opts:       opts,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
	p.sweeper.SetClock(now)
}

// Run executes one full cycle and returns the per-source reports. The run
// succeeds (err == nil) as long as at least one source produced a fetch; the
// reports carry the per-source detail either way. Reports are also persisted.
func (p *Pipeline) Run(ctx context.Context) ([]model.RunReport, error) {
	seen := dedup.NewSeen()
	reports := make([]model.RunReport, len(p.adapters))
	newPostings := make([][]model.Posting, len(p.adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, adapter := range p.adapters {
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(gctx, p.opts.SourceTimeout)
			defer cancel()
			reports[i], newPostings[i] = p.runSource(srcCtx, adapter, seen)
			return nil
		})
	}
	// Workers never return errors; this only propagates ctx cancellation.
	if err := g.Wait(); err != nil {
		return reports, err
	}

	if _, err := p.sweeper.Sweep(ctx); err != nil {
		p.logger.Error("freshness sweep failed", "error", err)
	}

	failed := 0
	for _, r := range reports {
		if r.Status == model.RunFailed {
			failed++
		}
		if err := p.store.SaveReport(ctx, r); err != nil {
			p.logger.Error("saving run report failed", "source", r.SourceSite, "error", err)
		}
	}

	p.notify(ctx, newPostings)

	if len(reports) > 0 && failed == len(reports) {
		return reports, ErrAllSourcesFailed
	}
	return reports, nil
}

// notify announces the run's new postings through the configured notifier.
// Delivery failures are logged, never returned: the postings are already
// persisted.
func (p *Pipeline) notify(ctx context.Context, perSource [][]model.Posting) {
	if p.opts.Notifier == nil {
		return
	}

	var fresh []model.Posting
	for _, batch := range perSource {
		fresh = append(fresh, batch...)
	}
	if p.opts.NotifyFilter != nil {
		fresh = p.opts.NotifyFilter.Apply(fresh)
	}
	if len(fresh) == 0 {
		return
	}

	if err := p.opts.Notifier.Notify(ctx, fresh); err != nil {
		p.logger.Error("notifying new postings failed", "count", len(fresh), "error", err)
	}
}

// workItem is one posting that survived dedup and needs classify + persist.
type workItem struct {
	posting  model.Posting
	decision dedup.Decision
}

func (p *Pipeline) runSource(ctx context.Context, adapter model.SourceAdapter, seen *dedup.Seen) (report model.RunReport, fresh []model.Posting) {
	source := adapter.Name()
	logger := p.logger.With("source", source)
	report = model.RunReport{
		ID:         uuid.NewString(),
		SourceSite: source,
		StartedAt:  p.now().UTC(),
	}

	// Named returns so a recovered panic still yields a failed report.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("source worker panicked", "panic", r)
			report.Status = model.RunFailed
			report.ErrorMessage = fmt.Sprintf("panic: %v", r)
			report.CompletedAt = p.now().UTC()
		}
	}()

	raws, fetchErr := adapter.Fetch(ctx)
	report.Scraped = len(raws)
	if fetchErr != nil && len(raws) == 0 {
		logger.Error("fetch failed", "error", fetchErr)
		report.Status = model.RunFailed
		report.ErrorMessage = fetchErr.Error()
		report.CompletedAt = p.now().UTC()
		return report, nil
	}
	if fetchErr != nil {
		logger.Warn("fetch returned partial results", "count", len(raws), "error", fetchErr)
		report.ErrorMessage = fetchErr.Error()
	}

	// Normalize and dedup sequentially; store lookups against a half-written
	// batch would race otherwise.
	var items []workItem
	for _, raw := range raws {
		posting, err := normalize.Normalize(raw, source)
		if err != nil {
			logger.Warn("dropping posting", "url", raw.URL, "error", err)
			report.Errors++
			continue
		}
		decision, err := dedup.Resolve(ctx, posting, p.store, seen)
		if err != nil {
			logger.Warn("dedup lookup failed", "url", posting.OriginalURL, "error", err)
			report.Errors++
			continue
		}
		if decision == dedup.Skip {
			report.Skipped++
			continue
		}
		items = append(items, workItem{posting: posting, decision: decision})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ClassifyConcurrency)
	for _, item := range items {
		g.Go(func() error {
			stored, err := p.classifyAndPersist(gctx, item, logger)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				mu.Lock()
				report.Errors++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			switch item.decision {
			case dedup.New:
				report.New++
				fresh = append(fresh, stored)
			case dedup.Update:
				report.Updated++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Status = model.RunFailed
		report.ErrorMessage = err.Error()
		report.CompletedAt = p.now().UTC()
		return report, fresh
	}

	switch {
	case fetchErr != nil || report.Errors > 0:
		report.Status = model.RunPartial
	default:
		report.Status = model.RunSuccess
	}
	report.CompletedAt = p.now().UTC()

	logger.Info("source done",
		"status", report.Status,
		"scraped", report.Scraped,
		"new", report.New,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"errors", report.Errors,
	)
	return report, fresh
}

func (p *Pipeline) classifyAndPersist(ctx context.Context, item workItem, logger *slog.Logger) (model.Posting, error) {
	posting := item.posting

	categories, err := p.classifier.Classify(ctx, posting.Title, posting.Description)
	if err != nil {
		// Classify only errors on context cancellation.
		return model.Posting{}, fmt.Errorf("classifying %s: %w", posting.OriginalURL, err)
	}
	posting.Categories = categories

	if _, err := p.store.UpsertByIdentity(ctx, posting); err != nil {
		logger.Warn("persist failed, retrying once", "url", posting.OriginalURL, "error", err)
		if _, err := p.store.UpsertByIdentity(ctx, posting); err != nil {
			logger.Error("persist failed", "url", posting.OriginalURL,
				"error", &model.PersistenceError{URL: posting.OriginalURL, Err: err})
			return model.Posting{}, err
		}
	}
	return posting, nil
}
