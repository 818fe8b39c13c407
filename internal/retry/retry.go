// Package retry implements the orchestrator's backoff policy as a
// SourceAdapter decorator. Adapters themselves never retry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Adapter retries transient fetch failures with exponential backoff and
// jitter before delegating to the wrapped SourceAdapter.
type Adapter struct {
	inner      model.SourceAdapter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// Wrap decorates a SourceAdapter with retry logic. maxRetries is the number
// of additional attempts after the first failure; baseDelay is the delay
// before the first retry, doubled on each subsequent one.
func Wrap(inner model.SourceAdapter, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Adapter {
	return &Adapter{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (a *Adapter) Name() string            { return a.inner.Name() }
func (a *Adapter) MinDelay() time.Duration { return a.inner.MinDelay() }

// Fetch attempts a fetch, retrying on transient errors. A partial result
// (postings alongside an error) is returned as-is: the source already
// produced data and re-fetching would double it.
func (a *Adapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	postings, err := a.inner.Fetch(ctx)
	if err == nil || len(postings) > 0 {
		return postings, err
	}

	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		delay := a.backoffDelay(attempt, lastErr)

		a.logger.Warn("retrying after transient fetch error",
			"source", a.inner.Name(),
			"attempt", attempt,
			"max_retries", a.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		postings, err = a.inner.Fetch(ctx)
		if err == nil || len(postings) > 0 {
			return postings, err
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes
// precedence.
func (a *Adapter) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := a.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth
// retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests — retryable.
		if httpErr.StatusCode == 429 {
			return true
		}
		// 5xx — retryable.
		if httpErr.StatusCode >= 500 {
			return true
		}
		// 4xx (not 429) — not retryable.
		return false
	}

	// Non-HTTP errors (network, DNS, parse) — retryable.
	return true
}
