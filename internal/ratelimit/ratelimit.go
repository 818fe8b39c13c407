// Package ratelimit spaces outbound requests per source site.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yulin-dev/jobsift/internal/model"
)

// SourceLimiter enforces a minimum delay between consecutive requests to the
// same source site. One limiter instance is shared by all adapters in a run.
type SourceLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: source name
}

// NewSourceLimiter creates an empty limiter.
func NewSourceLimiter() *SourceLimiter {
	return &SourceLimiter{lastCall: make(map[string]time.Time)}
}

// Wait blocks until minDelay has passed since the last request to source.
// Returns an error if the context is cancelled while waiting.
func (l *SourceLimiter) Wait(ctx context.Context, source string, minDelay time.Duration) error {
	l.mu.Lock()
	last, ok := l.lastCall[source]
	now := time.Now()

	if !ok || now.Sub(last) >= minDelay {
		l.lastCall[source] = now
		l.mu.Unlock()
		return nil
	}

	remaining := minDelay - now.Sub(last)
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-time.After(remaining):
	}

	l.mu.Lock()
	l.lastCall[source] = time.Now()
	l.mu.Unlock()

	return nil
}

// Adapter is a decorator that waits on the shared limiter before delegating
// to the wrapped SourceAdapter, using the adapter's own declared MinDelay.
type Adapter struct {
	inner   model.SourceAdapter
	limiter *SourceLimiter
}

// Wrap decorates a SourceAdapter with rate limiting.
func Wrap(inner model.SourceAdapter, limiter *SourceLimiter) *Adapter {
	return &Adapter{inner: inner, limiter: limiter}
}

func (a *Adapter) Name() string            { return a.inner.Name() }
func (a *Adapter) MinDelay() time.Duration { return a.inner.MinDelay() }

// Fetch waits for the limiter, then delegates.
func (a *Adapter) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	if err := a.limiter.Wait(ctx, a.inner.Name(), a.inner.MinDelay()); err != nil {
		return nil, err
	}
	return a.inner.Fetch(ctx)
}
