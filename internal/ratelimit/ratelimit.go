// Package ratelimit spaces out calls to the search API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// Limiter enforces a minimum delay between calls that share a key (the API host).
type Limiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// NewLimiter creates a limiter. A zero minDelay never waits.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until minDelay has passed since the previous call for key.
// Returns an error if the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	last, ok := l.lastCall[key]
	now := time.Now()

	if !ok || now.Sub(last) >= l.minDelay {
		l.lastCall[key] = now
		l.mu.Unlock()
		return nil
	}

	remaining := l.minDelay - now.Sub(last)
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
	}

	l.mu.Lock()
	l.lastCall[key] = time.Now()
	l.mu.Unlock()

	return nil
}

// Ensure RateLimitedSearcher implements model.JobSearcher.
var _ model.JobSearcher = (*RateLimitedSearcher)(nil)

// RateLimitedSearcher waits on the limiter before delegating to the wrapped
// searcher.
type RateLimitedSearcher struct {
	inner   model.JobSearcher
	limiter *Limiter
	key     string
}

// NewRateLimitedSearcher wraps a JobSearcher. Searchers hitting the same API
// host should share one limiter and key.
func NewRateLimitedSearcher(inner model.JobSearcher, limiter *Limiter, key string) *RateLimitedSearcher {
	return &RateLimitedSearcher{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

func (s *RateLimitedSearcher) Search(ctx context.Context, def model.QueryDefinition) ([]model.RawJobItem, error) {
	if err := s.limiter.Wait(ctx, s.key); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, def)
}
