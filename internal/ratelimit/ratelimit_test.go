package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

func TestWait_SameKey_EnforcesMinDelay(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "jsearch"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "jsearch"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms of timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentKeys_NoCrossBlocking(t *testing.T) {
	limiter := NewLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "jsearch"); err != nil {
		t.Fatalf("jsearch wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "other"); err != nil {
		t.Fatalf("other wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected near-instant wait for a different key, got %v", elapsed)
	}
}

func TestWait_ZeroDelay(t *testing.T) {
	limiter := NewLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx, "jsearch"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no waiting with zero delay, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "jsearch"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "jsearch"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

type countingSearcher struct {
	calls int
}

func (s *countingSearcher) Search(_ context.Context, _ model.QueryDefinition) ([]model.RawJobItem, error) {
	s.calls++
	return []model.RawJobItem{{"job_id": "a"}}, nil
}

func TestRateLimitedSearcher_Delegates(t *testing.T) {
	inner := &countingSearcher{}
	s := NewRateLimitedSearcher(inner, NewLimiter(0), "jsearch")

	items, err := s.Search(context.Background(), model.QueryDefinition{ID: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if inner.calls != 1 || len(items) != 1 {
		t.Errorf("calls = %d, items = %d; want 1, 1", inner.calls, len(items))
	}
}

func TestRateLimitedSearcher_CancelledWaitSkipsCall(t *testing.T) {
	inner := &countingSearcher{}
	limiter := NewLimiter(5 * time.Second)
	s := NewRateLimitedSearcher(inner, limiter, "jsearch")

	if _, err := s.Search(context.Background(), model.QueryDefinition{ID: 1}); err != nil {
		t.Fatalf("first Search: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Search(ctx, model.QueryDefinition{ID: 2}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}
