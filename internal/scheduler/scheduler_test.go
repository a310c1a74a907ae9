package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// --- Mock implementations ---

type recordingRunner struct {
	mu       sync.Mutex
	triggers []model.Trigger
	block    chan struct{} // when non-nil, Run waits on it or ctx
}

func (r *recordingRunner) Run(ctx context.Context, trigger model.Trigger) model.RunReport {
	r.mu.Lock()
	r.triggers = append(r.triggers, trigger)
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return model.RunReport{RunID: "r"}
}

func (r *recordingRunner) calls() []model.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Trigger(nil), r.triggers...)
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, model.Trigger) model.RunReport { panic("boom") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

// --- Tests ---

func TestNew_InvalidSchedule(t *testing.T) {
	if _, err := New(&recordingRunner{}, "every now and then", time.Minute, discardLogger()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestIsPastDue(t *testing.T) {
	expected := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		fired time.Time
		want  bool
	}{
		{"on time", expected, false},
		{"within grace", expected.Add(30 * time.Second), false},
		{"exactly grace", expected.Add(time.Minute), false},
		{"late", expected.Add(time.Minute + time.Second), true},
		{"early", expected.Add(-time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPastDue(expected, tt.fired, time.Minute); got != tt.want {
				t.Errorf("IsPastDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTick_StartupTrigger(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.tick(context.Background())

	got := r.calls()
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if got[0].Source != "startup" || got[0].PastDue || !got[0].ScheduledAt.Equal(now) {
		t.Errorf("trigger = %+v, want on-time startup trigger", got[0])
	}
	if want := now.Add(time.Hour); !s.expected.Equal(want) {
		t.Errorf("expected next = %v, want %v", s.expected, want)
	}
}

func TestTick_PastDueTrigger(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	expected := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.expected = expected
	s.now = func() time.Time { return expected.Add(5 * time.Minute) }

	s.tick(context.Background())

	got := r.calls()
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if got[0].Source != "cron" || !got[0].PastDue || !got[0].ScheduledAt.Equal(expected) {
		t.Errorf("trigger = %+v, want past-due cron trigger for %v", got[0], expected)
	}
}

func TestTick_SkippedSlotDoesNotLeaveStaleExpectation(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ten := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	s.expected = ten
	now := ten
	s.now = func() time.Time { return now }

	s.tick(context.Background())
	// The 11:00 firing is dropped while the 10:00 run is still going.
	now = ten.Add(2 * time.Hour)
	s.tick(context.Background())

	got := r.calls()
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if !got[0].ScheduledAt.Equal(ten) || got[0].PastDue {
		t.Errorf("first trigger = %+v, want on-time 10:00", got[0])
	}
	if want := ten.Add(2 * time.Hour); !got[1].ScheduledAt.Equal(want) || got[1].PastDue {
		t.Errorf("second trigger = %+v, want on-time %v", got[1], want)
	}
}

func TestTick_LateFiringAfterSkipIsPastDueForItsOwnSlot(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ten := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	s.expected = ten
	s.now = func() time.Time { return ten.Add(2*time.Hour + 5*time.Minute) }

	s.tick(context.Background())

	got := r.calls()
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if want := ten.Add(2 * time.Hour); !got[0].ScheduledAt.Equal(want) || !got[0].PastDue {
		t.Errorf("trigger = %+v, want past-due trigger for %v", got[0], want)
	}
}

func TestTick_CancelledContextSkipsRun(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.tick(ctx)
	if n := len(r.calls()); n != 0 {
		t.Errorf("expected no run after cancel, got %d", n)
	}
}

func TestRun_StartupRunThenCancel(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return len(r.calls()) == 1 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WithoutStartupRun(t *testing.T) {
	r := &recordingRunner{}
	s, err := New(r, "@every 1h", time.Minute, discardLogger(), WithoutStartupRun())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if n := len(r.calls()); n != 0 {
		t.Errorf("expected no runs, got %d", n)
	}
}

func TestRun_SkipsWhileRunning(t *testing.T) {
	r := &recordingRunner{block: make(chan struct{})}
	s, err := New(r, "@every 1s", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The startup run holds the job; the firing after ~1s must be skipped.
	time.Sleep(1500 * time.Millisecond)
	if n := len(r.calls()); n != 1 {
		t.Errorf("expected 1 run while blocked, got %d", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

func TestRun_RecoversPanickingRunner(t *testing.T) {
	s, err := New(panicRunner{}, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v", err)
	}
}
