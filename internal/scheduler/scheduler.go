// Package scheduler fires pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobsync/internal/model"
)

// Runner executes one sync run. *ingest.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, trigger model.Trigger) model.RunReport
}

// Scheduler owns the daemon loop: one immediate run on start, then one run
// per schedule firing. A firing that arrives while a run is in progress is
// skipped.
type Scheduler struct {
	runner     Runner
	spec       string
	schedule   cron.Schedule
	grace      time.Duration
	runOnStart bool
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	expected time.Time // next intended firing; zero before the startup run
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithoutStartupRun disables the immediate run when Run begins.
func WithoutStartupRun() Option {
	return func(s *Scheduler) { s.runOnStart = false }
}

// New parses spec (standard cron or a descriptor such as "@every 6h").
func New(runner Runner, spec string, grace time.Duration, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		runner:     runner,
		spec:       spec,
		schedule:   schedule,
		grace:      grace,
		runOnStart: true,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. It waits for an
// in-flight run to return before exiting, then returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(cron.WithLogger(cl))
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.tick(ctx) }))

	if !s.runOnStart {
		s.mu.Lock()
		s.expected = s.schedule.Next(s.now())
		s.mu.Unlock()
	}

	c.Schedule(s.schedule, job)
	c.Start()
	s.logger.Info("starting scheduler", "schedule", s.spec, "past_due_grace", s.grace.String())

	var wg sync.WaitGroup
	if s.runOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

// tick builds the trigger for one firing and runs the pipeline.
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	fired := s.now()

	s.mu.Lock()
	expected := s.latestSlot(fired)
	s.expected = s.schedule.Next(fired)
	s.mu.Unlock()

	trigger := model.Trigger{ScheduledAt: fired, Source: "startup"}
	if !expected.IsZero() {
		trigger = model.Trigger{
			ScheduledAt: expected,
			PastDue:     IsPastDue(expected, fired, s.grace),
			Source:      "cron",
		}
	}

	report := s.runner.Run(ctx, trigger)
	s.logger.Debug("scheduled run returned",
		"run_id", report.RunID,
		"outcome", report.Outcome(),
		"next", s.schedule.Next(s.now()).Format(time.RFC3339),
	)
}

// latestSlot returns the last scheduled slot at or before fired, starting
// from the stored expectation. Firings dropped by SkipIfStillRunning never
// reach tick, so the stored value can lag by several slots. Caller holds mu.
func (s *Scheduler) latestSlot(fired time.Time) time.Time {
	slot := s.expected
	for !slot.IsZero() {
		next := s.schedule.Next(slot)
		if next.IsZero() || next.After(fired) {
			break
		}
		slot = next
	}
	return slot
}

// IsPastDue reports whether a firing intended for expected that actually
// happened at fired is late by more than grace.
func IsPastDue(expected, fired time.Time, grace time.Duration) bool {
	return fired.Sub(expected) > grace
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
