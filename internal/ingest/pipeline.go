// Package ingest runs the sync: query definitions in, job rows out.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobsync/internal/lock"
	"github.com/amishk599/jobsync/internal/mapper"
	"github.com/amishk599/jobsync/internal/model"
)

// Pipeline owns one sync run:
// load definitions → search → map → insert-or-skip → commit per definition.
type Pipeline struct {
	queries  model.QueryStore
	searcher model.JobSearcher
	writer   model.JobWriter
	locker   lock.Locker
	reporter model.Reporter
	dryRun   bool
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocker guards each run with l.
func WithLocker(l lock.Locker) Option {
	return func(p *Pipeline) { p.locker = l }
}

// WithReporter delivers every finished report to r.
func WithReporter(r model.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithDryRun rolls back every batch instead of committing it.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) { p.dryRun = dryRun }
}

// NewPipeline creates a pipeline wired with its collaborators.
func NewPipeline(
	queries model.QueryStore,
	searcher model.JobSearcher,
	writer model.JobWriter,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		queries:  queries,
		searcher: searcher,
		writer:   writer,
		locker:   lock.NopLock{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every query definition once. It never panics and never
// returns an error: failures are logged and recorded in the report, whose
// Outcome tells full success from partial or failed runs.
func (p *Pipeline) Run(ctx context.Context, trigger model.Trigger) (report model.RunReport) {
	report = model.RunReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		DryRun:    p.dryRun,
		StartedAt: p.now(),
	}
	logger := p.logger.With("run_id", report.RunID)

	if trigger.PastDue {
		logger.Info("the timer is past due", "scheduled_at", trigger.ScheduledAt)
	}
	logger.Info("job sync started", "source", trigger.Source, "dry_run", p.dryRun)

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("panic during run: %v", r)
		}
		report.FinishedAt = p.now()
		p.finish(ctx, logger, report)
	}()

	release, err := p.locker.Acquire(ctx)
	if err != nil {
		report.Err = err
		return report
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("releasing run lock failed", "error", err)
		}
	}()

	defs, err := p.queries.ListQueryDefinitions(ctx)
	if err != nil {
		report.Err = fmt.Errorf("loading query definitions: %w", err)
		return report
	}
	if len(defs) == 0 {
		logger.Info("no query definitions, nothing to sync")
		return report
	}

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			report.Err = fmt.Errorf("run interrupted: %w", err)
			return report
		}
		report.Queries = append(report.Queries, p.syncQuery(ctx, logger, def))
	}

	return report
}

// syncQuery fetches one definition and writes its postings in one batch.
func (p *Pipeline) syncQuery(ctx context.Context, logger *slog.Logger, def model.QueryDefinition) model.QueryResult {
	res := model.QueryResult{QueryID: def.ID, Query: def.Query}
	logger = logger.With("query_id", def.ID, "query", def.Query)

	logger.Info("fetching", "page", def.Page, "num_pages", def.NumPages, "date_posted", def.DatePosted)
	items, err := p.searcher.Search(ctx, def)
	if err != nil {
		var httpErr *model.HTTPError
		switch {
		case errors.As(err, &httpErr):
			logger.Error("search API returned an error status, skipping query", "status", httpErr.StatusCode)
		case errors.Is(err, model.ErrMalformedResponse):
			logger.Error("search API response is malformed, skipping query", "error", err)
		default:
			logger.Error("search failed, skipping query", "error", err)
		}
		res.Err = err
		return res
	}
	res.Fetched = len(items)

	batch, err := p.writer.BeginBatch(ctx)
	if err != nil {
		logger.Error("opening write batch failed, skipping query", "error", err)
		res.Err = err
		return res
	}
	defer batch.Rollback()

	for _, item := range items {
		rec, ok := mapper.MapItem(item)
		if !ok {
			res.Dropped++
			continue
		}

		inserted, err := batch.InsertJob(ctx, rec)
		if err != nil {
			res.Failed++
			logger.Error("writing job failed", "job_id", rec.Job.JobID, "error", err)
			if ctx.Err() != nil {
				res.Err = fmt.Errorf("query %d interrupted: %w", def.ID, ctx.Err())
				return res
			}
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Duplicates++
		}
	}

	if p.dryRun {
		if err := batch.Rollback(); err != nil {
			logger.Warn("rolling back dry-run batch failed", "error", err)
		}
	} else if err := batch.Commit(); err != nil {
		logger.Error("commit failed, query batch discarded", "error", err)
		res.Failed += res.Inserted
		res.Inserted = 0
		res.Err = err
		return res
	}

	logger.Info("query synced",
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"dropped", res.Dropped,
		"failed", res.Failed,
	)
	return res
}

// finish logs the report and hands it to the reporter. It runs after Run's
// own recover, so a panicking reporter is contained here.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, report model.RunReport) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("delivering run report panicked", "panic", r)
		}
	}()

	totals := report.Totals()
	args := []any{
		"outcome", report.Outcome(),
		"queries", len(report.Queries),
		"failed_queries", report.FailedQueries(),
		"fetched", totals.Fetched,
		"inserted", totals.Inserted,
		"duplicates", totals.Duplicates,
		"duration", report.Duration().String(),
	}
	if report.Err != nil {
		logger.Error("job sync ended early", append(args, "error", report.Err)...)
	} else {
		logger.Info("job sync finished", args...)
	}

	if p.reporter == nil {
		return
	}
	if err := p.reporter.Report(context.WithoutCancel(ctx), report); err != nil {
		logger.Error("delivering run report failed", "error", err)
	}
}
