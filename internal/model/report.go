package model

import "time"

// Outcome summarizes a run for callers that do not read logs.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial" // at least one query or item failed
	OutcomeFailed  Outcome = "failed"  // fatal error, or every query failed
)

// QueryResult is the per-definition part of a run report.
type QueryResult struct {
	QueryID    int64
	Query      string
	Fetched    int
	Inserted   int
	Duplicates int
	Dropped    int // items without a job_id
	Failed     int // items whose writes were rolled back
	Err        error
}

// RunReport is returned by every pipeline run.
type RunReport struct {
	RunID      string
	Trigger    Trigger
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Queries    []QueryResult
	Err        error // fatal error that ended the run early
}

// Totals sums the per-query counters.
func (r RunReport) Totals() QueryResult {
	var t QueryResult
	for _, q := range r.Queries {
		t.Fetched += q.Fetched
		t.Inserted += q.Inserted
		t.Duplicates += q.Duplicates
		t.Dropped += q.Dropped
		t.Failed += q.Failed
	}
	return t
}

// FailedQueries counts definitions that were skipped because of an error.
func (r RunReport) FailedQueries() int {
	n := 0
	for _, q := range r.Queries {
		if q.Err != nil {
			n++
		}
	}
	return n
}

// Outcome classifies the run.
func (r RunReport) Outcome() Outcome {
	failed := r.FailedQueries()
	if r.Err != nil || (failed > 0 && failed == len(r.Queries)) {
		return OutcomeFailed
	}
	if failed > 0 || r.Totals().Failed > 0 {
		return OutcomePartial
	}
	return OutcomeSuccess
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
