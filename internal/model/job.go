package model

import (
	"context"
	"time"
)

// QueryDefinition is one saved search from the job_queries table.
type QueryDefinition struct {
	ID         int64
	Query      string // free-text search, e.g. "developer jobs in chicago"
	Page       int
	NumPages   int
	DatePosted string // "all", "today", "3days", "week", "month"; empty means unset
}

// RawJobItem is one unparsed element of the search API's data list.
type RawJobItem map[string]any

// JobPosting is a row of the jobs table. Pointer fields are nullable.
type JobPosting struct {
	JobID           string
	Title           *string
	EmployerName    *string
	EmployerLogo    *string
	EmployerWebsite *string
	Publisher       *string
	EmploymentType  *string
	ApplyLink       *string
	IsRemote        int // 0 or 1
	PostedAt        *time.Time
	Location        *string
	City            *string
	State           *string
	Country         *string
	Latitude        *float64
	Longitude       *float64
	Description     *string
	GoogleLink      *string
	MinSalary       *float64
	MaxSalary       *float64
	SalaryPeriod    *string
	OnetSOC         *string
	OnetJobZone     *string
}

// Benefit is a row of job_benefits. Benefit is nil for a null element.
type Benefit struct {
	JobID   string
	Benefit *string
}

// ApplyOption is a row of job_apply_options.
type ApplyOption struct {
	JobID     string
	Publisher *string
	ApplyLink *string
	IsDirect  int // 0 or 1
}

// Highlight is a row of job_highlights. Type is the section name the
// content was grouped under, e.g. "Qualifications". Content is nil for a
// null element.
type Highlight struct {
	JobID   string
	Type    string
	Content *string
}

// JobRecord bundles a posting with all child rows mapped from the same item.
type JobRecord struct {
	Job          JobPosting
	Benefits     []Benefit
	ApplyOptions []ApplyOption
	Highlights   []Highlight
}

// Trigger describes why a run was started.
type Trigger struct {
	ScheduledAt time.Time
	PastDue     bool   // fired later than the schedule intended
	Source      string // "cron", "cli", ...
}

// QueryStore lists the saved search definitions.
type QueryStore interface {
	ListQueryDefinitions(ctx context.Context) ([]QueryDefinition, error)
}

// JobSearcher fetches raw result items for one query definition.
type JobSearcher interface {
	Search(ctx context.Context, def QueryDefinition) ([]RawJobItem, error)
}

// JobBatch is the write side of one query definition's transaction.
type JobBatch interface {
	// InsertJob writes the posting and its child rows unless a posting with
	// the same job ID already exists. It reports whether anything was written.
	InsertJob(ctx context.Context, rec JobRecord) (bool, error)
	Commit() error
	Rollback() error
}

// JobWriter opens write batches.
type JobWriter interface {
	BeginBatch(ctx context.Context) (JobBatch, error)
}

// Reporter delivers a finished run report.
type Reporter interface {
	Report(ctx context.Context, r RunReport) error
}
