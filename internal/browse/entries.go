// Package browse is an interactive, read-only preview of what a saved query
// would ingest.
package browse

import (
	"context"
	"fmt"
	"sort"

	"github.com/amishk599/jobsync/internal/mapper"
	"github.com/amishk599/jobsync/internal/model"
)

// Entry is one mapped search result and whether its job_id is already stored.
type Entry struct {
	Record model.JobRecord
	Stored bool
}

// JobLookup reports whether a posting is already in the jobs table.
type JobLookup interface {
	JobExists(ctx context.Context, jobID string) (bool, error)
}

// Preview runs one search, maps the items and marks those already stored.
// Unmappable items are left out. Nothing is written.
func Preview(ctx context.Context, searcher model.JobSearcher, lookup JobLookup, def model.QueryDefinition) ([]Entry, error) {
	items, err := searcher.Search(ctx, def)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		rec, ok := mapper.MapItem(item)
		if !ok {
			continue
		}
		// A repeated job_id in the same response is a duplicate at ingest time.
		stored := seen[rec.Job.JobID]
		if !stored {
			stored, err = lookup.JobExists(ctx, rec.Job.JobID)
			if err != nil {
				return nil, fmt.Errorf("look up job %s: %w", rec.Job.JobID, err)
			}
		}
		seen[rec.Job.JobID] = true
		entries = append(entries, Entry{Record: rec, Stored: stored})
	}

	sortByPosted(entries)
	return entries, nil
}

// newEntries returns the entries that a run would insert.
func newEntries(all []Entry) []Entry {
	var out []Entry
	for _, e := range all {
		if !e.Stored {
			out = append(out, e)
		}
	}
	return out
}

// sortByPosted orders newest first; entries without a date go last.
func sortByPosted(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Record.Job.PostedAt, entries[j].Record.Job.PostedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}
