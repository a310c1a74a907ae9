package browse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsync/internal/model"
)

type stubSearcher struct {
	items []model.RawJobItem
	err   error
}

func (s stubSearcher) Search(context.Context, model.QueryDefinition) ([]model.RawJobItem, error) {
	return s.items, s.err
}

type stubLookup struct {
	stored map[string]bool
	err    error
	calls  int
}

func (l *stubLookup) JobExists(_ context.Context, jobID string) (bool, error) {
	l.calls++
	return l.stored[jobID], l.err
}

func strPtr(s string) *string { return &s }

func TestPreview_MarksStoredAndSkipsUnmappable(t *testing.T) {
	searcher := stubSearcher{items: []model.RawJobItem{
		{"job_id": "a", "job_title": "Old", "job_posted_at_datetime_utc": "2024-05-01T00:00:00Z"},
		{"job_title": "no id"},
		{"job_id": "b", "job_title": "New", "job_posted_at_datetime_utc": "2024-05-03T00:00:00Z"},
		{"job_id": "b", "job_title": "New again"},
	}}
	lookup := &stubLookup{stored: map[string]bool{"a": true}}

	entries, err := Preview(context.Background(), searcher, lookup, model.QueryDefinition{ID: 1, Query: "dev"})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first, undated last.
	assert.Equal(t, "b", entries[0].Record.Job.JobID)
	assert.False(t, entries[0].Stored)
	assert.Equal(t, "a", entries[1].Record.Job.JobID)
	assert.True(t, entries[1].Stored)
	assert.Equal(t, "New again", *entries[2].Record.Job.Title)
	assert.True(t, entries[2].Stored, "repeat within a response counts as stored")

	assert.Equal(t, 2, lookup.calls)
	assert.Len(t, newEntries(entries), 1)
}

func TestPreview_SearchError(t *testing.T) {
	want := &model.HTTPError{StatusCode: 500}
	_, err := Preview(context.Background(), stubSearcher{err: want}, &stubLookup{}, model.QueryDefinition{})
	var httpErr *model.HTTPError
	assert.True(t, errors.As(err, &httpErr))
}

func TestPreview_LookupError(t *testing.T) {
	searcher := stubSearcher{items: []model.RawJobItem{{"job_id": "a"}}}
	_, err := Preview(context.Background(), searcher, &stubLookup{err: model.ErrStoreUnavailable}, model.QueryDefinition{})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func sampleEntries() []Entry {
	posted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []Entry{
		{Record: model.JobRecord{Job: model.JobPosting{JobID: "1", Title: strPtr("Go Developer"), PostedAt: &posted, Description: strPtr("Write Go.")}}},
		{Record: model.JobRecord{Job: model.JobPosting{JobID: "2", Title: strPtr("SRE")}}, Stored: true},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m browseModel, msg tea.Msg) browseModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(browseModel)
}

func TestBrowseModel_Navigation(t *testing.T) {
	m := newBrowseModel("dev", sampleEntries())
	assert.Equal(t, "Initializing...", m.View())

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.True(t, m.ready)
	assert.Contains(t, m.View(), "Results (2)")
	assert.Contains(t, m.View(), "New (1)")

	m = update(t, m, key("down"))
	assert.Equal(t, 1, m.leftCursor)
	m = update(t, m, key("down"))
	assert.Equal(t, 1, m.leftCursor, "cursor is clamped")

	m = update(t, m, key("tab"))
	assert.Equal(t, 1, m.activePane)
	m = update(t, m, key("enter"))
	assert.Equal(t, viewDetail, m.view)
	assert.Equal(t, "1", m.detail.Record.Job.JobID)

	m = update(t, m, key("r"))
	assert.True(t, m.showDescription)
	assert.Contains(t, m.renderDetail(), "Write Go.")

	m = update(t, m, key("esc"))
	assert.Equal(t, viewList, m.view)

	next, cmd := m.Update(key("q"))
	assert.True(t, next.(browseModel).wantQuit)
	assert.NotNil(t, cmd)
}

func TestRenderJobs(t *testing.T) {
	out := renderJobs(sampleEntries(), 0, true)
	assert.Contains(t, out, "> ")
	assert.Contains(t, out, "SRE ✓")
	assert.Contains(t, out, "2024-05-01")
	assert.Equal(t, "  (no jobs)", renderJobs(nil, 0, true))
}

func TestFormatSalary(t *testing.T) {
	lo, hi := 90000.0, 120000.0
	assert.Equal(t, "", formatSalary(model.JobPosting{}))
	assert.Equal(t, "$90000 - $120000 / year", formatSalary(model.JobPosting{MinSalary: &lo, MaxSalary: &hi, SalaryPeriod: strPtr("YEAR")}))
	assert.Equal(t, "from $90000", formatSalary(model.JobPosting{MinSalary: &lo}))
	assert.Equal(t, "up to $120000", formatSalary(model.JobPosting{MaxSalary: &hi}))
}

func TestApplyLink(t *testing.T) {
	rec := model.JobRecord{ApplyOptions: []model.ApplyOption{{}, {ApplyLink: strPtr("https://b.example")}}}
	assert.Equal(t, "https://b.example", applyLink(rec))
	rec.Job.ApplyLink = strPtr("https://a.example")
	assert.Equal(t, "https://a.example", applyLink(rec))
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", got)
	assert.True(t, strings.HasPrefix(wordWrap("  x ", 5), "x"))
}

func TestPickerModel(t *testing.T) {
	m := pickerModel{defs: []model.QueryDefinition{{ID: 1, Query: "a", Page: 1, NumPages: 1}, {ID: 2, Query: "b", Page: 1, NumPages: 2, DatePosted: "today"}}, chosen: -1}
	next, _ := m.Update(key("j"))
	m = next.(pickerModel)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.View(), "#2 b (page 1, 2 pages, today)")

	next, _ = m.Update(key("enter"))
	assert.Equal(t, 1, next.(pickerModel).chosen)
}
