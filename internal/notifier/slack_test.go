package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport() model.RunReport {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return model.RunReport{
		RunID:      "run-1",
		Trigger:    model.Trigger{ScheduledAt: start, Source: "cron"},
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Queries: []model.QueryResult{
			{QueryID: 1, Query: "developer jobs", Fetched: 3, Inserted: 2, Duplicates: 1},
			{QueryID: 2, Query: "golang remote", Fetched: 4, Inserted: 4},
		},
	}
}

func TestSlackNotifier_Success(t *testing.T) {
	var body []byte
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Report(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Report() = %v, want nil", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 HTTP call, got %d", c)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if got := payload.Blocks[0].Text.Text; got != "✅ Job sync success" {
		t.Errorf("header text = %q", got)
	}
	if got := payload.Blocks[2].Fields[0].Text; got != "*Inserted:*\n6" {
		t.Errorf("inserted field = %q", got)
	}
	if got := payload.Blocks[2].Fields[1].Text; got != "*Duplicates:*\n1" {
		t.Errorf("duplicates field = %q", got)
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := sampleReport()
	r.Queries[1].Err = errors.New("search returned status 500")

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Report(context.Background(), r); err != nil {
		t.Fatalf("Report() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || !strings.Contains(payload.Blocks[0].Text.Text, "partial") {
		t.Errorf("block[0] = %+v, want partial header", payload.Blocks[0])
	}
	if payload.Blocks[1].Type != "section" || len(payload.Blocks[1].Fields) != 2 {
		t.Errorf("block[1] not a 2-field section")
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Queries:*\n2 (1 failed)" {
		t.Errorf("queries field = %q", got)
	}
	errText := payload.Blocks[3].Text.Text
	if !strings.Contains(errText, `"golang remote"`) || !strings.Contains(errText, "status 500") {
		t.Errorf("errors section = %q, want failing query and cause", errText)
	}
	if payload.Blocks[4].Type != "context" || !strings.Contains(payload.Blocks[4].Elements[0].Text, "run-1") {
		t.Errorf("block[4] = %+v, want context with run id", payload.Blocks[4])
	}
	if payload.Blocks[5].Type != "divider" {
		t.Errorf("block[5] type = %q, want divider", payload.Blocks[5].Type)
	}
}

func TestSlackNotifier_DryRunHeader(t *testing.T) {
	r := sampleReport()
	r.DryRun = true
	payload := buildPayload(r)
	if got := payload.Blocks[0].Text.Text; !strings.HasSuffix(got, "(dry run)") {
		t.Errorf("header = %q, want dry run suffix", got)
	}
}

func TestSlackNotifier_FailuresCapped(t *testing.T) {
	r := sampleReport()
	r.Queries = nil
	for i := 0; i < maxListedFailures+5; i++ {
		r.Queries = append(r.Queries, model.QueryResult{QueryID: int64(i), Query: "q", Err: errors.New("boom")})
	}
	payload := buildPayload(r)
	lines := strings.Split(payload.Blocks[3].Text.Text, "\n")
	// heading + capped entries + ellipsis
	if len(lines) != maxListedFailures+2 {
		t.Errorf("got %d lines, want %d", len(lines), maxListedFailures+2)
	}
}

func TestSlackNotifier_SlackReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Report(context.Background(), sampleReport()); err == nil {
		t.Error("expected error when slack returns 500, got nil")
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Report(context.Background(), sampleReport()); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSlackNotifier_RateLimitedContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Report(ctx, sampleReport())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Report() = %v, want deadline exceeded", err)
	}
}

func TestSendTestMessage(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := SendTestMessage(context.Background(), n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if !strings.Contains(string(body), "test-run") {
		t.Errorf("payload does not mention the sample run: %s", body)
	}
}
