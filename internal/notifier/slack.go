package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure SlackNotifier implements model.Reporter.
var _ model.Reporter = (*SlackNotifier)(nil)

// maxListedFailures caps the failed queries listed in one message.
const maxListedFailures = 10

// SlackNotifier posts run reports to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a reporter that posts each run summary to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Report sends one Block Kit message for the run. A 429 is retried once
// after the Retry-After delay.
func (s *SlackNotifier) Report(ctx context.Context, r model.RunReport) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return fmt.Errorf("post to slack: %w", ctx.Err())
		case <-time.After(retryAfter):
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack run report sent", "run_id", r.RunID, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack run report sent", "run_id", r.RunID)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample run report to verify the integration works.
func SendTestMessage(ctx context.Context, r model.Reporter) error {
	now := time.Now()
	sample := model.RunReport{
		RunID:      "test-run",
		Trigger:    model.Trigger{ScheduledAt: now, Source: "test"},
		StartedAt:  now.Add(-3 * time.Second),
		FinishedAt: now,
		Queries: []model.QueryResult{
			{QueryID: 1, Query: "Test Notification: Integration Verified", Fetched: 10, Inserted: 7, Duplicates: 3},
		},
	}
	return r.Report(ctx, sample)
}

func outcomeIcon(o model.Outcome) string {
	switch o {
	case model.OutcomeSuccess:
		return "✅"
	case model.OutcomePartial:
		return "⚠️"
	default:
		return "❌"
	}
}

func buildPayload(r model.RunReport) slackPayload {
	outcome := r.Outcome()
	totals := r.Totals()

	title := fmt.Sprintf("%s Job sync %s", outcomeIcon(outcome), outcome)
	if r.DryRun {
		title += " (dry run)"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Queries:*\n%d (%d failed)", len(r.Queries), r.FailedQueries())},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Fetched:*\n%d", totals.Fetched)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Inserted:*\n%d", totals.Inserted)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Duplicates:*\n%d", totals.Duplicates)},
			},
		},
	}

	var problems []string
	if r.Err != nil {
		problems = append(problems, "• run: "+r.Err.Error())
	}
	for _, q := range r.Queries {
		if q.Err == nil {
			continue
		}
		if len(problems) == maxListedFailures {
			problems = append(problems, "• …")
			break
		}
		problems = append(problems, fmt.Sprintf("• %q: %v", q.Query, q.Err))
	}
	if len(problems) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Errors:*\n" + strings.Join(problems, "\n")},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("run `%s` · %s · took %s", r.RunID, r.Trigger.Source, r.Duration().Round(time.Millisecond))},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
