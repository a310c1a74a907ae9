package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure LogNotifier implements model.Reporter.
var _ model.Reporter = (*LogNotifier)(nil)

// LogNotifier writes one structured line per query of a finished run.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a reporter that logs via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Report logs each query result and returns nil (stdout logging does not fail).
func (n *LogNotifier) Report(_ context.Context, r model.RunReport) error {
	for _, q := range r.Queries {
		args := []any{
			"run_id", r.RunID,
			"query_id", q.QueryID,
			"query", q.Query,
			"inserted", q.Inserted,
			"duplicates", q.Duplicates,
		}
		if q.Err != nil {
			n.logger.Warn("query failed", append(args, "error", q.Err)...)
			continue
		}
		n.logger.Info("query report", args...)
	}
	return nil
}
