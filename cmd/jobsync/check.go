package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/notifier"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run every query once without writing, print a summary",
	Long:  "Dry run: searches and maps as a real run would, then rolls back every batch. Nothing is stored and no notification is sent.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: every batch is rolled back")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := setupStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	p, cleanup, err := buildPipeline(cfg, st, notifier.NewLogNotifier(logger), true, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	report := p.Run(ctx, model.Trigger{ScheduledAt: time.Now(), Source: "check"})
	printReport(report)
	return nil
}

func printReport(r model.RunReport) {
	fmt.Printf("\n%-6s %-35s %8s %8s %10s %8s  %s\n", "ID", "Query", "Fetched", "New", "Duplicate", "Dropped", "Error")
	fmt.Println(strings.Repeat("─", 95))
	for _, q := range r.Queries {
		errText := ""
		if q.Err != nil {
			errText = q.Err.Error()
		}
		fmt.Printf("%-6d %-35s %8d %8d %10d %8d  %s\n", q.QueryID, truncate(q.Query, 35), q.Fetched, q.Inserted, q.Duplicates, q.Dropped, errText)
	}

	t := r.Totals()
	fmt.Printf("\nOutcome: %s (%d queries, %d would be inserted, %d duplicates, took %s)\n",
		r.Outcome(), len(r.Queries), t.Inserted, t.Duplicates, r.Duration().Round(time.Millisecond))
	if r.Err != nil {
		fmt.Printf("Run error: %v\n", r.Err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
