package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/model"
)

var strict bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every saved query once and exit",
	Long:  "One-shot sync for use under an external scheduler. Exits 0 even when queries fail unless --strict is set.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&strict, "strict", false, "exit 1 unless every query succeeded")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := syncOnce(ctx, cfg, logger, strict); code != 0 {
		stop()
		os.Exit(code)
	}
	return nil
}

// syncOnce performs one run and returns the process exit code. Run failures,
// including an unreachable database, exit 0 unless strict is set; only setup
// errors that no later run could fix (bad driver, DSN or Redis URL) exit 1.
func syncOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, strict bool) int {
	st, err := setupStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return 1
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	p, cleanup, err := buildPipeline(cfg, st, setupReporter(cfg, httpClient, logger), false, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer cleanup()

	report := p.Run(ctx, model.Trigger{ScheduledAt: time.Now(), Source: "cli"})
	if strict && report.Outcome() != model.OutcomeSuccess {
		return 1
	}
	return 0
}
