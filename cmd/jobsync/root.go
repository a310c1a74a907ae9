package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/ingest"
	"github.com/amishk599/jobsync/internal/jsearch"
	"github.com/amishk599/jobsync/internal/lock"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/notifier"
	"github.com/amishk599/jobsync/internal/ratelimit"
	"github.com/amishk599/jobsync/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsync",
	Short: "Sync job search results into the jobs database",
	Long:  "jobsync runs the saved queries in job_queries against the JSearch API and stores new postings.",
	// Default to `start` so that `jobsync` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSYNC_CONFIG env var, ./config.yaml, or built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSYNC_CONFIG env var > "./config.yaml" > built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("JOBSYNC_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return config.Default()
			}
			return nil, err
		}
		path = "config.yaml"
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	return store.Open(ctx, cfg.Database.Driver, cfg.Database.ConnString())
}

func setupReporter(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Reporter {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupSearcher builds the JSearch client behind the shared throttle.
func setupSearcher(cfg *config.Config, logger *slog.Logger) model.JobSearcher {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	client := jsearch.NewClient(cfg.API.BaseURL, cfg.API.Host, cfg.API.Key, cfg.API.Country, httpClient, logger)
	limiter := ratelimit.NewLimiter(cfg.API.MinDelay)
	return ratelimit.NewRateLimitedSearcher(client, limiter, cfg.API.Host)
}

// setupLocker returns the Redis run lock when a URL is configured, otherwise
// a no-op lock. Redis is not contacted here; an outage fails each run's
// Acquire instead. The returned func closes the Redis client.
func setupLocker(cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Redis.URL == "" {
		return lock.NopLock{}, func() {}, nil
	}
	client, err := lock.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("run lock enabled", "key", cfg.Redis.LockKey, "ttl", cfg.Redis.LockTTL.String())
	return lock.NewRedisLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL), func() { client.Close() }, nil
}

// buildPipeline wires a pipeline over st. The returned cleanup must be called
// once the pipeline is no longer used.
func buildPipeline(cfg *config.Config, st *store.SQLStore, reporter model.Reporter, dryRun bool, logger *slog.Logger) (*ingest.Pipeline, func(), error) {
	locker, closeLock, err := setupLocker(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	p := ingest.NewPipeline(st, setupSearcher(cfg, logger), st, logger,
		ingest.WithLocker(locker),
		ingest.WithReporter(reporter),
		ingest.WithDryRun(dryRun),
	)
	return p, closeLock, nil
}
