package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/browse"
	"github.com/amishk599/jobsync/internal/config"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/store"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Preview a saved query interactively (TUI)",
	Long:  "Shows the query picker, runs the chosen search without writing anything, then opens the split-pane preview.",
	RunE:  runBrowseCmd,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := setupStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	runBrowse(ctx, cfg, st)
	return nil
}

func runBrowse(ctx context.Context, cfg *config.Config, st *store.SQLStore) {
	defs, err := st.ListQueryDefinitions(ctx)
	if err != nil {
		fmt.Printf("Error listing queries: %v\n", err)
		return
	}
	if len(defs) == 0 {
		fmt.Println("No saved queries. Add one with `jobsync queries add`.")
		return
	}

	// Any log output while the TUI owns the terminal corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	searcher := setupSearcher(cfg, silentLogger)

	for {
		choice, err := browse.RunQueryPicker(defs)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		def := defs[choice]

		entries, err := browse.RunLoader(def.Query, 2*cfg.API.Timeout, func(ctx context.Context) ([]browse.Entry, error) {
			return browse.Preview(ctx, searcher, st, def)
		})
		if err != nil {
			fmt.Printf("Error searching %q: %v\n", def.Query, describe(err))
			continue
		}

		wantQuit, err := browse.RunBrowseTUI(def.Query, entries)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
	}
}

// describe adds a hint for the errors a user can act on.
func describe(err error) error {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w (check RAPIDAPI_KEY)", err)
	}
	return err
}
