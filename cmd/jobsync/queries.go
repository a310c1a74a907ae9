package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/model"
)

var (
	addPage       int
	addNumPages   int
	addDatePosted string
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "List the saved queries and stored row counts",
	Long:  "Reads job_queries and prints a table of every saved query, followed by the row counts of the job tables.",
	RunE:  runQueries,
}

var queriesAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Save a new query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueriesAdd,
}

func init() {
	queriesAddCmd.Flags().IntVar(&addPage, "page", 1, "first result page")
	queriesAddCmd.Flags().IntVar(&addNumPages, "num-pages", 1, "number of pages per request")
	queriesAddCmd.Flags().StringVar(&addDatePosted, "date-posted", "", "all, today, 3days, week or month")
	queriesCmd.AddCommand(queriesAddCmd)
	rootCmd.AddCommand(queriesCmd)
}

func runQueries(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := setupStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	defs, err := st.ListQueryDefinitions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list queries: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-6s %-40s %-5s %-6s %s\n", "ID", "Query", "Page", "Pages", "Date posted")
	fmt.Println(strings.Repeat("─", 72))
	for _, d := range defs {
		datePosted := d.DatePosted
		if datePosted == "" {
			datePosted = "-"
		}
		fmt.Printf("%-6d %-40s %-5d %-6d %s\n", d.ID, truncate(d.Query, 40), d.Page, d.NumPages, datePosted)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nTotal: %d queries | stored: %d jobs, %d benefits, %d apply options, %d highlights\n",
		len(defs), stats.Jobs, stats.Benefits, stats.ApplyOptions, stats.Highlights)
	return nil
}

func runQueriesAdd(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}
	if addPage < 1 || addNumPages < 1 {
		return fmt.Errorf("--page and --num-pages must be at least 1")
	}
	switch addDatePosted {
	case "", "all", "today", "3days", "week", "month":
	default:
		return fmt.Errorf("--date-posted must be one of all, today, 3days, week, month")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := setupStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	id, err := st.AddQueryDefinition(ctx, model.QueryDefinition{
		Query:      query,
		Page:       addPage,
		NumPages:   addNumPages,
		DatePosted: addDatePosted,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to save query: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved query #%d: %s\n", id, query)
	return nil
}
