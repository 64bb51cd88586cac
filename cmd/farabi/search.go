// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search for papers directly, without the backend",
	Long: `Search queries the configured provider (Semantic Scholar, OpenAlex, or
arXiv) with each argument as a separate query, the same way the pipeline's
Search stage does for sub-queries. Use it to check what a set of keywords
returns before a full research run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	dedupe, _ := cmd.Flags().GetBool("dedupe")
	format, _ := cmd.Flags().GetString("format")

	log := logging.Component(logger, "search")
	backend, err := search.New(cfg.Search, log)
	if err != nil {
		return err
	}
	res, err := search.MultiSearch(cmd.Context(), backend, args, limit, dedupe, log)
	if err != nil {
		return err
	}
	if len(res.FailedQueries) > 0 {
		fmt.Fprintf(os.Stderr, "%s %s\n", failStyle.Render("failed queries:"), strings.Join(res.FailedQueries, "; "))
	}
	if res.DupsRemoved > 0 {
		fmt.Fprintf(os.Stderr, "Removed %d duplicate(s)\n", res.DupsRemoved)
	}

	switch format {
	case "table":
		search.FormatTable(res.Papers, cmd.OutOrStdout())
		return nil
	case "json":
		return search.FormatJSON(res.Papers, cmd.OutOrStdout())
	case "csl":
		return search.FormatCSL(res.Papers, cmd.OutOrStdout())
	default:
		return fmt.Errorf("unknown format %q (want table, json, or csl)", format)
	}
}

func init() {
	searchCmd.Flags().Int("limit", 8, "maximum results per query")
	searchCmd.Flags().Bool("dedupe", false, "drop papers already returned by an earlier query")
	searchCmd.Flags().String("format", "table", "output format: table, json, csl (CSL-YAML bibliography)")

	rootCmd.AddCommand(searchCmd)
}
