// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/internal/project"
	"github.com/pdiddy/farabi/pkg/types"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse and export saved projects",
	Long: `Projects reads the local SQLite project store the serve command and
research --local write to. Use subcommands to list, show, or export them.`,
}

// --- list subcommand ---

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved projects, newest first",
	RunE:  runProjectsList,
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.List(cmd.Context(), user)
	if err != nil {
		return err
	}
	return formatProjectList(cmd.OutOrStdout(), projects, jsonOutput)
}

func formatProjectList(w io.Writer, projects []types.ProjectSummary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-40s  %-6s  %-7s  %s\n", "ID", "Title", "Papers", "Status", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, p := range projects {
		title := p.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Fprintf(w, "%-36s  %-40s  %-6d  %-7s  %s\n",
			p.ID, title, p.PaperCount, p.Status, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// --- show subcommand ---

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a project's article canvas as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Export(cmd.Context(), args[0], project.FormatMarkdown, cmd.OutOrStdout())
	},
}

// --- export subcommand ---

var projectsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a project as YAML, JSON, or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsExport,
}

func runProjectsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if outPath == "" {
		return store.Export(cmd.Context(), args[0], format, cmd.OutOrStdout())
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := store.Export(cmd.Context(), args[0], format, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %s to %s\n", args[0], outPath)
	return nil
}

func openStore() (*project.Store, error) {
	return project.Open(cfg.Store, logging.Component(logger, "store"))
}

func init() {
	projectsListCmd.Flags().String("user", "", "only list projects owned by this user id")
	projectsListCmd.Flags().Bool("json", false, "output as JSON")

	projectsExportCmd.Flags().String("format", project.FormatYAML, "export format: yaml, json, markdown")
	projectsExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsExportCmd)
	rootCmd.AddCommand(projectsCmd)
}
