// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/gateway"
	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/internal/pipeline"
	"github.com/pdiddy/farabi/internal/project"
	"github.com/pdiddy/farabi/pkg/types"
)

// defaultUserID owns projects saved from the CLI when --user is not given.
const defaultUserID = "local"

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run the six-stage research pipeline on final keywords",
	Long: `Research sends the final keywords through the backend: Decompose splits
them into sub-queries, Search queries Semantic Scholar, Full Text retrieves
paper content (skipped with --fast), Analyze extracts key insights, Report
writes a research report, and Script drafts the cited narrative.

The result is printed as Markdown, YAML, or JSON. With --save the result is
stored as a project, on the backend by default or in the local store with
--local.`,
	RunE: runResearch,
}

// researchOptions are the inputs of one research command run.
type researchOptions struct {
	Topic    string
	Keywords string
	DeepDive bool
	Dedupe   bool
	Format   string
	Save     bool
	Local    bool
	UserID   string
	Title    string
}

func runResearch(cmd *cobra.Command, args []string) error {
	keywords, _ := cmd.Flags().GetString("keywords")
	if keywords == "" {
		keywords = strings.Join(args, " ")
	}
	topic, _ := cmd.Flags().GetString("topic")
	fast, _ := cmd.Flags().GetBool("fast")
	dedupe, _ := cmd.Flags().GetBool("dedupe")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	local, _ := cmd.Flags().GetBool("local")
	user, _ := cmd.Flags().GetString("user")
	title, _ := cmd.Flags().GetString("title")

	opts := researchOptions{
		Topic:    topic,
		Keywords: keywords,
		DeepDive: cfg.Pipeline.DeepDive && !fast,
		Dedupe:   cfg.Pipeline.DedupePapers || dedupe,
		Format:   format,
		Save:     save,
		Local:    local,
		UserID:   user,
		Title:    title,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return doResearch(ctx, os.Stdout, os.Stderr, opts)
}

// doResearch runs the pipeline against the configured backend, writes the
// blueprint to out, and saves it when requested. Stage progress goes to
// status.
func doResearch(ctx context.Context, out, status io.Writer, opts researchOptions) error {
	gw, err := gateway.New(cfg.Gateway, gateway.WithLogger(logging.Component(logger, "gateway")))
	if err != nil {
		return err
	}

	pcfg := cfg.Pipeline
	pcfg.DedupePapers = opts.Dedupe
	reporter := stageReporter{w: status}
	sess := pipeline.NewSession(gw, pcfg,
		pipeline.WithLogger(logging.Component(logger, "pipeline")),
		pipeline.WithObserver(reporter.observe))

	bp, err := sess.Start(ctx, opts.Topic, opts.Keywords, opts.DeepDive)
	if err != nil {
		return err
	}
	fmt.Fprintf(status, "%s in %s: %d papers, %d insights, %d words\n",
		doneStyle.Render("Research complete"),
		formatElapsed(sess.Elapsed()),
		len(sess.Papers()), len(bp.KeyInsights), bp.Narrative.WordCount())

	title := opts.Title
	if title == "" {
		title = firstNonEmpty(opts.Topic, opts.Keywords)
	}
	if err := writeBlueprint(out, opts.Format, title, bp); err != nil {
		return err
	}

	if !opts.Save {
		return nil
	}
	saver, closeFn, err := projectSaver(gw, opts.Local)
	if err != nil {
		return err
	}
	defer closeFn()

	req := types.SaveProjectRequest{
		UserID:         firstNonEmpty(opts.UserID, defaultUserID),
		Title:          title,
		QueryTopic:     firstNonEmpty(opts.Topic, opts.Keywords),
		KeyInsights:    bp.KeyInsights,
		Narrative:      bp.Narrative,
		Papers:         sess.Papers(),
		References:     bp.References,
		ResearchReport: bp.ResearchReport,
	}
	id, err := saver.SaveProject(ctx, req)
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	logger.Info("project saved", zap.String("project_id", id), zap.Bool("local", opts.Local))
	fmt.Fprintf(status, "%s %s\n", doneStyle.Render("Saved project"), id)
	return nil
}

// projectSaver returns the backend client, or the local store when local is
// set. The returned func releases the store.
func projectSaver(gw *gateway.Client, local bool) (project.Saver, func(), error) {
	if !local {
		return gw, func() {}, nil
	}
	store, err := project.Open(cfg.Store, logging.Component(logger, "store"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// writeBlueprint writes bp in format. Markdown renders the article canvas
// followed by the reference list.
func writeBlueprint(w io.Writer, format, title string, bp *types.ContentBlueprint) error {
	canvas := project.CanvasBlocks(title, bp.Narrative, bp.KeyInsights)
	if err := project.Write(w, format, bp, canvas); err != nil {
		return err
	}
	if (format != project.FormatMarkdown && format != "md") || len(bp.References) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n## References\n\n")
	for i, r := range bp.References {
		year := "n.d."
		if r.Year != nil {
			year = fmt.Sprint(*r.Year)
		}
		fmt.Fprintf(w, "%d. %s (%s). %s", i+1, r.Authors, year, r.Title)
		if r.URL != nil {
			fmt.Fprintf(w, ". %s", *r.URL)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func init() {
	researchCmd.Flags().String("keywords", "", "final keywords to research (or pass them as arguments)")
	researchCmd.Flags().String("topic", "", "original topic; defaults to the keywords")
	researchCmd.Flags().Bool("fast", false, "skip full-text retrieval and analyze abstracts only")
	researchCmd.Flags().Bool("dedupe", false, "drop papers already returned by an earlier sub-query")
	researchCmd.Flags().String("format", project.FormatMarkdown, "output format: markdown, yaml, json")
	researchCmd.Flags().Bool("save", false, "save the result as a project")
	researchCmd.Flags().Bool("local", false, "save to the local project store instead of the backend")
	researchCmd.Flags().String("user", "", "user id that owns the saved project (default \"local\")")
	researchCmd.Flags().String("title", "", "project title; defaults to the topic")

	rootCmd.AddCommand(researchCmd)
}
