// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/backend"
	"github.com/pdiddy/farabi/internal/fetch"
	"github.com/pdiddy/farabi/internal/llm"
	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/internal/project"
	"github.com/pdiddy/farabi/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the research backend HTTP server",
	Long: `Serve runs the backend the interview and research commands call. Model
calls go to an OpenAI-compatible chat API (Groq by default). Papers come from
the configured search provider and full text from the Jina Reader API. Saved
projects go to the local SQLite store.

Without an LLM API key the server still starts: decomposition falls back to
the keywords and the model-backed endpoints answer with an error.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	store, err := project.Open(cfg.Store, logging.Component(logger, "store"))
	if err != nil {
		return err
	}
	defer store.Close()

	searcher, err := search.New(cfg.Search, logging.Component(logger, "search"))
	if err != nil {
		return err
	}
	deps := backend.Deps{
		Search:  searcher,
		Fetcher: fetch.New(cfg.Content, logging.Component(logger, "fetch")),
		Store:   store,
	}
	client, err := llm.New(cfg.LLM, logging.Component(logger, "llm"))
	switch {
	case err == nil:
		deps.LLM = client
		logger.Info("llm configured", zap.String("model", client.Model()))
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn("no LLM API key configured; model-backed endpoints are disabled")
	default:
		return err
	}

	srv := backend.New(deps,
		backend.WithLogger(logging.Component(logger, "backend")),
		backend.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		backend.WithAnalyzeMax(cfg.Pipeline.AnalyzeMaxPapers))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
