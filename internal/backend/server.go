// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend serves the research operations the gateway client calls:
// the interview, topic decomposition, multi-query search, full-text
// retrieval, analysis, the two writing stages, and project saving.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/fetch"
	"github.com/pdiddy/farabi/internal/llm"
	"github.com/pdiddy/farabi/internal/project"
	"github.com/pdiddy/farabi/internal/search"
	"github.com/pdiddy/farabi/pkg/types"
)

const (
	defaultAnalyzeMax = 10
	defaultFetchMax   = 8

	shutdownTimeout = 10 * time.Second
)

var validate = validator.New()

// ContentFetcher retrieves full text for a batch of papers.
type ContentFetcher interface {
	FetchAll(ctx context.Context, papers []types.Paper, maxPapers int) (fetch.BatchResult, error)
}

// Deps are the collaborators behind the endpoints. LLM may be nil when no
// API key is configured: decomposition then falls back to the keywords and
// the other model-backed endpoints answer 500.
type Deps struct {
	LLM     llm.Completer
	Search  search.Backend
	Fetcher ContentFetcher
	Store   project.Saver
}

// Server handles backend requests.
type Server struct {
	deps       Deps
	log        *zap.Logger
	origins    map[string]struct{}
	analyzeMax int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAllowedOrigins sets the CORS origins browsers may call from.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = struct{}{}
		}
	}
}

// WithAnalyzeMax caps the papers sent to the analysis and writing prompts.
func WithAnalyzeMax(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.analyzeMax = n
		}
	}
}

// New builds a Server.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:       deps,
		log:        zap.NewNop(),
		origins:    make(map[string]struct{}),
		analyzeMax: defaultAnalyzeMax,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.registerRoutes()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("backend listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("backend server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("backend shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}
