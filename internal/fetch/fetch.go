// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves the text of papers through the Jina Reader API.
// For each paper it tries the open-access PDF, then the paper page, then
// falls back to the abstract. Long documents are trimmed by SmartTruncate.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/farabi/internal/httputil"
	"github.com/pdiddy/farabi/pkg/types"
)

const (
	// DefaultReaderURL is the Jina Reader prefix; the target URL is appended.
	DefaultReaderURL = "https://r.jina.ai/"

	// minContentChars is the length a reader response must exceed to count.
	minContentChars = 200

	// fullTextChars is the processed PDF length above which content counts
	// as full text rather than partial.
	fullTextChars = 2000

	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
	defaultUserAgent   = "farabi/0.1 (academic research tool)"

	// maxBody bounds how much of a reader response is read.
	maxBody = 4 << 20
)

// Fetcher downloads paper text through a reader service.
type Fetcher struct {
	client      *http.Client
	readerURL   string
	apiKey      string
	userAgent   string
	maxChars    int
	concurrency int
	log         *zap.Logger
}

// New returns a Fetcher for cfg. Zero values take the defaults.
func New(cfg types.ContentConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	f := &Fetcher{
		client:      &http.Client{Timeout: timeout},
		readerURL:   cfg.ReaderURL,
		apiKey:      cfg.APIKey,
		userAgent:   cfg.UserAgent,
		maxChars:    cfg.MaxContentLength,
		concurrency: cfg.Concurrency,
		log:         log,
	}
	if f.readerURL == "" {
		f.readerURL = DefaultReaderURL
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.maxChars <= 0 {
		f.maxChars = DefaultMaxContentLength
	}
	if f.concurrency <= 0 {
		f.concurrency = defaultConcurrency
	}
	return f
}

// WithHTTPClient replaces the HTTP client, for tests.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// BatchResult holds the outcome of fetching content for a paper list.
type BatchResult struct {
	Papers            []types.PaperWithContent
	FullTextCount     int
	AbstractOnlyCount int
}

// Total returns the number of papers processed.
func (r BatchResult) Total() int { return len(r.Papers) }

// FetchAll fetches content for the first maxPapers papers concurrently and
// gives the remaining papers their abstracts. Result order matches input
// order. Individual failures fall back per paper and never fail the batch;
// only context cancellation does.
func (f *Fetcher) FetchAll(ctx context.Context, papers []types.Paper, maxPapers int) (BatchResult, error) {
	if maxPapers < 0 {
		maxPapers = 0
	}
	n := min(maxPapers, len(papers))
	out := make([]types.PaperWithContent, len(papers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := range n {
		g.Go(func() error {
			out[i] = f.FetchPaper(gctx, papers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}
	for i := n; i < len(papers); i++ {
		out[i] = types.AbstractOnly(papers[i])
	}

	res := BatchResult{Papers: out}
	for _, p := range out {
		if p.ContentType == types.ContentFullText {
			res.FullTextCount++
		}
	}
	res.AbstractOnlyCount = len(out) - res.FullTextCount
	f.log.Info("content fetch complete",
		zap.Int("papers", len(out)),
		zap.Int("full_text", res.FullTextCount),
		zap.Int("abstract_only", res.AbstractOnlyCount))
	return res, nil
}

// FetchPaper returns the best content available for p: the open-access PDF,
// then the paper page, then the abstract.
func (f *Fetcher) FetchPaper(ctx context.Context, p types.Paper) types.PaperWithContent {
	if p.IsOpenAccess() {
		text, err := f.read(ctx, *p.PDFURL)
		if err == nil {
			text = SmartTruncate(text, f.maxChars)
			ct := types.ContentPartial
			if len(text) > fullTextChars {
				ct = types.ContentFullText
			}
			return withContent(p, text, ct, types.SourceJinaPDF)
		}
		f.log.Debug("pdf read failed", zap.String("paper", p.PaperID), zap.Error(err))
	}
	if p.URL != nil && *p.URL != "" {
		text, err := f.read(ctx, *p.URL)
		if err == nil {
			return withContent(p, SmartTruncate(text, f.maxChars), types.ContentPartial, types.SourceJinaPage)
		}
		f.log.Debug("page read failed", zap.String("paper", p.PaperID), zap.Error(err))
	}
	return types.AbstractOnly(p)
}

func withContent(p types.Paper, text string, ct types.ContentType, src types.ContentSource) types.PaperWithContent {
	return types.PaperWithContent{
		Paper:         p,
		Content:       text,
		ContentType:   ct,
		ContentSource: src,
		WordCount:     types.WordCount(text),
	}
}

// read fetches target through the reader and returns its markdown.
func (f *Fetcher) read(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.readerURL+target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown")
	req.Header.Set("User-Agent", f.userAgent)
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := httputil.RetryPolicy{MaxRetries: 2, Log: f.log}.Do(ctx, f.client, req)
	if err != nil {
		return "", fmt.Errorf("reader request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader returned HTTP %d for %s", resp.StatusCode, target)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("reading reader response: %w", err)
	}
	text := string(data)
	if len(strings.TrimSpace(text)) <= minContentChars {
		return "", fmt.Errorf("reader content too short (%d chars)", len(text))
	}
	return text, nil
}
