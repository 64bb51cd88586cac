// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/httputil"
	"github.com/pdiddy/farabi/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv API. arXiv reports no citation counts.
type ArxivBackend struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
	Log        *zap.Logger
}

// NewArxiv builds a backend from cfg.
func NewArxiv(cfg types.SearchConfig, log *zap.Logger) *ArxivBackend {
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &ArxivBackend{Client: hc, UserAgent: cfg.UserAgent, MaxRetries: cfg.MaxRetries, Log: log}
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return ProviderArxiv }

// Search returns up to limit arXiv entries matching query, most relevant
// first.
func (b *ArxivBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if limit <= 0 {
		limit = 8
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentOr(b.UserAgent))

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	policy := httputil.RetryPolicy{MaxRetries: b.MaxRetries, Log: b.Log}
	resp, err := policy.Do(ctx, client, req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var papers []types.Paper
	for _, entry := range feed.Entries {
		if p, ok := entry.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func (e arxivEntry) toPaper() (types.Paper, bool) {
	id := extractArxivID(e.ID)
	title := strings.Join(strings.Fields(e.Title), " ")
	if id == "" || title == "" {
		return types.Paper{}, false
	}

	absURL := "https://arxiv.org/abs/" + id
	pdfURL := "https://arxiv.org/pdf/" + id
	p := types.Paper{
		PaperID: "arXiv:" + id,
		Title:   title,
		URL:     &absURL,
		PDFURL:  &pdfURL,
	}
	if summary := strings.Join(strings.Fields(e.Summary), " "); summary != "" {
		p.Abstract = &summary
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		year := t.Year()
		p.Year = &year
	}
	return p, true
}

// buildArxivQuery turns free text into an all-fields search_query, joining
// terms with AND.
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "all:" + t
	}
	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
