// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/httputil"
	"github.com/pdiddy/farabi/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,authors,year,citationCount,url,openAccessPdf"

const defaultUserAgent = "farabi/0.1 (academic research tool)"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxRetries int
	Log        *zap.Logger
}

// NewSemanticScholar builds a backend from cfg.
func NewSemanticScholar(cfg types.SearchConfig, log *zap.Logger) *SemanticScholarBackend {
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &SemanticScholarBackend{
		Client:     hc,
		APIKey:     cfg.SemanticScholarAPIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Log:        log,
	}
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return ProviderSemanticScholar }

// Search returns up to limit papers matching query. Entries without a title
// are dropped.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if limit <= 0 {
		limit = 8
	}

	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentOr(b.UserAgent))
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	policy := httputil.RetryPolicy{MaxRetries: b.MaxRetries, Log: b.Log}
	resp, err := policy.Do(ctx, client, req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]types.Paper, 0, len(sr.Data))
	for _, sp := range sr.Data {
		if sp.Title == "" {
			continue
		}
		papers = append(papers, sp.toPaper())
	}
	return papers, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string           `json:"paperId"`
	Title         string           `json:"title"`
	Abstract      *string          `json:"abstract"`
	Year          *int             `json:"year"`
	CitationCount *int             `json:"citationCount"`
	URL           *string          `json:"url"`
	Authors       []semanticAuthor `json:"authors"`
	OpenAccessPDF *semanticPDF     `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticPDF struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

func (sp semanticPaper) toPaper() types.Paper {
	p := types.Paper{
		PaperID:       sp.PaperID,
		Title:         sp.Title,
		Abstract:      sp.Abstract,
		Year:          sp.Year,
		CitationCount: sp.CitationCount,
		URL:           sp.URL,
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	if sp.OpenAccessPDF != nil && sp.OpenAccessPDF.URL != "" {
		u := sp.OpenAccessPDF.URL
		p.PDFURL = &u
	}
	return p
}
