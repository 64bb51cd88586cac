// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/httputil"
	"github.com/pdiddy/farabi/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// openAlexMaxPerPage is the largest page OpenAlex serves.
const openAlexMaxPerPage = 200

// OpenAlexBackend queries the OpenAlex API.
type OpenAlexBackend struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as mailto parameter for polite pool access.
	Email      string
	MaxRetries int
	Log        *zap.Logger
}

// NewOpenAlex builds a backend from cfg.
func NewOpenAlex(cfg types.SearchConfig, log *zap.Logger) *OpenAlexBackend {
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &OpenAlexBackend{
		Client:     hc,
		UserAgent:  cfg.UserAgent,
		Email:      cfg.Email,
		MaxRetries: cfg.MaxRetries,
		Log:        log,
	}
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return ProviderOpenAlex }

// Search returns up to limit works matching query. Works without a title
// are dropped.
func (b *OpenAlexBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if limit <= 0 {
		limit = 8
	}
	limit = min(limit, openAlexMaxPerPage)

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(limit)},
		"page":     {"1"},
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	papers := make([]types.Paper, 0, len(oar.Results))
	for _, work := range oar.Results {
		if work.Title == "" {
			continue
		}
		papers = append(papers, work.toPaper())
	}
	return papers, nil
}

func (w openAlexWork) toPaper() types.Paper {
	p := types.Paper{
		PaperID: w.ID,
		Title:   w.Title,
	}
	// OpenAlex is DOI-centric; the bare DOI is the stable identifier.
	if w.DOI != "" {
		p.PaperID = strings.TrimPrefix(w.DOI, "https://doi.org/")
		doiURL := w.DOI
		p.URL = &doiURL
	} else if w.ID != "" {
		id := w.ID
		p.URL = &id
	}
	if abs := reconstructAbstract(w.AbstractInvertedIndex); abs != "" {
		p.Abstract = &abs
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			p.Authors = append(p.Authors, a.Author.DisplayName)
		}
	}
	if w.PublicationYear > 0 {
		year := w.PublicationYear
		p.Year = &year
	}
	if w.CitedByCount != nil {
		n := *w.CitedByCount
		p.CitationCount = &n
	}
	if w.OpenAccess.IsOA && w.OpenAccess.OAURL != "" {
		u := w.OpenAccess.OAURL
		p.PDFURL = &u
	}
	return p
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}
