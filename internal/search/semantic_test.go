// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/farabi/internal/httputil"
	"github.com/pdiddy/farabi/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// withSemanticServer points the backend at an httptest server for the
// duration of the test.
func withSemanticServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	t.Cleanup(func() {
		semanticAPIBase = old
		ts.Close()
	})
	return ts
}

// --- Request construction (URL params, headers) ---

func TestSemanticSearchRequestParams(t *testing.T) {
	var capturedReq *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), UserAgent: "test/0.1"}
	if _, err := b.Search(context.Background(), "C4 photosynthesis", 8); err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := capturedReq.URL.Query()
	if got := q.Get("query"); got != "C4 photosynthesis" {
		t.Errorf("query param = %q", got)
	}
	if got := q.Get("limit"); got != "8" {
		t.Errorf("limit param = %q, want 8", got)
	}
	fields := q.Get("fields")
	for _, f := range []string{"paperId", "title", "abstract", "authors", "year", "citationCount", "url", "openAccessPdf"} {
		if !strings.Contains(fields, f) {
			t.Errorf("fields param %q missing %q", fields, f)
		}
	}
	if got := capturedReq.Header.Get("User-Agent"); got != "test/0.1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantKey string
	}{
		{"with API key", "test-key-123", "test-key-123"},
		{"without API key", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), APIKey: tt.apiKey}
			if _, err := b.Search(context.Background(), "test", 5); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got != tt.wantKey {
				t.Errorf("x-api-key header = %q, want %q", got, tt.wantKey)
			}
		})
	}
}

// --- Response mapping ---

func TestSemanticSearchMapsPapers(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":3,"offset":0,"data":[
			{"paperId":"p1","title":"Kranz anatomy","abstract":"Bundle sheath cells.","year":2019,"citationCount":42,
			 "url":"https://www.semanticscholar.org/paper/p1","authors":[{"authorId":"1","name":"Sage"},{"authorId":"2","name":"Christin"}],
			 "openAccessPdf":{"url":"https://example.org/p1.pdf","status":"GREEN"}},
			{"paperId":"p2","title":"","abstract":"untitled"},
			{"paperId":"p3","title":"No abstract","abstract":null,"year":null,"authors":[],"openAccessPdf":null}
		]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client()}
	papers, err := b.Search(context.Background(), "C4", 8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2 (untitled dropped)", len(papers))
	}

	p := papers[0]
	if p.PaperID != "p1" || p.Title != "Kranz anatomy" || p.AbstractText() != "Bundle sheath cells." {
		t.Errorf("paper = %+v", p)
	}
	if p.Year == nil || *p.Year != 2019 || p.CitationCount == nil || *p.CitationCount != 42 {
		t.Errorf("year/citations not mapped: %+v", p)
	}
	if got := types.FormatAuthors(p.Authors); got != "Sage, Christin" {
		t.Errorf("authors = %q", got)
	}
	if !p.IsOpenAccess() || *p.PDFURL != "https://example.org/p1.pdf" {
		t.Errorf("PDFURL = %v", p.PDFURL)
	}

	q := papers[1]
	if q.HasAbstract() || q.Year != nil || q.IsOpenAccess() {
		t.Errorf("nullable fields not nil: %+v", q)
	}
}

// --- Error cases ---

func TestSemanticSearchHTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    string
	}{
		{"429 rate limit after retries", http.StatusTooManyRequests, "HTTP 429"},
		{"500 server error", http.StatusInternalServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), MaxRetries: 1}
			_, err := b.Search(context.Background(), "test", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSemanticSearchMalformedJSON(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{invalid json`)
	})

	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), "test", 5)
	if err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Errorf("error = %v, want parsing error", err)
	}
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	b := &SemanticScholarBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "  ", 5)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("error = %v, want empty-query error", err)
	}
}

func TestNewSemanticScholarUsesConfig(t *testing.T) {
	cfg := types.SearchConfig{
		HTTPConfig:            types.HTTPConfig{Timeout: 7 * time.Second, UserAgent: "ua"},
		SemanticScholarAPIKey: "k",
		MaxRetries:            2,
	}
	b := NewSemanticScholar(cfg, nil)
	if b.Client.Timeout != 7*time.Second || b.APIKey != "k" || b.UserAgent != "ua" || b.MaxRetries != 2 {
		t.Errorf("backend = %+v", b)
	}
	if b.Name() != "semantic_scholar" {
		t.Errorf("Name() = %q", b.Name())
	}
}
