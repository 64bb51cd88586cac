// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs for papers. MultiSearch fans one
// search per sub-query out concurrently and merges the results in sub-query
// order.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/farabi/pkg/types"
)

// Backend searches a single academic API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.Paper, error)
}

// MultiOutput holds the merged papers and fan-out statistics.
type MultiOutput struct {
	Papers        []types.Paper
	DupsRemoved   int
	FailedQueries []string
}

// maxConcurrentQueries bounds the fan-out of a single MultiSearch.
const maxConcurrentQueries = 5

// MultiSearch runs one search per sub-query concurrently, with limit
// results each, and concatenates the results in sub-query order. A failing
// sub-query is logged and skipped; if every sub-query fails the first error
// is returned. With dedupe set, papers already returned by an earlier
// sub-query are dropped.
func MultiSearch(ctx context.Context, b Backend, subQueries []string, limit int, dedupe bool, log *zap.Logger) (MultiOutput, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var queries []string
	for _, q := range subQueries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return MultiOutput{}, fmt.Errorf("no sub-queries to search")
	}

	results := make([][]types.Paper, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for i, q := range queries {
		g.Go(func() error {
			papers, err := b.Search(gctx, q, limit)
			if err != nil {
				// Individual failures do not cancel the siblings.
				errs[i] = err
				return nil
			}
			results[i] = papers
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return MultiOutput{}, err
	}

	var out MultiOutput
	var firstErr error
	for i, q := range queries {
		if errs[i] != nil {
			log.Warn("sub-query search failed",
				zap.String("backend", b.Name()),
				zap.String("query", q),
				zap.Error(errs[i]))
			out.FailedQueries = append(out.FailedQueries, q)
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		log.Debug("sub-query searched", zap.String("query", q), zap.Int("papers", len(results[i])))
		out.Papers = append(out.Papers, results[i]...)
	}
	if len(out.FailedQueries) == len(queries) {
		return MultiOutput{}, fmt.Errorf("all %d sub-queries failed: %w", len(queries), firstErr)
	}

	if dedupe {
		out.Papers, out.DupsRemoved = Deduplicate(out.Papers)
	}
	return out, nil
}

// Deduplicate merges papers that share a paperId or normalized title,
// keeping the first occurrence and filling its empty fields from later ones.
func Deduplicate(papers []types.Paper) ([]types.Paper, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.Paper
	removed := 0

	for _, p := range papers {
		idKey := ""
		if p.PaperID != "" {
			idKey = "id:" + p.PaperID
		}
		titleKey := ""
		if t := normalizeTitle(p.Title); t != "" {
			titleKey = "title:" + t
		}

		if idx, ok := lookup(seen, idKey, titleKey); ok {
			mergeInto(&deduped[idx], p)
			removed++
			continue
		}

		idx := len(deduped)
		deduped = append(deduped, p)
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func lookup(seen map[string]int, keys ...string) (int, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if idx, ok := seen[k]; ok {
			return idx, true
		}
	}
	return 0, false
}

// mergeInto fills empty fields of dst from src.
func mergeInto(dst *types.Paper, src types.Paper) {
	if !dst.HasAbstract() && src.HasAbstract() {
		dst.Abstract = src.Abstract
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.CitationCount == nil {
		dst.CitationCount = src.CitationCount
	}
	if dst.URL == nil {
		dst.URL = src.URL
	}
	if !dst.IsOpenAccess() && src.IsOpenAccess() {
		dst.PDFURL = src.PDFURL
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes papers as a human-readable table to w.
func FormatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Cites", "OA")
	fmt.Fprintln(w, strings.Repeat("-", 106))

	for i, p := range papers {
		year, cites := "", ""
		if p.Year != nil {
			year = fmt.Sprintf("%d", *p.Year)
		}
		if p.CitationCount != nil {
			cites = fmt.Sprintf("%d", *p.CitationCount)
		}
		oa := ""
		if p.IsOpenAccess() {
			oa = "pdf"
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6s  %s\n",
			i+1, truncate(p.Title, 60), formatAuthors(p.Authors), year, cites, oa)
	}
	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(papers []types.Paper, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
