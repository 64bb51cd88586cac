// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/farabi/internal/search"
	"github.com/pdiddy/farabi/pkg/types"
)

// dedupeByID drops papers whose id was already seen, keeping the first.
func dedupeByID(papers []types.Paper) []types.Paper {
	out, _ := search.Deduplicate(papers)
	return out
}

// abstractsOnly gives every paper its abstract as content.
func abstractsOnly(papers []types.Paper) []types.PaperWithContent {
	out := make([]types.PaperWithContent, len(papers))
	for i, p := range papers {
		out[i] = types.AbstractOnly(p)
	}
	return out
}

// mergeContent pairs each paper with the content fetched for it. Papers the
// fetch response does not mention fall back to their abstract.
func mergeContent(papers []types.Paper, fetched []types.PaperWithContent) []types.PaperWithContent {
	byID := make(map[string]types.PaperWithContent, len(fetched))
	for _, c := range fetched {
		if _, ok := byID[c.PaperID]; !ok {
			byID[c.PaperID] = c
		}
	}
	out := make([]types.PaperWithContent, len(papers))
	for i, p := range papers {
		if c, ok := byID[p.PaperID]; ok {
			out[i] = c
			continue
		}
		out[i] = types.AbstractOnly(p)
	}
	return out
}

// withAbstract returns up to limit papers that carry an abstract.
func withAbstract(papers []types.Paper, limit int) []types.Paper {
	var out []types.Paper
	for _, p := range papers {
		if len(out) == limit {
			break
		}
		if p.HasAbstract() {
			out = append(out, p)
		}
	}
	return out
}

// withContent returns up to limit papers that have any content.
func withContent(contents []types.PaperWithContent, limit int) []types.PaperWithContent {
	var out []types.PaperWithContent
	for _, c := range contents {
		if len(out) == limit {
			break
		}
		if c.HasContent() {
			out = append(out, c)
		}
	}
	return out
}
