// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/pkg/types"
)

// Provider names accepted by New.
const (
	ProviderSemanticScholar = "semantic_scholar"
	ProviderOpenAlex        = "openalex"
	ProviderArxiv           = "arxiv"
)

// New returns the backend named by cfg.Provider. An empty provider selects
// Semantic Scholar.
func New(cfg types.SearchConfig, log *zap.Logger) (Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Provider {
	case ProviderSemanticScholar, "":
		return NewSemanticScholar(cfg, log), nil
	case ProviderOpenAlex:
		return NewOpenAlex(cfg, log), nil
	case ProviderArxiv:
		return NewArxiv(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}

func userAgentOr(ua string) string {
	if ua == "" {
		return defaultUserAgent
	}
	return ua
}
