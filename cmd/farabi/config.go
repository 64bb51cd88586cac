// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/farabi/internal/llm"
	"github.com/pdiddy/farabi/internal/secrets"
	"github.com/pdiddy/farabi/pkg/types"
)

const userAgent = "farabi/0.1"

// setDefaults registers every configuration default on v. Keys must be
// known to viper for AutomaticEnv to apply during Unmarshal.
func setDefaults(v *viper.Viper) {
	p := types.DefaultPipelineConfig()

	v.SetDefault("gateway.base_url", "http://localhost:8000")
	v.SetDefault("gateway.timeout", 120*time.Second)
	v.SetDefault("gateway.user_agent", userAgent)

	v.SetDefault("pipeline.search_limit", p.SearchLimit)
	v.SetDefault("pipeline.fetch_max_papers", p.FetchMaxPapers)
	v.SetDefault("pipeline.analyze_max_papers", p.AnalyzeMaxPapers)
	v.SetDefault("pipeline.deep_dive", p.DeepDive)
	v.SetDefault("pipeline.dedupe_papers", p.DedupePapers)
	v.SetDefault("pipeline.tick_interval", p.TickInterval)

	v.SetDefault("llm.base_url", llm.DefaultBaseURL)
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.user_agent", userAgent)
	v.SetDefault("search.provider", "semantic_scholar")
	v.SetDefault("search.email", "")
	v.SetDefault("search.semantic_scholar_api_key", "")
	v.SetDefault("search.max_retries", 3)

	v.SetDefault("content.timeout", 30*time.Second)
	v.SetDefault("content.user_agent", userAgent)
	v.SetDefault("content.reader_url", "https://r.jina.ai/")
	v.SetDefault("content.api_key", "")
	v.SetDefault("content.max_content_length", 15000)
	v.SetDefault("content.concurrency", 4)

	v.SetDefault("store.path", "farabi.db")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// bindEnv maps FARABI_-prefixed environment variables onto config keys, so
// FARABI_GATEWAY_BASE_URL sets gateway.base_url.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FARABI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig unmarshals the global viper state into a Config, fills API keys
// the config left empty from s, and validates the result.
func loadConfig(s secrets.Secrets) (types.Config, error) {
	return decodeConfig(viper.GetViper(), s)
}

func decodeConfig(v *viper.Viper, s secrets.Secrets) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = s.Get(secrets.GroqAPIKey)
	}
	if c.Search.SemanticScholarAPIKey == "" {
		c.Search.SemanticScholarAPIKey = s.Get(secrets.SemanticScholarAPIKey)
	}
	if c.Content.APIKey == "" {
		c.Content.APIKey = s.Get(secrets.JinaAPIKey)
	}

	if err := validator.New().Struct(c); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
