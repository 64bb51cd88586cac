// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for outbound clients.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every request (e.g. "farabi/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// GatewayConfig configures the Backend Gateway Client.
type GatewayConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the single endpoint every gateway operation is sent to.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
}

// PipelineConfig holds the Stage Pipeline Orchestrator's limits.
type PipelineConfig struct {
	// SearchLimit is the per-sub-query result cap of the Search stage (default 8).
	SearchLimit int `json:"search_limit" yaml:"search_limit" mapstructure:"search_limit" validate:"min=1"`

	// FetchMaxPapers is the number of papers full text is requested for (default 8).
	FetchMaxPapers int `json:"fetch_max_papers" yaml:"fetch_max_papers" mapstructure:"fetch_max_papers" validate:"min=1"`

	// AnalyzeMaxPapers caps the papers sent to Analyze, Report, and Script (default 10).
	AnalyzeMaxPapers int `json:"analyze_max_papers" yaml:"analyze_max_papers" mapstructure:"analyze_max_papers" validate:"min=1"`

	// DeepDive enables full-text retrieval; false is fast mode.
	DeepDive bool `json:"deep_dive" yaml:"deep_dive" mapstructure:"deep_dive"`

	// DedupePapers drops papers already returned by an earlier sub-query.
	DedupePapers bool `json:"dedupe_papers" yaml:"dedupe_papers" mapstructure:"dedupe_papers"`

	// TickInterval is the progress timer resolution (default 100ms).
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" mapstructure:"tick_interval"`
}

// LLMConfig configures the OpenAI-compatible chat API used by the backend.
type LLMConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Model   string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single completion call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig configures the paper search backend.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the backend: semantic_scholar (default), openalex, or arxiv.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=semantic_scholar openalex arxiv"`

	// Email is sent to OpenAlex for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// MaxRetries bounds 429 backoff attempts against the provider (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ContentConfig configures full-text retrieval through the Jina Reader API.
type ContentConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	ReaderURL string `json:"reader_url" yaml:"reader_url" mapstructure:"reader_url" validate:"omitempty,url"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxContentLength is the character budget per paper (default 15000).
	MaxContentLength int `json:"max_content_length" yaml:"max_content_length" mapstructure:"max_content_length"`

	// Concurrency bounds parallel fetches (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the local project store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
}

// ServerConfig configures the backend HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr" validate:"required"`

	// AllowedOrigins lists CORS origins for browser frontends.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Config groups every setting of the CLI and backend.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway" mapstructure:"gateway"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Content  ContentConfig  `json:"content" yaml:"content" mapstructure:"content"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultPipelineConfig returns the limits the pipeline runs with when none
// are configured.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SearchLimit:      8,
		FetchMaxPapers:   8,
		AnalyzeMaxPapers: 10,
		DeepDive:         true,
		TickInterval:     100 * time.Millisecond,
	}
}
