// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps an OpenAI-compatible chat completions API. The backend
// uses it for every model call: interviewing, decomposition, analysis, and
// the two writing stages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/pkg/types"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1/"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama-3.3-70b-versatile"

	defaultTimeout = 120 * time.Second
)

// ErrNoAPIKey is returned by New when no API key is configured.
var ErrNoAPIKey = errors.New("LLM API key not configured")

// Role names the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn sent with a request.
type Message struct {
	Role    Role
	Content string
}

// Request is a single chat completion call. System is sent first, then
// Messages in order. With JSON set the model is asked for a JSON object;
// a non-nil Schema upgrades that to strict structured output.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	JSON        bool
	Schema      map[string]any
	SchemaName  string
}

// Completer returns the text of one completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client is a Completer backed by openai-go.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// New builds a client from cfg. The base URL defaults to Groq.
func New(cfg types.LLMConfig, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(1),
	)
	return &Client{api: api, model: model, timeout: timeout, log: log}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends req and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParams(req),
		Temperature: openai.Float(req.Temperature),
	}
	switch {
	case req.Schema != nil:
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	case req.JSON:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	c.log.Debug("chat completion",
		zap.String("model", c.model),
		zap.Duration("took", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))
	return content, nil
}

func toParams(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(m.Content))
	}
	return msgs
}

// CompleteJSON runs req in JSON mode and decodes the reply into T.
func CompleteJSON[T any](ctx context.Context, c Completer, req Request) (T, error) {
	var out T
	req.JSON = true
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), &out); err != nil {
		return out, fmt.Errorf("decoding model JSON: %w", err)
	}
	return out, nil
}

// StripFences removes a Markdown code fence around a JSON reply.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// GenerateSchema reflects T into a JSON schema map suitable for strict
// structured output: every object closes additional properties and lists
// all of its properties as required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	b, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	delete(m, "$schema")
	closeObjects(m)
	return m
}

// SchemaText renders the schema of T for inclusion in a prompt.
func SchemaText[T any]() string {
	b, _ := json.MarshalIndent(GenerateSchema[T](), "", "  ")
	return string(b)
}

func closeObjects(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		closeObjects(items)
	}
}
