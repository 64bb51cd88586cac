// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/farabi/internal/interview"
	"github.com/pdiddy/farabi/internal/llm"
	"github.com/pdiddy/farabi/internal/pipeline"
	"github.com/pdiddy/farabi/internal/secrets"
	"github.com/pdiddy/farabi/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("SEMANTIC_SCHOLAR_API_KEY", "")
	t.Setenv("JINA_API_KEY", "")
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	c, err := decodeConfig(newTestViper(t), secrets.Secrets{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", c.Gateway.BaseURL)
	assert.Equal(t, 120*time.Second, c.Gateway.Timeout)
	assert.Equal(t, 8, c.Pipeline.SearchLimit)
	assert.Equal(t, 8, c.Pipeline.FetchMaxPapers)
	assert.Equal(t, 10, c.Pipeline.AnalyzeMaxPapers)
	assert.True(t, c.Pipeline.DeepDive)
	assert.False(t, c.Pipeline.DedupePapers)
	assert.Equal(t, 100*time.Millisecond, c.Pipeline.TickInterval)
	assert.Equal(t, llm.DefaultBaseURL, c.LLM.BaseURL)
	assert.Equal(t, llm.DefaultModel, c.LLM.Model)
	assert.Equal(t, "https://r.jina.ai/", c.Content.ReaderURL)
	assert.Equal(t, "farabi.db", c.Store.Path)
	assert.Equal(t, ":8000", c.Server.Addr)
	assert.Empty(t, c.LLM.APIKey)
}

func TestDecodeConfigEnvOverrides(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("FARABI_GATEWAY_BASE_URL", "http://backend:9000")
	t.Setenv("FARABI_PIPELINE_SEARCH_LIMIT", "5")
	t.Setenv("FARABI_PIPELINE_DEEP_DIVE", "false")

	c, err := decodeConfig(v, secrets.Secrets{})
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", c.Gateway.BaseURL)
	assert.Equal(t, 5, c.Pipeline.SearchLimit)
	assert.False(t, c.Pipeline.DeepDive)
}

func TestDecodeConfigFillsKeysFromSecrets(t *testing.T) {
	v := newTestViper(t)
	v.Set("content.api_key", "configured")

	c, err := decodeConfig(v, secrets.Secrets{
		secrets.GroqAPIKey:            "groq",
		secrets.SemanticScholarAPIKey: "s2",
		secrets.JinaAPIKey:            "jina",
	})
	require.NoError(t, err)
	assert.Equal(t, "groq", c.LLM.APIKey)
	assert.Equal(t, "s2", c.Search.SemanticScholarAPIKey)
	assert.Equal(t, "configured", c.Content.APIKey, "configured keys win over secrets")
}

func TestDecodeConfigRejectsInvalid(t *testing.T) {
	v := newTestViper(t)
	v.Set("log.level", "verbose")

	_, err := decodeConfig(v, secrets.Secrets{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestChooseOption(t *testing.T) {
	opts := []types.InterviewOption{{Label: "Sleep and memory"}, {Label: "Sleep and mood"}}

	assert.Equal(t, "Sleep and mood", chooseOption("2", opts))
	assert.Equal(t, "3", chooseOption("3", opts))
	assert.Equal(t, "0", chooseOption("0", opts))
	assert.Equal(t, "memory please", chooseOption("memory please", opts))
}

// scriptedAssistant replies with decisions in order and records the last
// history it saw.
type scriptedAssistant struct {
	replies []types.InterviewDecision
	history []types.ConversationMessage
}

func (a *scriptedAssistant) ContinueInterview(_ context.Context, _ string, history []types.ConversationMessage) (types.InterviewDecision, error) {
	a.history = history
	if len(a.replies) == 0 {
		return types.InterviewDecision{}, errors.New("no more replies")
	}
	d := a.replies[0]
	a.replies = a.replies[1:]
	return d, nil
}

func TestConverseFinalizes(t *testing.T) {
	a := &scriptedAssistant{replies: []types.InterviewDecision{
		{NextAction: types.ActionPropose, ReplyText: "Pick an angle.", Options: []types.InterviewOption{
			{Label: "Sleep and memory"}, {Label: "Sleep and mood"},
		}},
		{NextAction: types.ActionFinalize, ReplyText: "Great.", FinalKeywords: "sleep memory consolidation"},
	}}
	mgr := interview.NewManager(a, "sleep")
	in := bufio.NewScanner(strings.NewReader("\n1\n"))
	var out bytes.Buffer

	keywords, err := converse(context.Background(), mgr, in, &out)
	require.NoError(t, err)
	assert.Equal(t, "sleep memory consolidation", keywords)

	require.Len(t, a.history, 3)
	assert.Equal(t, "sleep", a.history[0].Text)
	assert.Equal(t, "Sleep and memory", a.history[2].Text)
	assert.Contains(t, out.String(), "Pick an angle.")
	assert.Contains(t, out.String(), "sleep memory consolidation")
}

func TestConverseQuit(t *testing.T) {
	a := &scriptedAssistant{replies: []types.InterviewDecision{
		{NextAction: types.ActionProbe, ReplyText: "Which aspect?"},
	}}
	mgr := interview.NewManager(a, "sleep")
	var out bytes.Buffer

	keywords, err := converse(context.Background(), mgr, bufio.NewScanner(strings.NewReader("/quit\n")), &out)
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestWriteBlueprintMarkdown(t *testing.T) {
	year := 2021
	bp := &types.ContentBlueprint{
		KeyInsights: []types.KeyInsight{{Insight: "Sleep consolidates memory.", Source: "Walker, 2021"}},
		Narrative:   types.Narrative{Hook: "Why sleep?", Introduction: "Intro.", DeepDive: "Deep.", Conclusion: "End."},
		References:  []types.Reference{{Title: "Sleep and Memory", Authors: "Walker", Year: &year}},
	}
	var out bytes.Buffer
	require.NoError(t, writeBlueprint(&out, "markdown", "Sleep", bp))

	md := out.String()
	assert.True(t, strings.HasPrefix(md, "# Sleep"))
	assert.Contains(t, md, "Why sleep?")
	assert.Contains(t, md, "## References")
	assert.Contains(t, md, "1. Walker (2021). Sleep and Memory")
}

func TestWriteBlueprintYAML(t *testing.T) {
	bp := &types.ContentBlueprint{Narrative: types.Narrative{Hook: "Why sleep?"}}
	var out bytes.Buffer
	require.NoError(t, writeBlueprint(&out, "yaml", "Sleep", bp))
	assert.Contains(t, out.String(), "hook: Why sleep?")
	assert.NotContains(t, out.String(), "## References")
}

func TestStageReporter(t *testing.T) {
	var out bytes.Buffer
	r := stageReporter{w: &out}
	ms := int64(1500)

	r.observe(pipeline.Event{Kind: pipeline.EventState, State: pipeline.StateRunning})
	r.observe(pipeline.Event{Kind: pipeline.EventStage, Stage: types.PipelineStage{Label: "Search", Status: types.StageInProgress}})
	r.observe(pipeline.Event{Kind: pipeline.EventStage, Stage: types.PipelineStage{
		Label: "Search", Status: types.StageCompleted, ElapsedMs: &ms, SubItems: []string{"Found 12 papers"},
	}})
	r.observe(pipeline.Event{Kind: pipeline.EventTick, Elapsed: time.Second})

	got := out.String()
	assert.Contains(t, got, "Researching...")
	assert.Contains(t, got, "(1.5s)")
	assert.Contains(t, got, "Found 12 papers")
	assert.Equal(t, 4, strings.Count(got, "\n"))
}

func TestFormatProjectList(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, formatProjectList(&out, nil, false))
	assert.Equal(t, "No projects found.\n", out.String())

	out.Reset()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []types.ProjectSummary{{ID: "p1", Title: strings.Repeat("t", 50), PaperCount: 3, Status: "draft", CreatedAt: created}}
	require.NoError(t, formatProjectList(&out, list, false))
	assert.Contains(t, out.String(), strings.Repeat("t", 37)+"...")

	out.Reset()
	require.NoError(t, formatProjectList(&out, list, true))
	assert.Contains(t, out.String(), `"paper_count": 3`)
}
