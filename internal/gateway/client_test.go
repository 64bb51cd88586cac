// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/farabi/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := New(types.GatewayConfig{
		BaseURL:    ts.URL + "/",
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "farabi-test"},
	}, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

func TestNew_EmptyBaseURL(t *testing.T) {
	_, err := New(types.GatewayConfig{BaseURL: "  "})
	assert.Error(t, err)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New(types.GatewayConfig{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestDecomposeTopic_RequestShape(t *testing.T) {
	var got DecomposeRequest
	var captured *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"subQueries":["c3 pathway","c4 pathway"]}`)
	})

	subs, err := c.DecomposeTopic(context.Background(), "photosynthesis", "C3 vs C4 plants")
	require.NoError(t, err)

	assert.Equal(t, []string{"c3 pathway", "c4 pathway"}, subs)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, PathDecompose, captured.URL.Path)
	assert.Equal(t, "farabi-test", captured.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, DecomposeRequest{Topic: "photosynthesis", Keywords: "C3 vs C4 plants"}, got)
}

func TestStatusError_DetailBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"Error analyzing papers: model overloaded"}`)
	})

	_, err := c.AnalyzePapers(context.Background(), []types.Paper{{PaperID: "p1"}}, "topic")
	require.Error(t, err)

	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindStatus, ge.Kind)
	assert.Equal(t, http.StatusInternalServerError, ge.StatusCode)
	assert.Equal(t, "Error analyzing papers: model overloaded", ge.Message)
	assert.Contains(t, err.Error(), "analyzePapers")
}

func TestStatusError_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.DecomposeTopic(context.Background(), "t", "k")
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "bad gateway", ge.Message)
	assert.Equal(t, http.StatusBadGateway, ge.StatusCode)
}

func TestStatusError_EmptyBodyUsesStatusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Health(context.Background())
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "503 Service Unavailable", ge.Message)
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := New(types.GatewayConfig{BaseURL: url})
	require.NoError(t, err)

	_, err = c.DecomposeTopic(context.Background(), "t", "k")
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, ge.Kind)
	assert.Zero(t, ge.StatusCode)
}

func TestValidationError_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"papers": [`)
	})

	_, err := c.MultiSearch(context.Background(), []string{"q"}, 8, false)
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
}

func TestValidationError_FailsStructTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// paperId is required on every paper.
		fmt.Fprint(w, `{"papers":[{"title":"no id"}],"totalPapers":1}`)
	})

	_, err := c.MultiSearch(context.Background(), []string{"q"}, 8, false)
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
}

func TestSingleAttempt_NoRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchContent(context.Background(), nil, 8)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DecomposeTopic(ctx, "t", "k")
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, ge.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestContinueInterview_SendsFullHistory(t *testing.T) {
	var got InterviewRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"next_action":"propose","reply_message":"Pick one","options":[{"label":"Cognitive","description":"Thinking"}]}`)
	})

	history := []types.ConversationMessage{
		{ID: 1, Role: types.RoleUser, Text: "screen time toddlers"},
		{ID: 2, Role: types.RoleAssistant, Text: "Which angle?"},
		{ID: 3, Role: types.RoleUser, Text: "language"},
	}
	d, err := c.ContinueInterview(context.Background(), "screen time toddlers", history)
	require.NoError(t, err)

	assert.Equal(t, "screen time toddlers", got.Topic)
	require.Len(t, got.Conversation, 3)
	assert.Equal(t, types.RoleAssistant, got.Conversation[1].Role)
	assert.Equal(t, "language", got.Conversation[2].Content)

	assert.Equal(t, types.ActionPropose, d.NextAction)
	require.Len(t, d.Options, 1)
	assert.Equal(t, "Cognitive", d.Options[0].Label)
}

func TestContinueInterview_NormalizesDecision(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"next_action":"probe","reply_message":"More?","options":[{"label":"stray","description":""}],"final_keywords":"stray"}`)
	})

	d, err := c.ContinueInterview(context.Background(), "t", []types.ConversationMessage{{Role: types.RoleUser, Text: "t"}})
	require.NoError(t, err)
	assert.Empty(t, d.Options)
	assert.Empty(t, d.FinalKeywords)
}

func TestContinueInterview_FinalizeWithoutKeywords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"next_action":"finalize","reply_message":"Done"}`)
	})

	_, err := c.ContinueInterview(context.Background(), "t", []types.ConversationMessage{{Role: types.RoleUser, Text: "t"}})
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
	assert.ErrorIs(t, err, types.ErrInvalidDecision)
}

func TestContinueInterview_UnknownAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"next_action":"ponder","reply_message":"hmm"}`)
	})

	_, err := c.ContinueInterview(context.Background(), "t", []types.ConversationMessage{{Role: types.RoleUser, Text: "t"}})
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
}

func TestFetchContent_Counts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req FetchContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 8, req.MaxPapers)
		fmt.Fprint(w, `{"papersWithContent":[{"paperId":"p1","title":"A","authors":[],"content":"full","contentType":"full_text","wordCount":1}],"fullTextCount":1,"abstractOnlyCount":0}`)
	})

	res, err := c.FetchContent(context.Background(), []types.Paper{{PaperID: "p1", Title: "A"}}, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FullTextCount)
	require.Len(t, res.Papers, 1)
	assert.Equal(t, types.ContentFullText, res.Papers[0].ContentType)
	assert.Equal(t, "p1", res.Papers[0].PaperID)
}

func TestGenerateScript(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"researchReport":"report text"`)
		fmt.Fprint(w, `{"narrative":{"hook":"h","introduction":"i","deep_dive":"d","conclusion":"c"}}`)
	})

	res, err := c.GenerateScript(context.Background(), nil, nil, "topic", "report text")
	require.NoError(t, err)
	assert.Equal(t, types.Narrative{Hook: "h", Introduction: "i", DeepDive: "d", Conclusion: "c"}, res.Narrative)
}

func TestGenerateResearchReport_RequiresReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"researchReport":"","wordCount":0}`)
	})

	_, err := c.GenerateResearchReport(context.Background(), "topic", nil, nil)
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
}

func TestSaveProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.SaveProjectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		fmt.Fprint(w, `{"project_id":"proj-42","message":"Project saved successfully"}`)
	})

	id, err := c.SaveProject(context.Background(), types.SaveProjectRequest{UserID: "user-1", Title: "Photosynthesis"})
	require.NoError(t, err)
	assert.Equal(t, "proj-42", id)
}

func TestSaveProject_InvalidRequestNotSent(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := c.SaveProject(context.Background(), types.SaveProjectRequest{Title: "missing user"})
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, ge.Kind)
	assert.Zero(t, calls)
}
