// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"context"
	"fmt"

	"github.com/pdiddy/farabi/pkg/types"
)

// Backend paths, relative to the configured base URL.
const (
	PathInterview   = "/interview/continue"
	PathDecompose   = "/research/decompose"
	PathMultiSearch = "/research/multi-search"
	PathFetch       = "/research/fetch-content"
	PathAnalyze     = "/research/analyze"
	PathReport      = "/research/generate-report"
	PathScript      = "/research/generate-script"
	PathSaveProject = "/projects/save-project"
	PathHealth      = "/health"
)

// MultiSearchResult is the merged paper set of a multi-query search.
type MultiSearchResult struct {
	Papers      []types.Paper
	TotalPapers int
}

// FetchContentResult carries content for every paper passed to FetchContent.
type FetchContentResult struct {
	Papers            []types.PaperWithContent
	FullTextCount     int
	AbstractOnlyCount int
}

// ReportResult is the narrator's free-text research report.
type ReportResult struct {
	Report    string
	WordCount int
}

// ScriptResult is the editor's four-part narrative.
type ScriptResult struct {
	Narrative           types.Narrative
	References          []types.Reference
	UnverifiedCitations []string
}

// ContinueInterview sends the topic and the full ordered history and
// returns the assistant's normalized decision.
func (c *Client) ContinueInterview(ctx context.Context, topic string, history []types.ConversationMessage) (types.InterviewDecision, error) {
	const op = "continueInterview"
	req := InterviewRequest{Topic: topic, Conversation: ToChatTurns(history)}

	var resp InterviewResponse
	if err := c.post(ctx, op, PathInterview, req, &resp); err != nil {
		return types.InterviewDecision{}, err
	}

	d := types.InterviewDecision{
		NextAction: resp.NextAction,
		ReplyText:  resp.ReplyMessage,
		Options:    resp.Options,
	}
	if resp.FinalKeywords != nil {
		d.FinalKeywords = *resp.FinalKeywords
	}
	d, err := d.Normalize()
	if err != nil {
		return types.InterviewDecision{}, &GatewayError{Op: op, Kind: KindValidation, StatusCode: 200, Message: err.Error(), Err: err}
	}
	return d, nil
}

// DecomposeTopic returns the ordered sub-queries for topic and keywords.
// The slice may be empty; substituting a fallback is the caller's policy.
func (c *Client) DecomposeTopic(ctx context.Context, topic, keywords string) ([]string, error) {
	var resp DecomposeResponse
	if err := c.post(ctx, "decomposeTopic", PathDecompose, DecomposeRequest{Topic: topic, Keywords: keywords}, &resp); err != nil {
		return nil, err
	}
	return resp.SubQueries, nil
}

// MultiSearch runs one search per sub-query with limitPerQuery results each.
func (c *Client) MultiSearch(ctx context.Context, subQueries []string, limitPerQuery int, dedupe bool) (MultiSearchResult, error) {
	req := MultiSearchRequest{SubQueries: subQueries, LimitPerQuery: limitPerQuery, Dedupe: dedupe}
	var resp MultiSearchResponse
	if err := c.post(ctx, "multiSearch", PathMultiSearch, req, &resp); err != nil {
		return MultiSearchResult{}, err
	}
	return MultiSearchResult{Papers: resp.Papers, TotalPapers: resp.TotalPapers}, nil
}

// FetchContent requests full text for up to maxPapers of papers.
func (c *Client) FetchContent(ctx context.Context, papers []types.Paper, maxPapers int) (FetchContentResult, error) {
	var resp FetchContentResponse
	if err := c.post(ctx, "fetchContent", PathFetch, FetchContentRequest{Papers: papers, MaxPapers: maxPapers}, &resp); err != nil {
		return FetchContentResult{}, err
	}
	return FetchContentResult{
		Papers:            resp.PapersWithContent,
		FullTextCount:     resp.FullTextCount,
		AbstractOnlyCount: resp.AbstractOnlyCount,
	}, nil
}

// AnalyzePapers extracts key insights tied to topic.
func (c *Client) AnalyzePapers(ctx context.Context, papers []types.Paper, topic string) ([]types.KeyInsight, error) {
	var resp AnalyzeResponse
	if err := c.post(ctx, "analyzePapers", PathAnalyze, AnalyzeRequest{Papers: papers, Topic: topic}, &resp); err != nil {
		return nil, err
	}
	return resp.Insights, nil
}

// GenerateResearchReport requests the synthesized narrative report.
func (c *Client) GenerateResearchReport(ctx context.Context, topic string, papers []types.PaperWithContent, insights []types.KeyInsight) (ReportResult, error) {
	req := ReportRequest{Topic: topic, PapersWithContent: papers, Insights: insights}
	var resp ReportResponse
	if err := c.post(ctx, "generateResearchReport", PathReport, req, &resp); err != nil {
		return ReportResult{}, err
	}
	return ReportResult{Report: resp.ResearchReport, WordCount: resp.WordCount}, nil
}

// GenerateScript requests the four-part narrative. report may be empty.
func (c *Client) GenerateScript(ctx context.Context, insights []types.KeyInsight, papers []types.Paper, topic, report string) (ScriptResult, error) {
	req := ScriptRequest{Insights: insights, Papers: papers, Topic: topic, ResearchReport: report}
	var resp ScriptResponse
	if err := c.post(ctx, "generateScript", PathScript, req, &resp); err != nil {
		return ScriptResult{}, err
	}
	return ScriptResult{
		Narrative:           resp.Narrative,
		References:          resp.References,
		UnverifiedCitations: resp.UnverifiedCitations,
	}, nil
}

// SaveProject persists a finished blueprint on the backend and returns the
// new project id.
func (c *Client) SaveProject(ctx context.Context, req types.SaveProjectRequest) (string, error) {
	const op = "saveProject"
	if err := validate.Struct(req); err != nil {
		return "", &GatewayError{Op: op, Kind: KindValidation, Message: fmt.Sprintf("invalid request: %v", err), Err: err}
	}
	var resp SaveProjectResponse
	if err := c.post(ctx, op, PathSaveProject, req, &resp); err != nil {
		return "", err
	}
	return resp.ProjectID, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.get(ctx, "health", PathHealth, &resp)
}

// ToChatTurns converts conversation history to wire turns, preserving order.
func ToChatTurns(history []types.ConversationMessage) []ChatTurn {
	turns := make([]ChatTurn, len(history))
	for i, m := range history {
		turns[i] = ChatTurn{Role: m.Role, Content: m.Text}
	}
	return turns
}
