// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/citecheck"
	"github.com/pdiddy/farabi/internal/gateway"
	"github.com/pdiddy/farabi/internal/llm"
	"github.com/pdiddy/farabi/internal/project"
	"github.com/pdiddy/farabi/internal/search"
	"github.com/pdiddy/farabi/pkg/types"
)

// ErrLLMUnavailable is returned by model-backed operations when no LLM is
// configured.
var ErrLLMUnavailable = errors.New("LLM API key not configured")

// Error carries the HTTP status an operation failure maps to.
type Error struct {
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func upstreamError(detail string, err error) *Error {
	if errors.Is(err, ErrLLMUnavailable) {
		return &Error{Status: http.StatusInternalServerError, Detail: detail, Err: err}
	}
	return &Error{Status: http.StatusBadGateway, Detail: detail, Err: err}
}

func (s *Server) completer() (llm.Completer, error) {
	if s.deps.LLM == nil {
		return nil, ErrLLMUnavailable
	}
	return s.deps.LLM, nil
}

// interviewReply is the JSON shape the interview prompt asks for.
type interviewReply struct {
	NextAction    types.NextAction        `json:"next_action"`
	ReplyMessage  string                  `json:"reply_message"`
	Options       []types.InterviewOption `json:"options"`
	FinalKeywords string                  `json:"final_keywords"`
}

// Interview runs one interview turn. The system prompt is nudged toward
// finalizing once the conversation reaches 7 messages and forced at 10. A
// reply with a missing or unknown action, or a finalize without keywords, is
// downgraded to a follow-up question with the same message.
func (s *Server) Interview(ctx context.Context, req gateway.InterviewRequest) (gateway.InterviewResponse, error) {
	c, err := s.completer()
	if err != nil {
		return gateway.InterviewResponse{}, upstreamError("interview", err)
	}

	msgs := make([]llm.Message, 0, len(req.Conversation))
	if t := strings.TrimSpace(req.Topic); t != "" && len(req.Conversation) > 0 && req.Conversation[0].Content != t {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Topic: " + t})
	}
	for _, turn := range req.Conversation {
		msgs = append(msgs, llm.Message{Role: llm.Role(turn.Role), Content: turn.Content})
	}

	reply, err := llm.CompleteJSON[interviewReply](ctx, c, llm.Request{
		System:      interviewSystemPrompt(len(req.Conversation)),
		Messages:    msgs,
		Temperature: 0.7,
	})
	if err != nil {
		return gateway.InterviewResponse{}, upstreamError("interview", err)
	}

	d := types.InterviewDecision{
		NextAction:    reply.NextAction,
		ReplyText:     reply.ReplyMessage,
		Options:       reply.Options,
		FinalKeywords: reply.FinalKeywords,
	}
	norm, err := d.Normalize()
	if err != nil {
		s.log.Warn("downgrading interview reply to a follow-up question",
			zap.String("next_action", string(reply.NextAction)), zap.Error(err))
		norm = types.InterviewDecision{NextAction: types.ActionProbe, ReplyText: reply.ReplyMessage}
	}

	resp := gateway.InterviewResponse{
		NextAction:   norm.NextAction,
		ReplyMessage: norm.ReplyText,
		Options:      norm.Options,
	}
	if resp.Options == nil {
		resp.Options = []types.InterviewOption{}
	}
	if norm.FinalKeywords != "" {
		kw := norm.FinalKeywords
		resp.FinalKeywords = &kw
	}
	return resp, nil
}

type decomposeReply struct {
	Reasoning  string   `json:"reasoning"`
	SubQueries []string `json:"sub_queries"`
}

// Decompose splits the topic into sub-queries. It never fails: without an
// LLM, on any model error, or on an empty list it returns the keywords as
// the only sub-query.
func (s *Server) Decompose(ctx context.Context, req gateway.DecomposeRequest) gateway.DecomposeResponse {
	fallback := func(reason string) gateway.DecomposeResponse {
		return gateway.DecomposeResponse{Reasoning: reason, SubQueries: []string{req.Keywords}}
	}
	c, err := s.completer()
	if err != nil {
		return fallback("LLM not configured, using base keywords only")
	}

	topic := req.Topic
	if strings.TrimSpace(topic) == "" {
		topic = req.Keywords
	}
	reply, err := llm.CompleteJSON[decomposeReply](ctx, c, llm.Request{
		System:      decomposePrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: decomposeUserPrompt(topic, req.Keywords)}},
		Temperature: 0.7,
	})
	if err != nil {
		s.log.Warn("decomposition failed, using keywords", zap.Error(err))
		return fallback("decomposition failed, using base keywords: " + err.Error())
	}

	var queries []string
	for _, q := range reply.SubQueries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return fallback("no sub-queries returned, using base keywords")
	}
	s.log.Info("topic decomposed", zap.Int("sub_queries", len(queries)), zap.Strings("queries", queries))
	return gateway.DecomposeResponse{Reasoning: reply.Reasoning, SubQueries: queries}
}

// MultiSearch searches every sub-query and merges the results.
func (s *Server) MultiSearch(ctx context.Context, req gateway.MultiSearchRequest) (gateway.MultiSearchResponse, error) {
	if s.deps.Search == nil {
		return gateway.MultiSearchResponse{}, &Error{Status: http.StatusInternalServerError, Detail: "search backend not configured"}
	}
	out, err := search.MultiSearch(ctx, s.deps.Search, req.SubQueries, req.LimitPerQuery, req.Dedupe, s.log.Named("search"))
	if err != nil {
		return gateway.MultiSearchResponse{}, upstreamError("multi-search", err)
	}
	papers := out.Papers
	if papers == nil {
		papers = []types.Paper{}
	}
	return gateway.MultiSearchResponse{Papers: papers, TotalPapers: len(papers)}, nil
}

// FetchContent retrieves full text for the first MaxPapers papers.
func (s *Server) FetchContent(ctx context.Context, req gateway.FetchContentRequest) (gateway.FetchContentResponse, error) {
	if s.deps.Fetcher == nil {
		return gateway.FetchContentResponse{}, &Error{Status: http.StatusInternalServerError, Detail: "content fetcher not configured"}
	}
	maxPapers := req.MaxPapers
	if maxPapers <= 0 {
		maxPapers = defaultFetchMax
	}
	res, err := s.deps.Fetcher.FetchAll(ctx, req.Papers, maxPapers)
	if err != nil {
		return gateway.FetchContentResponse{}, upstreamError("fetch-content", err)
	}
	papers := res.Papers
	if papers == nil {
		papers = []types.PaperWithContent{}
	}
	return gateway.FetchContentResponse{
		PapersWithContent: papers,
		FullTextCount:     res.FullTextCount,
		AbstractOnlyCount: res.AbstractOnlyCount,
	}, nil
}

type analyzeReply struct {
	Insights []types.KeyInsight `json:"insights"`
}

// Analyze extracts key insights from up to the analyze limit of papers.
// Insights with empty text are dropped.
func (s *Server) Analyze(ctx context.Context, req gateway.AnalyzeRequest) (gateway.AnalyzeResponse, error) {
	c, err := s.completer()
	if err != nil {
		return gateway.AnalyzeResponse{}, upstreamError("analyze", err)
	}
	papers := req.Papers
	if len(papers) > s.analyzeMax {
		papers = papers[:s.analyzeMax]
	}
	reply, err := llm.CompleteJSON[analyzeReply](ctx, c, llm.Request{
		System:      analyzePrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: analyzeUserPrompt(req.Topic, papers)}},
		Temperature: 0.7,
	})
	if err != nil {
		return gateway.AnalyzeResponse{}, upstreamError("analyze", err)
	}
	insights := make([]types.KeyInsight, 0, len(reply.Insights))
	for _, in := range reply.Insights {
		in.Insight = strings.TrimSpace(in.Insight)
		if in.Insight == "" {
			continue
		}
		insights = append(insights, in)
	}
	s.log.Info("papers analyzed", zap.Int("papers", len(papers)), zap.Int("insights", len(insights)))
	return gateway.AnalyzeResponse{Insights: insights}, nil
}

// Report writes the long-form research report from the sources.
func (s *Server) Report(ctx context.Context, req gateway.ReportRequest) (gateway.ReportResponse, error) {
	c, err := s.completer()
	if err != nil {
		return gateway.ReportResponse{}, upstreamError("generate-report", err)
	}
	sources := req.PapersWithContent
	if len(sources) > s.analyzeMax {
		sources = sources[:s.analyzeMax]
	}
	report, err := c.Complete(ctx, llm.Request{
		System:      reportPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: reportUserPrompt(req.Topic, sources, req.Insights)}},
		Temperature: 0.5,
	})
	if err != nil {
		return gateway.ReportResponse{}, upstreamError("generate-report", err)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return gateway.ReportResponse{}, upstreamError("generate-report", errors.New("model returned an empty report"))
	}
	words := types.WordCount(report)
	s.log.Info("research report written", zap.Int("words", words))
	return gateway.ReportResponse{ResearchReport: report, WordCount: words}, nil
}

type scriptReply struct {
	Narrative types.Narrative `json:"narrative"`
}

// Script turns the report, or the insights when no report is given, into a
// four-part narrative. References are built from the papers and every
// citation in the narrative is checked against them.
func (s *Server) Script(ctx context.Context, req gateway.ScriptRequest) (gateway.ScriptResponse, error) {
	c, err := s.completer()
	if err != nil {
		return gateway.ScriptResponse{}, upstreamError("generate-script", err)
	}
	refs := make([]types.Reference, len(req.Papers))
	for i, p := range req.Papers {
		refs[i] = types.NewReference(p)
	}

	reply, err := llm.CompleteJSON[scriptReply](ctx, c, llm.Request{
		System:      scriptPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: scriptUserPrompt(req.Topic, req.ResearchReport, req.Insights, refs)}},
		Temperature: 0.7,
	})
	if err != nil {
		return gateway.ScriptResponse{}, upstreamError("generate-script", err)
	}
	if reply.Narrative.IsEmpty() {
		return gateway.ScriptResponse{}, upstreamError("generate-script", errors.New("model returned an empty narrative"))
	}

	unverified := citecheck.Unverified(reply.Narrative.Text(), refs)
	if len(unverified) > 0 {
		s.log.Warn("script cites unknown sources", zap.Strings("citations", unverified))
	}
	s.log.Info("script written", zap.Int("words", reply.Narrative.WordCount()))
	return gateway.ScriptResponse{
		Narrative:           reply.Narrative,
		References:          refs,
		UnverifiedCitations: unverified,
	}, nil
}

// SaveProject persists the project and returns its id.
func (s *Server) SaveProject(ctx context.Context, req types.SaveProjectRequest) (gateway.SaveProjectResponse, error) {
	if s.deps.Store == nil {
		return gateway.SaveProjectResponse{}, &Error{Status: http.StatusInternalServerError, Detail: "project store not configured"}
	}
	id, err := s.deps.Store.SaveProject(ctx, req)
	if err != nil {
		return gateway.SaveProjectResponse{}, &Error{
			Status: http.StatusInternalServerError,
			Detail: fmt.Sprintf("Error saving project: %v", err),
			Err:    err,
		}
	}
	return gateway.SaveProjectResponse{ProjectID: id, Message: project.SavedMessage}, nil
}
