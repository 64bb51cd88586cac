// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import "github.com/pdiddy/farabi/pkg/types"

// Request and response bodies of the backend operations. The backend server
// decodes and encodes the same structs.

// ChatTurn is one conversation entry as sent over the wire.
type ChatTurn struct {
	Role    types.Role `json:"role" validate:"required,oneof=user assistant"`
	Content string     `json:"content"`
}

type InterviewRequest struct {
	Topic        string     `json:"topic"`
	Conversation []ChatTurn `json:"conversation" validate:"required,min=1,dive"`
}

type InterviewResponse struct {
	NextAction    types.NextAction        `json:"next_action" validate:"required,oneof=probe propose finalize"`
	ReplyMessage  string                  `json:"reply_message"`
	Options       []types.InterviewOption `json:"options"`
	FinalKeywords *string                 `json:"final_keywords,omitempty"`
}

type DecomposeRequest struct {
	Topic    string `json:"topic"`
	Keywords string `json:"keywords" validate:"required"`
}

type DecomposeResponse struct {
	Reasoning  string   `json:"reasoning,omitempty"`
	SubQueries []string `json:"subQueries"`
}

type MultiSearchRequest struct {
	SubQueries    []string `json:"subQueries" validate:"required,min=1,dive,required"`
	LimitPerQuery int      `json:"limitPerQuery" validate:"min=1,max=100"`
	Dedupe        bool     `json:"dedupe,omitempty"`
}

type MultiSearchResponse struct {
	Papers      []types.Paper `json:"papers" validate:"dive"`
	TotalPapers int           `json:"totalPapers" validate:"min=0"`
}

type FetchContentRequest struct {
	Papers    []types.Paper `json:"papers" validate:"dive"`
	MaxPapers int           `json:"maxPapers" validate:"min=0"`
}

type FetchContentResponse struct {
	PapersWithContent []types.PaperWithContent `json:"papersWithContent"`
	FullTextCount     int                      `json:"fullTextCount" validate:"min=0"`
	AbstractOnlyCount int                      `json:"abstractOnlyCount" validate:"min=0"`
}

type AnalyzeRequest struct {
	Papers []types.Paper `json:"papers" validate:"required,min=1,dive"`
	Topic  string        `json:"topic" validate:"required"`
}

type AnalyzeResponse struct {
	Insights []types.KeyInsight `json:"insights"`
}

type ReportRequest struct {
	Topic             string                   `json:"topic" validate:"required"`
	PapersWithContent []types.PaperWithContent `json:"papersWithContent"`
	Insights          []types.KeyInsight       `json:"insights"`
}

type ReportResponse struct {
	ResearchReport string `json:"researchReport" validate:"required"`
	WordCount      int    `json:"wordCount" validate:"min=0"`
}

type ScriptRequest struct {
	Insights []types.KeyInsight `json:"insights"`
	Papers   []types.Paper      `json:"papers"`
	Topic    string             `json:"topic" validate:"required"`

	// ResearchReport, when present, is the source the script is edited from.
	ResearchReport string `json:"researchReport,omitempty"`
}

type ScriptResponse struct {
	Narrative           types.Narrative   `json:"narrative"`
	References          []types.Reference `json:"references,omitempty"`
	UnverifiedCitations []string          `json:"unverifiedCitations,omitempty"`
}

type SaveProjectResponse struct {
	ProjectID string `json:"project_id" validate:"required"`
	Message   string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" validate:"required"`
}

// ErrorResponse is the body of every non-2xx backend reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
