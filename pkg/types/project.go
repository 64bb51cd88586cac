// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProjectStatus tracks the editorial state of a saved project.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectPublished ProjectStatus = "published"
)

// SaveProjectRequest is the input of the Persistence Adapter: a finished
// blueprint and the papers it was built from.
type SaveProjectRequest struct {
	UserID      string       `json:"user_id" yaml:"user_id" validate:"required"`
	Title       string       `json:"title" yaml:"title" validate:"required"`
	QueryTopic  string       `json:"query_topic" yaml:"query_topic"`
	KeyInsights []KeyInsight `json:"key_insights" yaml:"key_insights" validate:"dive"`
	Narrative   Narrative    `json:"narrative" yaml:"narrative"`
	Papers      []Paper      `json:"papers" yaml:"papers" validate:"dive"`

	// References and ResearchReport are optional extras kept with the content.
	References     []Reference `json:"references,omitempty" yaml:"references,omitempty"`
	ResearchReport string      `json:"research_report,omitempty" yaml:"research_report,omitempty"`
}

// BlockType names a canvas block kind.
type BlockType string

const (
	BlockHeading          BlockType = "heading"
	BlockParagraph        BlockType = "paragraph"
	BlockNumberedListItem BlockType = "numberedListItem"
)

// Block is one element of a project's canvas document. Level is set for
// headings only.
type Block struct {
	Type  BlockType `json:"type" yaml:"type"`
	Level int       `json:"level,omitempty" yaml:"level,omitempty"`
	Text  string    `json:"text,omitempty" yaml:"text,omitempty"`
}

// Project is a persisted research result.
type Project struct {
	ID             string        `json:"id" yaml:"id"`
	UserID         string        `json:"user_id" yaml:"user_id"`
	Title          string        `json:"title" yaml:"title"`
	QueryTopic     string        `json:"query_topic" yaml:"query_topic"`
	Status         ProjectStatus `json:"status" yaml:"status"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
	Canvas         []Block       `json:"canvas" yaml:"canvas"`
	KeyInsights    []KeyInsight  `json:"key_insights" yaml:"key_insights"`
	Narrative      Narrative     `json:"narrative" yaml:"narrative"`
	References     []Reference   `json:"references,omitempty" yaml:"references,omitempty"`
	ResearchReport string        `json:"research_report,omitempty" yaml:"research_report,omitempty"`
	ToneStyle      string        `json:"tone_style" yaml:"tone_style"`
	Papers         []Paper       `json:"papers" yaml:"papers"`
}

// ProjectSummary is the listing view of a project.
type ProjectSummary struct {
	ID         string        `json:"id" yaml:"id"`
	Title      string        `json:"title" yaml:"title"`
	QueryTopic string        `json:"query_topic" yaml:"query_topic"`
	Status     ProjectStatus `json:"status" yaml:"status"`
	PaperCount int           `json:"paper_count" yaml:"paper_count"`
	CreatedAt  time.Time     `json:"created_at" yaml:"created_at"`
}
