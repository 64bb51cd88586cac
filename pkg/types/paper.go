// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data shared by the research pipeline, the
// interview, the gateway, and the project store: papers, insights, the
// content blueprint, pipeline stages, conversation turns, and configuration.
package types

// ContentType indicates how much of a paper's text is available to the
// Analyze, Report, and Script stages.
type ContentType string

const (
	ContentFullText ContentType = "full_text"
	ContentPartial  ContentType = "partial"
	ContentAbstract ContentType = "abstract"
)

// ContentSource identifies where a paper's content came from.
type ContentSource string

const (
	SourceJinaPDF  ContentSource = "jina_pdf"
	SourceJinaPage ContentSource = "jina_page"
	SourceAbstract ContentSource = "abstract"
)

// Paper holds the metadata of a paper returned by the Search stage. Nullable
// provider fields are pointers. A Paper is read-only once a pipeline run has
// produced it.
type Paper struct {
	// PaperID is the search provider's identifier, unique per provider.
	PaperID string `json:"paperId" yaml:"paper_id" validate:"required"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, nil when the provider has none.
	Abstract *string `json:"abstract" yaml:"abstract,omitempty"`

	// Authors lists author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	Year          *int    `json:"year" yaml:"year,omitempty"`
	CitationCount *int    `json:"citationCount" yaml:"citation_count,omitempty"`
	URL           *string `json:"url" yaml:"url,omitempty"`

	// PDFURL is the open-access PDF location, when the provider reports one.
	PDFURL *string `json:"pdfUrl,omitempty" yaml:"pdf_url,omitempty"`
}

// HasAbstract reports whether the paper carries a non-empty abstract.
func (p Paper) HasAbstract() bool {
	return p.Abstract != nil && *p.Abstract != ""
}

// AbstractText returns the abstract or the empty string.
func (p Paper) AbstractText() string {
	if p.Abstract == nil {
		return ""
	}
	return *p.Abstract
}

// IsOpenAccess reports whether an open-access PDF is known for the paper.
func (p Paper) IsOpenAccess() bool {
	return p.PDFURL != nil && *p.PDFURL != ""
}

// PaperWithContent is a Paper plus the text the FetchContent stage obtained
// for it.
type PaperWithContent struct {
	Paper `yaml:",inline"`

	Content       string        `json:"content" yaml:"content"`
	ContentType   ContentType   `json:"contentType" yaml:"content_type"`
	ContentSource ContentSource `json:"contentSource,omitempty" yaml:"content_source,omitempty"`
	WordCount     int           `json:"wordCount" yaml:"word_count"`
}

// AbstractOnly returns p with its abstract as content. Papers without an
// abstract get empty content.
func AbstractOnly(p Paper) PaperWithContent {
	text := p.AbstractText()
	return PaperWithContent{
		Paper:         p,
		Content:       text,
		ContentType:   ContentAbstract,
		ContentSource: SourceAbstract,
		WordCount:     WordCount(text),
	}
}

// HasContent reports whether any text is available for the paper.
func (p PaperWithContent) HasContent() bool {
	return p.Content != ""
}
