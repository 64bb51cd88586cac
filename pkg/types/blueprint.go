// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// KeyInsight is a single finding extracted by the Analyze stage. PaperID is a
// lookup-only reference into the run's paper list.
type KeyInsight struct {
	Insight string `json:"insight" yaml:"insight" validate:"required"`
	Source  string `json:"source" yaml:"source"`
	PaperID string `json:"paperId" yaml:"paper_id"`
}

// Narrative is the four-part script produced by the Script stage. All parts
// are plain text or Markdown.
type Narrative struct {
	Hook         string `json:"hook" yaml:"hook"`
	Introduction string `json:"introduction" yaml:"introduction"`
	DeepDive     string `json:"deep_dive" yaml:"deep_dive"`
	Conclusion   string `json:"conclusion" yaml:"conclusion"`
}

// Text joins the four parts with blank lines.
func (n Narrative) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{n.Hook, n.Introduction, n.DeepDive, n.Conclusion} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// WordCount returns the number of words across all four parts.
func (n Narrative) WordCount() int {
	return WordCount(n.Hook) + WordCount(n.Introduction) + WordCount(n.DeepDive) + WordCount(n.Conclusion)
}

// IsEmpty reports whether every part is blank.
func (n Narrative) IsEmpty() bool {
	return strings.TrimSpace(n.Text()) == ""
}

// Reference is a bibliography entry derived from a Paper. Authors is the
// formatted author string ("A, B, C et al.").
type Reference struct {
	Title   string  `json:"title" yaml:"title"`
	Authors string  `json:"authors" yaml:"authors"`
	Year    *int    `json:"year" yaml:"year,omitempty"`
	URL     *string `json:"url" yaml:"url,omitempty"`
}

// ContentBlueprint is the terminal artifact of a research run. It is
// immutable once produced.
type ContentBlueprint struct {
	KeyInsights []KeyInsight `json:"key_insights" yaml:"key_insights"`
	Narrative   Narrative    `json:"narrative" yaml:"narrative"`
	References  []Reference  `json:"references" yaml:"references"`

	// ResearchReport is the Report stage output the narrative was written from.
	ResearchReport string `json:"research_report,omitempty" yaml:"research_report,omitempty"`
}

// Clone returns a deep copy of b.
func (b *ContentBlueprint) Clone() *ContentBlueprint {
	if b == nil {
		return nil
	}
	out := *b
	out.KeyInsights = append([]KeyInsight(nil), b.KeyInsights...)
	if b.References != nil {
		out.References = make([]Reference, len(b.References))
		for i, r := range b.References {
			if r.Year != nil {
				y := *r.Year
				r.Year = &y
			}
			if r.URL != nil {
				u := *r.URL
				r.URL = &u
			}
			out.References[i] = r
		}
	}
	return &out
}

// maxListedAuthors is the number of authors named before "et al.".
const maxListedAuthors = 3

// FormatAuthors joins the first three authors with ", " and appends
// " et al." when there are more.
func FormatAuthors(authors []string) string {
	if len(authors) <= maxListedAuthors {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxListedAuthors], ", ") + " et al."
}

// NewReference builds the reference entry for p.
func NewReference(p Paper) Reference {
	return Reference{
		Title:   p.Title,
		Authors: FormatAuthors(p.Authors),
		Year:    p.Year,
		URL:     p.URL,
	}
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
