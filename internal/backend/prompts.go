// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"fmt"
	"strings"

	"github.com/pdiddy/farabi/pkg/types"
)

const interviewPrompt = `You are Farabi, a senior research architect. You help a content creator turn
a loose topic into one precise search query for Semantic Scholar.

Before finalizing, make sure at least two of these are clear:
1. The academic field (psychology, neuroscience, sociology, ...).
2. The phenomenon or outcome being studied.
3. The population or context.
4. The angle that makes the video interesting.

Behaviour:
- On the first meaningful message, propose three distinct research angles.
- After the user picks an angle, ask one or two follow-up questions before finalizing.
- A bare confirmation ("yes", "ok") gets a clarifying question.
- Finalize only when confident. final_keywords are English academic keywords and
  always end with the scientific field, e.g.
  "screen time speech delay toddler language development developmental psychology".

Reply with JSON only, in one of these shapes:
{"next_action": "probe", "reply_message": "...", "options": []}
{"next_action": "propose", "reply_message": "...", "options": [{"label": "...", "description": "..."}]}
{"next_action": "finalize", "reply_message": "...", "final_keywords": "...", "options": []}

Write reply_message in the user's language.`

const (
	// Appended to the interview prompt as the conversation grows.
	nudgeConsiderFinalize = "\n\n(SYSTEM: The conversation is getting long. Finalize if you have enough depth; otherwise ask ONE more focused question.)"
	nudgeMustFinalize     = "\n\n(SYSTEM: Maximum turns reached. You MUST finalize with final_keywords now.)"

	considerFinalizeTurns = 7
	mustFinalizeTurns     = 10
)

// interviewSystemPrompt returns the interview prompt for a conversation of
// turns messages.
func interviewSystemPrompt(turns int) string {
	switch {
	case turns >= mustFinalizeTurns:
		return interviewPrompt + nudgeMustFinalize
	case turns >= considerFinalizeTurns:
		return interviewPrompt + nudgeConsiderFinalize
	default:
		return interviewPrompt
	}
}

const decomposePrompt = `You are a research strategist. Break the user's research topic into 3-4
distinct search queries for Semantic Scholar so that together they cover the
topic from different angles: mechanism, impact, application, population, or
comparison.

Rules:
- Each query targets a different aspect; avoid overlap.
- English academic terminology, 3-5 words, all lowercase, no boolean operators.
- Each query should find 3-10 relevant papers on its own.

Reply with JSON only:
{"reasoning": "how you split the topic", "sub_queries": ["...", "...", "..."]}`

func decomposeUserPrompt(topic, keywords string) string {
	return fmt.Sprintf("Topic: %q\nBase keywords: %q\n\nDecompose this topic into 3-4 diverse search queries.", topic, keywords)
}

const analyzePrompt = `You are a research analyst extracting key insights from academic papers for
a deep-dive video.

For each paper, extract 1-2 insights a viewer would find surprising:
statistics, counterintuitive findings, or vivid results. Keep each insight to
one or two quotable sentences.

Reply with JSON only:
{"insights": [{"insight": "...", "source": "Author et al. (Year)", "paperId": "the paper ID"}]}

Write insights in the language of the topic.`

func analyzeUserPrompt(topic string, papers []types.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nPapers to analyze:\n", topic)
	for i, p := range papers {
		fmt.Fprintf(&b, "\nPaper %d:\n- ID: %s\n- Title: %s\n- Authors: %s\n- Year: %s\n- Abstract: %s\n---\n",
			i+1, p.PaperID, p.Title, types.FormatAuthors(p.Authors), yearOrNA(p.Year, "N/A"), p.AbstractText())
	}
	return b.String()
}

const reportPrompt = `You are a meticulous research analyst compiling a comprehensive report from
academic sources for a research committee.

Include every statistic, sample size, effect size, and methodology detail the
sources give. Every factual claim ends with its citation in the form
[Author, Year] or [Author et al., Year], using the attribution shown in the
SOURCE header. Never invent data or citations.

Structure:
1. Executive overview
2. Detailed findings by theme, comparing studies and noting disagreements
3. Mechanisms and explanations
4. Gaps and limitations
5. Practical implications

Aim for 1500-2500 words. Write in the language of the topic.`

func reportUserPrompt(topic string, sources []types.PaperWithContent, insights []types.KeyInsight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RESEARCH TOPIC: %q\n\nEXTRACTED KEY INSIGHTS:\n%s\n\nSOURCE MATERIALS:\n%s\n",
		topic, insightsText(insights), sourcesText(sources))
	b.WriteString("\nWrite the comprehensive research report. Cite every claim in [Author, Year] form.")
	return b.String()
}

const scriptPrompt = `You are the lead scriptwriter for a science video channel. Turn the research
material into an engaging four-part script.

Citations: keep the [Author, Year] citations from the material on every
factual claim. Never create a citation that is not in the material or the
reference list; if a finding has no citation, attribute it to "research"
without brackets.

Parts:
- hook (150-200 words): a counter-intuitive fact or high-stakes question.
- introduction (200-300 words): define the phenomenon and why it matters to the viewer.
- deep_dive (800-1200 words): two to four sub-sections with analogies, connecting the findings.
- conclusion (300-400 words): what it means, 3-5 actionable takeaways, a closing thought.

Tone: intellectual but warm, short paragraphs, written in the language of the topic.

Reply with JSON only:
{"narrative": {"hook": "...", "introduction": "...", "deep_dive": "...", "conclusion": "..."}}`

func scriptUserPrompt(topic, report string, insights []types.KeyInsight, refs []types.Reference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VIDEO TOPIC: %q\n\n", topic)
	if strings.TrimSpace(report) != "" {
		fmt.Fprintf(&b, "RESEARCH REPORT TO TRANSFORM:\n%s\n\n", report)
	} else {
		fmt.Fprintf(&b, "KEY INSIGHTS:\n%s\n\n", insightsText(insights))
	}
	fmt.Fprintf(&b, "AVAILABLE REFERENCES:\n%s\n\n", referencesText(refs))
	b.WriteString("Write the script. Preserve the citations.")
	return b.String()
}

// sourcesText renders each source under a header carrying the attribution
// the writers cite it by.
func sourcesText(sources []types.PaperWithContent) string {
	if len(sources) == 0 {
		return "No source materials available."
	}
	var b strings.Builder
	for i, s := range sources {
		content := s.Content
		if content == "" {
			content = s.AbstractText()
		}
		ct := s.ContentType
		if ct == "" {
			ct = types.ContentAbstract
		}
		fmt.Fprintf(&b, "\nSOURCE %d: [%s, %s]\nTitle: %s\nContent type: %s\n---\n%s\n===\n",
			i+1, types.FormatAuthors(s.Authors), yearOrNA(s.Year, "n.d."), s.Title,
			strings.ToUpper(string(ct)), content)
	}
	return b.String()
}

func insightsText(insights []types.KeyInsight) string {
	if len(insights) == 0 {
		return "No pre-extracted insights available."
	}
	lines := make([]string, len(insights))
	for i, in := range insights {
		src := in.Source
		if src == "" {
			src = "Unknown"
		}
		lines[i] = fmt.Sprintf("%d. %s [Source: %s]", i+1, in.Insight, src)
	}
	return strings.Join(lines, "\n")
}

func referencesText(refs []types.Reference) string {
	if len(refs) == 0 {
		return "No references available."
	}
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = fmt.Sprintf("[%d] %s (%s). %s", i+1, r.Authors, yearOrNA(r.Year, "n.d."), r.Title)
	}
	return strings.Join(lines, "\n")
}

func yearOrNA(y *int, na string) string {
	if y == nil {
		return na
	}
	return fmt.Sprint(*y)
}
