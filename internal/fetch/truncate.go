// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"regexp"
	"strings"
)

// DefaultMaxContentLength is the per-paper character budget.
const DefaultMaxContentLength = 15000

// TruncationMarker is appended when content is cut to the budget.
const TruncationMarker = "\n\n[... Content truncated for analysis ...]"

var (
	headingRe = regexp.MustCompile(`^\s*#{1,3}\s*(.*?)\s*$`)

	// referencesRe matches a heading whose section runs to the end of the
	// document.
	referencesRe = regexp.MustCompile(`(?i)^references?$`)

	// skipRe matches headings of sections that end at the next heading.
	skipRe = regexp.MustCompile(`(?i)^(acknowledge?ments?|supplementary\b.*|funding\b.*|author\s*contributions?\b.*)$`)

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// SmartTruncate fits content into maxChars. Content already within budget
// is returned unchanged. Otherwise references run to the end of the document
// and are dropped, as are acknowledgments, supplementary material, funding,
// and author contribution sections; runs of blank lines are collapsed; and
// anything still over budget is cut with TruncationMarker.
func SmartTruncate(content string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentLength
	}
	if len(content) <= maxChars {
		return content
	}

	processed := stripSections(content)
	processed = blankRunRe.ReplaceAllString(processed, "\n\n")
	if len(processed) > maxChars {
		processed = cutAt(processed, maxChars) + TruncationMarker
	}
	return strings.TrimSpace(processed)
}

// stripSections removes low-value sections, line by line.
func stripSections(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			title := m[1]
			if referencesRe.MatchString(title) {
				break
			}
			skipping = skipRe.MatchString(title)
			if skipping {
				continue
			}
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// cutAt truncates s to at most n bytes without splitting a UTF-8 sequence.
func cutAt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
