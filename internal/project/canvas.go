// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"strconv"
	"strings"

	"github.com/pdiddy/farabi/pkg/types"
)

// Section headings of the canvas document.
const (
	HeadingHook         = "The Hook"
	HeadingInsights     = "Key Insights"
	HeadingIntroduction = "Introduction"
	HeadingDeepDive     = "The Deep Dive"
	HeadingConclusion   = "Conclusion & Takeaways"
)

// CanvasBlocks lays out a saved project as a flat block document: the
// title, then one section per non-empty narrative part with the key
// insights as a numbered list after the hook. Section text is split into
// paragraphs on blank lines. Every section except the last is followed by
// an empty paragraph.
func CanvasBlocks(title string, n types.Narrative, insights []types.KeyInsight) []types.Block {
	blocks := []types.Block{heading(1, title), spacer()}

	section := func(name, text string, trailing bool) {
		if text == "" {
			return
		}
		blocks = append(blocks, heading(2, name))
		blocks = append(blocks, paragraphs(text)...)
		if trailing {
			blocks = append(blocks, spacer())
		}
	}

	section(HeadingHook, n.Hook, true)
	if len(insights) > 0 {
		blocks = append(blocks, heading(2, HeadingInsights))
		for _, in := range insights {
			blocks = append(blocks, types.Block{Type: types.BlockNumberedListItem, Text: in.Insight})
		}
		blocks = append(blocks, spacer())
	}
	section(HeadingIntroduction, n.Introduction, true)
	section(HeadingDeepDive, n.DeepDive, true)
	section(HeadingConclusion, n.Conclusion, false)
	return blocks
}

func heading(level int, text string) types.Block {
	return types.Block{Type: types.BlockHeading, Level: level, Text: text}
}

func spacer() types.Block {
	return types.Block{Type: types.BlockParagraph}
}

func paragraphs(text string) []types.Block {
	var out []types.Block
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, types.Block{Type: types.BlockParagraph, Text: p})
		}
	}
	return out
}

// Markdown renders blocks as Markdown, one block per paragraph.
func Markdown(blocks []types.Block) string {
	var b strings.Builder
	n := 0
	for _, bl := range blocks {
		switch bl.Type {
		case types.BlockHeading:
			b.WriteString(strings.Repeat("#", max(bl.Level, 1)) + " " + bl.Text + "\n\n")
			n = 0
		case types.BlockNumberedListItem:
			n++
			b.WriteString(strconv.Itoa(n) + ". " + bl.Text + "\n")
		default:
			if n > 0 {
				b.WriteString("\n")
				n = 0
			}
			if bl.Text != "" {
				b.WriteString(bl.Text + "\n\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
