// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/farabi/internal/pipeline"
	"github.com/pdiddy/farabi/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	subItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	optionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// stageReporter prints pipeline events as styled status lines.
type stageReporter struct {
	w io.Writer
}

func (r stageReporter) observe(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventStage:
		r.stage(e.Stage)
	case pipeline.EventState:
		switch e.State {
		case pipeline.StateRunning:
			fmt.Fprintln(r.w, titleStyle.Render("Researching..."))
		case pipeline.StateFailed:
			fmt.Fprintf(r.w, "%s %v\n", failStyle.Render("✗ research failed:"), e.Err)
		}
	}
}

func (r stageReporter) stage(st types.PipelineStage) {
	switch st.Status {
	case types.StageInProgress:
		fmt.Fprintf(r.w, "%s %s\n", activeStyle.Render("›"), st.Label)
	case types.StageCompleted:
		var took string
		if st.ElapsedMs != nil && *st.ElapsedMs > 0 {
			took = subItemStyle.Render(fmt.Sprintf(" (%s)", formatElapsed(time.Duration(*st.ElapsedMs)*time.Millisecond)))
		}
		fmt.Fprintf(r.w, "%s %s%s\n", doneStyle.Render("✓"), st.Label, took)
		for _, item := range st.SubItems {
			fmt.Fprintf(r.w, "    %s\n", subItemStyle.Render(item))
		}
	}
}

// formatElapsed renders d with one decimal of seconds.
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// printDecision prints an assistant interview turn.
func printDecision(w io.Writer, d types.InterviewDecision) {
	fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("farabi:"), d.ReplyText)
	for i, o := range d.Options {
		line := optionStyle.Render(fmt.Sprintf("  %d. %s", i+1, o.Label))
		if desc := strings.TrimSpace(o.Description); desc != "" {
			line += subItemStyle.Render(" - " + desc)
		}
		fmt.Fprintln(w, line)
	}
}
