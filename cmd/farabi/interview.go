// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/farabi/internal/gateway"
	"github.com/pdiddy/farabi/internal/interview"
	"github.com/pdiddy/farabi/internal/logging"
	"github.com/pdiddy/farabi/pkg/types"
)

var interviewCmd = &cobra.Command{
	Use:   "interview [topic]",
	Short: "Narrow a broad topic into final research keywords",
	Long: `Interview holds a conversation with the research assistant. The assistant
asks clarifying questions, proposes research angles, and finally settles on
the keywords the research pipeline runs on.

Answer in free text or type the number of a proposed angle. Type /quit to
leave. With --research the pipeline starts as soon as the keywords are final.`,
	RunE: runInterview,
}

func runInterview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewScanner(os.Stdin)
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		fmt.Fprint(os.Stdout, "What would you like to research? ")
		if !in.Scan() {
			return fmt.Errorf("topic required")
		}
		topic = strings.TrimSpace(in.Text())
	}
	if topic == "" {
		return fmt.Errorf("topic required")
	}

	gw, err := gateway.New(cfg.Gateway, gateway.WithLogger(logging.Component(logger, "gateway")))
	if err != nil {
		return err
	}
	mgr := interview.NewManager(gw, topic, interview.WithLogger(logging.Component(logger, "interview")))

	keywords, err := converse(ctx, mgr, in, os.Stdout)
	if err != nil {
		return err
	}
	if keywords == "" {
		return nil
	}

	research, _ := cmd.Flags().GetBool("research")
	if !research {
		fmt.Fprintf(os.Stdout, "\nRun: farabi research --topic %q --keywords %q\n", topic, keywords)
		return nil
	}
	fast, _ := cmd.Flags().GetBool("fast")
	save, _ := cmd.Flags().GetBool("save")
	return doResearch(ctx, os.Stdout, os.Stderr, researchOptions{
		Topic:    topic,
		Keywords: keywords,
		DeepDive: cfg.Pipeline.DeepDive && !fast,
		Dedupe:   cfg.Pipeline.DedupePapers,
		Format:   "markdown",
		Save:     save,
	})
}

// converse runs the interview loop until the assistant finalizes, the input
// ends, or the user quits. It returns the final keywords, or "" when the
// interview ended without them.
func converse(ctx context.Context, mgr *interview.Manager, in *bufio.Scanner, out io.Writer) (string, error) {
	d, err := mgr.Turn(ctx, mgr.Topic())
	if err != nil {
		return "", err
	}
	for {
		printDecision(out, d)
		if d.IsFinal() {
			fmt.Fprintf(out, "\n%s %s\n", doneStyle.Render("Final keywords:"), d.FinalKeywords)
			return d.FinalKeywords, nil
		}

		text, ok := readAnswer(in, out)
		if !ok {
			return "", in.Err()
		}
		if text == "/quit" {
			return "", nil
		}
		d, err = mgr.Turn(ctx, chooseOption(text, d.Options))
		if err != nil {
			return "", err
		}
	}
}

// readAnswer prompts until a non-blank line is read. ok is false at the
// end of input.
func readAnswer(in *bufio.Scanner, out io.Writer) (text string, ok bool) {
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return "", false
		}
		if text = strings.TrimSpace(in.Text()); text != "" {
			return text, true
		}
	}
}

// chooseOption maps a numeric answer to the label of the proposed option it
// names. Any other text is returned unchanged.
func chooseOption(text string, options []types.InterviewOption) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(options) {
		return text
	}
	return options[n-1].Label
}

func init() {
	interviewCmd.Flags().Bool("research", false, "run the research pipeline once the keywords are final")
	interviewCmd.Flags().Bool("fast", false, "with --research, skip full-text retrieval")
	interviewCmd.Flags().Bool("save", false, "with --research, save the result as a project on the backend")

	rootCmd.AddCommand(interviewCmd)
}
