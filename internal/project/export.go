// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/farabi/pkg/types"
)

// Export formats.
const (
	FormatYAML     = "yaml"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Export writes the project with the given id to w as YAML, JSON, or the
// Markdown rendering of its canvas.
func (s *Store) Export(ctx context.Context, id, format string, w io.Writer) error {
	p, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	return Write(w, format, p, p.Canvas)
}

// Write encodes v to w as YAML or JSON. The Markdown format renders canvas
// instead of v.
func Write(w io.Writer, format string, v any, canvas []types.Block) error {
	switch format {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(canvas))
		return err
	default:
		return fmt.Errorf("unknown export format %q (want yaml, json, or markdown)", format)
	}
}
