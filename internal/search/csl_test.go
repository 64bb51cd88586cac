// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pdiddy/farabi/pkg/types"
)

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Ashish Vaswani", CSLName{Given: "Ashish", Family: "Vaswani"}},
		{"J. R. R. Tolkien", CSLName{Given: "J. R. R.", Family: "Tolkien"}},
		{"Plato", CSLName{Literal: "Plato"}},
		{"  ", CSLName{}},
	}
	for _, tt := range tests {
		if got := parseAuthorName(tt.in); got != tt.want {
			t.Errorf("parseAuthorName(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestToCSLItem(t *testing.T) {
	year := 2017
	abs := "The dominant models."
	u := "https://doi.org/10.5555/3295222"
	item := toCSLItem(types.Paper{
		PaperID:  "10.5555/3295222",
		Title:    "Attention Is All You Need",
		Authors:  []string{"Ashish Vaswani", "Noam Shazeer"},
		Abstract: &abs,
		Year:     &year,
		URL:      &u,
	})

	if item.DOI != "10.5555/3295222" {
		t.Errorf("DOI = %q", item.DOI)
	}
	if item.Issued == nil || item.Issued.DateParts[0][0] != 2017 {
		t.Errorf("Issued = %+v", item.Issued)
	}
	if len(item.Author) != 2 || item.Author[1].Family != "Shazeer" {
		t.Errorf("Author = %+v", item.Author)
	}
	if item.URL != u || item.Abstract != abs {
		t.Errorf("URL/Abstract = %q / %q", item.URL, item.Abstract)
	}

	bare := toCSLItem(types.Paper{PaperID: "abc123", Title: "No metadata"})
	if bare.DOI != "" || bare.Issued != nil || bare.URL != "" {
		t.Errorf("unexpected fields on %+v", bare)
	}
}

func TestFormatCSL(t *testing.T) {
	year := 2020
	var buf bytes.Buffer
	err := FormatCSL([]types.Paper{{PaperID: "p1", Title: "First", Year: &year}}, &buf)
	if err != nil {
		t.Fatalf("FormatCSL: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"id: p1", "type: article", "title: First", "date-parts:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
