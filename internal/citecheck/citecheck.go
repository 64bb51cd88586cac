// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citecheck finds inline citations in generated prose and checks
// them against the reference list the prose was written from.
package citecheck

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/farabi/pkg/types"
)

// citationPattern matches bracketed content: [Smith, 2023] or
// [Smith, 2023; Kim et al., 2022].
var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// entryPattern splits one citation into its attribution and year.
var entryPattern = regexp.MustCompile(`^(.+?),\s*((?:19|20)\d{2}[a-z]?|n\.d\.)$`)

// NoYear is the year marker for undated sources.
const NoYear = "n.d."

// Citation is one [Author, Year] entry found in text.
type Citation struct {
	Raw    string
	Author string
	Year   string
}

// Extract returns every citation in text in order of appearance. Bracketed
// content that is not an attribution followed by a year, such as Markdown
// link text or numeric markers, is ignored.
func Extract(text string) []Citation {
	var out []Citation
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ";") {
			part = strings.TrimSpace(part)
			sm := entryPattern.FindStringSubmatch(part)
			if sm == nil {
				continue
			}
			author := strings.TrimSpace(sm[1])
			if !hasLetter(author) {
				continue
			}
			out = append(out, Citation{Raw: part, Author: author, Year: sm[2]})
		}
	}
	return out
}

// Unverified returns the distinct citations in text that match no
// reference. A citation matches when one reference has the same year and
// either lists the cited first author's surname or has a title containing
// the cited attribution.
func Unverified(text string, refs []types.Reference) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range Extract(text) {
		if seen[c.Raw] {
			continue
		}
		seen[c.Raw] = true
		if !Matches(c, refs) {
			out = append(out, c.Raw)
		}
	}
	return out
}

// Matches reports whether any reference supports c.
func Matches(c Citation, refs []types.Reference) bool {
	surname := strings.ToLower(Surname(c.Author))
	attribution := strings.ToLower(c.Author)
	for _, r := range refs {
		if !yearMatches(c.Year, r.Year) {
			continue
		}
		if surname != "" && containsWord(strings.ToLower(r.Authors), surname) {
			return true
		}
		if strings.Contains(strings.ToLower(r.Title), attribution) {
			return true
		}
	}
	return false
}

// Surname returns the family name of the first cited author:
// "Kim et al." → "Kim", "J. Smith & Lee" → "Smith".
func Surname(author string) string {
	a := strings.TrimSpace(author)
	a = strings.TrimSuffix(a, "et al.")
	a = strings.TrimSuffix(strings.TrimSpace(a), "et al")
	for _, sep := range []string{"&", " and ", ","} {
		if i := strings.Index(a, sep); i >= 0 {
			a = a[:i]
		}
	}
	fields := strings.Fields(a)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], ".")
}

func yearMatches(cited string, year *int) bool {
	if cited == NoYear {
		return year == nil
	}
	if year == nil {
		return false
	}
	// Strip a disambiguating suffix such as the "a" in 2023a.
	n, err := strconv.Atoi(strings.TrimRightFunc(cited, unicode.IsLetter))
	return err == nil && n == *year
}

// containsWord reports whether word occurs in s on letter boundaries.
func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !unicode.IsLetter(before) && !unicode.IsLetter(after) {
			return true
		}
		i = start + 1
	}
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
