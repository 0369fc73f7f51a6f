package legalaudit

import (
	"regexp"
	"strings"
)

var (
	reHorizontalSpace = regexp.MustCompile(`[ \t]+`)
	reBlankRuns       = regexp.MustCompile(`\n{3,}`)
	reTrailingSpace   = regexp.MustCompile(`[ \t]+\n`)
	reLeadingSpace    = regexp.MustCompile(`\n[ \t]+`)
)

// NormalizeText makes extracted text comparable across sources: NBSP
// becomes a space, CR becomes LF, runs of spaces and tabs collapse to one
// space, at most one blank line survives between paragraphs, and spaces
// around line breaks are removed.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reHorizontalSpace.ReplaceAllString(s, " ")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	s = reTrailingSpace.ReplaceAllString(s, "\n")
	s = reLeadingSpace.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// TruncateRunes cuts s to at most n runes. n <= 0 leaves s untouched.
func TruncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
