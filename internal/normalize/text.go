// Package normalize turns loosely formatted roster fields into canonical dates, times and labels.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds full-width and compatibility characters (NFKC) and collapses whitespace.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHSpace     = regexp.MustCompile(`[ \t]+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reRuleLine   = regexp.MustCompile(`(?m)^[ \t]*[_\-=|+]{3,}[ \t]*$`)
)

// CleanRawText tidies a transcribed text block while keeping its line structure: NFKC folding,
// single spaces, no table rule lines and at most one blank line in a row.
func CleanRawText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reRuleLine.ReplaceAllString(s, "")
	s = reHSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = reMultiBlank.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// prepare lowercases and folds a value before pattern matching.
func prepare(s string) string {
	s = strings.ToLower(NormalizeText(s))
	// trailing "(Mon)" / "(월)" annotations carry no date information
	if i := strings.LastIndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
