// Package textclean turns model output into plain presentation text.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reFence      = regexp.MustCompile("(?m)^\\s*```[a-zA-Z0-9_-]*\\s*$")
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reHeading    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	reQuote      = regexp.MustCompile(`(?m)^[ \t]*>+[ \t]?`)
	reListMarker = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+•▪◦]|\d+[.)])[ \t]+`)
	reRule       = regexp.MustCompile(`(?m)^[ \t]*(?:[-*_][ \t]*){3,}$`)
	reInlineCode = regexp.MustCompile("`+")
	reEmphasis   = regexp.MustCompile(`[*_]{1,3}`)
	reSpaces     = regexp.MustCompile(`[ \t]{2,}`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
	reSentence   = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// Clean strips markdown syntax and normalizes whitespace. Clean is
// idempotent: Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	// Every pass that changes s makes it shorter, so this terminates.
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reFence.ReplaceAllString(s, "")
	s = reImage.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reRule.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "")
	s = reQuote.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	s = reInlineCode.ReplaceAllString(s, "")
	s = reEmphasis.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "#", "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanAll cleans every item and drops the ones that end up empty.
func CleanAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if c := Clean(it); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Bullets derives up to max bullet lines from text. Line breaks are used
// first; a single paragraph is split into sentences.
func Bullets(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	lines := CleanAll(strings.Split(text, "\n"))
	if len(lines) <= 1 {
		lines = lines[:0]
		for _, s := range reSentence.FindAllString(Clean(text), -1) {
			s = strings.TrimSpace(s)
			if s != "" {
				lines = append(lines, strings.TrimRight(s, "."))
			}
		}
	}
	if len(lines) > max {
		lines = lines[:max]
	}
	return lines
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
