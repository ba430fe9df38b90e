// Package textproc provides text normalization and tokenization for the
// analytics pipeline.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]+>`)
	urlPattern = regexp.MustCompile(`https?://\S+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Clean strips HTML-like tags and URLs, collapses whitespace runs and trims
// the result. Clean is idempotent and maps empty input to "".
func Clean(input string) string {
	if input == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(input, " ")
	out = urlPattern.ReplaceAllString(out, " ")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// CleanStrict applies Clean and additionally drops every rune that is not a
// letter, a digit, an underscore or whitespace. CJK ideographs are letters
// and survive the filter.
func CleanStrict(input string) string {
	if input == "" {
		return ""
	}
	out := Clean(input)
	out = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, out)
	// Dropping runes can leave adjacent spaces behind; collapse again so the
	// function stays idempotent.
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
