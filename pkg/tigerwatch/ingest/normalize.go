package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes comment text before matching:
//  1. NFKC folds full-width alphanumerics/punctuation and half-width katakana
//  2. every run of whitespace collapses to a single ASCII space
//  3. leading and trailing whitespace is trimmed
//
// All match positions downstream are rune offsets into the returned string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(folded))
	inSpace := false
	for _, r := range folded {
		if isSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// isSpace extends unicode.IsSpace with the information separators U+001C..U+001F.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
