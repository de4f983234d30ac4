// Package match certifies that one alias string legitimately occurs in a
// normalized comment. Japanese has no spaces between words, so boundaries are
// inferred from character classes, a particle exception list and honorific
// suffixes. Deciding which tiger wins is the resolver's job, not this one.
package match

import (
	"unicode/utf8"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

// Matcher applies a Rules set. It is immutable and safe for concurrent use.
type Matcher struct {
	rules       Rules
	particles   map[rune]struct{}
	suffixes    [][]rune
	occSuffixes [][]rune
	phonetic    map[roster.Category]struct{}
}

// NewMatcher compiles rules; nil lists and zero thresholds take their defaults.
func NewMatcher(rules Rules) *Matcher {
	rules = rules.WithDefaults()
	m := &Matcher{
		rules:     rules,
		particles: make(map[rune]struct{}, len(rules.Particles)),
		phonetic:  make(map[roster.Category]struct{}, len(rules.PhoneticCategories)),
	}
	for _, p := range rules.Particles {
		// particles are compared against a single preceding rune
		if utf8.RuneCountInString(p) != 1 {
			continue
		}
		r, _ := utf8.DecodeRuneInString(p)
		m.particles[r] = struct{}{}
	}
	for _, s := range rules.Suffixes {
		if s != "" {
			m.suffixes = append(m.suffixes, []rune(s))
		}
	}
	for _, s := range rules.OccurrenceSuffixes {
		if s != "" {
			m.occSuffixes = append(m.occSuffixes, []rune(s))
		}
	}
	for _, c := range rules.PhoneticCategories {
		m.phonetic[c] = struct{}{}
	}
	return m
}

// Rules returns the effective rule set.
func (m *Matcher) Rules() Rules { return m.rules }

// IsWordRune reports whether r can be part of a word: a CJK ideograph,
// hiragana, katakana, the long vowel mark, or an ASCII letter or digit.
func IsWordRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FA0: // 一-龠
		return true
	case r >= 0x3041 && r <= 0x3093: // ぁ-ん
		return true
	case r >= 0x30A1 && r <= 0x30F6: // ァ-ヶ
		return true
	case r == 'ー':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return false
}

// RequireSuffix reports whether an alias is too short or too phonetic to be
// trusted without a trailing honorific.
func (m *Matcher) RequireSuffix(alias string, category roster.Category) bool {
	n := utf8.RuneCountInString(alias)
	if _, ok := m.phonetic[category]; ok && n <= m.rules.PhoneticAliasLen {
		return true
	}
	return n <= m.rules.ShortAliasLen
}

// Match returns the rune offset of the first boundary-valid occurrence of
// alias in text.
func (m *Matcher) Match(alias, text string, requireSuffix bool) (int, bool) {
	return m.MatchRunes([]rune(alias), []rune(text), requireSuffix)
}

// MatchRunes is Match on pre-decoded text, so a resolver can decode a
// comment once for all of its aliases.
func (m *Matcher) MatchRunes(alias, text []rune, requireSuffix bool) (int, bool) {
	if len(alias) == 0 {
		return 0, false
	}

	for from := 0; ; {
		pos := indexRunes(text, alias, from)
		if pos < 0 {
			return 0, false
		}
		end := pos + len(alias)

		if m.isBoundary(text, pos, end, alias) {
			if !requireSuffix || hasPrefixAny(text[end:], m.suffixes) {
				return pos, true
			}
		}

		// rejected: restart one rune later so overlapping occurrences are seen
		from = pos + 1
	}
}

func (m *Matcher) isBoundary(text []rune, start, end int, alias []rune) bool {
	if start > 0 {
		prev := text[start-1]
		if IsWordRune(prev) {
			if _, ok := m.particles[prev]; !ok {
				return false
			}
		}
	}

	if end < len(text) && IsWordRune(text[end]) {
		if hasSuffixAny(alias, m.suffixes) {
			return true
		}
		if len(alias) >= m.rules.LongAliasLen {
			return true
		}
		if !hasPrefixAny(text[end:], m.suffixes) {
			return false
		}
	}

	return true
}

// CountOccurrences counts non-overlapping occurrences of alias in text.
// Short aliases of the short category only count when an occurrence suffix
// follows them; the suffix is consumed with the match.
func (m *Matcher) CountOccurrences(alias string, category roster.Category, text string) int {
	a := []rune(alias)
	if len(a) == 0 {
		return 0
	}
	t := []rune(text)
	gated := category == roster.CategoryShort && len(a) <= m.rules.ShortAliasLen

	count := 0
	for from := 0; ; {
		pos := indexRunes(t, a, from)
		if pos < 0 {
			return count
		}
		end := pos + len(a)
		if !gated {
			count++
			from = end
			continue
		}
		if n := prefixLen(t[end:], m.occSuffixes); n > 0 {
			count++
			from = end + n
			continue
		}
		from = pos + 1
	}
}

func indexRunes(text, sub []rune, from int) int {
	last := len(text) - len(sub)
	for i := from; i <= last; i++ {
		if equalRunes(text[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasPrefixAny(text []rune, prefixes [][]rune) bool {
	return prefixLen(text, prefixes) > 0
}

// prefixLen returns the length of the first prefix that text starts with.
func prefixLen(text []rune, prefixes [][]rune) int {
	for _, p := range prefixes {
		if len(p) <= len(text) && equalRunes(text[:len(p)], p) {
			return len(p)
		}
	}
	return 0
}

func hasSuffixAny(s []rune, suffixes [][]rune) bool {
	for _, suf := range suffixes {
		if len(suf) <= len(s) && equalRunes(s[len(s)-len(suf):], suf) {
			return true
		}
	}
	return false
}
