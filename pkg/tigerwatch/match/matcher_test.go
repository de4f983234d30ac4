package match

import (
	"testing"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

func TestMatchBoundaries(t *testing.T) {
	m := NewMatcher(DefaultRules())

	cases := []struct {
		name          string
		alias         string
		text          string
		requireSuffix bool
		wantPos       int
		wantOK        bool
	}{
		{"inside surname", "林", "小林さんの話", true, 0, false},
		{"followed by honorific", "林", "林社長", true, 0, true},
		{"followed by particle needs suffix", "林", "林は優秀", true, 0, false},
		{"after particle", "林社長", "昨日は林社長が来た", false, 3, true},
		{"after kanji", "林社長", "小林社長", false, 0, false},
		{"long alias ignores right context", "岩井社長", "岩井社長最高", false, 0, true},
		{"short alias glued to word", "岩井", "岩井田", false, 0, false},
		{"short alias before suffix", "岩井", "岩井さん最高", false, 0, true},
		{"punctuation is a boundary", "林", "「林」", false, 1, true},
		{"second occurrence", "林", "小林と林さん", true, 3, true},
		{"ascii boundary", "NO", "NOBU", false, 0, false},
		{"end of text", "岩井", "ゲストは岩井", false, 4, true},
		{"empty alias", "", "林社長", false, 0, false},
		{"alias longer than text", "林社長", "林", false, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, ok := m.Match(tc.alias, tc.text, tc.requireSuffix)
			if ok != tc.wantOK {
				t.Fatalf("Match(%q, %q, %v) ok = %v, want %v", tc.alias, tc.text, tc.requireSuffix, ok, tc.wantOK)
			}
			if ok && pos != tc.wantPos {
				t.Errorf("Match(%q, %q) pos = %d, want %d", tc.alias, tc.text, pos, tc.wantPos)
			}
		})
	}
}

func TestRequireSuffix(t *testing.T) {
	m := NewMatcher(DefaultRules())

	cases := []struct {
		alias    string
		category roster.Category
		want     bool
	}{
		{"林", roster.CategoryShort, true},
		{"林さ", roster.CategoryFormal, true},
		{"はやし", roster.CategoryHiragana, true},
		{"ハヤシ", roster.CategoryKatakana, true},
		{"林社長", roster.CategoryFormal, false},
		{"林尚弘", roster.CategoryFullName, false},
		{"はやしさ", roster.CategoryHiragana, false},
	}

	for _, tc := range cases {
		if got := m.RequireSuffix(tc.alias, tc.category); got != tc.want {
			t.Errorf("RequireSuffix(%q, %s) = %v, want %v", tc.alias, tc.category, got, tc.want)
		}
	}
}

func TestCountOccurrences(t *testing.T) {
	m := NewMatcher(DefaultRules())

	cases := []struct {
		alias    string
		category roster.Category
		text     string
		want     int
	}{
		{"林社長", roster.CategoryFormal, "林社長と林社長", 2},
		{"林", roster.CategoryShort, "林社長と林さんと林", 2},
		{"林", roster.CategoryShort, "小林くん", 0},
		{"林", roster.CategoryFormal, "小林くん", 1},
		{"ああ", roster.CategoryCasual, "あああ", 1},
		{"", roster.CategoryFormal, "林", 0},
	}

	for _, tc := range cases {
		if got := m.CountOccurrences(tc.alias, tc.category, tc.text); got != tc.want {
			t.Errorf("CountOccurrences(%q, %s, %q) = %d, want %d", tc.alias, tc.category, tc.text, got, tc.want)
		}
	}
}

func TestCustomRules(t *testing.T) {
	m := NewMatcher(Rules{
		Particles:    []string{"は", "multi"},
		LongAliasLen: 3,
	})

	if _, ok := m.Match("林社長", "の林社長", false); ok {
		t.Error("の is no longer a particle, want rejection")
	}
	if _, ok := m.Match("岩井田", "岩井田さ", false); !ok {
		t.Error("3-rune alias should skip the right check with LongAliasLen=3")
	}
	if got := m.Rules().ShortAliasLen; got != 2 {
		t.Errorf("ShortAliasLen default = %d, want 2", got)
	}
}

func TestEmptyRuleListsStayEmpty(t *testing.T) {
	m := NewMatcher(Rules{Particles: []string{}, OccurrenceSuffixes: []string{}})

	if got := m.Rules().Particles; got == nil || len(got) != 0 {
		t.Errorf("Particles = %v, want empty", got)
	}
	if _, ok := m.Match("林社長", "は林社長", false); ok {
		t.Error("with no particles は must break the left boundary")
	}
	if n := m.CountOccurrences("林", roster.CategoryShort, "林社長"); n != 0 {
		t.Errorf("CountOccurrences = %d, want 0 without occurrence suffixes", n)
	}
	if got := len(m.Rules().Suffixes); got != len(DefaultRules().Suffixes) {
		t.Errorf("nil Suffixes should take the defaults, got %d entries", got)
	}
}

func TestIsWordRune(t *testing.T) {
	for _, r := range "林あアーaZ9" {
		if !IsWordRune(r) {
			t.Errorf("IsWordRune(%q) = false", r)
		}
	}
	for _, r := range " !「」、。!?" {
		if IsWordRune(r) {
			t.Errorf("IsWordRune(%q) = true", r)
		}
	}
}
