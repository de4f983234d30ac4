package match

import "github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"

// Rules are the tuned heuristics of the boundary check. They were fitted
// against observed false positives and are meant to be revised through
// configuration rather than code.
type Rules struct {
	// Particles may precede a name without breaking the left boundary.
	Particles []string `yaml:"particles"`
	// Suffixes are honorifics that confirm a personal reference on the right.
	Suffixes []string `yaml:"suffixes"`
	// OccurrenceSuffixes gate short aliases when counting raw occurrences.
	OccurrenceSuffixes []string `yaml:"occurrence_suffixes"`
	// LongAliasLen is the rune length from which the right-context check is skipped.
	LongAliasLen int `yaml:"long_alias_len"`
	// ShortAliasLen is the rune length up to which every alias needs a suffix.
	ShortAliasLen int `yaml:"short_alias_len"`
	// PhoneticAliasLen is the rune length up to which PhoneticCategories need a suffix.
	PhoneticAliasLen   int               `yaml:"phonetic_alias_len"`
	PhoneticCategories []roster.Category `yaml:"phonetic_categories"`
}

// DefaultRules returns the rule set the dictionaries were curated against.
func DefaultRules() Rules {
	return Rules{
		Particles:          []string{"は", "が", "を", "に", "へ", "と", "や", "の", "で", "も"},
		Suffixes:           []string{"社長", "さん", "氏", "先生", "ちゃん", "くん", "君"},
		OccurrenceSuffixes: []string{"社長", "さん", "氏"},
		LongAliasLen:       4,
		ShortAliasLen:      2,
		PhoneticAliasLen:   3,
		PhoneticCategories: []roster.Category{
			roster.CategoryShort,
			roster.CategoryCasual,
			roster.CategoryHiragana,
			roster.CategoryKatakana,
		},
	}
}

// WithDefaults fills every zero field from DefaultRules. A nil list takes the
// default; an empty non-nil list (`particles: []` in YAML) stays empty.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	if r.Particles == nil {
		r.Particles = d.Particles
	}
	if r.Suffixes == nil {
		r.Suffixes = d.Suffixes
	}
	if r.OccurrenceSuffixes == nil {
		r.OccurrenceSuffixes = d.OccurrenceSuffixes
	}
	if r.LongAliasLen <= 0 {
		r.LongAliasLen = d.LongAliasLen
	}
	if r.ShortAliasLen <= 0 {
		r.ShortAliasLen = d.ShortAliasLen
	}
	if r.PhoneticAliasLen <= 0 {
		r.PhoneticAliasLen = d.PhoneticAliasLen
	}
	if r.PhoneticCategories == nil {
		r.PhoneticCategories = d.PhoneticCategories
	}
	return r
}
