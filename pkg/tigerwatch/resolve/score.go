package resolve

import (
	"unicode/utf8"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

// unrankedCategory sorts categories missing from categoryRank last.
const unrankedCategory = 99

var categoryRank = map[roster.Category]int{
	roster.CategoryFullName:  1,
	roster.CategoryFormal:    2,
	roster.CategoryNickname:  3,
	roster.CategoryCasual:    4,
	roster.CategoryBusiness:  5,
	roster.CategoryFirstName: 6,
	roster.CategoryHiragana:  7,
	roster.CategoryKatakana:  8,
	roster.CategoryShort:     9,
}

// CategoryRank returns the tie-break rank of an alias category.
func CategoryRank(c roster.Category) int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return unrankedCategory
}

// Score orders matches of one tiger; the lexicographically smallest wins.
//
//	NegLength     longer aliases are more specific
//	Priority      curator-assigned, smaller is stronger
//	CategoryRank  fullname > formal > nickname > ... > short
type Score struct {
	NegLength    int
	Priority     int
	CategoryRank int
}

// ScoreAlias computes the score of a matched alias.
func ScoreAlias(a roster.Alias) Score {
	return Score{
		NegLength:    -utf8.RuneCountInString(a.Text),
		Priority:     a.Priority,
		CategoryRank: CategoryRank(a.Category),
	}
}

// Less reports whether s beats o.
func (s Score) Less(o Score) bool {
	if s.NegLength != o.NegLength {
		return s.NegLength < o.NegLength
	}
	if s.Priority != o.Priority {
		return s.Priority < o.Priority
	}
	return s.CategoryRank < o.CategoryRank
}
