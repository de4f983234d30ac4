// Package resolve attributes a comment to the tigers it mentions.
//
// Every alias of every candidate tiger is tried against the normalized
// comment. Matches are scored and each tiger keeps only its best alias, so a
// comment yields at most one Mention per tiger. Resolution reads only its
// arguments and the read-only roster; a Resolver can be shared freely.
package resolve

import (
	"go.uber.org/zap"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

// Mention attributes one comment to one tiger.
type Mention struct {
	TigerID       string          `json:"tiger_id"`
	MatchedAlias  string          `json:"matched_alias"`
	AliasCategory roster.Category `json:"alias_type"`
	Priority      int             `json:"priority"`
}

// Result is the outcome of resolving one comment.
type Result struct {
	NormalizedText string    `json:"normalized_text"`
	Mentions       []Mention `json:"mentions"`
	// Degraded is set when no candidate roster was given and the whole
	// active roster was searched instead. False positives are more likely.
	Degraded bool `json:"degraded,omitempty"`
}

// Options configures a Resolver
type Options struct {
	Roster  *roster.Roster
	Matcher *match.Matcher
	Logger  *zap.Logger
}

// Resolver is the mention-detection engine.
type Resolver struct {
	roster  *roster.Roster
	matcher *match.Matcher
	log     *zap.Logger
}

// New creates a Resolver. A nil Matcher uses match.DefaultRules and a nil
// Logger discards output.
func New(opts Options) *Resolver {
	r := &Resolver{
		roster:  opts.Roster,
		matcher: opts.Matcher,
		log:     opts.Logger,
	}
	if r.roster == nil {
		r.roster, _ = roster.New(nil)
	}
	if r.matcher == nil {
		r.matcher = match.NewMatcher(match.DefaultRules())
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// Roster returns the roster the resolver matches against.
func (r *Resolver) Roster() *roster.Roster { return r.roster }

// Matcher returns the alias matcher and its rules.
func (r *Resolver) Matcher() *match.Matcher { return r.matcher }

// Resolve finds the tigers mentioned in text. candidates should be the tigers
// appearing in the comment's video: a common surname would otherwise match
// every tiger sharing it. With no candidates the active roster is searched
// and the result is flagged Degraded.
func (r *Resolver) Resolve(text string, candidates []string) Result {
	res := r.resolve(text, candidates)
	if res.Degraded {
		r.log.Warn("resolving without a candidate roster; matching against all active tigers",
			zap.Int("tigers", len(r.roster.ActiveIDs())))
	}
	return res
}

// candidate is one accepted alias match awaiting the per-tiger tie-break.
type candidate struct {
	alias    roster.Alias
	position int
	score    Score
}

func (r *Resolver) resolve(text string, candidates []string) Result {
	normalized := ingest.Normalize(text)
	res := Result{NormalizedText: normalized, Mentions: []Mention{}}

	if len(candidates) == 0 {
		candidates = r.roster.ActiveIDs()
		res.Degraded = true
	}

	runes := []rune(normalized)
	seen := make(map[string]struct{}, len(candidates))

	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		tiger, ok := r.roster.Get(id)
		if !ok || !tiger.Active {
			continue
		}

		var best *candidate
		for _, alias := range tiger.Aliases {
			if !alias.Valid() {
				continue
			}
			requireSuffix := r.matcher.RequireSuffix(alias.Text, alias.Category)
			pos, ok := r.matcher.MatchRunes([]rune(alias.Text), runes, requireSuffix)
			if !ok {
				continue
			}
			c := candidate{alias: alias, position: pos, score: ScoreAlias(alias)}
			// strictly better only: ties keep the alias scanned first
			if best == nil || c.score.Less(best.score) {
				best = &c
			}
		}

		if best != nil {
			res.Mentions = append(res.Mentions, Mention{
				TigerID:       id,
				MatchedAlias:  best.alias.Text,
				AliasCategory: best.alias.Category,
				Priority:      best.alias.Priority,
			})
		}
	}

	return res
}
