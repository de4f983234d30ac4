// Package stats turns per-comment mentions into comparable rates.
//
//	RateTotal  = N_tiger / N_total  * 100  share of all comments ("absolute presence")
//	RateEntity = N_tiger / N_entity * 100  share of comments naming any tiger ("relative prominence")
//
// Both are 0 when their denominator is 0. The functions here are pure.
package stats

import (
	"sort"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/rank"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
)

// Names resolves display names. *roster.Roster satisfies it.
type Names interface {
	DisplayName(id string) string
}

// TigerStat is one tiger's figures within a video.
type TigerStat struct {
	TigerID     string  `json:"tiger_id"`
	DisplayName string  `json:"display_name"`
	Mentions    int     `json:"mention_count"`
	RateTotal   float64 `json:"rate_total"`
	RateEntity  float64 `json:"rate_entity"`
	Rank        int     `json:"rank"`
}

// VideoStats aggregates one video's comments.
type VideoStats struct {
	NTotal  int                  `json:"n_total"`
	NEntity int                  `json:"n_entity"`
	Tigers  map[string]TigerStat `json:"tiger_stats"`
}

// Ranked returns the tiger figures ordered by rank.
func (v VideoStats) Ranked() []TigerStat {
	out := make([]TigerStat, 0, len(v.Tigers))
	for _, s := range v.Tigers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// Video computes the statistics of one video. Only tigers in appearing are
// reported; NEntity still counts comments mentioning any tiger. A comment ID
// seen twice is counted once; comments without an ID are counted individually.
func Video(comments []resolve.AnalyzedComment, appearing []string, names Names) VideoStats {
	nTotal := len(comments)
	nEntity := 0
	seen := make(map[string]struct{}, len(comments))
	perTiger := make(map[string]int)
	for _, c := range comments {
		if len(c.Mentions) == 0 {
			continue
		}
		if c.ID != "" {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		nEntity++
		counted := make(map[string]struct{}, len(c.Mentions))
		for _, m := range c.Mentions {
			if _, ok := counted[m.TigerID]; ok {
				continue
			}
			counted[m.TigerID] = struct{}{}
			perTiger[m.TigerID]++
		}
	}

	ids := uniqueIDs(appearing)
	rows := make([]TigerStat, 0, len(ids))
	for _, id := range ids {
		n := perTiger[id]
		rows = append(rows, TigerStat{
			TigerID:     id,
			DisplayName: displayName(names, id),
			Mentions:    n,
			RateTotal:   percent(n, nTotal),
			RateEntity:  percent(n, nEntity),
		})
	}

	vs := VideoStats{
		NTotal:  nTotal,
		NEntity: nEntity,
		Tigers:  make(map[string]TigerStat, len(rows)),
	}
	for _, r := range rank.Descending(rows, func(s TigerStat) float64 { return s.RateTotal }) {
		r.Item.Rank = r.Rank
		vs.Tigers[r.Item.TigerID] = r.Item
	}
	return vs
}

// TopComments returns up to n comments mentioning tigerID, most liked first.
// Equal like counts keep input order.
func TopComments(comments []resolve.AnalyzedComment, tigerID string, n int) []resolve.AnalyzedComment {
	var out []resolve.AnalyzedComment
	for _, c := range comments {
		if c.MentionsTiger(tigerID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LikeCount > out[j].LikeCount
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func displayName(names Names, id string) string {
	if names == nil {
		return id
	}
	if n := names.DisplayName(id); n != "" {
		return n
	}
	return id
}
