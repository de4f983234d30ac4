package stats

import (
	"sort"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/rank"
)

// Roster lists every known tiger. *roster.Roster satisfies it.
type Roster interface {
	Names
	IDs() []string
}

// VideoEntry is the statistics of one video within a period.
type VideoEntry struct {
	VideoID string     `json:"video_id"`
	Stats   VideoStats `json:"stats"`
}

// PeriodTigerStat is one tiger's figures over a period.
type PeriodTigerStat struct {
	TigerID         string  `json:"tiger_id"`
	DisplayName     string  `json:"display_name"`
	TotalMentions   int     `json:"total_mentions"`
	AppearanceCount int     `json:"appearance_count"`
	AvgRateTotal    float64 `json:"avg_rate_total"`
	AvgRateEntity   float64 `json:"avg_rate_entity"`
	Rank            int     `json:"rank"`
}

// PeriodStats aggregates many videos.
type PeriodStats struct {
	Tigers map[string]PeriodTigerStat `json:"tiger_stats"`
}

// Ranked returns the tiger figures ordered by rank.
func (p PeriodStats) Ranked() []PeriodTigerStat {
	out := make([]PeriodTigerStat, 0, len(p.Tigers))
	for _, s := range p.Tigers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// Period rolls video statistics up over the full roster. A video counts
// toward a tiger only if the tiger is in that video's appearing list and has
// figures in its stats. Averages divide by the number of such appearances;
// tigers that never appeared average 0. Ranking is by total mentions.
func Period(videos []VideoEntry, appearing map[string][]string, r Roster) PeriodStats {
	ids := r.IDs()
	acc := make(map[string]*PeriodTigerStat, len(ids))
	sumTotal := make(map[string]float64, len(ids))
	sumEntity := make(map[string]float64, len(ids))
	for _, id := range ids {
		acc[id] = &PeriodTigerStat{TigerID: id, DisplayName: displayName(r, id)}
	}

	for _, v := range videos {
		for _, id := range uniqueIDs(appearing[v.VideoID]) {
			p, known := acc[id]
			if !known {
				continue
			}
			s, ok := v.Stats.Tigers[id]
			if !ok {
				continue
			}
			p.TotalMentions += s.Mentions
			p.AppearanceCount++
			sumTotal[id] += s.RateTotal
			sumEntity[id] += s.RateEntity
		}
	}

	rows := make([]PeriodTigerStat, 0, len(ids))
	for _, id := range ids {
		p := acc[id]
		if p.AppearanceCount > 0 {
			p.AvgRateTotal = sumTotal[id] / float64(p.AppearanceCount)
			p.AvgRateEntity = sumEntity[id] / float64(p.AppearanceCount)
		}
		rows = append(rows, *p)
	}

	ps := PeriodStats{Tigers: make(map[string]PeriodTigerStat, len(rows))}
	for _, r := range rank.Descending(rows, func(s PeriodTigerStat) float64 { return float64(s.TotalMentions) }) {
		r.Item.Rank = r.Rank
		ps.Tigers[r.Item.TigerID] = r.Item
	}
	return ps
}
