// Package report builds period mention reports: one row per video, one row
// per tracked tiger, a summary and a ranking.
package report

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/rank"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
)

// CountMode selects the ranking key.
type CountMode string

const (
	// CountComments ranks by the number of comments mentioning a tiger.
	CountComments CountMode = "comment"
	// CountOccurrences ranks by raw alias occurrences in comment text.
	CountOccurrences CountMode = "occurrence"
)

// ParseCountMode validates a mode name. The empty string means CountComments.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case "", CountComments:
		return CountComments, nil
	case CountOccurrences:
		return CountOccurrences, nil
	}
	return "", fmt.Errorf("%w: count mode %q", internalerr.ErrInvalidInput, s)
}

const dateLayout = "2006-01-02"

// Period renders the label reports are stored under, e.g. 2025-01-01/2025-12-31.
// An open bound renders as "..".
func Period(from, to time.Time) string {
	return dateOrOpen(from) + "/" + dateOrOpen(to)
}

func dateOrOpen(t time.Time) string {
	if t.IsZero() {
		return ".."
	}
	return t.Format(dateLayout)
}

// VideoInput is one analyzed video.
type VideoInput struct {
	Video     ingest.Video
	Appearing []string
	Comments  []resolve.AnalyzedComment
	Stats     stats.VideoStats
}

// Input describes the report to build.
type Input struct {
	From, To time.Time
	// TigerIDs are the tracked tigers; empty tracks the whole roster.
	TigerIDs []string
	Mode     CountMode
	Videos   []VideoInput
}

// VideoRow is one video of the period.
type VideoRow struct {
	VideoID         string         `json:"video_id"`
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	PublishedAt     time.Time      `json:"published_at"`
	Performers      []string       `json:"performers"`
	TotalComments   int            `json:"total_comments"`
	CommentMentions map[string]int `json:"comment_mentions"`
	Occurrences     map[string]int `json:"occurrences"`
}

// PersonRow is one tracked tiger over the period.
type PersonRow struct {
	TigerID         string `json:"tiger_id"`
	DisplayName     string `json:"display_name"`
	VideoCount      int    `json:"video_count"`
	CommentMentions int    `json:"comment_mentions"`
	Occurrences     int    `json:"occurrences"`
	Rank            int    `json:"rank,omitempty"`
}

// Summary totals the period.
type Summary struct {
	From          string `json:"from"`
	To            string `json:"to"`
	VideoCount    int    `json:"video_count"`
	TotalComments int    `json:"total_comments"`
}

// Report is a complete period report.
type Report struct {
	ID          string            `json:"id"`
	Period      string            `json:"period"`
	Mode        CountMode         `json:"count_mode"`
	GeneratedAt time.Time         `json:"generated_at"`
	Videos      []VideoRow        `json:"videos"`
	People      []PersonRow       `json:"people"`
	Summary     Summary           `json:"summary"`
	Ranking     []PersonRow       `json:"ranking"`
	PeriodStats stats.PeriodStats `json:"period_stats"`
}

// Record encodes the report for storage.
func (r Report) Record() (store.Report, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return store.Report{}, err
	}
	return store.Report{ID: r.ID, Period: r.Period, GeneratedAt: r.GeneratedAt, Body: string(body)}, nil
}

// Decode restores a stored report.
func Decode(rec store.Report) (Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(rec.Body), &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", rec.ID, err)
	}
	return r, nil
}

// Builder constructs reports
type Builder struct {
	roster  *roster.Roster
	matcher *match.Matcher

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new report builder
func New(r *roster.Roster, m *match.Matcher) *Builder {
	if m == nil {
		m = match.NewMatcher(match.DefaultRules())
	}
	return &Builder{
		roster:  r,
		matcher: m,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Build aggregates the videos published within [From, To]; a zero bound is open.
func (b *Builder) Build(in Input) (Report, error) {
	mode, err := ParseCountMode(string(in.Mode))
	if err != nil {
		return Report{}, err
	}
	tracked := in.TigerIDs
	if len(tracked) == 0 {
		tracked = b.roster.IDs()
	}
	for _, id := range tracked {
		if !b.roster.Has(id) {
			return Report{}, fmt.Errorf("%w: %s", internalerr.ErrUnknownTiger, id)
		}
	}

	now := b.now()
	b.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), b.entropy).String()
	b.mu.Unlock()

	rep := Report{
		ID:          id,
		Period:      Period(in.From, in.To),
		Mode:        mode,
		GeneratedAt: now,
		Videos:      []VideoRow{},
		Summary:     Summary{From: dateOrOpen(in.From), To: dateOrOpen(in.To)},
	}

	people := make(map[string]*PersonRow, len(tracked))
	for _, tid := range tracked {
		people[tid] = &PersonRow{TigerID: tid, DisplayName: b.roster.DisplayName(tid)}
	}

	var entries []stats.VideoEntry
	appearing := make(map[string][]string)

	for _, v := range in.Videos {
		if !inWindow(v.Video.PublishedAt, in.From, in.To) {
			continue
		}
		row := b.videoRow(v, tracked)
		rep.Videos = append(rep.Videos, row)

		rep.Summary.VideoCount++
		rep.Summary.TotalComments += row.TotalComments
		for _, tid := range tracked {
			p := people[tid]
			if n := row.CommentMentions[tid]; n > 0 {
				p.VideoCount++
				p.CommentMentions += n
			}
			p.Occurrences += row.Occurrences[tid]
		}

		entries = append(entries, stats.VideoEntry{VideoID: v.Video.ID, Stats: v.Stats})
		appearing[v.Video.ID] = v.Appearing
	}

	rep.People = make([]PersonRow, 0, len(tracked))
	for _, tid := range tracked {
		rep.People = append(rep.People, *people[tid])
	}

	key := func(p PersonRow) float64 { return float64(p.CommentMentions) }
	if mode == CountOccurrences {
		key = func(p PersonRow) float64 { return float64(p.Occurrences) }
	}
	for _, r := range rank.Descending(rep.People, key) {
		r.Item.Rank = r.Rank
		rep.Ranking = append(rep.Ranking, r.Item)
	}

	rep.PeriodStats = stats.Period(entries, appearing, b.roster)
	return rep, nil
}

func (b *Builder) videoRow(v VideoInput, tracked []string) VideoRow {
	row := VideoRow{
		VideoID:         v.Video.ID,
		URL:             v.Video.URL(),
		Title:           v.Video.Title,
		PublishedAt:     v.Video.PublishedAt,
		TotalComments:   len(v.Comments),
		CommentMentions: make(map[string]int, len(tracked)),
		Occurrences:     make(map[string]int, len(tracked)),
	}

	mentioned := make(map[string]struct{})
	for _, c := range v.Comments {
		for _, tid := range tracked {
			if c.MentionsTiger(tid) {
				row.CommentMentions[tid]++
				mentioned[tid] = struct{}{}
			}
		}

		text := c.NormalizedText
		if text == "" {
			text = ingest.Normalize(c.Body())
		}
		if text == "" {
			continue
		}
		for _, tid := range tracked {
			for _, a := range b.roster.Aliases(tid) {
				row.Occurrences[tid] += b.matcher.CountOccurrences(a.Text, a.Category, text)
			}
		}
	}

	if len(v.Appearing) > 0 {
		for _, tid := range v.Appearing {
			row.Performers = append(row.Performers, b.roster.DisplayName(tid))
		}
	} else {
		ids := make([]string, 0, len(mentioned))
		for tid := range mentioned {
			ids = append(ids, tid)
		}
		sort.Strings(ids)
		for _, tid := range ids {
			row.Performers = append(row.Performers, b.roster.DisplayName(tid))
		}
	}
	return row
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
