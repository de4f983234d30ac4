package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu          sync.RWMutex
	videos      map[string]ingest.Video
	comments    map[string][]ingest.Comment // video ID -> comments in insertion order
	appearances map[string][]string
	analyses    map[string]store.Analysis
	reports     map[string]store.Report
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		videos:      make(map[string]ingest.Video),
		comments:    make(map[string][]ingest.Comment),
		appearances: make(map[string][]string),
		analyses:    make(map[string]store.Analysis),
		reports:     make(map[string]store.Report),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertVideo inserts or replaces a video, keyed by ID.
func (s *Store) UpsertVideo(ctx context.Context, v ingest.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = v
	return nil
}

// GetVideo returns a video by ID.
func (s *Store) GetVideo(ctx context.Context, id string) (ingest.Video, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	return v, ok, nil
}

// ListVideos returns videos published within [from, to], oldest first.
func (s *Store) ListVideos(ctx context.Context, from, to time.Time) ([]ingest.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ingest.Video
	for _, v := range s.videos {
		if !from.IsZero() && v.PublishedAt.Before(from) {
			continue
		}
		if !to.IsZero() && v.PublishedAt.After(to) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out, nil
}

// UpsertComments inserts or replaces comments, keyed by comment ID.
func (s *Store) UpsertComments(ctx context.Context, comments []ingest.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range comments {
		list := s.comments[c.VideoID]
		replaced := false
		for i := range list {
			if list[i].ID == c.ID {
				list[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, c)
		}
		s.comments[c.VideoID] = list
	}
	return nil
}

// GetComments returns the comments of a video in insertion order.
func (s *Store) GetComments(ctx context.Context, videoID string) ([]ingest.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ingest.Comment(nil), s.comments[videoID]...), nil
}

// SetAppearances replaces the appearing roster of a video.
func (s *Store) SetAppearances(ctx context.Context, videoID string, tigerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appearances[videoID] = uniqueStrings(tigerIDs)
	return nil
}

// AddAppearances appends tigers not yet recorded for the video.
func (s *Store) AddAppearances(ctx context.Context, videoID string, tigerIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.appearances[videoID]
	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}
	var added []string
	for _, id := range tigerIDs {
		if _, ok := have[id]; ok || id == "" {
			continue
		}
		have[id] = struct{}{}
		existing = append(existing, id)
		added = append(added, id)
	}
	s.appearances[videoID] = existing
	return added, nil
}

// GetAppearances returns the appearing roster of a video.
func (s *Store) GetAppearances(ctx context.Context, videoID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.appearances[videoID]...), nil
}

// SaveAnalysis replaces the analysis of a video.
func (s *Store) SaveAnalysis(ctx context.Context, a store.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Comments = append([]resolve.AnalyzedComment(nil), a.Comments...)
	a.Appearing = append([]string(nil), a.Appearing...)
	s.analyses[a.VideoID] = a
	return nil
}

// GetAnalysis returns the analysis of a video.
func (s *Store) GetAnalysis(ctx context.Context, videoID string) (store.Analysis, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[videoID]
	return a, ok, nil
}

// UpsertReport stores a report in memory.
func (s *Store) UpsertReport(ctx context.Context, r store.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = time.Now().Format(time.RFC3339Nano)
	}
	s.reports[r.ID] = r
	return nil
}

// GetReportsByPeriod returns the newest k reports of a period.
func (s *Store) GetReportsByPeriod(ctx context.Context, period string, k int) ([]store.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []store.Report
	for _, r := range s.reports {
		if r.Period == period {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > k && k > 0 {
		result = result[:k]
	}
	return result, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
