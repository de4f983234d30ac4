// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
)

// Run exercises a store returned by open. open is called once per subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Videos", func(t *testing.T) { testVideos(t, open(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, open(t)) })
	t.Run("Appearances", func(t *testing.T) { testAppearances(t, open(t)) })
	t.Run("Analysis", func(t *testing.T) { testAnalysis(t, open(t)) })
	t.Run("Reports", func(t *testing.T) { testReports(t, open(t)) })
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 12, 0, 0, 0, time.UTC)
}

func testVideos(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, v := range []ingest.Video{
		{ID: "v3", Title: "三", PublishedAt: day(3)},
		{ID: "v1", Title: "一", PublishedAt: day(1), Description: "説明", ViewCount: 10},
		{ID: "v2", Title: "二", PublishedAt: day(2)},
	} {
		require.NoError(t, s.UpsertVideo(ctx, v))
	}
	require.NoError(t, s.UpsertVideo(ctx, ingest.Video{ID: "v1", Title: "一改", PublishedAt: day(1), ViewCount: 20}))

	got, found, err := s.GetVideo(ctx, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "一改", got.Title)
	assert.Equal(t, int64(20), got.ViewCount)
	assert.True(t, day(1).Equal(got.PublishedAt))

	_, found, err = s.GetVideo(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	all, err := s.ListVideos(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, videoIDs(all))

	window, err := s.ListVideos(ctx, day(2), day(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v3"}, videoIDs(window))

	open, err := s.ListVideos(ctx, time.Time{}, day(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, videoIDs(open))
}

func testComments(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.UpsertComments(ctx, []ingest.Comment{
		{ID: "c2", VideoID: "v1", Text: "二番目", LikeCount: 1},
		{ID: "c1", VideoID: "v1", Text: "一番目", PublishedAt: day(1)},
		{ID: "x1", VideoID: "v2", Text: "別動画"},
	}))
	require.NoError(t, s.UpsertComments(ctx, []ingest.Comment{
		{ID: "c2", VideoID: "v1", Text: "二番目改", LikeCount: 7, IsReply: true, ParentID: "c1"},
	}))

	got, err := s.GetComments(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID, "insertion order is kept across updates")
	assert.Equal(t, "二番目改", got[0].Text)
	assert.Equal(t, int64(7), got[0].LikeCount)
	assert.True(t, got[0].IsReply)
	assert.Equal(t, "c1", got[0].ParentID)
	assert.True(t, day(1).Equal(got[1].PublishedAt))

	none, err := s.GetComments(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAppearances(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.SetAppearances(ctx, "v1", []string{"iwai", "hayashi", "iwai"}))
	got, err := s.GetAppearances(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"iwai", "hayashi"}, got)

	added, err := s.AddAppearances(ctx, "v1", []string{"hayashi", "kobayashi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"kobayashi"}, added)

	got, err = s.GetAppearances(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"iwai", "hayashi", "kobayashi"}, got)

	require.NoError(t, s.SetAppearances(ctx, "v1", []string{"yuji"}))
	got, err = s.GetAppearances(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"yuji"}, got)

	got, err = s.GetAppearances(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testAnalysis(t *testing.T, s store.Store) {
	ctx := context.Background()

	comments := []ingest.Comment{
		{ID: "c1", VideoID: "v1", Text: "林社長すごい!", LikeCount: 3},
		{ID: "c2", VideoID: "v1", Text: "面白かった"},
	}
	require.NoError(t, s.UpsertComments(ctx, comments))

	a := store.Analysis{
		VideoID:    "v1",
		AnalyzedAt: day(5),
		Appearing:  []string{"iwai", "hayashi"},
		Comments: []resolve.AnalyzedComment{
			{
				Comment:        comments[0],
				NormalizedText: "林社長すごい!",
				Mentions: []resolve.Mention{
					{TigerID: "hayashi", MatchedAlias: "林社長", AliasCategory: roster.CategoryFormal, Priority: 1},
				},
			},
			{Comment: comments[1], NormalizedText: "面白かった", Mentions: []resolve.Mention{}},
		},
		Stats: stats.VideoStats{
			NTotal:  2,
			NEntity: 1,
			Tigers: map[string]stats.TigerStat{
				"hayashi": {TigerID: "hayashi", DisplayName: "林社長", Mentions: 1, RateTotal: 50, RateEntity: 100, Rank: 1},
			},
		},
	}
	require.NoError(t, s.SaveAnalysis(ctx, a))

	got, found, err := s.GetAnalysis(ctx, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, day(5).Equal(got.AnalyzedAt))
	assert.False(t, got.Degraded)
	assert.Equal(t, []string{"iwai", "hayashi"}, got.Appearing)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "c1", got.Comments[0].ID)
	assert.Equal(t, int64(3), got.Comments[0].LikeCount)
	assert.Equal(t, a.Comments[0].Mentions, got.Comments[0].Mentions)
	assert.Empty(t, got.Comments[1].Mentions)
	assert.Equal(t, a.Stats, got.Stats)

	// a second save replaces the first
	a.Degraded = true
	a.Appearing = nil
	a.Comments = a.Comments[1:]
	a.Stats = stats.VideoStats{NTotal: 1, Tigers: map[string]stats.TigerStat{}}
	require.NoError(t, s.SaveAnalysis(ctx, a))

	got, found, err = s.GetAnalysis(ctx, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Degraded)
	assert.Empty(t, got.Appearing)
	assert.Len(t, got.Comments, 1)
	assert.Equal(t, 1, got.Stats.NTotal)
	assert.Empty(t, got.Stats.Tigers)

	_, found, err = s.GetAnalysis(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func testReports(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, r := range []store.Report{
		{ID: "01A", Period: "2025-01-01/2025-12-31", GeneratedAt: day(1), Body: `{"n":1}`},
		{ID: "01C", Period: "2025-01-01/2025-12-31", GeneratedAt: day(3), Body: `{"n":3}`},
		{ID: "01B", Period: "2025-01-01/2025-12-31", GeneratedAt: day(2), Body: `{"n":2}`},
		{ID: "01D", Period: "2024-01-01/2024-12-31", GeneratedAt: day(4), Body: `{}`},
	} {
		require.NoError(t, s.UpsertReport(ctx, r))
	}

	got, err := s.GetReportsByPeriod(ctx, "2025-01-01/2025-12-31", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01C", got[0].ID)
	assert.Equal(t, "01B", got[1].ID)
	assert.Equal(t, `{"n":3}`, got[0].Body)
	assert.True(t, day(3).Equal(got[0].GeneratedAt))

	none, err := s.GetReportsByPeriod(ctx, "1999-01-01/1999-12-31", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func videoIDs(videos []ingest.Video) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.ID
	}
	return out
}
