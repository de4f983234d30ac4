package tigerwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/report"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store/memstore"
)

func newTestEngine(t *testing.T) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	r, skipped := roster.New([]roster.Tiger{
		{
			ID: "hayashi", DisplayName: "林社長", FullName: "林尚弘", Active: true,
			Aliases: []roster.Alias{
				{Text: "林社長", Category: roster.CategoryFormal, Priority: 1},
				{Text: "林", Category: roster.CategoryShort, Priority: 2},
			},
		},
		{
			ID: "iwai", DisplayName: "岩井社長", Active: true,
			Aliases: []roster.Alias{{Text: "岩井社長", Category: roster.CategoryFormal, Priority: 1}},
		},
	})
	require.Empty(t, skipped)

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	e := New(Options{
		Store:    memstore.New(),
		Resolver: resolve.New(resolve.Options{Roster: r, Logger: log}),
		Workers:  2,
		Logger:   log,
	})
	t.Cleanup(func() { e.Close() })
	return e, logs
}

var published = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.ImportVideo(ctx, ingest.Video{
		ID: "v1", Title: "【林社長】岩井社長と対決", PublishedAt: published,
	}))
	n, err := e.ImportComments(ctx, []ingest.Comment{
		{ID: "c1", VideoID: "v1", Text: "林社長すごい!", LikeCount: 5},
		{ID: "c2", VideoID: "v1", Text: "岩井社長と林社長の対決が面白い", LikeCount: 9},
		{ID: "c3", VideoID: "v1", Text: "面白かった"},
		{ID: "", VideoID: "v1", Text: "no id"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEngineWorkflow(t *testing.T) {
	ctx := context.Background()
	e, logs := newTestEngine(t)
	seed(t, e)
	assert.Equal(t, 1, logs.FilterMessage("skipping comment").Len())

	ex, err := e.ExtractAppearances(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hayashi", "iwai"}, ex.TigerIDs)

	a, err := e.AnalyzeVideo(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, a.Degraded)
	require.Len(t, a.Comments, 3)
	assert.Equal(t, "c1", a.Comments[0].ID)

	s := a.Stats
	assert.Equal(t, 3, s.NTotal)
	assert.Equal(t, 2, s.NEntity)
	assert.Equal(t, 2, s.Tigers["hayashi"].Mentions)
	assert.InDelta(t, 66.67, s.Tigers["hayashi"].RateTotal, 0.01)
	assert.InDelta(t, 100.0, s.Tigers["hayashi"].RateEntity, 0.01)
	assert.Equal(t, 1, s.Tigers["hayashi"].Rank)
	assert.InDelta(t, 33.33, s.Tigers["iwai"].RateTotal, 0.01)
	assert.InDelta(t, 50.0, s.Tigers["iwai"].RateEntity, 0.01)
	assert.Equal(t, 2, s.Tigers["iwai"].Rank)

	stored, err := e.Analysis(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, a.Stats, stored.Stats)

	ps, err := e.PeriodStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Tigers["hayashi"].TotalMentions)
	assert.Equal(t, 1, ps.Tigers["hayashi"].AppearanceCount)
	assert.Equal(t, 1, ps.Tigers["iwai"].TotalMentions)

	top, err := e.TopComments(ctx, "v1", "hayashi", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "c2", top[0].ID)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	rep, err := e.MentionReport(ctx, ReportRequest{From: from, To: to, Mode: report.CountComments, Save: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.VideoCount)
	assert.Equal(t, "hayashi", rep.Ranking[0].TigerID)

	saved, err := e.Reports(ctx, rep.Period, 5)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, rep.ID, saved[0].ID)
	assert.Equal(t, rep.People, saved[0].People)
}

func TestEngineReanalyzeReplaces(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	seed(t, e)
	require.NoError(t, e.SetAppearances(ctx, "v1", []string{"iwai"}))

	a, err := e.AnalyzeVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Stats.NEntity, "only iwai is searched")
	_, ok := a.Stats.Tigers["hayashi"]
	assert.False(t, ok)

	require.NoError(t, e.SetAppearances(ctx, "v1", []string{"hayashi", "iwai"}))
	a, err = e.AnalyzeVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Stats.NEntity)
}

func TestEnginePeriodUsesAnalyzedScope(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	seed(t, e)
	require.NoError(t, e.SetAppearances(ctx, "v1", []string{"hayashi", "iwai"}))
	a, err := e.AnalyzeVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hayashi", "iwai"}, a.Appearing)

	// edited after analysis; the stored analysis keeps its own scope
	require.NoError(t, e.SetAppearances(ctx, "v1", []string{"iwai"}))

	ps, err := e.PeriodStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Tigers["hayashi"].AppearanceCount)
	assert.Equal(t, 2, ps.Tigers["hayashi"].TotalMentions)

	rep, err := e.MentionReport(ctx, ReportRequest{})
	require.NoError(t, err)
	require.Len(t, rep.Videos, 1)
	assert.Equal(t, []string{"林社長", "岩井社長"}, rep.Videos[0].Performers)
}

func TestEngineReportUsesConfiguredMatcher(t *testing.T) {
	ctx := context.Background()
	r, _ := roster.New([]roster.Tiger{{
		ID: "hayashi", DisplayName: "林社長", Active: true,
		Aliases: []roster.Alias{{Text: "林", Category: roster.CategoryShort, Priority: 2}},
	}})
	m := match.NewMatcher(match.Rules{
		Suffixes:           []string{"くん"},
		OccurrenceSuffixes: []string{"くん"},
	})
	e := New(Options{
		Store:    memstore.New(),
		Resolver: resolve.New(resolve.Options{Roster: r, Matcher: m}),
	})
	defer e.Close()

	require.NoError(t, e.ImportVideo(ctx, ingest.Video{ID: "v1", Title: "林くん回", PublishedAt: published}))
	_, err := e.ImportComments(ctx, []ingest.Comment{
		{ID: "c1", VideoID: "v1", Text: "林くん最高"},
		{ID: "c2", VideoID: "v1", Text: "林社長も林さんも"},
	})
	require.NoError(t, err)
	require.NoError(t, e.SetAppearances(ctx, "v1", []string{"hayashi"}))
	_, err = e.AnalyzeVideo(ctx, "v1")
	require.NoError(t, err)

	rep, err := e.MentionReport(ctx, ReportRequest{Mode: report.CountOccurrences})
	require.NoError(t, err)
	require.Len(t, rep.Videos, 1)
	assert.Equal(t, 1, rep.Videos[0].CommentMentions["hayashi"])
	assert.Equal(t, 1, rep.Videos[0].Occurrences["hayashi"], "社長 and さん no longer gate 林")
}

func TestEngineDegradedAnalysis(t *testing.T) {
	ctx := context.Background()
	e, logs := newTestEngine(t)
	require.NoError(t, e.ImportVideo(ctx, ingest.Video{ID: "v2", Title: "志願者プレゼン", PublishedAt: published}))
	_, err := e.ImportComments(ctx, []ingest.Comment{
		{ID: "d1", VideoID: "v2", Text: "岩井社長最高"},
		{ID: "d2", VideoID: "v2", Text: "いい回だった"},
	})
	require.NoError(t, err)

	a, err := e.AnalyzeVideo(ctx, "v2")
	require.NoError(t, err)
	assert.True(t, a.Degraded)
	assert.Equal(t, []string{"iwai"}, keys(a.Stats.Tigers))
	assert.InDelta(t, 50.0, a.Stats.Tigers["iwai"].RateTotal, 0.001)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestEngineAnalyzeVideos(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	seed(t, e)
	require.NoError(t, e.ImportVideo(ctx, ingest.Video{ID: "late", Title: "x", PublishedAt: published.AddDate(1, 0, 0)}))

	n, err := e.AnalyzeVideos(ctx, time.Time{}, published)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = e.Analysis(ctx, "late")
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))
}

func TestEngineErrors(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	seed(t, e)

	err := e.ImportVideo(ctx, ingest.Video{ID: "bad"})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	_, err = e.ExtractAppearances(ctx, "missing")
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))

	err = e.SetAppearances(ctx, "v1", []string{"ghost"})
	assert.True(t, errors.Is(err, internalerr.ErrUnknownTiger))

	_, err = e.TopComments(ctx, "v1", "ghost", 3)
	assert.True(t, errors.Is(err, internalerr.ErrUnknownTiger))

	_, err = e.TopComments(ctx, "v1", "hayashi", 3)
	assert.True(t, errors.Is(err, internalerr.ErrNotFound), "v1 was not analyzed")

	_, err = e.MentionReport(ctx, ReportRequest{TigerIDs: []string{"ghost"}})
	assert.True(t, errors.Is(err, internalerr.ErrUnknownTiger))
}

func TestEngineResolve(t *testing.T) {
	e, _ := newTestEngine(t)
	res := e.Resolve("林社長と岩井社長", []string{"iwai"})
	require.Len(t, res.Mentions, 1)
	assert.Equal(t, "iwai", res.Mentions[0].TigerID)
	assert.False(t, res.Degraded)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
