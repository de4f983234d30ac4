// Package tigerwatch ties the mention engine to storage: videos and comments
// are imported, appearing tigers extracted, comments resolved and the
// results aggregated into per-video statistics, period roll-ups and reports.
package tigerwatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/extract"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/report"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
)

// Engine is the main tigerwatch facade
type Engine struct {
	store     store.Store
	resolver  *resolve.Resolver
	extractor *extract.Extractor
	reports   *report.Builder
	workers   int
	log       *zap.Logger
	now       func() time.Time
}

// Options configures an Engine
type Options struct {
	Store     store.Store
	Resolver  *resolve.Resolver
	Extractor *extract.Extractor
	// Workers bounds concurrent comment resolution; 0 uses GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

// New creates an Engine with the given dependencies. Store and Resolver are
// required; a nil Extractor is built from the resolver's roster.
func New(opts Options) *Engine {
	e := &Engine{
		store:     opts.Store,
		resolver:  opts.Resolver,
		extractor: opts.Extractor,
		workers:   opts.Workers,
		log:       opts.Logger,
		now:       time.Now,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.extractor == nil {
		e.extractor = extract.New(e.resolver.Roster())
	}
	e.reports = report.New(e.resolver.Roster(), e.resolver.Matcher())
	return e
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Roster returns the roster the engine resolves against.
func (e *Engine) Roster() *roster.Roster {
	return e.resolver.Roster()
}

// ImportVideo validates and stores a video
func (e *Engine) ImportVideo(ctx context.Context, v ingest.Video) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	return e.store.UpsertVideo(ctx, v)
}

// Videos lists the stored videos published within [from, to], oldest first.
func (e *Engine) Videos(ctx context.Context, from, to time.Time) ([]ingest.Video, error) {
	return e.store.ListVideos(ctx, from, to)
}

// ImportComments stores valid comments and returns how many were stored.
// Invalid comments are skipped with a warning.
func (e *Engine) ImportComments(ctx context.Context, comments []ingest.Comment) (int, error) {
	valid := make([]ingest.Comment, 0, len(comments))
	for _, c := range comments {
		if err := c.Validate(); err != nil {
			e.log.Warn("skipping comment", zap.String("comment_id", c.ID), zap.Error(err))
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return 0, nil
	}
	if err := e.store.UpsertComments(ctx, valid); err != nil {
		return 0, fmt.Errorf("store comments: %w", err)
	}
	return len(valid), nil
}

// ExtractAppearances finds the tigers appearing in a stored video and adds
// them to its appearing list.
func (e *Engine) ExtractAppearances(ctx context.Context, videoID string) (extract.Extraction, error) {
	v, found, err := e.store.GetVideo(ctx, videoID)
	if err != nil {
		return extract.Extraction{}, err
	}
	if !found {
		return extract.Extraction{}, fmt.Errorf("video %s: %w", videoID, internalerr.ErrNotFound)
	}

	ex := e.extractor.Extract(v)
	added, err := e.store.AddAppearances(ctx, videoID, ex.TigerIDs)
	if err != nil {
		return extract.Extraction{}, fmt.Errorf("store appearances: %w", err)
	}

	e.log.Info("extracted appearances",
		zap.String("video_id", videoID),
		zap.Strings("tigers", ex.TigerIDs),
		zap.Int("added", len(added)),
		zap.Int("unmatched", len(ex.Unmatched)))
	for _, name := range ex.Unmatched {
		e.log.Debug("unmatched cast name", zap.String("video_id", videoID), zap.String("name", name))
	}
	return ex, nil
}

// SetAppearances replaces the appearing list of a video. Every ID must be in
// the roster.
func (e *Engine) SetAppearances(ctx context.Context, videoID string, tigerIDs []string) error {
	for _, id := range tigerIDs {
		if !e.Roster().Has(id) {
			return fmt.Errorf("%w: %s", internalerr.ErrUnknownTiger, id)
		}
	}
	return e.store.SetAppearances(ctx, videoID, tigerIDs)
}

// AnalyzeVideo resolves every stored comment of a video against its
// appearing list, computes the video statistics and stores both. Without an
// appearing list the whole active roster is searched and the statistics
// cover the tigers that were mentioned.
func (e *Engine) AnalyzeVideo(ctx context.Context, videoID string) (store.Analysis, error) {
	comments, err := e.store.GetComments(ctx, videoID)
	if err != nil {
		return store.Analysis{}, err
	}
	appearing, err := e.store.GetAppearances(ctx, videoID)
	if err != nil {
		return store.Analysis{}, err
	}

	batch, err := e.resolver.ResolveBatch(ctx, comments, appearing, e.workers)
	if err != nil {
		return store.Analysis{}, err
	}

	scope := appearing
	if batch.Degraded {
		scope = mentionedTigers(e.Roster(), batch.Comments)
	}

	a := store.Analysis{
		VideoID:    videoID,
		AnalyzedAt: e.now(),
		Appearing:  appearing,
		Degraded:   batch.Degraded,
		Comments:   batch.Comments,
		Stats:      stats.Video(batch.Comments, scope, e.Roster()),
	}
	if err := e.store.SaveAnalysis(ctx, a); err != nil {
		return store.Analysis{}, fmt.Errorf("store analysis: %w", err)
	}

	e.log.Info("analyzed video",
		zap.String("video_id", videoID),
		zap.Int("n_total", a.Stats.NTotal),
		zap.Int("n_entity", a.Stats.NEntity),
		zap.Bool("degraded", a.Degraded))
	return a, nil
}

// AnalyzeVideos analyzes every video published within [from, to] and returns
// the number analyzed.
func (e *Engine) AnalyzeVideos(ctx context.Context, from, to time.Time) (int, error) {
	videos, err := e.store.ListVideos(ctx, from, to)
	if err != nil {
		return 0, err
	}
	for i, v := range videos {
		if _, err := e.AnalyzeVideo(ctx, v.ID); err != nil {
			return i, fmt.Errorf("analyze %s: %w", v.ID, err)
		}
	}
	return len(videos), nil
}

// Analysis returns the stored analysis of a video.
func (e *Engine) Analysis(ctx context.Context, videoID string) (store.Analysis, error) {
	a, found, err := e.store.GetAnalysis(ctx, videoID)
	if err != nil {
		return store.Analysis{}, err
	}
	if !found {
		return store.Analysis{}, fmt.Errorf("analysis of %s: %w", videoID, internalerr.ErrNotFound)
	}
	return a, nil
}

// PeriodStats rolls up the analyzed videos published within [from, to].
// Videos that were never analyzed are skipped. Each video contributes with
// the appearing list its analysis was computed against.
func (e *Engine) PeriodStats(ctx context.Context, from, to time.Time) (stats.PeriodStats, error) {
	inputs, err := e.periodInputs(ctx, from, to)
	if err != nil {
		return stats.PeriodStats{}, err
	}
	entries := make([]stats.VideoEntry, 0, len(inputs))
	appearing := make(map[string][]string, len(inputs))
	for _, in := range inputs {
		entries = append(entries, stats.VideoEntry{VideoID: in.Video.ID, Stats: in.Stats})
		appearing[in.Video.ID] = in.Appearing
	}
	return stats.Period(entries, appearing, e.Roster()), nil
}

// ReportRequest selects the window and tigers of a mention report.
type ReportRequest struct {
	From, To time.Time
	TigerIDs []string
	Mode     report.CountMode
	// Save stores the report under its period label.
	Save bool
}

// MentionReport builds a report over the analyzed videos of a period.
func (e *Engine) MentionReport(ctx context.Context, req ReportRequest) (report.Report, error) {
	inputs, err := e.periodInputs(ctx, req.From, req.To)
	if err != nil {
		return report.Report{}, err
	}

	rep, err := e.reports.Build(report.Input{
		From:     req.From,
		To:       req.To,
		TigerIDs: req.TigerIDs,
		Mode:     req.Mode,
		Videos:   inputs,
	})
	if err != nil {
		return report.Report{}, err
	}

	if req.Save {
		rec, err := rep.Record()
		if err != nil {
			return report.Report{}, err
		}
		if err := e.store.UpsertReport(ctx, rec); err != nil {
			return report.Report{}, fmt.Errorf("store report: %w", err)
		}
	}
	return rep, nil
}

// Reports returns up to k stored reports of a period, newest first.
func (e *Engine) Reports(ctx context.Context, period string, k int) ([]report.Report, error) {
	recs, err := e.store.GetReportsByPeriod(ctx, period, k)
	if err != nil {
		return nil, err
	}
	out := make([]report.Report, 0, len(recs))
	for _, rec := range recs {
		r, err := report.Decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// TopComments returns the n most-liked analyzed comments of a video that
// mention tigerID.
func (e *Engine) TopComments(ctx context.Context, videoID, tigerID string, n int) ([]resolve.AnalyzedComment, error) {
	if !e.Roster().Has(tigerID) {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownTiger, tigerID)
	}
	a, err := e.Analysis(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return stats.TopComments(a.Comments, tigerID, n), nil
}

// Resolve resolves a single text without touching the store.
func (e *Engine) Resolve(text string, candidates []string) resolve.Result {
	return e.resolver.Resolve(text, candidates)
}

func (e *Engine) periodInputs(ctx context.Context, from, to time.Time) ([]report.VideoInput, error) {
	videos, err := e.store.ListVideos(ctx, from, to)
	if err != nil {
		return nil, err
	}

	inputs := make([]report.VideoInput, 0, len(videos))
	for _, v := range videos {
		a, found, err := e.store.GetAnalysis(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			e.log.Debug("skipping unanalyzed video", zap.String("video_id", v.ID))
			continue
		}
		inputs = append(inputs, report.VideoInput{
			Video:     v,
			Appearing: a.Appearing,
			Comments:  a.Comments,
			Stats:     a.Stats,
		})
	}
	return inputs, nil
}

// mentionedTigers lists the tigers mentioned in comments, in roster order.
func mentionedTigers(r *roster.Roster, comments []resolve.AnalyzedComment) []string {
	seen := make(map[string]struct{})
	for _, c := range comments {
		for _, m := range c.Mentions {
			seen[m.TigerID] = struct{}{}
		}
	}
	var out []string
	for _, id := range r.IDs() {
		if _, ok := seen[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
