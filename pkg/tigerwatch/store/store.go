package store

import (
	"context"
	"time"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
)

// Store is the main interface for persisting videos, comments and their analysis
type Store interface {
	Close() error

	// Videos
	UpsertVideo(ctx context.Context, v ingest.Video) error
	GetVideo(ctx context.Context, id string) (ingest.Video, bool, error)
	// ListVideos returns videos published within [from, to], oldest first.
	// A zero bound is open.
	ListVideos(ctx context.Context, from, to time.Time) ([]ingest.Video, error)

	// Comments
	UpsertComments(ctx context.Context, comments []ingest.Comment) error
	GetComments(ctx context.Context, videoID string) ([]ingest.Comment, error)

	// Appearances: the tigers on screen in a video, in appearance order
	SetAppearances(ctx context.Context, videoID string, tigerIDs []string) error
	AddAppearances(ctx context.Context, videoID string, tigerIDs []string) (added []string, err error)
	GetAppearances(ctx context.Context, videoID string) ([]string, error)

	// Analysis
	SaveAnalysis(ctx context.Context, a Analysis) error
	GetAnalysis(ctx context.Context, videoID string) (Analysis, bool, error)

	// Reports
	UpsertReport(ctx context.Context, r Report) error
	GetReportsByPeriod(ctx context.Context, period string, k int) ([]Report, error)
}

// Analysis is the persisted outcome of analyzing one video.
type Analysis struct {
	VideoID    string
	AnalyzedAt time.Time
	// Appearing is the appearing list the comments were resolved against.
	Appearing []string
	Degraded  bool
	Comments  []resolve.AnalyzedComment
	Stats     stats.VideoStats
}

// Report is a stored period report. Body holds the JSON-encoded report.
type Report struct {
	ID          string
	Period      string
	GeneratedAt time.Time
	Body        string
}
