package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
)

// timeLayout is fixed-width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS videos (
	video_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	channel_id TEXT,
	channel_title TEXT,
	published_at TEXT,
	view_count INTEGER DEFAULT 0,
	like_count INTEGER DEFAULT 0,
	comment_count INTEGER DEFAULT 0,
	thumbnail_url TEXT
);

CREATE INDEX IF NOT EXISTS idx_videos_published ON videos(published_at);

CREATE TABLE IF NOT EXISTS comments (
	comment_id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	text TEXT,
	text_display TEXT,
	author_name TEXT,
	like_count INTEGER DEFAULT 0,
	published_at TEXT,
	is_reply INTEGER DEFAULT 0,
	parent_comment_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_comments_video ON comments(video_id);

CREATE TABLE IF NOT EXISTS video_tigers (
	video_id TEXT NOT NULL,
	tiger_id TEXT NOT NULL,
	appearance_order INTEGER NOT NULL,
	PRIMARY KEY(video_id, tiger_id)
);

CREATE TABLE IF NOT EXISTS video_analysis (
	video_id TEXT PRIMARY KEY,
	analyzed_at TEXT NOT NULL,
	degraded INTEGER DEFAULT 0,
	n_total INTEGER NOT NULL,
	n_entity INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_tigers (
	video_id TEXT NOT NULL,
	tiger_id TEXT NOT NULL,
	appearance_order INTEGER NOT NULL,
	PRIMARY KEY(video_id, appearance_order),
	FOREIGN KEY(video_id) REFERENCES video_analysis(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comment_analysis (
	video_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	comment_id TEXT NOT NULL,
	normalized_text TEXT,
	PRIMARY KEY(video_id, seq),
	FOREIGN KEY(video_id) REFERENCES video_analysis(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comment_mentions (
	video_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	tiger_id TEXT NOT NULL,
	matched_alias TEXT NOT NULL,
	alias_type TEXT,
	priority INTEGER,
	PRIMARY KEY(video_id, seq, tiger_id),
	FOREIGN KEY(video_id) REFERENCES video_analysis(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS video_tiger_stats (
	video_id TEXT NOT NULL,
	tiger_id TEXT NOT NULL,
	display_name TEXT,
	n_tiger INTEGER NOT NULL,
	rate_total REAL NOT NULL,
	rate_entity REAL NOT NULL,
	rank INTEGER NOT NULL,
	PRIMARY KEY(video_id, tiger_id),
	FOREIGN KEY(video_id) REFERENCES video_analysis(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	period TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	body TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertVideo inserts or updates a video
func (s *sqliteStore) UpsertVideo(ctx context.Context, v ingest.Video) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO videos (video_id, title, description, channel_id, channel_title, published_at,
	view_count, like_count, comment_count, thumbnail_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(video_id) DO UPDATE SET
	title=excluded.title,
	description=excluded.description,
	channel_id=excluded.channel_id,
	channel_title=excluded.channel_title,
	published_at=excluded.published_at,
	view_count=excluded.view_count,
	like_count=excluded.like_count,
	comment_count=excluded.comment_count,
	thumbnail_url=excluded.thumbnail_url;
`, v.ID, v.Title, v.Description, v.ChannelID, v.ChannelTitle, formatTime(v.PublishedAt),
		v.ViewCount, v.LikeCount, v.CommentCount, v.ThumbnailURL)
	return err
}

const videoColumns = `video_id, title, description, channel_id, channel_title, published_at,
	view_count, like_count, comment_count, thumbnail_url`

func scanVideo(row interface{ Scan(...any) error }) (ingest.Video, error) {
	var v ingest.Video
	var desc, chID, chTitle, published, thumb sql.NullString
	err := row.Scan(&v.ID, &v.Title, &desc, &chID, &chTitle, &published,
		&v.ViewCount, &v.LikeCount, &v.CommentCount, &thumb)
	if err != nil {
		return ingest.Video{}, err
	}
	v.Description = desc.String
	v.ChannelID = chID.String
	v.ChannelTitle = chTitle.String
	v.ThumbnailURL = thumb.String
	v.PublishedAt = parseTime(published.String)
	return v, nil
}

// GetVideo retrieves a video by ID
func (s *sqliteStore) GetVideo(ctx context.Context, id string) (ingest.Video, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE video_id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return ingest.Video{}, false, nil
	}
	if err != nil {
		return ingest.Video{}, false, err
	}
	return v, true, nil
}

// ListVideos returns videos published within [from, to], oldest first
func (s *sqliteStore) ListVideos(ctx context.Context, from, to time.Time) ([]ingest.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE 1=1`
	var args []any
	if !from.IsZero() {
		query += ` AND published_at >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND published_at <= ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY published_at ASC, video_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ingest.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpsertComments inserts or updates comments in one transaction
func (s *sqliteStore) UpsertComments(ctx context.Context, comments []ingest.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO comments (comment_id, video_id, text, text_display, author_name, like_count,
	published_at, is_reply, parent_comment_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(comment_id) DO UPDATE SET
	video_id=excluded.video_id,
	text=excluded.text,
	text_display=excluded.text_display,
	author_name=excluded.author_name,
	like_count=excluded.like_count,
	published_at=excluded.published_at,
	is_reply=excluded.is_reply,
	parent_comment_id=excluded.parent_comment_id;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range comments {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.VideoID, c.Text, c.TextDisplay, c.AuthorName,
			c.LikeCount, formatTime(c.PublishedAt), c.IsReply, c.ParentID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetComments returns the comments of a video in insertion order
func (s *sqliteStore) GetComments(ctx context.Context, videoID string) ([]ingest.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT comment_id, video_id, text, text_display, author_name, like_count, published_at,
	is_reply, parent_comment_id
FROM comments
WHERE video_id = ?
ORDER BY rowid ASC;
`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ingest.Comment
	for rows.Next() {
		var c ingest.Comment
		var text, display, author, published, parent sql.NullString
		if err := rows.Scan(&c.ID, &c.VideoID, &text, &display, &author, &c.LikeCount,
			&published, &c.IsReply, &parent); err != nil {
			return nil, err
		}
		c.Text = text.String
		c.TextDisplay = display.String
		c.AuthorName = author.String
		c.PublishedAt = parseTime(published.String)
		c.ParentID = parent.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetAppearances replaces the appearing roster of a video
func (s *sqliteStore) SetAppearances(ctx context.Context, videoID string, tigerIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM video_tigers WHERE video_id=?`, videoID); err != nil {
		return err
	}
	if err := insertAppearances(ctx, tx, videoID, uniqueStrings(tigerIDs), 0); err != nil {
		return err
	}
	return tx.Commit()
}

// AddAppearances appends tigers not yet recorded for the video
func (s *sqliteStore) AddAppearances(ctx context.Context, videoID string, tigerIDs []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := loadStrings(ctx, tx, `SELECT tiger_id FROM video_tigers WHERE video_id=? ORDER BY appearance_order`, videoID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}
	var added []string
	for _, id := range uniqueStrings(tigerIDs) {
		if _, ok := have[id]; !ok {
			added = append(added, id)
		}
	}
	if err := insertAppearances(ctx, tx, videoID, added, len(existing)); err != nil {
		return nil, err
	}
	return added, tx.Commit()
}

func insertAppearances(ctx context.Context, tx *sql.Tx, videoID string, ids []string, offset int) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO video_tigers (video_id, tiger_id, appearance_order) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, videoID, id, offset+i); err != nil {
			return err
		}
	}
	return nil
}

// GetAppearances returns the appearing roster of a video
func (s *sqliteStore) GetAppearances(ctx context.Context, videoID string) ([]string, error) {
	return loadStrings(ctx, s.db, `SELECT tiger_id FROM video_tigers WHERE video_id=? ORDER BY appearance_order`, videoID)
}

// SaveAnalysis replaces the analysis of a video
func (s *sqliteStore) SaveAnalysis(ctx context.Context, a store.Analysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so children are deleted explicitly
	for _, table := range []string{"comment_mentions", "comment_analysis", "video_tiger_stats", "analysis_tigers", "video_analysis"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE video_id=?`, a.VideoID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO video_analysis (video_id, analyzed_at, degraded, n_total, n_entity)
VALUES (?, ?, ?, ?, ?)`, a.VideoID, formatTime(a.AnalyzedAt), a.Degraded, a.Stats.NTotal, a.Stats.NEntity); err != nil {
		return err
	}

	scopeStmt, err := tx.PrepareContext(ctx, `
INSERT INTO analysis_tigers (video_id, tiger_id, appearance_order) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer scopeStmt.Close()
	for i, id := range a.Appearing {
		if _, err := scopeStmt.ExecContext(ctx, a.VideoID, id, i); err != nil {
			return err
		}
	}

	commentStmt, err := tx.PrepareContext(ctx, `
INSERT INTO comment_analysis (video_id, seq, comment_id, normalized_text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer commentStmt.Close()
	mentionStmt, err := tx.PrepareContext(ctx, `
INSERT INTO comment_mentions (video_id, seq, tiger_id, matched_alias, alias_type, priority)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer mentionStmt.Close()

	for seq, c := range a.Comments {
		if _, err := commentStmt.ExecContext(ctx, a.VideoID, seq, c.ID, c.NormalizedText); err != nil {
			return err
		}
		for _, m := range c.Mentions {
			if _, err := mentionStmt.ExecContext(ctx, a.VideoID, seq, m.TigerID, m.MatchedAlias,
				string(m.AliasCategory), m.Priority); err != nil {
				return err
			}
		}
	}

	statStmt, err := tx.PrepareContext(ctx, `
INSERT INTO video_tiger_stats (video_id, tiger_id, display_name, n_tiger, rate_total, rate_entity, rank)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer statStmt.Close()
	for _, st := range a.Stats.Ranked() {
		if _, err := statStmt.ExecContext(ctx, a.VideoID, st.TigerID, st.DisplayName, st.Mentions,
			st.RateTotal, st.RateEntity, st.Rank); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetAnalysis loads the analysis of a video. Comment fields are joined from
// the comments table; comments deleted since analysis keep only their IDs.
func (s *sqliteStore) GetAnalysis(ctx context.Context, videoID string) (store.Analysis, bool, error) {
	a := store.Analysis{VideoID: videoID}
	var analyzedAt string
	err := s.db.QueryRowContext(ctx, `
SELECT analyzed_at, degraded, n_total, n_entity FROM video_analysis WHERE video_id=?`, videoID).
		Scan(&analyzedAt, &a.Degraded, &a.Stats.NTotal, &a.Stats.NEntity)
	if err == sql.ErrNoRows {
		return store.Analysis{}, false, nil
	}
	if err != nil {
		return store.Analysis{}, false, err
	}
	a.AnalyzedAt = parseTime(analyzedAt)

	a.Appearing, err = loadStrings(ctx, s.db,
		`SELECT tiger_id FROM analysis_tigers WHERE video_id=? ORDER BY appearance_order`, videoID)
	if err != nil {
		return store.Analysis{}, false, err
	}

	comments, err := s.GetComments(ctx, videoID)
	if err != nil {
		return store.Analysis{}, false, err
	}
	byID := make(map[string]ingest.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT seq, comment_id, normalized_text FROM comment_analysis WHERE video_id=? ORDER BY seq`, videoID)
	if err != nil {
		return store.Analysis{}, false, err
	}
	seqIndex := make(map[int]int)
	for rows.Next() {
		var seq int
		var id string
		var normalized sql.NullString
		if err := rows.Scan(&seq, &id, &normalized); err != nil {
			rows.Close()
			return store.Analysis{}, false, err
		}
		c, ok := byID[id]
		if !ok {
			c = ingest.Comment{ID: id, VideoID: videoID}
		}
		seqIndex[seq] = len(a.Comments)
		a.Comments = append(a.Comments, resolve.AnalyzedComment{
			Comment:        c,
			NormalizedText: normalized.String,
			Mentions:       []resolve.Mention{},
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.Analysis{}, false, err
	}

	mrows, err := s.db.QueryContext(ctx, `
SELECT seq, tiger_id, matched_alias, alias_type, priority
FROM comment_mentions WHERE video_id=? ORDER BY seq, rowid`, videoID)
	if err != nil {
		return store.Analysis{}, false, err
	}
	for mrows.Next() {
		var seq int
		var m resolve.Mention
		var category sql.NullString
		var priority sql.NullInt64
		if err := mrows.Scan(&seq, &m.TigerID, &m.MatchedAlias, &category, &priority); err != nil {
			mrows.Close()
			return store.Analysis{}, false, err
		}
		m.AliasCategory = roster.Category(category.String)
		m.Priority = int(priority.Int64)
		if i, ok := seqIndex[seq]; ok {
			a.Comments[i].Mentions = append(a.Comments[i].Mentions, m)
		}
	}
	mrows.Close()
	if err := mrows.Err(); err != nil {
		return store.Analysis{}, false, err
	}

	a.Stats.Tigers, err = s.loadTigerStats(ctx, videoID)
	if err != nil {
		return store.Analysis{}, false, err
	}
	return a, true, nil
}

func (s *sqliteStore) loadTigerStats(ctx context.Context, videoID string) (map[string]stats.TigerStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tiger_id, display_name, n_tiger, rate_total, rate_entity, rank
FROM video_tiger_stats WHERE video_id=? ORDER BY rank`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]stats.TigerStat)
	for rows.Next() {
		var st stats.TigerStat
		var name sql.NullString
		if err := rows.Scan(&st.TigerID, &name, &st.Mentions, &st.RateTotal, &st.RateEntity, &st.Rank); err != nil {
			return nil, err
		}
		st.DisplayName = name.String
		out[st.TigerID] = st
	}
	return out, rows.Err()
}

// UpsertReport inserts or updates a report
func (s *sqliteStore) UpsertReport(ctx context.Context, r store.Report) error {
	if r.ID == "" {
		return fmt.Errorf("%w: report id is required", internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports (id, period, generated_at, body)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	period=excluded.period,
	generated_at=excluded.generated_at,
	body=excluded.body;
`, r.ID, r.Period, formatTime(r.GeneratedAt), r.Body)
	return err
}

// GetReportsByPeriod retrieves the newest reports for a period
func (s *sqliteStore) GetReportsByPeriod(ctx context.Context, period string, k int) ([]store.Report, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, period, generated_at, body
FROM reports
WHERE period = ?
ORDER BY id DESC
LIMIT ?;
`, period, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []store.Report
	for rows.Next() {
		var r store.Report
		var generated string
		if err := rows.Scan(&r.ID, &r.Period, &generated, &r.Body); err != nil {
			return nil, err
		}
		r.GeneratedAt = parseTime(generated)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
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
