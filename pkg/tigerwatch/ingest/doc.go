package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Comment is one immutable unit of viewer text. LikeCount only orders
// comments for display; it never weights mentions.
type Comment struct {
	ID          string    `json:"comment_id"`
	VideoID     string    `json:"video_id"`
	Text        string    `json:"text"`
	TextDisplay string    `json:"text_display,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	LikeCount   int64     `json:"like_count"`
	PublishedAt time.Time `json:"published_at"`
	IsReply     bool      `json:"is_reply,omitempty"`
	ParentID    string    `json:"parent_comment_id,omitempty"`
}

// Body returns the text to analyze, falling back to the flattened
// textDisplay when the plain text was not collected.
func (c Comment) Body() string {
	if c.Text != "" {
		return c.Text
	}
	return PlainText(c.TextDisplay)
}

// Validate checks if the comment has required fields
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("comment id is required")
	}
	if strings.TrimSpace(c.VideoID) == "" {
		return errors.New("comment video id is required")
	}
	return nil
}

// Video is the metadata of one episode.
type Video struct {
	ID           string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ChannelID    string    `json:"channel_id,omitempty"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// URL returns the watch page of the video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// Validate checks if the video has required fields
func (v *Video) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return errors.New("video id is required")
	}
	if strings.TrimSpace(v.Title) == "" {
		return errors.New("video title is required")
	}
	if v.PublishedAt.IsZero() {
		return errors.New("video published time is required")
	}
	return nil
}

// LoadCommentsJSONL loads comments from a JSONL file. Malformed or invalid
// lines are logged and skipped.
func LoadCommentsJSONL(path string, log *zap.Logger) ([]Comment, error) {
	var out []Comment
	err := readJSONL(path, log, func(line []byte) error {
		var c Comment
		if err := json.Unmarshal(line, &c); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadVideosJSONL loads video metadata from a JSONL file.
func LoadVideosJSONL(path string, log *zap.Logger) ([]Video, error) {
	var out []Video
	err := readJSONL(path, log, func(line []byte) error {
		var v Video
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		if err := v.Validate(); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid videos found in %s", path)
	}
	return out, nil
}

func readJSONL(path string, log *zap.Logger, fn func([]byte) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			log.Warn("skipping malformed line",
				zap.String("path", path),
				zap.Int("line", lineNo),
				zap.Error(err))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
