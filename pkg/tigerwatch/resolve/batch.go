package resolve

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
)

// AnalyzedComment is a comment with the fields derived by resolution.
type AnalyzedComment struct {
	ingest.Comment
	NormalizedText string    `json:"normalized_text"`
	Mentions       []Mention `json:"tiger_mentions"`
}

// MentionsTiger reports whether the comment mentions tigerID.
func (c AnalyzedComment) MentionsTiger(tigerID string) bool {
	for _, m := range c.Mentions {
		if m.TigerID == tigerID {
			return true
		}
	}
	return false
}

// Batch is the outcome of resolving a comment batch.
type Batch struct {
	Comments []AnalyzedComment
	Degraded bool
}

// ResolveBatch resolves comments concurrently with at most workers
// goroutines (GOMAXPROCS when workers <= 0). Output order equals input order.
// The only error is ctx's.
func (r *Resolver) ResolveBatch(ctx context.Context, comments []ingest.Comment, candidates []string, workers int) (Batch, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]AnalyzedComment, len(comments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range comments {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := r.resolve(comments[i].Body(), candidates)
			out[i] = AnalyzedComment{
				Comment:        comments[i],
				NormalizedText: res.NormalizedText,
				Mentions:       res.Mentions,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	b := Batch{Comments: out, Degraded: len(candidates) == 0}
	if b.Degraded {
		r.log.Warn("resolving batch without a candidate roster; matching against all active tigers",
			zap.Int("comments", len(comments)),
			zap.Int("tigers", len(r.roster.ActiveIDs())))
	}
	return b, nil
}
