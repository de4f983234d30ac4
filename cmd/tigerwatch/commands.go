package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/config"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/report"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/stats"
)

func newImportCmd(g *globals) *cobra.Command {
	var videosPath, commentsPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import videos and comments from JSONL files",
		Example: `  tigerwatch import --videos videos.jsonl
  tigerwatch import --comments comments_abc123.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if videosPath == "" && commentsPath == "" {
				return fmt.Errorf("--videos or --comments required")
			}
			ctx := cmd.Context()
			eng, log, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()
			out := cmd.OutOrStdout()

			if videosPath != "" {
				videos, err := ingest.LoadVideosJSONL(videosPath, log)
				if err != nil {
					return err
				}
				for _, v := range videos {
					if err := eng.ImportVideo(ctx, v); err != nil {
						return fmt.Errorf("import video %s: %w", v.ID, err)
					}
				}
				fmt.Fprintf(out, "imported %s videos\n", humanize.Comma(int64(len(videos))))
			}

			if commentsPath != "" {
				comments, err := ingest.LoadCommentsJSONL(commentsPath, log)
				if err != nil {
					return err
				}
				n, err := eng.ImportComments(ctx, comments)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %s comments\n", humanize.Comma(int64(n)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&videosPath, "videos", "", "videos JSONL file")
	cmd.Flags().StringVar(&commentsPath, "comments", "", "comments JSONL file")
	return cmd
}

func newExtractCmd(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "extract [video-id...]",
		Short: "Extract appearing tigers from video titles and descriptions",
		Long: `Extract appearing tigers from the title and description of each named
video, or of every video published within --from/--to when no ID is given.
Found tigers are added to the video's appearing list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, _, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			ids, err := videoIDs(cmd, eng, args, from, to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				ex, err := eng.ExtractAppearances(ctx, id)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(ex.TigerIDs))
				for _, tid := range ex.TigerIDs {
					names = append(names, fmt.Sprintf("%s(%s)", eng.Roster().DisplayName(tid), ex.Sources[tid]))
				}
				fmt.Fprintf(out, "%s: %s\n", id, strings.Join(names, ", "))
				if len(ex.Unmatched) > 0 {
					fmt.Fprintf(out, "  unmatched: %s\n", strings.Join(ex.Unmatched, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last publish date (YYYY-MM-DD)")
	return cmd
}

func newAppearCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "appear <video-id> <tiger-id>...",
		Short: "Replace the appearing list of a video",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, _, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.SetAppearances(ctx, args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tigers\n", args[0], len(args)-1)
			return nil
		},
	}
}

func newAnalyzeCmd(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "analyze [video-id...]",
		Short: "Resolve comment mentions and compute video statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, log, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			ids, err := videoIDs(cmd, eng, args, from, to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				a, err := eng.AnalyzeVideo(ctx, id)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", id, err)
				}
				if a.Degraded {
					log.Warn("video has no appearing list; statistics may include false positives", zap.String("video_id", id))
				}
				fmt.Fprintf(out, "%s: %s comments, %s mentioning a tiger\n",
					id, humanize.Comma(int64(a.Stats.NTotal)), humanize.Comma(int64(a.Stats.NEntity)))
				writeVideoStats(out, a.Stats)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last publish date (YYYY-MM-DD)")
	return cmd
}

func newPeriodCmd(g *globals) *cobra.Command {
	var from, to string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Roll up video statistics over a publish-date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := window(from, to)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			eng, _, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			ps, err := eng.PeriodStats(ctx, start, end)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), ps.Ranked())
			}
			writePeriodStats(cmd.OutOrStdout(), ps)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last publish date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newReportCmd(g *globals) *cobra.Command {
	var from, to, tigers, mode string
	var save bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a mention report for a publish-date window",
		Example: `  tigerwatch report --from 2025-01-01 --to 2025-12-31
  tigerwatch report --from 2025-01-01 --to 2025-03-31 --tigers hayashi,iwai --mode occurrence --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := window(from, to)
			if err != nil {
				return err
			}
			countMode, err := report.ParseCountMode(mode)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			eng, _, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			rep, err := eng.MentionReport(ctx, tigerwatch.ReportRequest{
				From:     start,
				To:       end,
				TigerIDs: splitIDs(tigers),
				Mode:     countMode,
				Save:     save,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last publish date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&tigers, "tigers", "", "comma-separated tracked tiger IDs (default: all)")
	cmd.Flags().StringVar(&mode, "mode", string(report.CountComments), "ranking basis: comment or occurrence")
	cmd.Flags().BoolVar(&save, "save", false, "store the report in the database")
	return cmd
}

func newTopCmd(g *globals) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top <video-id> <tiger-id>",
		Short: "Show the most-liked comments mentioning a tiger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, _, err := g.openEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			comments, err := eng.TopComments(ctx, args[0], args[1], n)
			if err != nil {
				return err
			}
			writeComments(cmd.OutOrStdout(), comments)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 10, "number of comments")
	return cmd
}

func newResolveCmd(g *globals) *cobra.Command {
	var candidates string

	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Resolve the tiger mentions of a single text",
		Long: `Resolve the tiger mentions of a single text against the roster. Only the
roster is loaded; the database is not opened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.loadConfig()
			if err != nil {
				return err
			}
			comp, err := config.NewLoader(cfg, log).Load()
			if err != nil {
				return err
			}
			res := comp.Resolver.Resolve(args[0], splitIDs(candidates))
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&candidates, "candidates", "", "comma-separated appearing tiger IDs (default: all active)")
	return cmd
}

// videoIDs returns args, or the IDs of videos published within --from/--to.
func videoIDs(cmd *cobra.Command, eng *tigerwatch.Engine, args []string, from, to string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	start, end, err := window(from, to)
	if err != nil {
		return nil, err
	}
	videos, err := eng.Videos(cmd.Context(), start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

func writeVideoStats(w io.Writer, vs stats.VideoStats) {
	for _, s := range vs.Ranked() {
		fmt.Fprintf(w, "  %2d. %-12s %6s comments  total %6s%%  entity %6s%%\n",
			s.Rank, s.DisplayName, humanize.Comma(int64(s.Mentions)),
			humanize.FtoaWithDigits(s.RateTotal, 2), humanize.FtoaWithDigits(s.RateEntity, 2))
	}
}

func writePeriodStats(w io.Writer, ps stats.PeriodStats) {
	for _, s := range ps.Ranked() {
		fmt.Fprintf(w, "%2d. %-12s %8s mentions in %s videos  avg total %s%%  avg entity %s%%\n",
			s.Rank, s.DisplayName, humanize.Comma(int64(s.TotalMentions)), humanize.Comma(int64(s.AppearanceCount)),
			humanize.FtoaWithDigits(s.AvgRateTotal, 2), humanize.FtoaWithDigits(s.AvgRateEntity, 2))
	}
}

func writeComments(w io.Writer, comments []resolve.AnalyzedComment) {
	for _, c := range comments {
		published := ""
		if !c.PublishedAt.IsZero() {
			published = humanize.Time(c.PublishedAt)
		}
		fmt.Fprintf(w, "[%s likes] %s %s\n  %s\n",
			humanize.Comma(c.LikeCount), c.AuthorName, published, c.NormalizedText)
	}
}

// describeRules summarizes the active matcher rules for debug output.
func describeRules(r match.Rules) string {
	return fmt.Sprintf("particles=%s suffixes=%s long=%d short=%d phonetic=%d(%s)",
		strings.Join(r.Particles, ""), strings.Join(r.Suffixes, ","),
		r.LongAliasLen, r.ShortAliasLen, r.PhoneticAliasLen, joinCategories(r.PhoneticCategories))
}

func joinCategories(cs []roster.Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
