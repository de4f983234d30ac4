package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/tigerwatch/internal/logger"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/config"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store/sqlite"
)

const version = "0.1.0"

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	cfgFile  string
	database string
	roster   string
	debug    bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "tigerwatch",
		Short: "Attribute YouTube comments to tigers and aggregate mention statistics",
		Long: `tigerwatch detects which on-camera personalities ("tigers") a viewer
comment refers to, scoped to the tigers appearing in the video, and rolls the
mentions up into per-video and per-period statistics.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file path")
	root.PersistentFlags().StringVar(&g.database, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&g.roster, "roster", "", "roster file path (overrides config)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newImportCmd(g),
		newExtractCmd(g),
		newAppearCmd(g),
		newAnalyzeCmd(g),
		newPeriodCmd(g),
		newReportCmd(g),
		newTopCmd(g),
		newResolveCmd(g),
	)
	return root
}

// loadConfig applies flag overrides on top of the config file.
func (g *globals) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.database != "" {
		cfg.Database = g.database
	}
	if g.roster != "" {
		cfg.Roster = g.roster
		cfg.Aliases = ""
	}
	if g.debug {
		cfg.Log.Level = "debug"
	}
	log := logger.New(cfg.Log)
	log.Debug("matcher rules", zap.String("rules", describeRules(cfg.Matcher)))
	return cfg, log, nil
}

// openEngine builds an Engine on the configured roster and database.
func (g *globals) openEngine(ctx context.Context) (*tigerwatch.Engine, *zap.Logger, error) {
	cfg, log, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	comp, err := config.NewLoader(cfg, log).Load()
	if err != nil {
		return nil, nil, err
	}

	st, err := sqlite.OpenSQLite(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Database, err)
	}

	eng := tigerwatch.New(tigerwatch.Options{
		Store:     st,
		Resolver:  comp.Resolver,
		Extractor: comp.Extractor,
		Workers:   cfg.Workers,
		Logger:    log,
	})
	return eng, log, nil
}

const dateLayout = "2006-01-02"

// window parses --from/--to dates. The end date is inclusive.
func window(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}

func splitIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
