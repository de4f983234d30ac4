package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/extract"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/resolve"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

// Loader loads the roster and matcher rules and constructs components
type Loader struct {
	RosterPath string
	// AliasesPath selects the legacy JSON roster format together with a
	// tigers.json RosterPath.
	AliasesPath string
	Rules       match.Rules
	Logger      *zap.Logger
}

// Components holds all loaded configuration components
type Components struct {
	Roster    *roster.Roster
	Rules     match.Rules
	Matcher   *match.Matcher
	Resolver  *resolve.Resolver
	Extractor *extract.Extractor
}

// NewLoader returns a Loader for the files named in cfg.
func NewLoader(cfg *Config, log *zap.Logger) *Loader {
	return &Loader{
		RosterPath:  cfg.Roster,
		AliasesPath: cfg.Aliases,
		Rules:       cfg.Matcher,
		Logger:      log,
	}
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if l.RosterPath == "" {
		return nil, fmt.Errorf("%w: roster path is required", internalerr.ErrInvalidConfig)
	}

	var (
		tigers []roster.Tiger
		err    error
	)
	if l.AliasesPath != "" || isJSON(l.RosterPath) {
		tigers, err = LoadRosterJSON(l.RosterPath, l.AliasesPath)
	} else {
		tigers, err = LoadRoster(l.RosterPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	r, skipped := roster.New(tigers)
	for _, s := range skipped {
		log.Warn("skipped roster entry",
			zap.String("tiger_id", s.TigerID),
			zap.String("alias", s.Alias.Text),
			zap.String("reason", s.Reason))
	}
	if r.Len() == 0 {
		return nil, fmt.Errorf("%w: roster %s has no tigers", internalerr.ErrInvalidConfig, l.RosterPath)
	}

	rules := l.Rules.WithDefaults()
	m := match.NewMatcher(rules)

	log.Info("roster loaded",
		zap.Int("tigers", r.Len()),
		zap.Int("active", len(r.ActiveIDs())),
		zap.Int("skipped", len(skipped)))

	return &Components{
		Roster:    r,
		Rules:     rules,
		Matcher:   m,
		Resolver:  resolve.New(resolve.Options{Roster: r, Matcher: m, Logger: log}),
		Extractor: extract.New(r),
	}, nil
}
