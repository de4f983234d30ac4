package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/tigerwatch/internal/logger"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

// Config is the top-level tigerwatch configuration file
type Config struct {
	Database string `yaml:"database"`
	// Roster is a YAML roster, or a legacy tigers.json when Aliases is set.
	Roster  string        `yaml:"roster"`
	Aliases string        `yaml:"aliases"`
	Workers int           `yaml:"workers"`
	Log     logger.Config `yaml:"log"`
	Matcher match.Rules   `yaml:"matcher"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: "tigerwatch.db",
		Log:      logger.DefaultConfig(),
		Matcher:  match.DefaultRules(),
	}
}

// Load reads a configuration file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.Matcher = match.Rules{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	cfg.Matcher = cfg.Matcher.WithDefaults()

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must be >= 0, got %d", internalerr.ErrInvalidConfig, cfg.Workers)
	}

	return cfg, nil
}

// rosterFile is the YAML roster layout:
//
//	tigers:
//	  - id: hayashi
//	    display_name: 林社長
//	    aliases:
//	      - {alias: 林社長, type: formal, priority: 1}
type rosterFile struct {
	Tigers []rosterTiger `yaml:"tigers"`
}

type rosterTiger struct {
	ID          string         `yaml:"id"`
	DisplayName string         `yaml:"display_name"`
	FullName    string         `yaml:"full_name"`
	Description string         `yaml:"description"`
	ImageURL    string         `yaml:"image_url"`
	Active      *bool          `yaml:"active"`
	Aliases     []roster.Alias `yaml:"aliases"`
}

// LoadRoster reads a YAML roster. Tigers are active unless marked otherwise.
func LoadRoster(path string) ([]roster.Tiger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	tigers := make([]roster.Tiger, 0, len(rf.Tigers))
	for _, t := range rf.Tigers {
		tigers = append(tigers, roster.Tiger{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			FullName:    t.FullName,
			Description: t.Description,
			ImageURL:    t.ImageURL,
			Active:      t.Active == nil || *t.Active,
			Aliases:     t.Aliases,
		})
	}
	return tigers, nil
}

type legacyTiger struct {
	ID          string `json:"tiger_id"`
	DisplayName string `json:"display_name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Active      *bool  `json:"is_active"`
}

type legacyAlias struct {
	Alias    string `json:"alias"`
	Type     string `json:"type"`
	Priority *int   `json:"priority"`
}

// legacyPriority is assigned to aliases stored without a priority.
const legacyPriority = 100

// LoadRosterJSON reads the tigers.json / aliases.json pair. aliases.json maps
// a tiger ID to its alias list; entries for tigers absent from tigers.json
// are ignored.
func LoadRosterJSON(tigersPath, aliasesPath string) ([]roster.Tiger, error) {
	data, err := os.ReadFile(tigersPath)
	if err != nil {
		return nil, err
	}
	var raw []legacyTiger
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, tigersPath, err)
	}

	aliases := map[string][]legacyAlias{}
	if aliasesPath != "" {
		data, err := os.ReadFile(aliasesPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &aliases); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, aliasesPath, err)
		}
	}

	tigers := make([]roster.Tiger, 0, len(raw))
	for _, t := range raw {
		tiger := roster.Tiger{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			FullName:    t.FullName,
			Description: t.Description,
			ImageURL:    t.ImageURL,
			Active:      t.Active == nil || *t.Active,
		}
		for _, a := range aliases[t.ID] {
			priority := legacyPriority
			if a.Priority != nil {
				priority = *a.Priority
			}
			tiger.Aliases = append(tiger.Aliases, roster.Alias{
				Text:     a.Alias,
				Category: roster.Category(a.Type),
				Priority: priority,
			})
		}
		tigers = append(tigers, tiger)
	}
	return tigers, nil
}

func isJSON(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}
