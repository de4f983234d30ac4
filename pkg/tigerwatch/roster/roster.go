// Package roster holds the tracked personalities ("tigers") and their alias
// dictionaries. A Roster is built once per session and is read-only afterwards,
// so it can be shared by any number of concurrent resolvers.
package roster

import (
	"strings"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
)

// Category tags how an alias refers to its tiger.
type Category string

const (
	CategoryFullName  Category = "fullname"
	CategoryFormal    Category = "formal"
	CategoryNickname  Category = "nickname"
	CategoryCasual    Category = "casual"
	CategoryBusiness  Category = "business"
	CategoryFirstName Category = "firstname"
	CategoryHiragana  Category = "hiragana"
	CategoryKatakana  Category = "katakana"
	CategoryShort     Category = "short"
)

// Alias is one surface string that may refer to a tiger.
// Lower Priority means stronger evidence.
type Alias struct {
	Text     string   `yaml:"alias" json:"alias"`
	Category Category `yaml:"type" json:"type"`
	Priority int      `yaml:"priority" json:"priority"`
}

// Valid reports whether the alias carries both text and a category.
func (a Alias) Valid() bool {
	return strings.TrimSpace(a.Text) != "" && strings.TrimSpace(string(a.Category)) != ""
}

// Tiger is a tracked on-camera personality.
type Tiger struct {
	ID          string  `yaml:"id" json:"tiger_id"`
	DisplayName string  `yaml:"display_name" json:"display_name"`
	FullName    string  `yaml:"full_name" json:"full_name"`
	Description string  `yaml:"description" json:"description"`
	ImageURL    string  `yaml:"image_url" json:"image_url"`
	Active      bool    `yaml:"active" json:"is_active"`
	Aliases     []Alias `yaml:"aliases" json:"-"`
}

// Skipped describes a dictionary row dropped while building a roster.
type Skipped struct {
	TigerID string
	Alias   Alias
	Reason  string
}

// Roster is an ordered, immutable set of tigers.
type Roster struct {
	tigers []Tiger
	index  map[string]int
}

// New builds a roster from tigers in the given order. Alias text is
// normalized; aliases with missing text or category and aliases repeated
// within one tiger are dropped and reported in the returned slice.
// Tigers with an empty or repeated ID are dropped as well.
func New(tigers []Tiger) (*Roster, []Skipped) {
	r := &Roster{
		tigers: make([]Tiger, 0, len(tigers)),
		index:  make(map[string]int, len(tigers)),
	}
	var skipped []Skipped

	for _, t := range tigers {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			skipped = append(skipped, Skipped{Reason: "tiger without id"})
			continue
		}
		if _, dup := r.index[t.ID]; dup {
			skipped = append(skipped, Skipped{TigerID: t.ID, Reason: "duplicate tiger id"})
			continue
		}

		seen := make(map[string]struct{}, len(t.Aliases))
		aliases := make([]Alias, 0, len(t.Aliases))
		for _, a := range t.Aliases {
			if !a.Valid() {
				skipped = append(skipped, Skipped{TigerID: t.ID, Alias: a, Reason: "missing alias text or category"})
				continue
			}
			a.Text = ingest.Normalize(a.Text)
			if _, dup := seen[a.Text]; dup {
				skipped = append(skipped, Skipped{TigerID: t.ID, Alias: a, Reason: "duplicate alias"})
				continue
			}
			seen[a.Text] = struct{}{}
			aliases = append(aliases, a)
		}
		t.Aliases = aliases

		r.index[t.ID] = len(r.tigers)
		r.tigers = append(r.tigers, t)
	}

	return r, skipped
}

// Len returns the number of tigers.
func (r *Roster) Len() int { return len(r.tigers) }

// Get returns the tiger with the given ID.
func (r *Roster) Get(id string) (Tiger, bool) {
	i, ok := r.index[id]
	if !ok {
		return Tiger{}, false
	}
	return r.tigers[i], true
}

// Has reports whether id is part of the roster.
func (r *Roster) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Aliases returns the aliases of a tiger in dictionary order.
// The slice must not be modified.
func (r *Roster) Aliases(id string) []Alias {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.tigers[i].Aliases
}

// DisplayName returns the display name of a tiger, or the ID itself when the
// tiger is unknown or has no display name.
func (r *Roster) DisplayName(id string) string {
	if t, ok := r.Get(id); ok && t.DisplayName != "" {
		return t.DisplayName
	}
	return id
}

// IDs returns every tiger ID in roster order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.tigers))
	for i, t := range r.tigers {
		out[i] = t.ID
	}
	return out
}

// ActiveIDs returns the IDs of active tigers in roster order.
func (r *Roster) ActiveIDs() []string {
	out := make([]string, 0, len(r.tigers))
	for _, t := range r.tigers {
		if t.Active {
			out = append(out, t.ID)
		}
	}
	return out
}

// Tigers returns a copy of the roster entries.
func (r *Roster) Tigers() []Tiger {
	out := make([]Tiger, len(r.tigers))
	copy(out, r.tigers)
	return out
}
