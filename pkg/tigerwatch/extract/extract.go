// Package extract determines which tigers appear in a video from its title
// and description. The result scopes mention resolution for that video's
// comments.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/ingest"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

var (
	bracketRe   = regexp.MustCompile(`【([^】]+)】`)
	timestampRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(.+)`)
)

var (
	sectionStart = []string{"★令和の虎", "★レギュラー虎", "★Tiger Funding"}
	sectionEnd   = []string{"★志願者", "★司会", "★チャンネル", "★リライブ", "主宰・岩井", "二代目主宰"}
	castKeywords = []string{"出演", "登場", "ゲスト", "審査員"}

	// lines containing any of these are never reported as unmatched names
	notAName = []string{
		"http", "www.", ".com", ".jp", "@",
		"▽", "→", "【", "】", "※", "★", "◆", "◇",
		"こちら", "申込", "応募", "募集", "詳細", "情報",
		"チャンネル", "CHANNEL", "YouTube", "Twitter", "Instagram",
		"スポンサー", "運営", "加盟", "登録", "司会",
	}
)

// maxTimestampLines bounds the chapter-list scan of a description.
const maxTimestampLines = 100

// Source tells where a tiger was found.
type Source string

const (
	SourceTitle       Source = "title"
	SourceDescription Source = "description"
)

// Extraction is the appearing roster of one video.
type Extraction struct {
	TigerIDs []string          `json:"tiger_ids"`
	Sources  map[string]Source `json:"sources"`
	// Unmatched holds cast-section lines that look like names but match no tiger.
	Unmatched []string `json:"unmatched_names"`
}

// Description is the result of scanning a video description.
type Description struct {
	Matched   []string
	Unmatched []string
}

type tigerPatterns struct {
	id       string
	patterns []string
}

// Extractor matches name patterns of the active roster.
type Extractor struct {
	tigers []tigerPatterns
}

// New builds name patterns for every active tiger of r.
func New(r *roster.Roster) *Extractor {
	e := &Extractor{}
	for _, t := range r.Tigers() {
		if !t.Active {
			continue
		}
		e.tigers = append(e.tigers, tigerPatterns{id: t.ID, patterns: namePatterns(t)})
	}
	return e
}

func namePatterns(t roster.Tiger) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	if t.DisplayName != "" {
		add(t.DisplayName)
		add(strings.TrimSpace(strings.ReplaceAll(t.DisplayName, "社長", "")))
	}

	if t.FullName != "" {
		add(t.FullName)
		compact := stripSpaces(t.FullName)
		add(compact)
		if strings.Contains(t.FullName, " ") {
			add(strings.Fields(t.FullName)[0])
		}
		// 林尚弘 -> "林 尚弘", "林尚 弘" with half- and full-width spaces
		if runes := []rune(compact); len(runes) >= 3 {
			for i := 1; i < 3 && i < len(runes); i++ {
				head, tail := string(runes[:i]), string(runes[i:])
				add(head + " " + tail)
				add(head + "　" + tail)
			}
		}
	}

	for _, a := range t.Aliases {
		if utf8.RuneCountInString(a.Text) >= 2 {
			add(a.Text)
		}
	}
	return out
}

// Extract merges title and description findings in roster order.
func (e *Extractor) Extract(v ingest.Video) Extraction {
	fromTitle := e.FromTitle(v.Title)
	desc := e.FromDescription(v.Description)

	sources := make(map[string]Source)
	for _, id := range desc.Matched {
		sources[id] = SourceDescription
	}
	for _, id := range fromTitle {
		sources[id] = SourceTitle
	}

	return Extraction{
		TigerIDs:  e.inRosterOrder(sources),
		Sources:   sources,
		Unmatched: desc.Unmatched,
	}
}

// FromTitle finds tigers named in a title, either inside 【】 brackets or as
// any pattern of two or more runes.
func (e *Extractor) FromTitle(title string) []string {
	found := make(map[string]Source)

	for _, m := range bracketRe.FindAllStringSubmatch(title, -1) {
		if id, ok := e.MatchName(m[1]); ok {
			found[id] = SourceTitle
		}
	}

	for _, t := range e.tigers {
		for _, p := range t.patterns {
			if utf8.RuneCountInString(p) >= 2 && strings.Contains(title, p) {
				found[t.id] = SourceTitle
				break
			}
		}
	}

	return e.inRosterOrder(found)
}

// FromDescription scans the cast section, chapter timestamps, cast keyword
// lines and finally the full text for patterns of three or more runes.
func (e *Extractor) FromDescription(description string) Description {
	if description == "" {
		return Description{}
	}

	found := make(map[string]Source)
	var unmatched []string
	seenUnmatched := make(map[string]struct{})
	addUnmatched := func(s string) {
		if _, ok := seenUnmatched[s]; ok {
			return
		}
		seenUnmatched[s] = struct{}{}
		unmatched = append(unmatched, s)
	}

	lines := strings.Split(description, "\n")

	inSection := false
	for _, line := range lines {
		line = strings.TrimSpace(line)

		if containsAny(line, sectionStart) {
			inSection = true
			continue
		}
		if inSection {
			if strings.HasPrefix(line, "★") && !strings.Contains(line, "令和の虎") && !strings.Contains(line, "Tiger") {
				inSection = false
				continue
			}
			if containsAny(line, sectionEnd) {
				inSection = false
				continue
			}
		}
		if !inSection || line == "" || !looksLikeCastLine(line) {
			continue
		}

		if id, ok := e.MatchName(line); ok {
			found[id] = SourceDescription
			continue
		}

		// compound names such as "ゆうじ社長/田中 雄士"
		if strings.Contains(line, "/") {
			matched := false
			for _, part := range strings.Split(line, "/") {
				if id, ok := e.MatchName(strings.TrimSpace(part)); ok {
					found[id] = SourceDescription
					matched = true
					break
				}
			}
			if !matched {
				addUnmatched(line)
			}
			continue
		}

		if !containsAny(line, notAName) && utf8.RuneCountInString(line) <= 15 {
			addUnmatched(line)
		}
	}

	for i, line := range lines {
		if i >= maxTimestampLines {
			break
		}
		if m := timestampRe.FindStringSubmatch(line); m != nil {
			if id, ok := e.MatchName(m[2]); ok {
				found[id] = SourceDescription
			}
		}
		if containsAny(line, castKeywords) {
			if id, ok := e.MatchName(line); ok {
				found[id] = SourceDescription
			}
		}
	}

	for _, t := range e.tigers {
		if _, ok := found[t.id]; ok {
			continue
		}
		for _, p := range t.patterns {
			if utf8.RuneCountInString(p) >= 3 && strings.Contains(description, p) {
				found[t.id] = SourceDescription
				break
			}
		}
	}

	return Description{Matched: e.inRosterOrder(found), Unmatched: unmatched}
}

// MatchName returns the first tiger with a pattern of two or more runes in
// text, comparing both as written and with spaces removed.
func (e *Extractor) MatchName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	compact := stripSpaces(text)

	for _, t := range e.tigers {
		for _, p := range t.patterns {
			if utf8.RuneCountInString(p) < 2 {
				continue
			}
			if strings.Contains(text, p) {
				return t.id, true
			}
			if pc := stripSpaces(p); pc != "" && strings.Contains(compact, pc) {
				return t.id, true
			}
		}
	}
	return "", false
}

func (e *Extractor) inRosterOrder(found map[string]Source) []string {
	out := make([]string, 0, len(found))
	for _, t := range e.tigers {
		if _, ok := found[t.id]; ok {
			out = append(out, t.id)
		}
	}
	return out
}

// looksLikeCastLine rejects bracketed notes, URLs and lines of implausible length.
func looksLikeCastLine(line string) bool {
	for _, p := range []string{"（", "(", "【", "http"} {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	n := utf8.RuneCountInString(line)
	return n >= 2 && n <= 30
}

func stripSpaces(s string) string {
	return strings.NewReplacer(" ", "", "　", "").Replace(s)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
