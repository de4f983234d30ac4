package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/roster"
)

func scenarioRoster(t testing.TB) *roster.Roster {
	t.Helper()
	r, skipped := roster.New([]roster.Tiger{
		{
			ID:          "hayashi",
			DisplayName: "林社長",
			Active:      true,
			Aliases: []roster.Alias{
				{Text: "林社長", Category: roster.CategoryFormal, Priority: 1},
				{Text: "林", Category: roster.CategoryShort, Priority: 2},
			},
		},
		{
			ID:          "iwai",
			DisplayName: "岩井社長",
			Active:      true,
			Aliases: []roster.Alias{
				{Text: "岩井社長", Category: roster.CategoryFormal, Priority: 1},
			},
		},
		{
			ID:          "kobayashi",
			DisplayName: "小林社長",
			Active:      true,
			Aliases: []roster.Alias{
				{Text: "小林", Category: roster.CategoryShort, Priority: 1},
			},
		},
		{
			ID:          "retired",
			DisplayName: "元社長",
			Active:      false,
			Aliases: []roster.Alias{
				{Text: "元社長", Category: roster.CategoryFormal, Priority: 1},
			},
		},
	})
	require.Empty(t, skipped)
	return r
}

func TestResolveScenario(t *testing.T) {
	res := New(Options{Roster: scenarioRoster(t)})
	candidates := []string{"hayashi", "iwai"}

	r1 := res.Resolve("林社長すごい!", candidates)
	require.Len(t, r1.Mentions, 1)
	assert.Equal(t, Mention{TigerID: "hayashi", MatchedAlias: "林社長", AliasCategory: roster.CategoryFormal, Priority: 1}, r1.Mentions[0])

	r2 := res.Resolve("岩井社長と林社長の対決が面白い", candidates)
	require.Len(t, r2.Mentions, 2)
	assert.Equal(t, "hayashi", r2.Mentions[0].TigerID)
	assert.Equal(t, "林社長", r2.Mentions[0].MatchedAlias)
	assert.Equal(t, "iwai", r2.Mentions[1].TigerID)
	assert.Equal(t, "岩井社長", r2.Mentions[1].MatchedAlias)

	r3 := res.Resolve("面白かった", candidates)
	assert.NotNil(t, r3.Mentions)
	assert.Empty(t, r3.Mentions)
	assert.False(t, r3.Degraded)
}

func TestResolveNormalizesFirst(t *testing.T) {
	res := New(Options{Roster: scenarioRoster(t)})

	r := res.Resolve("　ﾊﾞﾝｻﾞｲ  林社長！", []string{"hayashi"})
	assert.Equal(t, "バンザイ 林社長!", r.NormalizedText)
	require.Len(t, r.Mentions, 1)
}

func TestResolveRosterScoping(t *testing.T) {
	res := New(Options{Roster: scenarioRoster(t)})

	r := res.Resolve("小林さんが来た", []string{"hayashi"})
	assert.Empty(t, r.Mentions, "林 inside 小林 must not match")

	r = res.Resolve("小林さんが来た", []string{"hayashi", "kobayashi"})
	require.Len(t, r.Mentions, 1)
	assert.Equal(t, "kobayashi", r.Mentions[0].TigerID)

	r = res.Resolve("元社長が来た", []string{"retired", "ghost"})
	assert.Empty(t, r.Mentions, "inactive and unknown candidates are skipped")
}

func TestResolveDegraded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	res := New(Options{Roster: scenarioRoster(t), Logger: zap.New(core)})

	r := res.Resolve("元社長と岩井社長", nil)
	assert.True(t, r.Degraded)
	require.Len(t, r.Mentions, 1, "inactive tigers are not searched")
	assert.Equal(t, "iwai", r.Mentions[0].TigerID)
	assert.Equal(t, 1, logs.Len())
}

func TestResolveTieBreak(t *testing.T) {
	r, _ := roster.New([]roster.Tiger{{
		ID:     "hayashi",
		Active: true,
		Aliases: []roster.Alias{
			{Text: "林", Category: roster.CategoryShort, Priority: 1},
			{Text: "はやし", Category: roster.CategoryHiragana, Priority: 5},
			{Text: "ハヤシ", Category: roster.CategoryHiragana, Priority: 5},
			{Text: "林社長", Category: roster.CategoryNickname, Priority: 9},
			{Text: "林社長", Category: roster.CategoryFormal, Priority: 1},
		},
	}})
	res := New(Options{Roster: r})

	got := res.Resolve("林社長すごい", []string{"hayashi"})
	require.Len(t, got.Mentions, 1)
	assert.Equal(t, "林社長", got.Mentions[0].MatchedAlias, "longest alias wins over lower priority")
	assert.Equal(t, roster.CategoryNickname, got.Mentions[0].AliasCategory, "duplicate alias text keeps the first entry")

	got = res.Resolve("ハヤシさんとはやしさん", []string{"hayashi"})
	require.Len(t, got.Mentions, 1)
	assert.Equal(t, "はやし", got.Mentions[0].MatchedAlias, "equal scores keep the first scanned alias")

	got = res.Resolve("林社長とはやしさん", []string{"hayashi"})
	require.Len(t, got.Mentions, 1)
	assert.Equal(t, "はやし", got.Mentions[0].MatchedAlias, "equal length falls to priority")
}

func TestScoreOrdering(t *testing.T) {
	long := ScoreAlias(roster.Alias{Text: "林尚弘", Category: roster.CategoryShort, Priority: 9})
	short := ScoreAlias(roster.Alias{Text: "林", Category: roster.CategoryFullName, Priority: 1})
	assert.True(t, long.Less(short))

	a := ScoreAlias(roster.Alias{Text: "林社長", Category: roster.CategoryFormal, Priority: 1})
	b := ScoreAlias(roster.Alias{Text: "林さん", Category: roster.CategoryFullName, Priority: 2})
	assert.True(t, a.Less(b))

	c := ScoreAlias(roster.Alias{Text: "林社長", Category: roster.CategoryFullName, Priority: 1})
	assert.True(t, c.Less(a))
	assert.False(t, a.Less(a))

	assert.Equal(t, 99, CategoryRank("custom"))
}

func TestResolveAtMostOneMentionPerTiger(t *testing.T) {
	r := scenarioRoster(t)
	res := New(Options{Roster: r, Matcher: match.NewMatcher(match.DefaultRules())})
	alphabet := []rune("林社長岩井小さんはのが元 !")

	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringOf(rapid.SampledFrom(alphabet)).Draw(t, "text")
		cands := rapid.SliceOf(rapid.SampledFrom([]string{"hayashi", "iwai", "kobayashi", "retired", "ghost"})).Draw(t, "candidates")

		got := res.Resolve(text, cands)
		seen := map[string]bool{}
		for _, m := range got.Mentions {
			if seen[m.TigerID] {
				t.Fatalf("tiger %s mentioned twice in %q", m.TigerID, text)
			}
			seen[m.TigerID] = true
			if len(cands) > 0 && !contains(cands, m.TigerID) {
				t.Fatalf("tiger %s outside candidates %v", m.TigerID, cands)
			}
			if m.TigerID == "retired" || m.TigerID == "ghost" {
				t.Fatalf("inactive or unknown tiger %s matched", m.TigerID)
			}
		}
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
