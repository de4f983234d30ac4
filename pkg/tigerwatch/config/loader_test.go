package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/internalerr"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/match"
)

const testRoster = `tigers:
  - id: hayashi
    display_name: 林社長
    full_name: 林尚弘
    aliases:
      - {alias: 林社長, type: formal, priority: 1}
      - {alias: 林, type: short, priority: 3}
      - {alias: "", type: short, priority: 9}
  - id: iwai
    display_name: 岩井社長
    aliases:
      - {alias: 岩井社長, type: formal, priority: 1}
`

func TestLoaderLoad(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	loader := &Loader{
		RosterPath: writeFile(t, "roster.yaml", testRoster),
		Logger:     zap.New(core),
	}

	comp, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, comp.Roster.Len())
	assert.Len(t, comp.Roster.Aliases("hayashi"), 2)
	assert.Equal(t, match.DefaultRules(), comp.Rules)
	require.NotNil(t, comp.Matcher)
	require.NotNil(t, comp.Extractor)

	res := comp.Resolver.Resolve("林社長の話が面白い", []string{"hayashi", "iwai"})
	require.Len(t, res.Mentions, 1)
	assert.Equal(t, "hayashi", res.Mentions[0].TigerID)

	assert.Equal(t, 1, logs.FilterMessage("skipped roster entry").Len())
}

func TestLoaderLegacyJSON(t *testing.T) {
	loader := &Loader{
		RosterPath:  writeFile(t, "tigers.json", `[{"tiger_id": "iwai", "display_name": "岩井社長"}]`),
		AliasesPath: writeFile(t, "aliases.json", `{"iwai": [{"alias": "岩井社長", "type": "formal", "priority": 1}]}`),
	}

	comp, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"iwai"}, comp.Roster.IDs())
}

func TestLoaderRequiresRoster(t *testing.T) {
	_, err := (&Loader{}).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = (&Loader{RosterPath: writeFile(t, "empty.yaml", "tigers: []\n")}).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}
