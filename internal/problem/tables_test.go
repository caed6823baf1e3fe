package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBandsDefaultsWhenEmpty(t *testing.T) {
	bands, err := ParseBands(nil)
	require.NoError(t, err)
	assert.Equal(t, Band{Min: 800, Max: 1200}, bands[TierRookie])
	assert.Equal(t, Band{Min: 1601, Max: 2200}, bands[TierVeteran])
}

func TestParseBands(t *testing.T) {
	bands, err := ParseBands(map[string]string{"rookie": "900-1000", "Master": " 2500 - 3000 "})
	require.NoError(t, err)
	assert.Len(t, bands, 2)
	assert.True(t, bands[TierRookie].Contains(900))
	assert.False(t, bands[TierRookie].Contains(1001))
	assert.Equal(t, Band{Min: 2500, Max: 3000}, bands[TierMaster])
}

func TestParseBandsRejectsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown tier": {"Legend": "1-2"},
		"no dash":      {"Rookie": "800"},
		"not a number": {"Rookie": "a-b"},
		"inverted":     {"Rookie": "1200-800"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBands(raw)
			assert.Error(t, err)
		})
	}
}

func TestParseTopicTags(t *testing.T) {
	tags, err := ParseTopicTags(map[string]string{"Algorithms": "dp| greedy |"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dp", "greedy"}, tags["Algorithms"])

	_, err = ParseTopicTags(map[string]string{"Empty": " | "})
	assert.Error(t, err)
}

func TestTagSet(t *testing.T) {
	tables := DefaultTables()

	set := tables.TagSet("algorithms")
	assert.Contains(t, set, "dp")
	assert.Contains(t, set, "greedy")

	unknown := tables.TagSet(" Bitmasks ")
	assert.Equal(t, map[string]struct{}{"bitmasks": {}}, unknown)
}

func TestParseTierAndMode(t *testing.T) {
	tier, ok := ParseTier("veteran")
	assert.True(t, ok)
	assert.Equal(t, TierVeteran, tier)

	_, ok = ParseTier("legend")
	assert.False(t, ok)

	mode, ok := ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeCatalog, mode)

	mode, ok = ParseMode("AI")
	assert.True(t, ok)
	assert.Equal(t, ModeGenerative, mode)

	_, ok = ParseMode("random")
	assert.False(t, ok)
}
