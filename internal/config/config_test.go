package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/battlecore/internal/battle"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	def := battle.DefaultOptions()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, def.MaxViewDistance, cfg.Battle.MaxViewDistance)
	assert.Equal(t, def.MaxDarknessToSeeUnits, cfg.Battle.MaxDarknessToSeeUnits)
	assert.Equal(t, "cqb-first", cfg.Battle.ReactionPrecedence)
	assert.Equal(t, "lose", cfg.Battle.TurnLimitPolicy)
	assert.Equal(t, def.AIActionsPerUnit, cfg.Battle.AIActionsPerUnit)
	assert.Equal(t, 100, cfg.Battle.MoraleModifier.Hostile)
	assert.Equal(t, "none", cfg.Stats.Driver)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"json", "battle.json", `{
			"logLevel": "debug",
			"battle": {"turnLimit": 20, "turnLimitPolicy": "win", "reactionPrecedence": "line-of-fire-first",
				"explosionHeight": 2, "moraleModifier": {"player": 50}},
			"stats": {"driver": "sqlite", "dsn": "stats.db"}
		}`},
		{"yaml", "battle.yaml", `
logLevel: debug
battle:
  turnLimit: 20
  turnLimitPolicy: win
  reactionPrecedence: line-of-fire-first
  explosionHeight: 2
  moraleModifier:
    player: 50
stats:
  driver: sqlite
  dsn: stats.db
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.body))
			require.NoError(t, err)

			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, 20, cfg.Battle.TurnLimit)
			assert.Equal(t, "win", cfg.Battle.TurnLimitPolicy)
			assert.Equal(t, 2, cfg.Battle.ExplosionHeight)
			assert.Equal(t, 50, cfg.Battle.MoraleModifier.Player)
			assert.Equal(t, 100, cfg.Battle.MoraleModifier.Neutral, "unset keys keep their default")
			assert.Equal(t, "sqlite", cfg.Stats.Driver)
			assert.Equal(t, "stats.db", cfg.Stats.DSN)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BATTLE_BATTLE_TURNLIMIT", "12")
	t.Setenv("BATTLE_LOGLEVEL", "warn")
	t.Setenv("BATTLE_TELEMETRY_ENABLED", "true")

	cfg, err := Load(writeConfig(t, "battle.json", `{"battle": {"turnLimit": 30}}`))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Battle.TurnLimit, "environment beats the file")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/battle.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"lighting mode", `{"battle": {"enhancedLighting": 4}}`, "enhancedLighting"},
		{"explosion height", `{"battle": {"explosionHeight": -1}}`, "explosionHeight"},
		{"melee reactions", `{"battle": {"extendedMeleeReactions": 3}}`, "extendedMeleeReactions"},
		{"precedence", `{"battle": {"reactionPrecedence": "random"}}`, "reactionPrecedence"},
		{"policy", `{"battle": {"turnLimitPolicy": "draw"}}`, "turnLimitPolicy"},
		{"driver", `{"stats": {"driver": "mysql"}}`, "stats.driver"},
		{"postgres without dsn", `{"stats": {"driver": "postgres"}}`, "stats.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "battle.json", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBattleOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, "battle.json", `{
		"battle": {"maxViewDistance": 15, "enhancedLighting": 3, "offCentreShooting": true,
			"reactionPrecedence": "line-of-fire-first", "turnLimit": 8, "turnLimitPolicy": "abort",
			"aiActionsPerUnit": 5, "globalShade": 12, "moraleModifier": {"hostile": 150}}
	}`))
	require.NoError(t, err)

	opts := cfg.BattleOptions()
	assert.Equal(t, 15, opts.MaxViewDistance)
	assert.Equal(t, battle.EnhancedLightingStatic|battle.EnhancedLightingDynamic, opts.EnhancedLighting)
	assert.True(t, opts.OffCentreShooting)
	assert.Equal(t, battle.PrecedenceLineOfFireFirst, opts.ReactionPrecedence)
	assert.Equal(t, 8, opts.TurnLimit)
	assert.Equal(t, battle.TurnLimitAbort, opts.TurnLimitPolicy)
	assert.Equal(t, 5, opts.AIActionsPerUnit)
	assert.Equal(t, 12, opts.GlobalShade)
	assert.Equal(t, 150, opts.MoraleModifier[battle.FactionHostile])
	assert.Equal(t, 100, opts.MoraleModifier[battle.FactionPlayer])
}
