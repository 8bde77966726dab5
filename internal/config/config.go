package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Garsondee/battlecore/internal/battle"
)

// EnvPrefix prefixes environment overrides, e.g. BATTLE_BATTLE_TURNLIMIT.
const EnvPrefix = "BATTLE"

// Config is the typed battle configuration.
type Config struct {
	LogLevel  string          `json:"logLevel" mapstructure:"logLevel"`
	Battle    BattleConfig    `json:"battle" mapstructure:"battle"`
	Stats     StatsConfig     `json:"stats" mapstructure:"stats"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
}

// BattleConfig holds the engine rule options.
type BattleConfig struct {
	MaxViewDistance           int            `json:"maxViewDistance" mapstructure:"maxViewDistance"`
	MaxDarknessToSeeUnits     int            `json:"maxDarknessToSeeUnits" mapstructure:"maxDarknessToSeeUnits"`
	EnhancedLighting          int            `json:"enhancedLighting" mapstructure:"enhancedLighting"`
	ExplosionHeight           int            `json:"explosionHeight" mapstructure:"explosionHeight"`
	ReactionAccuracyThreshold int            `json:"reactionAccuracyThreshold" mapstructure:"reactionAccuracyThreshold"`
	ExtendedMeleeReactions    int            `json:"extendedMeleeReactions" mapstructure:"extendedMeleeReactions"`
	OffCentreShooting         bool           `json:"offCentreShooting" mapstructure:"offCentreShooting"`
	ReactionPrecedence        string         `json:"reactionPrecedence" mapstructure:"reactionPrecedence"`
	TurnLimit                 int            `json:"turnLimit" mapstructure:"turnLimit"`
	TurnLimitPolicy           string         `json:"turnLimitPolicy" mapstructure:"turnLimitPolicy"`
	AIActionsPerUnit          int            `json:"aiActionsPerUnit" mapstructure:"aiActionsPerUnit"`
	ProjectileSpeed           int            `json:"projectileSpeed" mapstructure:"projectileSpeed"`
	GlobalShade               int            `json:"globalShade" mapstructure:"globalShade"`
	MoraleModifier            MoraleModifier `json:"moraleModifier" mapstructure:"moraleModifier"`
}

// MoraleModifier scales morale swings per faction, in percent.
type MoraleModifier struct {
	Player  int `json:"player" mapstructure:"player"`
	Hostile int `json:"hostile" mapstructure:"hostile"`
	Neutral int `json:"neutral" mapstructure:"neutral"`
}

// StatsConfig selects the statistics store.
type StatsConfig struct {
	Driver string `json:"driver" mapstructure:"driver"` // sqlite, postgres or none
	DSN    string `json:"dsn" mapstructure:"dsn"`
}

// TelemetryConfig toggles the OpenTelemetry meter.
type TelemetryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	def := battle.DefaultOptions()

	v.SetDefault("logLevel", "info")

	v.SetDefault("battle.maxViewDistance", def.MaxViewDistance)
	v.SetDefault("battle.maxDarknessToSeeUnits", def.MaxDarknessToSeeUnits)
	v.SetDefault("battle.enhancedLighting", def.EnhancedLighting)
	v.SetDefault("battle.explosionHeight", def.ExplosionHeight)
	v.SetDefault("battle.reactionAccuracyThreshold", def.ReactionAccuracyThreshold)
	v.SetDefault("battle.extendedMeleeReactions", def.ExtendedMeleeReactions)
	v.SetDefault("battle.offCentreShooting", def.OffCentreShooting)
	v.SetDefault("battle.reactionPrecedence", "cqb-first")
	v.SetDefault("battle.turnLimit", 0)
	v.SetDefault("battle.turnLimitPolicy", "lose")
	v.SetDefault("battle.aiActionsPerUnit", def.AIActionsPerUnit)
	v.SetDefault("battle.projectileSpeed", def.ProjectileSpeed)
	v.SetDefault("battle.globalShade", 0)
	v.SetDefault("battle.moraleModifier.player", 100)
	v.SetDefault("battle.moraleModifier.hostile", 100)
	v.SetDefault("battle.moraleModifier.neutral", 100)

	v.SetDefault("stats.driver", "none")
	v.SetDefault("stats.dsn", "")

	v.SetDefault("telemetry.enabled", false)
}

// Load reads the configuration file at path (JSON, YAML or TOML, by
// extension) over the defaults, then applies BATTLE_* environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values outside their documented ranges.
func (c Config) Validate() error {
	b := c.Battle
	switch {
	case b.EnhancedLighting < 0 || b.EnhancedLighting > 3:
		return fmt.Errorf("battle.enhancedLighting %d: want 0-3", b.EnhancedLighting)
	case b.ExplosionHeight < 0 || b.ExplosionHeight > 3:
		return fmt.Errorf("battle.explosionHeight %d: want 0-3", b.ExplosionHeight)
	case b.ExtendedMeleeReactions < 0 || b.ExtendedMeleeReactions > 2:
		return fmt.Errorf("battle.extendedMeleeReactions %d: want 0-2", b.ExtendedMeleeReactions)
	case b.GlobalShade < 0 || b.GlobalShade > 15:
		return fmt.Errorf("battle.globalShade %d: want 0-15", b.GlobalShade)
	case b.TurnLimit < 0:
		return fmt.Errorf("battle.turnLimit %d: want 0 or more", b.TurnLimit)
	}
	switch b.ReactionPrecedence {
	case "cqb-first", "line-of-fire-first":
	default:
		return fmt.Errorf("battle.reactionPrecedence %q: want cqb-first or line-of-fire-first", b.ReactionPrecedence)
	}
	switch b.TurnLimitPolicy {
	case "win", "lose", "abort":
	default:
		return fmt.Errorf("battle.turnLimitPolicy %q: want win, lose or abort", b.TurnLimitPolicy)
	}
	switch c.Stats.Driver {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("stats.driver %q: want none, sqlite or postgres", c.Stats.Driver)
	}
	if c.Stats.Driver == "postgres" && c.Stats.DSN == "" {
		return fmt.Errorf("stats.dsn is required for the postgres driver")
	}
	return nil
}

// BattleOptions converts the battle section into engine options. The
// logger and meter are left for the caller to fill in.
func (c Config) BattleOptions() battle.Options {
	b := c.Battle
	opts := battle.DefaultOptions()
	opts.MaxViewDistance = b.MaxViewDistance
	opts.MaxDarknessToSeeUnits = b.MaxDarknessToSeeUnits
	opts.EnhancedLighting = b.EnhancedLighting
	opts.ExplosionHeight = b.ExplosionHeight
	opts.ReactionAccuracyThreshold = b.ReactionAccuracyThreshold
	opts.ExtendedMeleeReactions = b.ExtendedMeleeReactions
	opts.OffCentreShooting = b.OffCentreShooting
	opts.ReactionPrecedence = battle.ParseReactionPrecedence(b.ReactionPrecedence)
	opts.TurnLimit = b.TurnLimit
	opts.TurnLimitPolicy = battle.ParseTurnLimitPolicy(b.TurnLimitPolicy)
	opts.AIActionsPerUnit = b.AIActionsPerUnit
	opts.ProjectileSpeed = b.ProjectileSpeed
	opts.GlobalShade = b.GlobalShade
	opts.MoraleModifier[battle.FactionPlayer] = b.MoraleModifier.Player
	opts.MoraleModifier[battle.FactionHostile] = b.MoraleModifier.Hostile
	opts.MoraleModifier[battle.FactionNeutral] = b.MoraleModifier.Neutral
	return opts
}
