package battle

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// ReactionPrecedence decides whether a reactor's close-quarters check runs
// before or after line-of-fire resolution.
type ReactionPrecedence int

const (
	PrecedenceCQBFirst ReactionPrecedence = iota
	PrecedenceLineOfFireFirst
)

// ParseReactionPrecedence maps a config string to a precedence, defaulting to cqb-first.
func ParseReactionPrecedence(s string) ReactionPrecedence {
	if s == "line-of-fire-first" {
		return PrecedenceLineOfFireFirst
	}
	return PrecedenceCQBFirst
}

// TurnLimitPolicy is what happens when the turn limit is exceeded.
type TurnLimitPolicy int

const (
	TurnLimitLose TurnLimitPolicy = iota
	TurnLimitWin
	TurnLimitAbort
)

// ParseTurnLimitPolicy maps a config string to a policy, defaulting to lose.
func ParseTurnLimitPolicy(s string) TurnLimitPolicy {
	switch s {
	case "win":
		return TurnLimitWin
	case "abort":
		return TurnLimitAbort
	}
	return TurnLimitLose
}

// Lighting mode bits for Options.EnhancedLighting.
const (
	EnhancedLightingStatic  = 1
	EnhancedLightingDynamic = 2
)

// Options tunes the engine. The zero value is not useful; start from DefaultOptions.
type Options struct {
	MaxViewDistance       int
	MaxDarknessToSeeUnits int
	EnhancedLighting      int
	// ExplosionHeight is the voxel layer (0-3) explosion rays start from.
	ExplosionHeight int

	ReactionAccuracyThreshold int
	ExtendedMeleeReactions    int
	OffCentreShooting         bool
	ReactionPrecedence        ReactionPrecedence

	TurnLimit       int
	TurnLimitPolicy TurnLimitPolicy

	AIActionsPerUnit int
	// ProjectileSpeed is the number of trajectory voxels advanced per tick.
	ProjectileSpeed int
	// MoraleModifier scales morale swings per faction, in percent.
	MoraleModifier [factionCount]int

	// GlobalShade is the ambient darkness, 0 (noon) to 15 (night).
	GlobalShade int

	Logger zerolog.Logger
	Meter  metric.Meter
}

// DefaultOptions returns the standard rule set values.
func DefaultOptions() Options {
	return Options{
		MaxViewDistance:        20,
		MaxDarknessToSeeUnits:  9,
		EnhancedLighting:       0,
		ExplosionHeight:        0,
		ExtendedMeleeReactions: 0,
		ReactionPrecedence:     PrecedenceCQBFirst,
		AIActionsPerUnit:       3,
		ProjectileSpeed:        8,
		MoraleModifier:         [factionCount]int{100, 100, 100},
		Logger:                 zerolog.Nop(),
	}
}
