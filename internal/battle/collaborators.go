package battle

import "math/rand"

// Path is a route computed by a Pathfinder. Steps excludes the start tile.
type Path struct {
	Steps          []Position
	Cost           int
	StartDirection Direction
}

// Pathfinder computes walking routes. The orchestrator only reads the steps,
// their feasibility and the direction of the first step.
type Pathfinder interface {
	Calculate(u *Unit, target Position, run bool) (Path, bool)
}

// AIModule decides what an AI-controlled unit does next. Modules refer to
// their unit by id. Returning an ActionRethink action means no plan was
// found; the unit gets one more try and then ends its turn.
type AIModule interface {
	Think(te *TileEngine, self UnitID) Action
}

// Alerter is implemented by AI modules that want to know when their unit
// spots a new enemy.
type Alerter interface {
	Alert(spotted UnitID)
}

// Casualty is one victim status transition, recorded once per victim and status.
type Casualty struct {
	Turn            int
	Victim          UnitID
	VictimRule      string
	VictimFaction   Faction
	Status          UnitStatus
	Murderer        UnitID
	MurdererFaction Faction
	FriendlyFire    bool
}

// StatsRecorder persists battle statistics. Failures are logged and never
// interrupt the battle.
type StatsRecorder interface {
	RecordCasualty(c Casualty) error
	RecordOutcome(o Outcome) error
}

// Dependencies bundles what a Game needs besides the battlefield.
type Dependencies struct {
	Options    Options
	RNG        *rand.Rand
	Pathfinder Pathfinder
	Stats      StatsRecorder
	// NewAI builds the AI module of units spawned mid-battle.
	NewAI func(id UnitID) AIModule
	// AutoPlay drives player units through their AI modules too.
	AutoPlay bool
}
