package battle

import (
	"math/rand"
)

// TestBattle is a headless battle harness used by tests. It builds a small
// battlefield from options in ordered passes, wires a Game with a
// deterministic RNG and drives it tick by tick.
type TestBattle struct {
	Battlefield *Battlefield
	Game        *Game
	Engine      *TileEngine
	Log         *BattleLog

	sizeX, sizeY, sizeZ int
	floor               string
	opts                Options
	deps                Dependencies
	rng                 *rand.Rand
	stats               *memoryStats
}

// battleOptionKind controls the pass in which an option is applied.
type battleOptionKind int

const (
	battleOptInfra   battleOptionKind = iota // map size, seed, options: applied first
	battleOptTerrain                         // floors, walls, objects: after the battlefield exists
	battleOptUnit                            // units and their items: after terrain
)

// BattleOption is a builder function applied to a TestBattle during construction.
type BattleOption struct {
	kind battleOptionKind
	fn   func(*TestBattle)
}

// WithMapSize sets the battlefield dimensions in tiles.
func WithMapSize(x, y, z int) BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) {
		tb.sizeX, tb.sizeY, tb.sizeZ = x, y, z
	}}
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) {
		tb.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- test harness
	}}
}

// WithOptions replaces the engine options.
func WithOptions(fn func(*Options)) BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) {
		fn(&tb.opts)
	}}
}

// WithAutoPlay drives the player side through AI modules as well.
func WithAutoPlay() BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) {
		tb.deps.AutoPlay = true
	}}
}

// WithPathfinder replaces the default straight-line pathfinder with one
// built over the finished battlefield.
func WithPathfinder(build func(*Battlefield) Pathfinder) BattleOption {
	return BattleOption{battleOptUnit, func(tb *TestBattle) {
		tb.deps.Pathfinder = build(tb.Battlefield)
	}}
}

// WithStats forwards every casualty and outcome to rec as well as keeping
// them for Casualties and Outcomes.
func WithStats(rec StatsRecorder) BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) { tb.stats.next = rec }}
}

// WithFloor sets the floor laid over the ground level. "" leaves it bare.
func WithFloor(name string) BattleOption {
	return BattleOption{battleOptInfra, func(tb *TestBattle) {
		tb.floor = name
	}}
}

// WithPart places a terrain part.
func WithPart(p Position, name string) BattleOption {
	return BattleOption{battleOptTerrain, func(tb *TestBattle) {
		if err := tb.Battlefield.SetPart(p, name); err != nil {
			panic(err)
		}
	}}
}

// WithWall runs a wall of the named part along x (north walls) or y (west
// walls) from..to inclusive at the fixed coordinate.
func WithWall(name string, from, to Position) BattleOption {
	return BattleOption{battleOptTerrain, func(tb *TestBattle) {
		for x := from.X; x <= to.X; x++ {
			for y := from.Y; y <= to.Y; y++ {
				if err := tb.Battlefield.SetPart(Pos(x, y, from.Z), name); err != nil {
					panic(err)
				}
			}
		}
	}}
}

// WithSmoke fills tiles with smoke.
func WithSmoke(density int, ps ...Position) BattleOption {
	return BattleOption{battleOptTerrain, func(tb *TestBattle) {
		for _, p := range ps {
			tb.Battlefield.Tile(p).SetSmoke(density)
		}
	}}
}

// WithUnit adds a unit carrying the named items, the first in its right hand.
func WithUnit(rule string, f Faction, p Position, d Direction, items ...string) BattleOption {
	return BattleOption{battleOptUnit, func(tb *TestBattle) {
		u, err := tb.Battlefield.AddUnit(rule, f, p, d)
		if err != nil {
			panic(err)
		}
		for _, name := range items {
			it, err := tb.Battlefield.NewItem(name)
			if err != nil {
				panic(err)
			}
			tb.Battlefield.GiveItem(u, it)
		}
	}}
}

// WithAI attaches an AI module to an already added unit.
func WithAI(id UnitID, ai AIModule) BattleOption {
	return BattleOption{battleOptUnit, func(tb *TestBattle) {
		tb.Battlefield.Unit(id).SetAI(ai)
	}}
}

// NewTestBattle constructs a TestBattle from the given options in ordered passes:
//  1. Infrastructure (map size, seed, options)
//  2. Battlefield and floor
//  3. Terrain parts
//  4. Units
//  5. Game, which computes initial lighting and FOV
func NewTestBattle(opts ...BattleOption) *TestBattle {
	tb := &TestBattle{
		sizeX: 10,
		sizeY: 10,
		sizeZ: 2,
		floor: "concrete",
		opts:  DefaultOptions(),
		rng:   rand.New(rand.NewSource(1)), // #nosec G404 -- test harness default
		stats: &memoryStats{},
	}
	for _, o := range opts {
		if o.kind == battleOptInfra {
			o.fn(tb)
		}
	}
	tb.Battlefield = NewBattlefield(tb.sizeX, tb.sizeY, tb.sizeZ, nil)
	if tb.floor != "" {
		tb.Battlefield.FillFloor(0, tb.floor)
	}
	for _, o := range opts {
		if o.kind == battleOptTerrain {
			o.fn(tb)
		}
	}
	for _, o := range opts {
		if o.kind == battleOptUnit {
			o.fn(tb)
		}
	}
	tb.deps.Options = tb.opts
	tb.deps.RNG = tb.rng
	tb.deps.Stats = tb.stats
	tb.Game = NewGame(tb.Battlefield, tb.deps)
	tb.Engine = tb.Game.Engine()
	tb.Log = tb.Game.Log()
	return tb
}

// Unit returns a unit by id.
func (tb *TestBattle) Unit(id UnitID) *Unit { return tb.Battlefield.Unit(id) }

// Casualties returns the casualties recorded so far.
func (tb *TestBattle) Casualties() []Casualty { return tb.stats.casualties }

// Outcomes returns the outcomes recorded so far.
func (tb *TestBattle) Outcomes() []Outcome { return tb.stats.outcomes }

// RunTicks advances the battle n ticks.
func (tb *TestBattle) RunTicks(n int) {
	for i := 0; i < n; i++ {
		tb.Game.Think()
	}
}

// RunUntilIdle thinks until the state queue drains, up to maxTicks. It
// returns the ticks used, or -1 when the queue never drained.
func (tb *TestBattle) RunUntilIdle(maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		if !tb.Game.Busy() {
			return i
		}
		tb.Game.Think()
	}
	if tb.Game.Busy() {
		return -1
	}
	return maxTicks
}

// RunUntil advances the battle up to maxTicks, stopping early when the
// predicate holds. It returns the tick count at that point, or -1.
func (tb *TestBattle) RunUntil(predicate func(*TestBattle) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		tb.Game.Think()
		if predicate(tb) {
			return i + 1
		}
	}
	return -1
}

// memoryStats keeps recorded statistics in memory.
type memoryStats struct {
	casualties []Casualty
	outcomes   []Outcome
	next       StatsRecorder // optional persistent recorder fed the same records
}

func (m *memoryStats) RecordCasualty(c Casualty) error {
	m.casualties = append(m.casualties, c)
	if m.next != nil {
		return m.next.RecordCasualty(c)
	}
	return nil
}

func (m *memoryStats) RecordOutcome(o Outcome) error {
	m.outcomes = append(m.outcomes, o)
	if m.next != nil {
		return m.next.RecordOutcome(o)
	}
	return nil
}
