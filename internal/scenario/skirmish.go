// Package scenario builds seeded skirmish battlefields and wires them into a
// running game with pathfinding and AI on every unit.
package scenario

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/Garsondee/battlecore/internal/ai"
	"github.com/Garsondee/battlecore/internal/battle"
	"github.com/Garsondee/battlecore/internal/pathfind"
)

// Name of the only scenario built so far.
const Name = "farmhouse"

// Skirmish is a generated battlefield with two deployed squads.
type Skirmish struct {
	Battlefield *battle.Battlefield
	Seed        int64
	// Objective is the power source inside the farmhouse.
	Objective battle.Position
	// Rally is the tile outside the farmhouse door player units advance on.
	Rally   battle.Position
	Player  []battle.UnitID
	Hostile []battle.UnitID
}

type skirmishConfig struct {
	width, height int
	squad         int
	biome         biomeConfig
	fort          fortConfig
}

// Option customises a skirmish.
type Option func(*skirmishConfig)

// WithSize sets the map size. Maps narrower than 20 or shorter than 14
// are rejected.
func WithSize(w, h int) Option {
	return func(c *skirmishConfig) { c.width, c.height = w, h }
}

// WithSquadSize sets the number of units per side.
func WithSquadSize(n int) Option {
	return func(c *skirmishConfig) { c.squad = n }
}

// WithoutCover disables the scattered hedges, crates, rocks and fences.
func WithoutCover() Option {
	return func(c *skirmishConfig) {
		c.biome.HedgeThreshold, c.biome.CrateThreshold, c.biome.RockThreshold = 2, 2, 2
		c.fort = fortConfig{}
	}
}

// house is the farmhouse footprint, inclusive.
type house struct{ x0, y0, x1, y1 int }

func (h house) contains(p battle.Position) bool {
	return p.X >= h.x0-1 && p.X <= h.x1+1 && p.Y >= h.y0-1 && p.Y <= h.y1+1
}

// Build generates the farmhouse skirmish for seed: a furnished, walled
// farmhouse with the objective and a lamp in the middle of the map,
// noise-scattered cover and field positions around it, the player squad on
// the west edge and the hostile squad on the east edge.
func Build(seed int64, opts ...Option) (*Skirmish, error) {
	cfg := skirmishConfig{width: 28, height: 18, squad: 4, biome: defaultBiomeConfig, fort: defaultFortConfig}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.width < 20 || cfg.height < 14 {
		return nil, fmt.Errorf("skirmish map %dx%d: want at least 20x14", cfg.width, cfg.height)
	}
	if cfg.squad <= 0 || cfg.squad > cfg.height-2 {
		return nil, fmt.Errorf("squad size %d: want 1-%d", cfg.squad, cfg.height-2)
	}

	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- map generation, not security
	bf := battle.NewBattlefield(cfg.width, cfg.height, 1, nil)
	bf.FillFloor(0, "concrete")

	cx, cy := cfg.width/2, cfg.height/2
	h := house{x0: cx - 3, y0: cy - 3, x1: cx + 2, y1: cy + 2}
	deploy := func(p battle.Position) bool { return p.X < 3 || p.X >= cfg.width-3 }
	reserved := func(p battle.Position) bool { return deploy(p) || h.contains(p) }
	generateBiome(bf, rng, cfg.biome, reserved)
	generateFortifications(bf, rng, cfg.fort, reserved)

	sk := &Skirmish{Battlefield: bf, Seed: seed}
	if err := buildHouse(bf, h, sk); err != nil {
		return nil, err
	}
	furnishHouse(bf, rng, h, sk.Rally.Add(battle.Pos(1, 0, 0)), sk.Objective, lampPos(h))

	player, err := deploySquad(bf, battle.FactionPlayer, 1, battle.DirEast, cfg.squad, "soldier", "rifle", "grenade")
	if err != nil {
		return nil, err
	}
	hostile, err := deploySquad(bf, battle.FactionHostile, cfg.width-2, battle.DirWest, cfg.squad, "sectoid", "plasma_pistol", "grenade")
	if err != nil {
		return nil, err
	}
	sk.Player, sk.Hostile = player, hostile
	return sk, nil
}

// buildHouse walls in the footprint with a door on the west side, lays a
// wooden floor and places the lamp and the objective.
func buildHouse(bf *battle.Battlefield, h house, sk *Skirmish) error {
	for y := h.y0; y <= h.y1; y++ {
		for x := h.x0; x <= h.x1; x++ {
			if err := bf.SetPart(battle.Pos(x, y, 0), "wood_floor"); err != nil {
				return err
			}
		}
	}
	for x := h.x0; x <= h.x1; x++ {
		if err := bf.SetPart(battle.Pos(x, h.y0, 0), "brick_wall_north"); err != nil {
			return err
		}
		if err := bf.SetPart(battle.Pos(x, h.y1+1, 0), "brick_wall_north"); err != nil {
			return err
		}
	}
	doorY := (h.y0 + h.y1) / 2
	for y := h.y0; y <= h.y1; y++ {
		west := "brick_wall_west"
		switch {
		case y == doorY:
			west = "door_west"
		case y == h.y0+1:
			west = "window_west"
		}
		if err := bf.SetPart(battle.Pos(h.x0, y, 0), west); err != nil {
			return err
		}
		if err := bf.SetPart(battle.Pos(h.x1+1, y, 0), "brick_wall_west"); err != nil {
			return err
		}
	}

	sk.Objective = battle.Pos(h.x1-1, h.y1-1, 0)
	sk.Rally = battle.Pos(h.x0-1, doorY, 0)
	if err := bf.SetPart(sk.Objective, "power_source"); err != nil {
		return err
	}
	return bf.SetPart(lampPos(h), "lamp")
}

func lampPos(h house) battle.Position { return battle.Pos(h.x0+1, h.y0+1, 0) }

// deploySquad lines a squad up along column x, centred vertically.
func deploySquad(bf *battle.Battlefield, f battle.Faction, x int, dir battle.Direction, n int, rule string, items ...string) ([]battle.UnitID, error) {
	_, sy, _ := bf.Size()
	y0 := (sy - n) / 2
	ids := make([]battle.UnitID, 0, n)
	for i := 0; i < n; i++ {
		u, err := bf.AddUnit(rule, f, battle.Pos(x, y0+i, 0), dir)
		if err != nil {
			return nil, fmt.Errorf("deploy %s %d: %w", f, i, err)
		}
		for _, name := range items {
			it, err := bf.NewItem(name)
			if err != nil {
				return nil, err
			}
			bf.GiveItem(u, it)
		}
		ids = append(ids, u.ID())
	}
	return ids, nil
}

// Start builds the game for the skirmish. Every unit gets an AI module:
// player units advance on the farmhouse door, hostile units on the player
// deployment zone. Units spawned mid-battle get one as well. An unset
// pathfinder defaults to A* over the battlefield.
func (sk *Skirmish) Start(deps battle.Dependencies) *battle.Game {
	bf := sk.Battlefield
	finder := pathfind.New(bf)
	if deps.Pathfinder == nil {
		deps.Pathfinder = finder
	}
	if deps.RNG == nil {
		deps.RNG = rand.New(rand.NewSource(sk.Seed)) // #nosec G404 -- simulation dice
	}
	logger := deps.Options.Logger
	_, sy, _ := bf.Size()
	playerZone := battle.Pos(1, sy/2, 0)

	objectiveFor := func(f battle.Faction) battle.Position {
		switch f {
		case battle.FactionPlayer:
			return sk.Rally
		case battle.FactionHostile:
			return playerZone
		default:
			return battle.InvalidPosition
		}
	}
	newModule := func(u *battle.Unit) *ai.Module {
		return ai.New(
			ai.WithReacher(finder),
			ai.WithObjective(objectiveFor(u.Faction())),
			ai.WithLogger(logger.With().Str("unit", fmt.Sprintf("U%d", u.ID())).Logger()),
		)
	}
	for _, u := range bf.Units() {
		u.SetAI(newModule(u))
	}
	deps.NewAI = func(id battle.UnitID) battle.AIModule {
		return newModule(bf.Unit(id))
	}
	return battle.NewGame(bf, deps)
}

// Logger returns l tagged with the scenario and seed.
func (sk *Skirmish) Logger(l zerolog.Logger) zerolog.Logger {
	return l.With().Str("scenario", Name).Int64("seed", sk.Seed).Logger()
}
