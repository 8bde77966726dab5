// Package ai drives computer-controlled units. Each unit gets its own
// Module: a blackboard of remembered contacts and a utility-scored goal
// that is turned into one battle action per decision.
package ai

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/Garsondee/battlecore/internal/battle"
	"github.com/Garsondee/battlecore/internal/pathfind"
)

// Reacher lists the tiles a unit can walk to within a TU budget, with the
// cost of reaching each.
type Reacher interface {
	Reachable(u *battle.Unit, budget int) map[battle.Position]int
}

// grenadeSafeDistance is the closest a unit will throw a grenade to itself.
const grenadeSafeDistance = 4

// forgetAfterTurns is how many turns a contact out of this unit's sight may go
// unseen by its whole side before it is forgotten.
const forgetAfterTurns = 2

// Module is a battle.AIModule for one unit.
type Module struct {
	reacher   Reacher
	objective battle.Position
	logger    zerolog.Logger
	bb        Blackboard
}

// Option configures a Module.
type Option func(*Module)

// WithReacher sets the movement search; the default is a pathfind.Finder
// over the battlefield of the first decision.
func WithReacher(r Reacher) Option {
	return func(m *Module) { m.reacher = r }
}

// WithObjective gives the unit somewhere to advance to when it has no contact.
func WithObjective(p battle.Position) Option {
	return func(m *Module) { m.objective = p }
}

// WithLogger sets the decision logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// New builds a Module.
func New(opts ...Option) *Module {
	m := &Module{objective: battle.InvalidPosition, logger: zerolog.Nop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Blackboard exposes the module's memory.
func (m *Module) Blackboard() *Blackboard { return &m.bb }

// SetObjective replaces the advance target; InvalidPosition clears it.
func (m *Module) SetObjective(p battle.Position) { m.objective = p }

// Alert records an enemy the unit just spotted so the next decision knows
// about it even if it has since dropped out of view.
func (m *Module) Alert(spotted battle.UnitID) {
	m.bb.Alerts = append(m.bb.Alerts, spotted)
}

// Think decides the unit's next action.
func (m *Module) Think(te *battle.TileEngine, self battle.UnitID) battle.Action {
	bf := te.Battlefield()
	u := bf.Unit(self)
	if u == nil || u.IsOut() || u.TU() == 0 {
		return battle.Action{Type: battle.ActionNone, Actor: self}
	}
	if m.reacher == nil {
		m.reacher = pathfind.New(bf)
	}

	m.observe(bf, u)
	p := m.assess(te, u)
	goal := SelectGoal(&m.bb, p.situation)
	m.bb.Goal = goal
	m.logger.Debug().
		Int("unit", int(self)).
		Str("goal", goal.String()).
		Int("threats", len(m.bb.Threats)).
		Int("visible", m.bb.VisibleThreatCount()).
		Msg("think")

	a, ok := m.act(te, u, goal, p)
	if !ok {
		m.logger.Debug().Int("unit", int(self)).Str("goal", goal.String()).Msg("no plan")
		return battle.Action{Type: battle.ActionRethink, Actor: self}
	}
	return a
}

// observe refreshes the blackboard from what the unit sees and was alerted to.
func (m *Module) observe(bf *battle.Battlefield, u *battle.Unit) {
	var contacts []*battle.Unit
	add := func(id battle.UnitID) {
		o := bf.Unit(id)
		if down(o) || !u.IsEnemyOf(o) || slices.Contains(contacts, o) {
			return
		}
		contacts = append(contacts, o)
	}
	for _, id := range u.VisibleUnits() {
		add(id)
	}
	for _, id := range m.bb.Alerts {
		add(id)
	}
	m.bb.Alerts = m.bb.Alerts[:0]
	m.bb.UpdateThreats(contacts, bf.Turn())

	// Enemies the side has in sight this turn are shared knowledge.
	side := u.Faction()
	for _, o := range bf.Units() {
		if down(o) || !u.IsEnemyOf(o) || o.TurnsSinceSpotted(side) != 0 {
			continue
		}
		m.bb.NoteSighting(o, bf.Turn())
	}

	var gone []battle.UnitID
	for _, t := range m.bb.Threats {
		o := bf.Unit(t.Unit)
		if down(o) || (!t.Visible && lostBySide(o, side)) {
			gone = append(gone, t.Unit)
		}
	}
	for _, id := range gone {
		m.bb.Forget(id)
	}
}

// lostBySide reports whether side has gone too long without seeing o. A
// unit the side never saw is left to the blackboard's own decay.
func lostBySide(o *battle.Unit, side battle.Faction) bool {
	n := o.TurnsSinceSpotted(side)
	return n != battle.NeverSpotted && n > forgetAfterTurns
}

// down reports whether a unit is missing, out, or about to be.
func down(u *battle.Unit) bool {
	return u == nil || u.IsOut() || u.IsOutThresholdExceed()
}

// assessment is the situation plus the concrete attacks behind its flags.
type assessment struct {
	situation Situation
	shot      battle.Action
	throw     battle.Action
	melee     battle.Action
}

func (m *Module) assess(te *battle.TileEngine, u *battle.Unit) assessment {
	bf := te.Battlefield()
	st := u.Stats()
	p := assessment{situation: Situation{
		HealthFrac:   ratio(u.Health(), st.Health),
		MoraleFrac:   ratio(u.Morale(), 100),
		TUFrac:       ratio(u.TU(), st.TU),
		Aggression:   ratio(st.Bravery, 100),
		HasObjective: m.objective.IsValid() && m.objective != u.Pos(),
	}}

	var visible []ThreatFact
	for _, t := range m.bb.Threats {
		if t.Visible {
			visible = append(visible, t)
		}
	}
	slices.SortStableFunc(visible, func(a, b ThreatFact) int {
		return u.Pos().DistanceSq(a.Pos, true) - u.Pos().DistanceSq(b.Pos, true)
	})
	items := bf.UnitItems(u)

	if a, ok := m.planMelee(u, items, visible); ok {
		p.melee, p.situation.CanMelee = a, true
	}
	if a, ok := m.planShot(te, u, items, visible); ok {
		p.shot, p.situation.CanShoot = a, true
	}
	if a, n, ok := m.planThrow(te, u, items, visible); ok {
		p.throw, p.situation.CanThrow, p.situation.ThreatsInRange = a, true, n
	}
	return p
}

func ratio(v, of int) float64 {
	if of <= 0 {
		return 0
	}
	return max(0, min(1, float64(v)/float64(of)))
}

func adjacent(u *battle.Unit, p battle.Position) bool {
	for _, t := range u.OccupiedTiles() {
		dx, dy := t.X-p.X, t.Y-p.Y
		if t.Z == p.Z && dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 {
			return true
		}
	}
	return false
}

func (m *Module) planMelee(u *battle.Unit, items []*battle.Item, visible []ThreatFact) (battle.Action, bool) {
	for _, t := range visible {
		if !adjacent(u, t.Pos) {
			continue
		}
		for _, w := range items {
			if !w.Rule().HasMelee() {
				continue
			}
			a := battle.NewAction(battle.ActionMelee, u, w, t.Pos)
			if u.CanSpend(a.Cost) == nil {
				return a, true
			}
		}
	}
	return battle.Action{}, false
}

// planShot picks the visible target and fire mode with the best expected
// number of hits the unit can afford.
func (m *Module) planShot(te *battle.TileEngine, u *battle.Unit, items []*battle.Item, visible []ThreatFact) (battle.Action, bool) {
	var best battle.Action
	bestScore := 0
	for _, t := range visible {
		lineChecked, hasLine := false, false
		for _, w := range items {
			r := w.Rule()
			if r.BattleType != battle.ItemFirearm || !w.HasAmmo() {
				continue
			}
			if r.MaxRange > 0 && u.Pos().Distance(t.Pos) > r.MaxRange {
				continue
			}
			for _, mode := range []battle.ActionType{battle.ActionAimedShot, battle.ActionAutoShot, battle.ActionSnapShot} {
				a := battle.NewAction(mode, u, w, t.Pos)
				if a.Cost.IsZero() || u.CanSpend(a.Cost) != nil {
					continue
				}
				score := te.FiringAccuracy(u, mode, w, t.Pos) * min(a.Shots, max(1, w.AmmoLeft()))
				if score <= bestScore {
					continue
				}
				if !lineChecked {
					_, _, err := te.ResolveLineOfFire(u, t.Pos)
					lineChecked, hasLine = true, err == nil
				}
				if !hasLine {
					break
				}
				best, bestScore = a, score
			}
		}
	}
	return best, bestScore > 0
}

// planThrow returns the next step of a grenade attack (prime, then throw)
// and how many visible threats the blast would catch.
func (m *Module) planThrow(te *battle.TileEngine, u *battle.Unit, items []*battle.Item, visible []ThreatFact) (battle.Action, int, bool) {
	var grenade *battle.Item
	for _, it := range items {
		if r := it.Rule(); r.BattleType == battle.ItemGrenade && r.Damage != battle.DamageSmoke {
			grenade = it
			break
		}
	}
	if grenade == nil {
		return battle.Action{}, 0, false
	}
	throw := battle.NewAction(battle.ActionThrow, u, grenade, battle.InvalidPosition)
	need := throw.Cost
	if !grenade.IsPrimed() {
		need.TU += battle.NewAction(battle.ActionPrime, u, grenade, u.Pos()).Cost.TU
	}
	if u.CanSpend(need) != nil {
		return battle.Action{}, 0, false
	}

	radius := grenade.Rule().Power / 20
	origin := te.SightOriginVoxel(u)
	bestCount := 0
	var target battle.Position
	for _, t := range visible {
		d := u.Pos().Distance(t.Pos)
		if d > battle.ThrowRange(u) || d < grenadeSafeDistance {
			continue
		}
		if _, ok := te.ValidateThrow(origin, t.Pos.VoxelCenter().Add(battle.Pos(0, 0, 2)), u.ID()); !ok {
			continue
		}
		n := 0
		for _, o := range visible {
			if o.Pos.Z == t.Pos.Z && o.Pos.Distance(t.Pos) <= radius {
				n++
			}
		}
		if n > bestCount {
			bestCount, target = n, t.Pos
		}
	}
	if bestCount == 0 {
		return battle.Action{}, 0, false
	}
	if !grenade.IsPrimed() {
		a := battle.NewAction(battle.ActionPrime, u, grenade, target)
		a.Fuse = 0
		return a, bestCount, true
	}
	return battle.NewAction(battle.ActionThrow, u, grenade, target), bestCount, true
}

func (m *Module) act(te *battle.TileEngine, u *battle.Unit, goal Goal, p assessment) (battle.Action, bool) {
	switch goal {
	case GoalMelee:
		return p.melee, true
	case GoalEngage:
		return p.shot, true
	case GoalGrenade:
		return p.throw, true
	case GoalHold:
		return battle.Action{Type: battle.ActionNone, Actor: u.ID()}, true
	}

	reach := m.reacher.Reachable(u, u.TU()-m.reserve(te, u))
	delete(reach, u.Pos())
	tiles := sortedTiles(reach)
	if len(tiles) == 0 {
		return battle.Action{}, false
	}

	var dest battle.Position
	switch goal {
	case GoalMoveToContact:
		t, ok := m.bb.ClosestThreat(u.Pos(), false)
		if !ok {
			return battle.Action{}, false
		}
		dest = closestTo(tiles, reach, t.Pos)
	case GoalAdvance:
		dest = closestTo(tiles, reach, m.objective)
	case GoalTakeCover:
		var ok bool
		if dest, ok = m.coverTile(te, u, tiles, reach); !ok {
			return battle.Action{}, false
		}
	case GoalPatrol:
		dest = tiles[te.RNG().Intn(len(tiles))]
	default:
		return battle.Action{}, false
	}
	return battle.NewAction(battle.ActionWalk, u, nil, dest), true
}

// reserve is the TU kept back after moving: the cheapest shot the unit can fire.
func (m *Module) reserve(te *battle.TileEngine, u *battle.Unit) int {
	cheapest := 0
	for _, w := range te.Battlefield().UnitItems(u) {
		if w.Rule().BattleType != battle.ItemFirearm || !w.HasAmmo() {
			continue
		}
		for _, mode := range []battle.ActionType{battle.ActionSnapShot, battle.ActionAutoShot, battle.ActionAimedShot} {
			c := battle.NewAction(mode, u, w, u.Pos()).Cost.TU
			if c > 0 && (cheapest == 0 || c < cheapest) {
				cheapest = c
			}
		}
	}
	return cheapest
}

func sortedTiles(reach map[battle.Position]int) []battle.Position {
	tiles := make([]battle.Position, 0, len(reach))
	for p := range reach {
		tiles = append(tiles, p)
	}
	slices.SortFunc(tiles, func(a, b battle.Position) int {
		if a.Z != b.Z {
			return a.Z - b.Z
		}
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return tiles
}

// closestTo returns the tile nearest to goal, the cheaper one on ties.
func closestTo(tiles []battle.Position, cost map[battle.Position]int, goal battle.Position) battle.Position {
	best := tiles[0]
	for _, p := range tiles[1:] {
		d, bd := p.DistanceSq(goal, true), best.DistanceSq(goal, true)
		if d < bd || (d == bd && cost[p] < cost[best]) {
			best = p
		}
	}
	return best
}

// coverTile picks the reachable tile hidden from the most visible threats,
// then the one furthest from the nearest of them. It fails when no tile
// beats standing still.
func (m *Module) coverTile(te *battle.TileEngine, u *battle.Unit, tiles []battle.Position, cost map[battle.Position]int) (battle.Position, bool) {
	bf := te.Battlefield()
	var observers []*battle.Unit
	for _, t := range m.bb.Threats {
		if o := bf.Unit(t.Unit); t.Visible && o != nil {
			observers = append(observers, o)
		}
	}
	score := func(p battle.Position) int {
		s, nearest := 0, -1
		for _, o := range observers {
			if !te.IsTileInLOS(o, p) {
				s += 1000
			}
			if d := p.DistanceSq(o.Pos(), false); nearest < 0 || d < nearest {
				nearest = d
			}
		}
		return s + max(nearest, 0)
	}

	best, bestScore := u.Pos(), score(u.Pos())
	found := false
	for _, p := range tiles {
		s := score(p)
		if s > bestScore || (found && s == bestScore && cost[p] < cost[best]) {
			best, bestScore, found = p, s, true
		}
	}
	return best, found
}
