package battle

import "math"

// ExplosionRadius resolves an item's blast radius; -1 derives it from power.
func (rs *Ruleset) ExplosionRadius(r *ItemRule) int {
	if r.ExplosionRadius >= 0 {
		return r.ExplosionRadius
	}
	return rs.DamageType(r.Damage).Radius(r.Power)
}

// projectileState flies a bullet or a thrown item along its trajectory,
// ProjectileSpeed voxels per tick, and resolves the impact. Auto shots fire
// their remaining rounds one after the other. Skipping jumps straight to the
// impact; a flight cannot be aborted.
type projectileState struct {
	g      *Game
	action Action

	started    bool
	trajectory []Position
	step       int
	origin     Position
	impact     Position
	hit        VoxelType
	shotsLeft  int
	skip       bool
	impacted   bool
	thrown     *Item
	rule       *ItemRule
}

func newProjectileState(g *Game, a Action) *projectileState {
	return &projectileState{g: g, action: a}
}

func (s *projectileState) Name() string {
	if s.action.Type == ActionThrow {
		return "throw"
	}
	return "projectile"
}

func (s *projectileState) Action() *Action { return &s.action }
func (s *projectileState) Cancel()         { s.skip = true }

func (s *projectileState) Init() {
	u := s.g.bf.Unit(s.action.Actor)
	if u == nil || u.IsOut() {
		s.g.popState(s)
		return
	}
	weapon := s.g.bf.Item(s.action.Weapon)
	if weapon == nil || weapon.destroyed {
		s.action.Result = ErrNoWeapon.Reason
		s.g.popState(s)
		return
	}
	s.rule = weapon.rule
	if d := DirectionTo(u.pos, s.action.Target); d != DirNone && d != u.dir && !s.action.Reaction {
		s.g.statePushFront(newTurnState(s.g, s.action, true))
	}
}

func (s *projectileState) Think() {
	if !s.started {
		s.started = true
		if !s.start() {
			s.g.popState(s)
		}
		return
	}
	if s.impacted {
		s.impacted = false
		s.afterImpact()
		return
	}
	speed := s.g.opts.ProjectileSpeed
	if speed <= 0 {
		speed = 1
	}
	s.step += speed
	if s.skip {
		s.step = len(s.trajectory)
	}
	if s.step < len(s.trajectory) {
		return
	}
	if s.action.Type == ActionThrow {
		s.land()
		s.done()
		return
	}
	s.resolveShot()
	if s.g.states.q.Front().state != s {
		// an explosion resolves before the next round
		s.impacted = true
		return
	}
	s.afterImpact()
}

// afterImpact fires the next round of an auto shot or finishes the attack.
func (s *projectileState) afterImpact() {
	s.shotsLeft--
	u := s.g.bf.Unit(s.action.Actor)
	if s.shotsLeft > 0 && !u.IsOut() && s.prepareShot(u) {
		return
	}
	s.done()
}

// start pays for the attack and computes the first trajectory.
func (s *projectileState) start() bool {
	u := s.g.bf.Unit(s.action.Actor)
	weapon := s.g.bf.Item(s.action.Weapon)
	if u.IsOut() || weapon == nil || weapon.destroyed {
		return false
	}
	if d := DirectionTo(u.pos, s.action.Target); d != DirNone && d != u.dir && !s.action.Reaction {
		s.action.Result = ErrNotEnoughTimeUnits.Reason
		return false
	}
	if s.action.Type.IsShot() && !weapon.HasAmmo() {
		s.action.Result = ErrNoAmmo.Reason
		return false
	}
	if !s.action.Reaction {
		if err := s.action.Spend(u); err != nil {
			return false
		}
	}
	if s.action.Type == ActionThrow {
		return s.prepareThrow(u, weapon)
	}
	s.shotsLeft = s.action.Shots
	return s.prepareShot(u)
}

// prepareShot spends a round and traces the next shot. Line of fire is
// resolved once per action; later rounds of an auto shot reuse it.
func (s *projectileState) prepareShot(u *Unit) bool {
	te := s.g.te
	weapon := s.g.bf.Item(s.action.Weapon)
	if weapon == nil || !weapon.spendAmmo() {
		s.action.Result = ErrNoAmmo.Reason
		return false
	}
	if !s.action.Origin.IsValid() || !s.action.TargetVoxel.IsValid() {
		origin, voxel, err := te.ResolveLineOfFire(u, s.action.Target)
		if err != nil {
			if ae, ok := err.(*ActionError); ok {
				s.action.Result = ae.Reason
			}
			te.log.Addf(u, CatShot, "no_line_of_fire", 0, "%s at %v", s.action.Type, s.action.Target)
			return false
		}
		s.action.Origin, s.action.TargetVoxel = origin, voxel
	}
	acc := te.FiringAccuracy(u, s.action.Type, weapon, s.action.Target)
	aim := te.applyAccuracy(s.action.Origin, s.action.TargetVoxel, acc)
	line := te.CalculateLineVoxel(s.action.Origin, aim, true, u.id, NoUnit)
	s.origin = s.action.Origin
	s.trajectory = line.Trajectory
	s.impact = line.Impact
	s.hit = line.Hit
	s.step = 0
	te.log.Addf(u, CatShot, s.action.Type.String(), float64(acc), "%s at %v acc=%d", weapon.rule.Name, s.action.Target, acc)
	return true
}

// resolveShot applies the impact of the current round.
func (s *projectileState) resolveShot() {
	te := s.g.te
	u := s.g.bf.Unit(s.action.Actor)
	if s.hit == VoxelEmpty || s.hit == VoxelOutOfBounds {
		te.log.Addf(u, CatShot, "missed", 0, "left the map")
		return
	}
	if s.rule.IsExplosive() {
		center := s.impact
		if n := len(s.trajectory); n >= 2 {
			// burst just in front of whatever was struck
			center = s.trajectory[n-2]
		}
		s.g.statePushFront(newExplosionState(s.g, center, s.rule.Power, s.rule.Damage,
			s.g.bf.rules.ExplosionRadius(s.rule), u.id))
		return
	}
	te.Hit(s.impact, s.rule.Power, s.rule.Damage, u, s.origin)
	s.g.checkForCasualties(u)
}

// prepareThrow takes the item out of the thrower's hands and traces its arc.
func (s *projectileState) prepareThrow(u *Unit, it *Item) bool {
	te := s.g.te
	origin := te.SightOriginVoxel(u)
	target := s.action.Target.VoxelCenter().Add(Pos(0, 0, 2))
	curvature, ok := te.ValidateThrow(origin, target, u.id)
	if !ok {
		s.action.Result = ErrNoTrajectory.Reason
		return false
	}
	acc := te.FiringAccuracy(u, ActionThrow, it, s.action.Target)
	delta := Position{}
	if te.rng.Intn(100) >= acc {
		spread := (100-acc)/20 + 1
		delta = Pos(te.rng.Intn(2*spread+1)-spread, 0, te.rng.Intn(2*spread+1)-spread)
	}
	res := te.CalculateParabolaVoxel(origin, target, true, u.id, curvature, delta)
	s.g.bf.detachItem(it)
	it.previousOwner = u.id
	s.thrown = it
	s.origin = origin
	s.trajectory = res.Trajectory
	s.impact = res.Impact
	s.hit = res.Hit
	s.step = 0
	te.log.Addf(u, CatShot, "throw", float64(acc), "%s at %v", it.rule.Name, s.action.Target)
	return true
}

// land drops the thrown item on the tile in front of whatever it struck.
func (s *projectileState) land() {
	te := s.g.te
	bf := s.g.bf
	p := s.impact
	if s.hit != VoxelEmpty && s.hit != VoxelFloor && len(s.trajectory) >= 2 {
		p = s.trajectory[len(s.trajectory)-2]
	}
	tile := p.ToTile()
	if !bf.InBounds(tile) {
		tile = s.action.Target
	}
	for tile.Z > 0 && bf.Tile(tile).HasNoFloor(bf.TileBelow(tile)) {
		tile = tile.Add(Pos(0, 0, -1))
	}
	_ = bf.DropItem(s.thrown, tile)
	te.log.Addf(bf.Unit(s.action.Actor), CatShot, "landed", math.Sqrt(float64(tile.DistanceSq(s.action.Target, true))),
		"%s at %v", s.thrown.rule.Name, tile)
	if g := s.thrown.Glow(); g > 0 {
		te.CalculateLighting(LayerItems, tile, g, false)
		te.CalculateFOV(tile, g, false)
	}
}

// done lets the shooter's enemies react and pops the state.
func (s *projectileState) done() {
	u := s.g.bf.Unit(s.action.Actor)
	if !s.action.Reaction && u != nil && !u.IsOut() {
		s.g.te.CheckReactionFire(u, s.g.queueReaction)
	}
	s.g.popState(s)
}

func (s *projectileState) Deinit() {}
