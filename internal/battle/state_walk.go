package battle

// walkState moves a unit along a computed path one tile per tick. Every step
// pays turning and movement costs, refreshes light and vision around the
// unit and gives spotters a chance to react. Reaction fire, a newly spotted
// enemy, a blocked step or running out of time units ends the walk.
type walkState struct {
	g         *Game
	action    Action
	path      Path
	next      int
	cancelled bool
	tracking  bool
}

func newWalkState(g *Game, a Action, path Path) *walkState {
	return &walkState{g: g, action: a, path: path}
}

func (s *walkState) Name() string    { return "walk" }
func (s *walkState) Action() *Action { return &s.action }
func (s *walkState) Cancel()         { s.cancelled = true }

func (s *walkState) Init() {
	u := s.g.bf.Unit(s.action.Actor)
	if u == nil || u.IsOut() || len(s.path.Steps) == 0 {
		s.g.popState(s)
		return
	}
	if s.g.bf.movingUnit == NoUnit {
		s.g.bf.SetMovingUnit(u.id)
		s.tracking = true
	}
	u.status = StatusWalking
	if u.kneeled {
		u.kneeled = false
	}
}

func (s *walkState) Think() {
	u := s.g.bf.Unit(s.action.Actor)
	if s.cancelled || u.IsOut() || s.next >= len(s.path.Steps) {
		s.finish(u)
		return
	}
	to := s.path.Steps[s.next]
	d := VectorToDirection(to.Sub(u.pos))
	if to.Z != u.pos.Z && to.X == u.pos.X && to.Y == u.pos.Y {
		d = u.dir
	}
	if d == DirNone {
		s.finish(u)
		return
	}

	turnCost := 0
	if d != u.dir {
		delta := (int(d) - int(u.dir) + 8) % 8
		if delta > 4 {
			delta = 8 - delta
		}
		turnCost = delta
	}
	cost := MoveImpassable
	if to.Z == u.pos.Z {
		cost = s.g.bf.StepCost(u, u.pos, d)
	} else if s.g.bf.canPlace(to, u.Size(), u.id) {
		// vertical moves are only planned by flyers and on stairs
		cost = 8
	}
	if cost == MoveImpassable {
		s.action.Result = ErrNoPath.Reason
		s.finish(u)
		return
	}
	if s.action.Run {
		cost = cost * 3 / 4
	}
	energy := cost / 2
	if s.action.Run {
		energy = cost
	}
	if u.tu < cost+turnCost || u.energy < energy {
		if u.tu < cost+turnCost {
			s.action.Result = ErrNotEnoughTimeUnits.Reason
		} else {
			s.action.Result = ErrNotEnoughEnergy.Reason
		}
		s.finish(u)
		return
	}
	if err := s.g.bf.MoveUnit(u, to); err != nil {
		s.action.Result = ErrNoPath.Reason
		s.finish(u)
		return
	}
	u.tu -= cost + turnCost
	u.energy -= energy
	u.dir, u.turretDir = d, d
	s.next++

	te := s.g.te
	if te.unitLightPower(u) > 0 {
		te.CalculateLighting(LayerUnits, u.pos, 2, false)
	}
	te.CalculateFOV(u.pos, 1, false)
	te.CalculateTilesInFOV(u, InvalidPosition, 0)
	spotted := te.CalculateUnitsInFOV(u, InvalidPosition, 0)

	if t := s.g.bf.Tile(u.pos); t != nil && t.HasNoFloor(s.g.bf.TileBelow(u.pos)) && u.FloatHeight() == 0 && u.pos.Z > 0 {
		s.g.statePushNext(newFallState(s.g, u.id))
		s.finish(u)
		return
	}
	if te.CheckReactionFire(u, s.g.queueReaction) {
		s.finish(u)
		return
	}
	if spotted {
		s.finish(u)
	}
}

func (s *walkState) finish(u *Unit) {
	if u != nil && u.status == StatusWalking {
		u.status = StatusStanding
	}
	s.g.popState(s)
}

func (s *walkState) Deinit() {
	if s.tracking {
		s.g.bf.ClearMovingUnit(s.action.Actor)
		s.tracking = false
	}
}
