package battle

// turnState rotates a unit one eighth per tick until it faces its target,
// paying a time unit per step and refreshing the unit's vision as it goes.
type turnState struct {
	g      *Game
	action Action
	target Direction
	// attack turns run as prerequisites of an attack and stop on failure silently
	attack bool
}

func newTurnState(g *Game, a Action, attack bool) *turnState {
	return &turnState{g: g, action: a, target: DirNone, attack: attack}
}

func (s *turnState) Name() string { return "turn" }
func (s *turnState) Cancel()      { s.target = DirNone }

// Action is nil for attack prerequisites; the attack state accounts for the unit.
func (s *turnState) Action() *Action {
	if s.attack {
		return nil
	}
	return &s.action
}

func (s *turnState) Init() {
	u := s.g.bf.Unit(s.action.Actor)
	if u == nil || u.IsOut() {
		s.g.popState(s)
		return
	}
	s.target = DirectionTo(u.pos, s.action.Target)
	if s.target == DirNone || s.target == u.dir {
		s.g.popState(s)
		return
	}
	u.status = StatusTurning
}

func (s *turnState) Think() {
	u := s.g.bf.Unit(s.action.Actor)
	if s.target == DirNone || u.dir == s.target || u.IsOut() {
		s.finish(u)
		return
	}
	if !u.SpendTU(1) {
		s.action.Result = ErrNotEnoughTimeUnits.Reason
		s.finish(u)
		return
	}
	delta := (int(s.target) - int(u.dir) + 8) % 8
	if delta <= 4 {
		u.dir = (u.dir + 1) % 8
	} else {
		u.dir = (u.dir + 7) % 8
	}
	u.turretDir = u.dir
	te := s.g.te
	te.CalculateTilesInFOV(u, InvalidPosition, 0)
	if te.CalculateUnitsInFOV(u, InvalidPosition, 0) && !s.attack && u.faction == FactionPlayer {
		// a newly spotted enemy interrupts a player turn
		s.finish(u)
	}
}

func (s *turnState) finish(u *Unit) {
	if u != nil && u.status == StatusTurning {
		u.status = StatusStanding
	}
	s.g.popState(s)
}

func (s *turnState) Deinit() {}
