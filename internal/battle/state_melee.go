package battle

// meleeState resolves a close-combat strike against an adjacent unit.
type meleeState struct {
	g       *Game
	action  Action
	started bool
}

func newMeleeState(g *Game, a Action) *meleeState {
	return &meleeState{g: g, action: a}
}

func (s *meleeState) Name() string    { return "melee" }
func (s *meleeState) Action() *Action { return &s.action }
func (s *meleeState) Cancel()         {}

func (s *meleeState) Init() {
	u := s.g.bf.Unit(s.action.Actor)
	if u == nil || u.IsOut() {
		s.g.popState(s)
		return
	}
	if d := DirectionTo(u.pos, s.action.Target); d != DirNone && d != u.dir && !s.action.Reaction {
		s.g.statePushFront(newTurnState(s.g, s.action, true))
	}
}

func (s *meleeState) Think() {
	bf := s.g.bf
	te := s.g.te
	u := bf.Unit(s.action.Actor)
	weapon := bf.Item(s.action.Weapon)
	target := bf.UnitAt(s.action.Target)
	switch {
	case u.IsOut():
	case weapon == nil || weapon.destroyed:
		s.action.Result = ErrNoWeapon.Reason
	case target == nil || target.IsOut() || !te.adjacent(u, target):
		s.action.Result = ErrOutOfRange.Reason
	default:
		if !s.action.Reaction {
			// a shortage is recorded in Result and ends the strike
			if err := s.action.Spend(u); err != nil {
				break
			}
		}
		s.strike(u, target, weapon)
	}
	if !s.action.Reaction && !u.IsOut() && s.action.Result == "" {
		te.CheckReactionFire(u, s.g.queueReaction)
	}
	s.g.popState(s)
}

func (s *meleeState) strike(u, target *Unit, weapon *Item) {
	te := s.g.te
	acc := te.FiringAccuracy(u, ActionMelee, weapon, target.pos)
	if te.rng.Intn(100) >= acc {
		te.log.Addf(u, CatShot, "melee_missed", float64(acc), "U%d acc=%d", target.id, acc)
		return
	}
	cx, cy := unitCenterVoxel(target)
	v := Pos(cx, cy, te.unitBaseZ(target)+target.Height()/2)
	r := weapon.rule
	power := r.Power + u.stats.Strength/4
	te.log.Addf(u, CatShot, "melee", float64(acc), "%s at U%d acc=%d", r.Name, target.id, acc)
	te.Hit(v, power, r.Damage, u, u.pos.VoxelCenter())
	s.g.checkForCasualties(u)
}

func (s *meleeState) Deinit() {}
