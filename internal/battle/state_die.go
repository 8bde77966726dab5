package battle

// unitDieState collapses a unit that crossed its death or knockout
// threshold: it drops what it carries, leaves a body item, frees its tiles
// and triggers the rule's death explosion or spawn.
type unitDieState struct {
	g      *Game
	unit   UnitID
	status UnitStatus
	killer UnitID
}

func newUnitDieState(g *Game, id UnitID, status UnitStatus, killer UnitID) *unitDieState {
	return &unitDieState{g: g, unit: id, status: status, killer: killer}
}

func (s *unitDieState) Name() string    { return "die" }
func (s *unitDieState) Action() *Action { return nil }
func (s *unitDieState) Cancel()         {}

func (s *unitDieState) Init() {
	u := s.g.bf.Unit(s.unit)
	if !u.IsOut() {
		u.status = StatusCollapsing
	}
}

func (s *unitDieState) Think() {
	bf := s.g.bf
	te := s.g.te
	u := bf.Unit(s.unit)
	if u.status == StatusDead {
		// already resolved by an earlier transition
		s.g.popState(s)
		return
	}
	wasDown := u.status == StatusUnconscious
	u.status = s.status
	u.kneeled = false
	u.fireTurns = 0
	pos := u.pos
	if !wasDown {
		for _, it := range bf.UnitItems(u) {
			_ = bf.DropItem(it, pos)
		}
		if body, err := bf.NewItem("corpse"); err == nil {
			_ = bf.DropItem(body, pos)
		}
		bf.vacate(u)
		u.visibleUnits = u.visibleUnits[:0]
	}
	if bf.selectedUnit == u.id {
		bf.selectedUnit = NoUnit
	}
	te.log.Addf(u, CatCasualty, s.status.String(), float64(u.health), "at %v", pos)

	if u.armor != nil && u.armor.PersonalLight > 0 {
		te.CalculateLighting(LayerUnits, pos, 2, false)
	}
	te.CalculateFOV(pos, 1, false)

	if s.status == StatusDead {
		if r := u.rule; r.DeathExplosionPower > 0 {
			credit := u.deathExplosionCredit
			if credit == NoUnit {
				credit = s.killer
			}
			center := pos.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
			s.g.statePushNext(newExplosionState(s.g, center, r.DeathExplosionPower, r.DeathExplosionType, 0, credit))
		}
		if name := u.rule.SpawnOnDeath; name != "" {
			s.g.spawnUnit(name, u.faction, pos, u.dir)
		}
	}
	s.g.popState(s)
}

func (s *unitDieState) Deinit() {}

