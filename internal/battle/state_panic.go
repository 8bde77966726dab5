package battle

// berserkShots is how many snap shots a berserk unit may fire per turn.
const berserkShots = 3

// unitPanicState plays out a panicking or berserk unit at the start of its
// side's turn. A panicking unit drops what it holds and forfeits its time
// units; a berserk one fires snap shots at random visible enemies.
type unitPanicState struct {
	g    *Game
	unit UnitID
}

func newUnitPanicState(g *Game, id UnitID) *unitPanicState {
	return &unitPanicState{g: g, unit: id}
}

func (s *unitPanicState) Name() string    { return "panic" }
func (s *unitPanicState) Action() *Action { return nil }
func (s *unitPanicState) Cancel()         {}
func (s *unitPanicState) Init()           {}

func (s *unitPanicState) Think() {
	bf := s.g.bf
	te := s.g.te
	u := bf.Unit(s.unit)
	switch {
	case u.IsOut():
	case u.status == StatusPanicking:
		for _, id := range [2]ItemID{u.rightHand, u.leftHand} {
			if it := bf.Item(id); it != nil {
				_ = bf.DropItem(it, u.pos)
			}
		}
		u.tu = 0
		te.log.Addf(u, CatMorale, "panicked", float64(u.morale), "dropped weapons")
	case u.status == StatusBerserk:
		te.log.Addf(u, CatMorale, "berserk", float64(u.morale), "opens fire")
		s.queueBerserkShots(u)
	}
	s.g.popState(s)
}

func (s *unitPanicState) queueBerserkShots(u *Unit) {
	bf := s.g.bf
	te := s.g.te
	var weapon *Item
	for _, it := range bf.UnitItems(u) {
		if it.rule.BattleType == ItemFirearm && it.HasAmmo() {
			weapon = it
			break
		}
	}
	if weapon == nil || len(u.visibleUnits) == 0 {
		u.tu = 0
		return
	}
	tu := u.tu
	for i := 0; i < berserkShots; i++ {
		target := bf.Unit(u.visibleUnits[te.rng.Intn(len(u.visibleUnits))])
		if target == nil || target.IsOut() {
			continue
		}
		a := NewAction(ActionSnapShot, u, weapon, target.pos)
		if a.Cost.TU > tu {
			break
		}
		tu -= a.Cost.TU
		s.g.statePushBack(newProjectileState(s.g, a))
	}
}

func (s *unitPanicState) Deinit() {}
