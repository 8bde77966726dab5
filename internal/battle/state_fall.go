package battle

// fallState drops a unit one level per tick until it lands on a floor.
type fallState struct {
	g        *Game
	unit     UnitID
	levels   int
	tracking bool
}

func newFallState(g *Game, id UnitID) *fallState {
	return &fallState{g: g, unit: id}
}

func (s *fallState) Name() string    { return "fall" }
func (s *fallState) Action() *Action { return nil }
func (s *fallState) Cancel()         {}

func (s *fallState) Init() {
	u := s.g.bf.Unit(s.unit)
	if u == nil {
		s.g.popState(s)
		return
	}
	if s.g.bf.movingUnit == NoUnit {
		s.g.bf.SetMovingUnit(u.id)
		s.tracking = true
	}
}

func (s *fallState) Think() {
	u := s.g.bf.Unit(s.unit)
	bf := s.g.bf
	if u.pos.Z > 0 && !u.IsOut() {
		supported := false
		for _, p := range u.OccupiedTiles() {
			if !bf.Tile(p).HasNoFloor(bf.TileBelow(p)) {
				supported = true
				break
			}
		}
		if !supported {
			if err := bf.MoveUnit(u, u.pos.Add(Pos(0, 0, -1))); err == nil {
				s.levels++
				return
			}
		}
	}
	te := s.g.te
	if s.levels > 0 {
		te.log.Addf(u, CatState, "landed", float64(s.levels), "fell %d levels to %v", s.levels, u.pos)
		te.CalculateLighting(LayerUnits, u.pos, s.levels+1, false)
		te.CalculateFOV(u.pos, s.levels+1, false)
		if !u.IsOut() {
			te.CalculateTilesInFOV(u, InvalidPosition, 0)
			te.CalculateUnitsInFOV(u, InvalidPosition, 0)
		}
	}
	s.g.popState(s)
}

func (s *fallState) Deinit() {
	if s.tracking {
		s.g.bf.ClearMovingUnit(s.unit)
		s.tracking = false
	}
}
