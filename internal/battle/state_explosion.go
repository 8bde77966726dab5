package battle

// explosionState resolves one area effect, credits the casualties it causes
// and chains into explosions of any explosive terrain it destroyed.
type explosionState struct {
	g        *Game
	center   Position
	power    int
	dt       DamageType
	radius   int
	attacker UnitID
	result   ExplosionResult
}

func newExplosionState(g *Game, center Position, power int, dt DamageType, radius int, attacker UnitID) *explosionState {
	return &explosionState{g: g, center: center, power: power, dt: dt, radius: radius, attacker: attacker}
}

func (s *explosionState) Name() string    { return "explosion" }
func (s *explosionState) Action() *Action { return nil }
func (s *explosionState) Cancel()         {}

// Result returns what the explosion did once it has been resolved.
func (s *explosionState) Result() ExplosionResult { return s.result }

func (s *explosionState) Init() {
	te := s.g.te
	attacker := s.g.bf.Unit(s.attacker)
	if s.radius > 0 || s.power > 0 {
		s.result = te.Explode(s.center, s.power, s.dt, s.radius, attacker)
	}
	s.g.checkForCasualties(attacker)
	if p, power, dt, ok := te.CheckForTerrainExplosions(); ok {
		s.g.statePushNext(newExplosionState(s.g, p, power, dt, 0, s.attacker))
	}
	for _, u := range te.FallingUnits() {
		s.g.statePushBack(newFallState(s.g, u.id))
	}
}

func (s *explosionState) Think() { s.g.popState(s) }

func (s *explosionState) Deinit() {}
