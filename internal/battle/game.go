package battle

import "github.com/rs/zerolog"

// Outcome is the result of a battle once it is over.
type Outcome struct {
	Over bool
	// Winner is factionCount when the battle was aborted.
	Winner  Faction
	Aborted bool
	// Reason is "objective", "elimination" or "turn_limit".
	Reason string
	Turn   int
}

type casualtyKey struct {
	unit   UnitID
	status UnitStatus
}

// Game is the turn and action orchestrator. It owns the battle-state queue,
// validates player and AI actions before queueing them, runs the end-of-turn
// sequence and resolves casualties. It is driven by calling Think once per
// tick from a single goroutine.
type Game struct {
	bf     *Battlefield
	te     *TileEngine
	opts   Options
	deps   Dependencies
	logger zerolog.Logger
	log    *BattleLog

	states stateQueue

	endTurnRequested bool
	// latches of the end-of-turn sequence, reset when a new sequence is requested
	triggerProcessed bool
	endTurnProcessed bool

	aiActionCounter int
	aiRethinks      int

	casualties  map[casualtyKey]bool
	outcome     Outcome
	lastMessage string
}

// NewGame builds the orchestrator and its tile engine over bf.
func NewGame(bf *Battlefield, deps Dependencies) *Game {
	opts := deps.Options
	def := DefaultOptions()
	if opts.AIActionsPerUnit <= 0 {
		opts.AIActionsPerUnit = def.AIActionsPerUnit
	}
	if opts.ProjectileSpeed <= 0 {
		opts.ProjectileSpeed = def.ProjectileSpeed
	}
	for f := range opts.MoraleModifier {
		if opts.MoraleModifier[f] <= 0 {
			opts.MoraleModifier[f] = 100
		}
	}
	deps.Options = opts
	te := NewTileEngine(bf, opts, deps.RNG)
	if deps.Pathfinder == nil {
		deps.Pathfinder = directPathfinder{bf: bf}
	}
	g := &Game{
		bf:         bf,
		te:         te,
		opts:       opts,
		deps:       deps,
		logger:     opts.Logger.With().Str("component", "game").Logger(),
		log:        te.log,
		casualties: map[casualtyKey]bool{},
	}
	te.OnUnitSpotted(g.unitSpotted)
	g.selectFirstUnit()
	return g
}

// Engine returns the tile engine.
func (g *Game) Engine() *TileEngine { return g.te }

// Battlefield returns the battle context.
func (g *Game) Battlefield() *Battlefield { return g.bf }

// Log returns the battle log.
func (g *Game) Log() *BattleLog { return g.log }

// Outcome returns the battle result; Over is false while it continues.
func (g *Game) Outcome() Outcome { return g.outcome }

// LastMessage returns the message key of the last failed player action.
func (g *Game) LastMessage() string { return g.lastMessage }

// Think advances the battle by one tick: the front state thinks, or, with
// nothing queued on an AI-driven side, the selected AI unit decides.
func (g *Game) Think() {
	g.log.tick++
	if g.outcome.Over {
		return
	}
	if g.states.q.Len() > 0 {
		g.thinkFront()
		return
	}
	if g.sideAIDriven() {
		g.thinkAI()
	}
}

// PrimaryAction validates a unit action and queues the states that carry it
// out. Nothing is queued when an error is returned.
func (g *Game) PrimaryAction(a Action) error {
	if err := g.acceptInput(); err != nil {
		return err
	}
	if err := g.execute(a); err != nil {
		g.lastMessage = err.Error()
		g.log.Add(g.bf.Unit(a.Actor), CatAction, "rejected", err.Error(), 0)
		return err
	}
	g.bf.selectedUnit = a.Actor
	return nil
}

// SecondaryAction turns a unit to face target.
func (g *Game) SecondaryAction(id UnitID, target Position) error {
	if err := g.acceptInput(); err != nil {
		return err
	}
	u := g.bf.Unit(id)
	if u == nil {
		return ErrUnknownUnit
	}
	return g.PrimaryAction(NewAction(ActionTurn, u, nil, target))
}

// RequestEndTurn queues the end of the current side's turn behind whatever
// is still running.
func (g *Game) RequestEndTurn() error {
	if g.outcome.Over {
		return ErrBattleOver
	}
	g.requestEndTurn()
	return nil
}

// CancelCurrentAction asks the front state to stop. It reports whether a
// state was running.
func (g *Game) CancelCurrentAction() bool {
	if g.states.q.Len() == 0 {
		return false
	}
	front := g.states.q.Front()
	if front.state == nil {
		return false
	}
	front.state.Cancel()
	return true
}

func (g *Game) acceptInput() error {
	switch {
	case g.outcome.Over:
		return ErrBattleOver
	case g.states.q.Len() > 0 || g.endTurnRequested:
		return ErrBusy
	}
	return nil
}

func (g *Game) requestEndTurn() {
	if g.endTurnRequested {
		return
	}
	g.endTurnRequested = true
	g.triggerProcessed = false
	g.endTurnProcessed = false
	g.log.Addf(nil, CatTurn, "end_requested", float64(g.bf.turn), "%s", g.bf.side)
	g.pushEndTurnMarker()
}

// execute validates an action for its actor and queues it. Instant actions
// (priming, doors, kneeling) are applied directly.
func (g *Game) execute(a Action) error {
	bf := g.bf
	u := bf.Unit(a.Actor)
	switch {
	case u == nil:
		return ErrUnknownUnit
	case u.IsOut():
		return ErrUnitOut
	case u.faction != bf.side:
		return ErrNotYourTurn
	}
	var weapon *Item
	if a.Weapon != NoItem {
		weapon = bf.Item(a.Weapon)
		if weapon == nil || weapon.destroyed || weapon.owner != u.id {
			return ErrNoWeapon
		}
	}
	fresh := NewAction(a.Type, u, weapon, a.Target)
	fresh.Waypoints, fresh.Run, fresh.Strafe, fresh.Fuse = a.Waypoints, a.Run, a.Strafe, a.Fuse
	a = fresh

	switch a.Type {
	case ActionTurn:
		if !bf.InBounds(a.Target) {
			return ErrOutOfRange
		}
		g.statePushBack(newTurnState(g, a, false))
	case ActionWalk:
		if !bf.InBounds(a.Target) {
			return ErrOutOfRange
		}
		path, ok := g.deps.Pathfinder.Calculate(u, a.Target, a.Run)
		if !ok || len(path.Steps) == 0 {
			return ErrNoPath
		}
		g.statePushBack(newWalkState(g, a, path))
	case ActionSnapShot, ActionAimedShot, ActionAutoShot:
		if weapon == nil || a.Cost.IsZero() {
			return ErrNoWeapon
		}
		if !weapon.HasAmmo() {
			return ErrNoAmmo
		}
		if r := weapon.rule; !bf.InBounds(a.Target) || (r.MaxRange > 0 && u.pos.Distance(a.Target) > r.MaxRange) {
			return ErrOutOfRange
		}
		if err := a.Validate(u); err != nil {
			return err
		}
		g.statePushBack(newProjectileState(g, a))
	case ActionThrow:
		if weapon == nil || a.Cost.IsZero() {
			return ErrNoWeapon
		}
		if !bf.InBounds(a.Target) || u.pos.Distance(a.Target) > ThrowRange(u) {
			return ErrOutOfRange
		}
		if err := a.Validate(u); err != nil {
			return err
		}
		origin := g.te.SightOriginVoxel(u)
		if _, ok := g.te.ValidateThrow(origin, a.Target.VoxelCenter().Add(Pos(0, 0, 2)), u.id); !ok {
			return ErrNoTrajectory
		}
		g.statePushBack(newProjectileState(g, a))
	case ActionMelee:
		if weapon == nil || !weapon.rule.HasMelee() {
			return ErrNoWeapon
		}
		target := bf.UnitAt(a.Target)
		if target == nil || target.IsOut() || !g.te.adjacent(u, target) {
			return ErrOutOfRange
		}
		if err := a.Validate(u); err != nil {
			return err
		}
		g.statePushBack(newMeleeState(g, a))
	case ActionPrime:
		if weapon == nil || weapon.rule.FuseTimer < 0 {
			return ErrNoWeapon
		}
		if err := a.Spend(u); err != nil {
			return err
		}
		fuse := a.Fuse
		if fuse < 0 {
			fuse = weapon.rule.FuseTimer
		}
		weapon.Prime(fuse)
		g.log.Addf(u, CatAction, "primed", float64(fuse), "%s fuse %d", weapon.rule.Name, fuse)
	case ActionOpenDoor:
		return g.openDoor(u, a)
	case ActionKneel:
		if err := a.Spend(u); err != nil {
			return err
		}
		u.kneeled = !u.kneeled
		g.te.CalculateTilesInFOV(u, InvalidPosition, 0)
		g.te.CalculateUnitsInFOV(u, InvalidPosition, 0)
		g.log.Addf(u, CatAction, "kneel", 0, "kneeling=%t", u.kneeled)
	default:
		return ErrInvalidAction
	}
	g.log.Addf(u, CatAction, "queued", float64(a.Cost.TU), "%s at %v", a.Type, a.Target)
	return nil
}

// ThrowRange is the furthest a unit can throw, in tiles.
func ThrowRange(u *Unit) int {
	return 4 + u.stats.Strength/4
}

// openDoor toggles the door in the wall the unit faces.
func (g *Game) openDoor(u *Unit, a Action) error {
	d := u.dir
	var p Position
	var k PartKind
	switch d {
	case DirNorth:
		p, k = u.pos, PartNorthWall
	case DirSouth:
		p, k = u.pos.Add(d.Vector()), PartNorthWall
	case DirWest:
		p, k = u.pos, PartWestWall
	case DirEast:
		p, k = u.pos.Add(d.Vector()), PartWestWall
	default:
		return ErrNoDoor
	}
	t := g.bf.Tile(p)
	if t == nil || t.parts[k] == nil || !t.parts[k].Door {
		return ErrNoDoor
	}
	if err := a.Spend(u); err != nil {
		return err
	}
	res := t.toggleDoor(k)
	g.te.TerrainChanged(p)
	g.te.CalculateTilesInFOV(u, InvalidPosition, 0)
	g.te.CalculateUnitsInFOV(u, InvalidPosition, 0)
	key := "door_opened"
	if res == DoorClosed {
		key = "door_closed"
	}
	g.log.Addf(u, CatTerrain, key, 0, "at %v", p)
	return nil
}

// queueReaction is the reaction sink: paid reaction attacks run after the
// current queue.
func (g *Game) queueReaction(reactor *Unit, a Action) bool {
	if a.Type == ActionMelee {
		g.statePushBack(newMeleeState(g, a))
	} else {
		g.statePushBack(newProjectileState(g, a))
	}
	return true
}

func (g *Game) unitSpotted(observer, spotted *Unit) {
	if al, ok := observer.ai.(Alerter); ok {
		al.Alert(spotted.id)
	}
}

// sideAIDriven reports whether the side to move acts through AI modules.
func (g *Game) sideAIDriven() bool {
	return g.bf.side != FactionPlayer || g.deps.AutoPlay
}

func (g *Game) aiDriven(u *Unit) bool {
	return u.faction == g.bf.side && g.sideAIDriven()
}

// canAct reports whether u can still take an action this turn.
func (g *Game) canAct(u *Unit) bool {
	return u != nil && !u.IsOut() && u.faction == g.bf.side && !u.wantToEndTurn && u.tu > 0 &&
		u.status != StatusPanicking && u.status != StatusBerserk
}

// thinkAI lets the selected AI unit decide on its next action. A unit that
// has used up its actions for now, wants to end its turn, or can no longer
// act hands over to the next one; with nobody left the turn ends.
func (g *Game) thinkAI() {
	u := g.bf.Unit(g.bf.selectedUnit)
	if !g.canAct(u) || g.aiActionCounter >= g.opts.AIActionsPerUnit {
		if u != nil && g.aiActionCounter >= g.opts.AIActionsPerUnit {
			u.dontReselect = true
		}
		g.aiActionCounter = 0
		g.aiRethinks = 0
		if !g.selectNextAIUnit() {
			g.requestEndTurn()
		}
		return
	}
	if u.ai == nil {
		u.wantToEndTurn = true
		return
	}
	a := u.ai.Think(g.te, u.id)
	g.aiActionCounter++
	switch a.Type {
	case ActionRethink:
		g.rethink(u)
		return
	case ActionNone:
		u.wantToEndTurn = true
		return
	}
	a.Actor = u.id
	if err := g.execute(a); err != nil {
		g.log.Add(u, CatAction, "ai_dropped", err.Error(), 0)
		g.rethink(u)
		return
	}
	g.aiRethinks = 0
}

// rethink gives an AI unit without a usable plan one more try, then ends its turn.
func (g *Game) rethink(u *Unit) {
	g.aiRethinks++
	if g.aiRethinks > 1 {
		g.aiRethinks = 0
		u.wantToEndTurn = true
	}
}

// selectNextAIUnit selects the next unit of the side that can act,
// preferring units that have not just had their go. It reports whether one was found.
func (g *Game) selectNextAIUnit() bool {
	n := len(g.bf.units)
	if n == 0 {
		g.bf.selectedUnit = NoUnit
		return false
	}
	start := int(g.bf.selectedUnit) + 1
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			u := g.bf.units[(start+i+n)%n]
			if !g.canAct(u) || (pass == 0 && u.dontReselect) {
				continue
			}
			g.bf.selectedUnit = u.id
			return true
		}
	}
	g.bf.selectedUnit = NoUnit
	return false
}

// selectFirstUnit selects the first live unit of the side to move.
func (g *Game) selectFirstUnit() {
	g.bf.selectedUnit = NoUnit
	for _, u := range g.bf.units {
		if u.faction == g.bf.side && !u.IsOut() {
			g.bf.selectedUnit = u.id
			return
		}
	}
}

// spawnUnit creates a unit mid-battle. An occupied or invalid position
// discards the spawn.
func (g *Game) spawnUnit(rule string, f Faction, p Position, d Direction) *Unit {
	u, err := g.bf.AddUnit(rule, f, p, d)
	if err != nil {
		g.log.Addf(nil, CatCasualty, "spawn_failed", 0, "%s at %v: %v", rule, p, err)
		return nil
	}
	u.tu = 0
	if g.deps.NewAI != nil {
		u.ai = g.deps.NewAI(u.id)
	}
	g.te.CalculateTilesInFOV(u, InvalidPosition, 0)
	g.te.CalculateUnitsInFOV(u, InvalidPosition, 0)
	g.te.CalculateFOV(p, 1, false)
	g.log.Addf(u, CatCasualty, "spawned", 0, "%s at %v", rule, p)
	return u
}

// checkEndOfBattle ends the battle when a side has been eliminated and, at
// a turn boundary, when the objective is destroyed or the turn limit passed.
func (g *Game) checkEndOfBattle(turnBoundary bool) bool {
	if g.outcome.Over {
		return true
	}
	bf := g.bf
	switch {
	case turnBoundary && bf.objectiveDestroyed:
		g.finish(FactionPlayer, "objective")
	case bf.LiveUnits(FactionHostile) == 0:
		g.finish(FactionPlayer, "elimination")
	case bf.LiveUnits(FactionPlayer) == 0:
		g.finish(FactionHostile, "elimination")
	case turnBoundary && g.opts.TurnLimit > 0 && bf.turn > g.opts.TurnLimit:
		switch g.opts.TurnLimitPolicy {
		case TurnLimitWin:
			g.finish(FactionPlayer, "turn_limit")
		case TurnLimitAbort:
			g.finish(factionCount, "turn_limit")
		default:
			g.finish(FactionHostile, "turn_limit")
		}
	default:
		return false
	}
	return true
}

func (g *Game) finish(winner Faction, reason string) {
	g.outcome = Outcome{
		Over:    true,
		Winner:  winner,
		Aborted: winner == factionCount,
		Reason:  reason,
		Turn:    g.bf.turn,
	}
	g.states.q.Clear()
	g.endTurnRequested = false
	g.log.Addf(nil, CatMission, "over", float64(g.bf.turn), "winner=%s reason=%s", winner, reason)
	g.logger.Info().Str("winner", winner.String()).Str("reason", reason).Int("turn", g.bf.turn).Msg("battle over")
	if g.deps.Stats != nil {
		if err := g.deps.Stats.RecordOutcome(g.outcome); err != nil {
			g.logger.Warn().Err(err).Msg("record outcome")
		}
	}
}

// directPathfinder steps greedily towards the target. It is used when no
// Pathfinder is supplied and only finds routes without detours.
type directPathfinder struct {
	bf *Battlefield
}

func (p directPathfinder) Calculate(u *Unit, target Position, run bool) (Path, bool) {
	cur := u.pos
	var path Path
	if target.Z != cur.Z {
		return path, false
	}
	for cur != target {
		best, bestDist := DirNone, cur.DistanceSq(target, false)
		for d := DirNorth; d <= DirNorthWest; d++ {
			n := cur.Add(d.Vector())
			if dist := n.DistanceSq(target, false); dist < bestDist && p.bf.StepCost(u, cur, d) != MoveImpassable {
				best, bestDist = d, dist
			}
		}
		if best == DirNone {
			return Path{}, false
		}
		if len(path.Steps) == 0 {
			path.StartDirection = best
		}
		path.Cost += p.bf.StepCost(u, cur, best)
		cur = cur.Add(best.Vector())
		path.Steps = append(path.Steps, cur)
	}
	return path, true
}
