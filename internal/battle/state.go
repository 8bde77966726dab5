package battle

import (
	"github.com/gammazero/deque"
	"go.opentelemetry.io/otel/attribute"
)

// BattleState is one in-progress sub-action of the battle: a walk, a shot, an
// explosion, a death. States live in the Game's queue and the front state is
// thought once per tick until it pops itself.
type BattleState interface {
	// Init runs the first time the state reaches the front of the queue.
	Init()
	Think()
	// Deinit runs when the state is popped.
	Deinit()
	// Cancel asks the state to stop early. Not every state can.
	Cancel()
	// Action returns the action the state carries out, or nil.
	Action() *Action
	Name() string
}

// stateEntry is one queue slot. A nil state marks the end of the turn.
type stateEntry struct {
	state       BattleState
	tuBefore    int
	initialized bool
}

type stateQueue struct {
	q deque.Deque[*stateEntry]
}

func (g *Game) newEntry(s BattleState) *stateEntry {
	e := &stateEntry{state: s, tuBefore: -1}
	if s == nil {
		return e
	}
	if a := s.Action(); a != nil {
		if u := g.bf.Unit(a.Actor); u != nil {
			e.tuBefore = u.tu
		}
	}
	g.log.Add(nil, CatState, "push", s.Name(), float64(g.states.q.Len()))
	return e
}

// statePushFront runs s before everything else, current front included.
func (g *Game) statePushFront(s BattleState) {
	g.states.q.PushFront(g.newEntry(s))
}

// statePushNext runs s right after the current front state.
func (g *Game) statePushNext(s BattleState) {
	if g.states.q.Len() == 0 {
		g.states.q.PushFront(g.newEntry(s))
		return
	}
	g.states.q.Insert(1, g.newEntry(s))
}

// statePushBack runs s once the rest of the queue has drained.
func (g *Game) statePushBack(s BattleState) {
	g.states.q.PushBack(g.newEntry(s))
}

// pushEndTurnMarker queues the end-of-turn marker unless one is already queued.
func (g *Game) pushEndTurnMarker() {
	for i := 0; i < g.states.q.Len(); i++ {
		if g.states.q.At(i).state == nil {
			return
		}
	}
	g.states.q.PushBack(g.newEntry(nil))
}

// Busy reports whether any state is queued.
func (g *Game) Busy() bool { return g.states.q.Len() > 0 }

// QueuedStates returns the names of the queued states, front first.
// The end-of-turn marker is reported as "end_turn".
func (g *Game) QueuedStates() []string {
	out := make([]string, 0, g.states.q.Len())
	for i := 0; i < g.states.q.Len(); i++ {
		if s := g.states.q.At(i).state; s != nil {
			out = append(out, s.Name())
		} else {
			out = append(out, "end_turn")
		}
	}
	return out
}

// thinkFront advances the front state by one tick.
func (g *Game) thinkFront() {
	front := g.states.q.Front()
	if front.state == nil {
		g.states.q.PopFront()
		for g.states.q.Len() > 0 && g.states.q.Front().state == nil {
			g.states.q.PopFront()
		}
		if g.states.q.Len() > 0 {
			// states queued behind the marker run before the turn ends
			g.states.q.PushBack(g.newEntry(nil))
			return
		}
		g.endTurn()
		return
	}
	if !front.initialized {
		front.initialized = true
		front.state.Init()
		// Init may have popped the state or queued a prerequisite in front of it.
		if g.states.q.Len() == 0 || g.states.q.Front() != front {
			return
		}
	}
	front.state.Think()
}

// popState removes s, which must be the front state, and runs the
// completion bookkeeping of its action: a unit whose action spent no time
// units wants to end its turn, and an AI side hands over to its next unit
// once the current one is out.
func (g *Game) popState(s BattleState) {
	if g.states.q.Len() == 0 || g.states.q.Front().state != s {
		panic(invariantf("popping %s which is not the front state", s.Name()))
	}
	entry := g.states.q.PopFront()
	s.Deinit()
	g.te.metrics.add(g.te.metrics.statesProcessed, 1, attribute.String("state", s.Name()))
	g.log.Add(nil, CatState, "pop", s.Name(), float64(g.states.q.Len()))

	if a := s.Action(); a != nil && a.Actor != NoUnit && !a.Reaction {
		if actor := g.bf.Unit(a.Actor); actor != nil {
			if entry.tuBefore >= 0 && actor.tu == entry.tuBefore {
				actor.wantToEndTurn = true
			}
			if a.Result != "" {
				g.lastMessage = a.Result
				g.log.Add(actor, CatAction, "failed", a.Result, 0)
			}
			if g.aiDriven(actor) && actor.IsOut() && g.noActionsPending(actor.id) {
				// hand over to the next unit on the following AI tick
				g.aiActionCounter = g.opts.AIActionsPerUnit
			}
		}
	}

	if sel := g.bf.Unit(g.bf.selectedUnit); sel != nil && sel.IsOut() {
		g.bf.selectedUnit = NoUnit
	}
	if g.states.q.Len() == 0 {
		g.checkEndOfBattle(false)
	}
}

// noActionsPending reports whether no queued state acts for unit id.
func (g *Game) noActionsPending(id UnitID) bool {
	for i := 0; i < g.states.q.Len(); i++ {
		s := g.states.q.At(i).state
		if s == nil {
			continue
		}
		if a := s.Action(); a != nil && a.Actor == id {
			return false
		}
	}
	return true
}
