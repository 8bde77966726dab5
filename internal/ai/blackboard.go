package ai

import (
	"github.com/Garsondee/battlecore/internal/battle"
)

// --- Goal System ---

// Goal identifies what a unit is trying to achieve with its next action.
type Goal int

const (
	GoalHold          Goal = iota // end the turn, keep TU for reaction fire
	GoalPatrol                    // no contact: wander
	GoalAdvance                   // no contact: close on the objective
	GoalMoveToContact             // remembered contact out of sight: close distance
	GoalEngage                    // visible enemy in range: shoot
	GoalGrenade                   // visible enemy in throwing range: prime and throw
	GoalMelee                     // adjacent enemy: strike
	GoalTakeCover                 // hurt or outgunned: break contact
)

func (g Goal) String() string {
	switch g {
	case GoalHold:
		return "hold"
	case GoalPatrol:
		return "patrol"
	case GoalAdvance:
		return "advance"
	case GoalMoveToContact:
		return "move_to_contact"
	case GoalEngage:
		return "engage"
	case GoalGrenade:
		return "grenade"
	case GoalMelee:
		return "melee"
	case GoalTakeCover:
		return "take_cover"
	default:
		return "unknown"
	}
}

// --- Threat Facts ---

// ThreatFact is a single remembered enemy contact on the blackboard.
type ThreatFact struct {
	Unit       battle.UnitID
	Pos        battle.Position // last known position
	Confidence float64         // 0-1, decays every turn out of sight
	LastTurn   int             // turn when last observed
	Visible    bool            // seen on the latest update
}

// threatDecayPerTurn is the confidence lost per turn a contact stays unseen.
const threatDecayPerTurn = 0.25

// --- Blackboard ---

// Blackboard is a unit's working memory between decisions.
type Blackboard struct {
	Threats []ThreatFact
	Goal    Goal
	// Alerts holds units reported as newly spotted since the last update.
	Alerts []battle.UnitID
}

// UpdateThreats refreshes the blackboard from the current contacts. Contacts
// still visible are refreshed, new ones are added, and the rest lose
// confidence until they are forgotten.
func (bb *Blackboard) UpdateThreats(contacts []*battle.Unit, turn int) {
	for i := range bb.Threats {
		bb.Threats[i].Visible = false
	}

	for _, c := range contacts {
		found := false
		for i := range bb.Threats {
			if bb.Threats[i].Unit != c.ID() {
				continue
			}
			bb.Threats[i].Pos = c.Pos()
			bb.Threats[i].Confidence = 1.0
			bb.Threats[i].LastTurn = turn
			bb.Threats[i].Visible = true
			found = true
			break
		}
		if !found {
			bb.Threats = append(bb.Threats, ThreatFact{
				Unit:       c.ID(),
				Pos:        c.Pos(),
				Confidence: 1.0,
				LastTurn:   turn,
				Visible:    true,
			})
		}
	}

	kept := bb.Threats[:0]
	for _, t := range bb.Threats {
		if !t.Visible {
			t.Confidence = 1.0 - float64(turn-t.LastTurn)*threatDecayPerTurn
		}
		if t.Confidence > 0.01 {
			kept = append(kept, t)
		}
	}
	bb.Threats = kept
}

// NoteSighting records a contact another unit of the side has in sight. A
// known contact this unit cannot see moves to its current position; an
// unknown one is added as not visible.
func (bb *Blackboard) NoteSighting(c *battle.Unit, turn int) {
	for i := range bb.Threats {
		t := &bb.Threats[i]
		if t.Unit != c.ID() {
			continue
		}
		if !t.Visible {
			t.Pos = c.Pos()
			t.Confidence = 1.0
			t.LastTurn = turn
		}
		return
	}
	bb.Threats = append(bb.Threats, ThreatFact{
		Unit:       c.ID(),
		Pos:        c.Pos(),
		Confidence: 1.0,
		LastTurn:   turn,
	})
}

// Forget drops a contact, e.g. once it is known to be out of the fight.
func (bb *Blackboard) Forget(id battle.UnitID) {
	kept := bb.Threats[:0]
	for _, t := range bb.Threats {
		if t.Unit != id {
			kept = append(kept, t)
		}
	}
	bb.Threats = kept
}

// VisibleThreatCount returns how many threats are currently visible.
func (bb *Blackboard) VisibleThreatCount() int {
	n := 0
	for _, t := range bb.Threats {
		if t.Visible {
			n++
		}
	}
	return n
}

// ClosestThreat returns the remembered threat nearest to from. With
// visibleOnly set, contacts out of sight are skipped.
func (bb *Blackboard) ClosestThreat(from battle.Position, visibleOnly bool) (ThreatFact, bool) {
	var best ThreatFact
	bestDist := -1
	for _, t := range bb.Threats {
		if visibleOnly && !t.Visible {
			continue
		}
		d := from.DistanceSq(t.Pos, true)
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist >= 0
}

// --- Goal Utility Scoring ---

// Situation summarises what a unit can do right now.
type Situation struct {
	HealthFrac float64 // health / max health
	MoraleFrac float64 // morale / 100
	TUFrac     float64 // TU left / base TU
	Aggression float64 // 0-1, from bravery

	CanShoot       bool // a loaded firearm, an affordable mode and a visible target in range
	CanThrow       bool // a grenade, TU to prime and throw, and a visible target in range
	CanMelee       bool // a melee weapon, TU to strike, and an adjacent enemy
	HasObjective   bool
	ThreatsInRange int // visible threats within grenade blast of the chosen one
}

// fear combines low morale and wounds into a 0-1 reluctance to fight.
func (s Situation) fear() float64 {
	f := (1-s.MoraleFrac)*0.7 + (1-s.HealthFrac)*0.3
	return max(0, min(1, f))
}

// SelectGoal evaluates competing goals and returns the highest-utility one.
func SelectGoal(bb *Blackboard, s Situation) Goal {
	visible := bb.VisibleThreatCount()
	remembered := len(bb.Threats) - visible
	fear := s.fear()

	// --- Melee: an adjacent enemy is the most pressing target.
	meleeUtil := 0.0
	if s.CanMelee {
		meleeUtil = 0.85 + s.Aggression*0.1
	}

	// --- Engage: visible enemy, controlled fire.
	engageUtil := 0.0
	if s.CanShoot {
		engageUtil = 0.75 + s.Aggression*0.2 - fear*0.5
	}

	// --- Grenade: worth the TU when it can catch more than one target,
	// or when there is nothing else to fight with.
	grenadeUtil := 0.0
	if s.CanThrow {
		grenadeUtil = 0.5 + 0.15*float64(s.ThreatsInRange-1)
		if !s.CanShoot {
			grenadeUtil += 0.3
		}
	}

	// --- TakeCover: wounded or unable to answer the fire.
	coverUtil := 0.0
	if visible > 0 {
		coverUtil = (1-s.HealthFrac)*0.8 + fear*0.4
		if !s.CanShoot && !s.CanThrow && !s.CanMelee {
			coverUtil = max(coverUtil, 0.6)
		}
	}

	// --- MoveToContact: we know where they were; close in.
	contactUtil := 0.0
	if visible == 0 && remembered > 0 {
		contactUtil = 0.55 + s.Aggression*0.1 - fear*0.3
	}

	// --- Advance / Patrol: baseline drive without contact.
	advanceUtil := 0.0
	patrolUtil := 0.0
	if visible == 0 {
		if s.HasObjective {
			advanceUtil = 0.45
		} else {
			patrolUtil = 0.3
		}
	}

	// --- Hold: keep the rest of the turn for reaction fire.
	holdUtil := 0.1
	if s.TUFrac < 0.25 {
		holdUtil = 0.6
	}

	best := GoalHold
	bestVal := holdUtil
	check := func(g Goal, u float64) {
		if u > bestVal {
			best = g
			bestVal = u
		}
	}

	check(GoalPatrol, patrolUtil)
	check(GoalAdvance, advanceUtil)
	check(GoalMoveToContact, contactUtil)
	check(GoalTakeCover, coverUtil)
	check(GoalGrenade, grenadeUtil)
	check(GoalEngage, engageUtil)
	check(GoalMelee, meleeUtil)

	return best
}
