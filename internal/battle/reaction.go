package battle

import "go.opentelemetry.io/otel/attribute"

// maxReactionAttempts is how many times one spotter may try to react to a single action.
const maxReactionAttempts = 10

// ReactionCandidate is one unit able to interrupt the acting unit.
type ReactionCandidate struct {
	Unit      *Unit
	Score     float64
	Reduction float64
	Attempts  int
}

// ReactionSink receives reaction attacks the scheduler has paid for.
// It returns false when the attack could not be queued.
type ReactionSink func(reactor *Unit, action Action) bool

// SpottingUnits collects the units that may react to actor: hostile, not
// out, on a side that has the actor spotted, within view distance, with a
// reaction score no lower than the actor's, able to see and target it and,
// when an accuracy threshold is configured, likely enough to hit.
func (te *TileEngine) SpottingUnits(actor *Unit) []ReactionCandidate {
	var out []ReactionCandidate
	actorScore := actor.ReactionScore()
	view := te.opts.MaxViewDistance
	for _, u := range te.bf.units {
		if u.IsOut() || u.id == actor.id || !areHostile(u.faction, actor.faction) || u.faction == te.bf.side {
			continue
		}
		if u.status == StatusPanicking || u.status == StatusBerserk {
			continue
		}
		if actor.turnsSinceSpotted[u.faction] != 0 {
			continue
		}
		if u.pos.DistanceSq(actor.pos, false) > view*view {
			continue
		}
		score := u.ReactionScore()
		if score < actorScore {
			continue
		}
		if !te.Visible(u, actor.pos) {
			continue
		}
		if _, ok := te.CanTargetUnit(te.SightOriginVoxel(u), actor.pos, u, true); !ok {
			continue
		}
		action, ok := te.determineReactionType(u, actor)
		if !ok {
			continue
		}
		if t := te.opts.ReactionAccuracyThreshold; t > 0 {
			weapon := te.bf.Item(action.Weapon)
			if te.FiringAccuracy(u, action.Type, weapon, actor.pos) < t {
				continue
			}
		}
		out = append(out, ReactionCandidate{
			Unit:      u,
			Score:     score,
			Reduction: u.ReactionReduction(action.Cost.TU),
		})
	}
	return out
}

// getReactor returns the index of the candidate with the highest score
// strictly above threshold, the first found on ties, or -1.
func getReactor(candidates []ReactionCandidate, threshold float64) int {
	best := -1
	for i, c := range candidates {
		if c.Unit.IsOut() || c.Score <= threshold {
			continue
		}
		if best < 0 || c.Score > candidates[best].Score {
			best = i
		}
	}
	return best
}

// CheckReactionFire lets spotters interrupt actor one at a time, highest
// reaction score first, until nobody out-scores the actor. Every attempt
// costs the reactor its reaction reduction and a reactor is dropped after
// maxReactionAttempts, so the loop always ends. It reports whether any
// reaction was queued.
func (te *TileEngine) CheckReactionFire(actor *Unit, sink ReactionSink) bool {
	if actor == nil || actor.IsOut() || actor.faction != te.bf.side {
		return false
	}
	threshold := actor.ReactionScore()
	candidates := te.SpottingUnits(actor)
	reacted := false
	for {
		i := getReactor(candidates, threshold)
		if i < 0 {
			break
		}
		c := &candidates[i]
		if c.Unit.faction == FactionPlayer {
			c.Unit.reactionExp++
		}
		c.Attempts++
		ok := !actor.IsOut() && te.tryReaction(c.Unit, actor, sink)
		if ok {
			reacted = true
		}
		c.Score -= c.Reduction
		if c.Attempts >= maxReactionAttempts {
			candidates = append(candidates[:i], candidates[i+1:]...)
		}
		if actor.IsOut() {
			break
		}
	}
	return reacted
}

// reactionWeapons lists the reactor's usable weapons, preferred weapon first for player units.
func (te *TileEngine) reactionWeapons(u *Unit) []*Item {
	items := te.bf.UnitItems(u)
	var out []*Item
	if u.faction == FactionPlayer {
		if pw := te.bf.Item(u.preferredWeapon); pw != nil && !pw.destroyed && pw.owner == u.id {
			out = append(out, pw)
		}
	}
	for _, it := range items {
		if len(out) > 0 && it == out[0] {
			continue
		}
		out = append(out, it)
	}
	return out
}

// meleeReaction builds a melee reaction when actor is adjacent and u holds a
// weapon allowed to strike under the melee reaction setting.
func (te *TileEngine) meleeReaction(u, actor *Unit, weapons []*Item) (Action, bool) {
	if !te.adjacent(u, actor) {
		return Action{}, false
	}
	for _, w := range weapons {
		r := w.Rule()
		allowed := r.BattleType == ItemMelee || (te.opts.ExtendedMeleeReactions >= 1 && r.HasMelee())
		if !allowed {
			continue
		}
		a := NewAction(ActionMelee, u, w, actor.pos)
		a.Reaction = true
		if u.CanSpend(a.Cost) == nil {
			return a, true
		}
	}
	return Action{}, false
}

// shotReaction builds a snap shot reaction with the first weapon that has
// ammunition, range and time units for it.
func (te *TileEngine) shotReaction(u, actor *Unit, weapons []*Item) (Action, bool) {
	for _, w := range weapons {
		r := w.Rule()
		if r.BattleType != ItemFirearm || !w.HasAmmo() || r.CostSnap.IsZero() {
			continue
		}
		if r.MaxRange > 0 && u.pos.Distance(actor.pos) > r.MaxRange {
			continue
		}
		a := NewAction(ActionSnapShot, u, w, actor.pos)
		a.Reaction = true
		if u.CanSpend(a.Cost) == nil {
			return a, true
		}
	}
	return Action{}, false
}

// determineReactionType picks the reactor's weapon and attack. The order of
// the melee and line-of-fire checks follows the configured precedence;
// extended melee reactions of level 2 always try melee first.
func (te *TileEngine) determineReactionType(u, actor *Unit) (Action, bool) {
	weapons := te.reactionWeapons(u)
	meleeFirst := te.opts.ReactionPrecedence == PrecedenceCQBFirst || te.opts.ExtendedMeleeReactions >= 2
	if meleeFirst {
		if a, ok := te.meleeReaction(u, actor, weapons); ok {
			return a, true
		}
		return te.shotReaction(u, actor, weapons)
	}
	if a, ok := te.shotReaction(u, actor, weapons); ok {
		return a, true
	}
	return te.meleeReaction(u, actor, weapons)
}

// adjacent reports whether two units stand next to each other on the same level.
func (te *TileEngine) adjacent(a, b *Unit) bool {
	if a.pos.Z != b.pos.Z {
		return false
	}
	for _, pa := range a.OccupiedTiles() {
		for _, pb := range b.OccupiedTiles() {
			if absInt(pa.X-pb.X) <= 1 && absInt(pa.Y-pb.Y) <= 1 {
				return true
			}
		}
	}
	return false
}

// tryReaction revalidates the reactor's attack, lets AI units decline
// attacks that would catch themselves in the blast or that their morale
// talks them out of, pays the cost and hands the attack to sink.
func (te *TileEngine) tryReaction(u, actor *Unit, sink ReactionSink) bool {
	action, ok := te.determineReactionType(u, actor)
	if !ok {
		return false
	}
	weapon := te.bf.Item(action.Weapon)
	if action.Type.IsShot() {
		origin, voxel, err := te.ResolveLineOfFire(u, actor.pos)
		if err != nil {
			return false
		}
		action.Origin, action.TargetVoxel = origin, voxel
	}
	if u.IsAIControlled() {
		if weapon != nil && weapon.Rule().IsExplosive() {
			r := weapon.Rule()
			radius := r.ExplosionRadius
			if radius < 0 {
				radius = te.bf.rules.DamageType(r.Damage).Radius(r.Power)
			}
			if u.pos.DistanceSq(actor.pos, true) <= radius*radius {
				return false
			}
		}
		if u.morale < 50 && te.rng.Intn(100) >= u.morale*2 {
			return false
		}
	}
	if err := action.Spend(u); err != nil {
		return false
	}
	if d := DirectionTo(u.pos, actor.pos); d != DirNone {
		u.dir = d
		u.turretDir = d
	}
	if !sink(u, action) {
		return false
	}
	te.metrics.add(te.metrics.reactions, 1, attribute.String("type", action.Type.String()))
	te.log.Addf(u, CatReaction, "fired", u.ReactionScore(), "%s at U%d", action.Type, actor.id)
	return true
}
