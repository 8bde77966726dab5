package battle

import "go.opentelemetry.io/otel/attribute"

// checkForCasualties finds units that crossed their death or knockout
// threshold, credits the kill, applies the morale fallout and queues the
// collapse. murderer is the unit whose action caused the damage, or nil
// when the cause is environmental; the victim's last attacker is credited then.
// Each victim and status is resolved once.
func (g *Game) checkForCasualties(murderer *Unit) {
	bf := g.bf
	for _, victim := range bf.units {
		if victim.status == StatusDead || !victim.IsOutThresholdExceed() {
			continue
		}
		status := victim.OutStatus()
		if status == StatusUnconscious && victim.status == StatusUnconscious {
			continue
		}
		key := casualtyKey{victim.id, status}
		if g.casualties[key] {
			continue
		}
		g.casualties[key] = true

		killer := murderer
		if killer == nil {
			killer = bf.Unit(victim.lastAttacker)
		}
		if killer != nil && killer.status == StatusDead && killer.deathExplosionCredit != NoUnit {
			// killed by the blast of a unit someone else killed
			killer = bf.Unit(killer.deathExplosionCredit)
		}

		c := Casualty{
			Turn:            bf.turn,
			Victim:          victim.id,
			VictimRule:      victim.rule.Name,
			VictimFaction:   victim.originalFaction,
			Status:          status,
			Murderer:        NoUnit,
			MurdererFaction: factionCount,
		}
		killerID := NoUnit
		if killer != nil {
			killerID = killer.id
			c.Murderer = killer.id
			c.MurdererFaction = killer.faction
			c.FriendlyFire = killer.id != victim.id && killer.faction == victim.originalFaction
		}

		if status == StatusDead {
			if victim.rule.DeathExplosionPower > 0 && killer != nil {
				victim.deathExplosionCredit = killer.id
			}
			g.applyDeathMorale(victim, killer)
			if killer != nil {
				victim.murdererFaction = killer.faction
				if areHostile(killer.faction, victim.originalFaction) {
					killer.kills++
				}
			}
		}

		if g.deps.Stats != nil {
			if err := g.deps.Stats.RecordCasualty(c); err != nil {
				g.logger.Warn().Err(err).Int("victim", int(victim.id)).Msg("record casualty")
			}
		}
		g.te.metrics.add(g.te.metrics.casualties, 1, attribute.String("status", status.String()))
		g.log.Addf(victim, CatCasualty, "casualty", float64(killerID), "%s by U%d friendly=%t", status, killerID, c.FriendlyFire)
		g.statePushNext(newUnitDieState(g, victim.id, status, killerID))
	}
}

// applyDeathMorale adjusts morale after victim died: the killer reacts to
// what it killed, the victim's comrades lose heart and their enemies take
// courage. Faction morale modifiers scale the swings.
func (g *Game) applyDeathMorale(victim, killer *Unit) {
	bf := g.bf
	mod := func(f Faction) int {
		if f >= factionCount || g.opts.MoraleModifier[f] <= 0 {
			return 100
		}
		return g.opts.MoraleModifier[f]
	}
	if killer != nil && killer.id != victim.id && !killer.IsOut() {
		km := mod(killer.faction)
		switch {
		case victim.originalFaction == FactionNeutral:
			if killer.faction == FactionPlayer {
				killer.MoraleChange(-1000 / km)
			} else {
				killer.MoraleChange(10)
			}
		case victim.originalFaction == killer.faction:
			killer.MoraleChange(-2000 / km)
		default:
			killer.MoraleChange(20 * km / 100)
		}
	}
	if victim.originalFaction == FactionNeutral {
		return
	}
	loserMod := mod(victim.originalFaction)
	winnerMod := 100
	if killer != nil {
		winnerMod = mod(killer.faction)
	}
	for _, u := range bf.units {
		if u.id == victim.id || u.IsOut() {
			continue
		}
		switch {
		case u.originalFaction == victim.originalFaction:
			loss := 200 * ((110 - u.stats.Bravery) / 10) / loserMod
			u.MoraleChange(-loss)
		case areHostile(u.faction, victim.originalFaction):
			u.MoraleChange(winnerMod / 10)
		}
	}
	g.log.Add(victim, CatMorale, "death_morale", victim.originalFaction.String(), float64(loserMod))
}
