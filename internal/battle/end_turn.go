package battle

// Morale thresholds and fire damage at the end of a side's turn.
const (
	panicMorale     = 50
	panicRecovery   = 15
	berserkChance   = 33
	fireDamageMin   = 5
	fireDamageRange = 6
	smokeDriftMin   = 4
)

// endTurn runs the end-of-turn sequence. Any step that queues states ends
// the call with a fresh marker behind them, so the sequence resumes once
// they resolve; the latches keep fuse countdown and faction bookkeeping
// from applying twice on the same turn boundary.
func (g *Game) endTurn() {
	if !g.triggerProcessed {
		g.triggerProcessed = true
		if g.triggerFuses() {
			g.pushEndTurnMarker()
			return
		}
	}
	if p, power, dt, ok := g.te.CheckForTerrainExplosions(); ok {
		g.statePushBack(newExplosionState(g, p, power, dt, 0, NoUnit))
		g.pushEndTurnMarker()
		return
	}
	if !g.endTurnProcessed {
		g.endTurnProcessed = true
		g.factionEndOfTurn(g.bf.side)
		g.checkForCasualties(nil)
		if g.Busy() {
			g.pushEndTurnMarker()
			return
		}
	}

	g.log.Addf(nil, CatTurn, "end", float64(g.bf.turn), "%s", g.bf.side)
	g.nextSide()
	g.endTurnRequested = false
	if g.checkEndOfBattle(true) {
		return
	}
	g.beginSide()
}

// triggerFuses counts down primed items and queues the explosions of those
// that expire. It reports whether any exploded.
func (g *Game) triggerFuses() bool {
	bf := g.bf
	fired := false
	for _, it := range bf.items {
		if it.destroyed || !it.primed {
			continue
		}
		if it.fuse > 0 {
			it.fuse--
			continue
		}
		p := bf.Placement(it)
		if !p.IsValid() {
			continue
		}
		r := it.rule
		center := p.VoxelCenter().Add(Pos(0, 0, 2))
		credit := it.previousOwner
		if it.owner != NoUnit {
			credit = it.owner
		}
		g.log.Addf(bf.Unit(credit), CatExplode, "fuse", float64(r.Power), "%s at %v", r.Name, p)
		g.statePushBack(newExplosionState(g, center, r.Power, r.Damage, bf.rules.ExplosionRadius(r), credit))
		bf.DestroyItem(it)
		fired = true
	}
	return fired
}

// factionEndOfTurn applies bleeding, burning, stun recovery and morale
// recovery to the units of f.
func (g *Game) factionEndOfTurn(f Faction) {
	bf := g.bf
	te := g.te
	for _, u := range bf.units {
		if u.faction != f || u.status == StatusDead {
			continue
		}
		if u.fatalWounds > 0 && u.health > 0 {
			u.health = maxInt(0, u.health-u.fatalWounds)
			te.log.Addf(u, CatCasualty, "bleeding", float64(u.fatalWounds), "health %d", u.health)
		}
		if !u.IsOut() {
			g.burnUnit(u)
		}
		if u.stun > 0 {
			u.stun--
		}
		if u.status == StatusUnconscious && u.health > 0 && u.stun < u.health {
			g.wakeUnit(u)
		}
		if !u.IsOut() && u.morale < 100 {
			u.MoraleChange(u.stats.Bravery / 10)
		}
	}
}

// burnUnit damages a unit standing in fire or still alight from it.
func (g *Game) burnUnit(u *Unit) {
	te := g.te
	inFire := false
	for _, p := range u.OccupiedTiles() {
		if t := g.bf.Tile(p); t != nil && t.fire > 0 {
			inFire = true
			break
		}
	}
	if !inFire && u.fireTurns <= 0 {
		return
	}
	dmg := fireDamageMin + te.rng.Intn(fireDamageRange)
	if u.armor != nil {
		dmg = int(float64(dmg) * u.armor.Modifier(DamageIncendiary))
	}
	if dmg <= 0 {
		return
	}
	u.applyDamage(dmg, 0, 0)
	if inFire {
		u.fireTurns = 1 + te.rng.Intn(3)
	} else {
		u.fireTurns--
	}
	te.log.Addf(u, CatHit, "burning", float64(dmg), "health %d", u.health)
}

// wakeUnit stands an unconscious unit back up where its body lies, if the
// spot is free.
func (g *Game) wakeUnit(u *Unit) {
	bf := g.bf
	if !bf.canPlace(u.pos, u.Size(), u.id) {
		return
	}
	for _, it := range bf.Tile(u.pos).Items() {
		if body := bf.Item(it); body != nil && body.rule.BattleType == ItemCorpse {
			bf.DestroyItem(body)
			break
		}
	}
	u.status = StatusStanding
	bf.occupy(u)
	delete(g.casualties, casualtyKey{u.id, StatusUnconscious})
	g.te.log.Add(u, CatCasualty, "woke", u.status.String(), float64(u.stun))
	g.te.CalculateTilesInFOV(u, InvalidPosition, 0)
	g.te.CalculateUnitsInFOV(u, InvalidPosition, 0)
}

// updateEnvironment burns down fires, spreads them to flammable neighbours
// and lets smoke thin out and drift. It runs once per full turn.
func (g *Game) updateEnvironment() {
	bf := g.bf
	te := g.te
	type drift struct {
		p     Position
		smoke int
	}
	var ignite []Position
	var drifts []drift
	bf.ForEachTile(func(t *Tile) {
		if t.fire > 0 {
			t.fire--
			if t.fire == 0 {
				for k := PartFloor; k < partKindCount; k++ {
					if p := t.parts[k]; p != nil && p.Flammable != FlammableNever {
						if t.destroyPart(k) {
							bf.objectiveDestroyed = true
						}
					}
				}
			} else {
				for _, d := range [4]Direction{DirNorth, DirEast, DirSouth, DirWest} {
					n := t.pos.Add(d.Vector())
					nt := bf.Tile(n)
					if nt == nil || nt.fire > 0 || nt.Flammability() == FlammableNever {
						continue
					}
					if partBlock(te.wallBetween(t.pos, d), DamageIncendiary) > 0 {
						continue
					}
					if te.rng.Intn(100) < (255-nt.Flammability())/10 {
						ignite = append(ignite, n)
					}
				}
			}
		}
		if t.smoke > 0 {
			if t.smoke >= smokeDriftMin {
				for _, d := range [4]Direction{DirNorth, DirEast, DirSouth, DirWest} {
					n := t.pos.Add(d.Vector())
					if bf.InBounds(n) && partBlock(te.wallBetween(t.pos, d), DamageSmoke) == 0 {
						drifts = append(drifts, drift{n, t.smoke / 2})
					}
				}
			}
			t.SetSmoke(t.smoke - 1)
		}
	})
	for _, p := range ignite {
		if bf.Tile(p).Ignite() {
			te.log.Addf(nil, CatTerrain, "fire_spread", 0, "at %v", p)
		}
	}
	for _, d := range drifts {
		bf.Tile(d.p).AddSmoke(d.smoke)
	}
	te.geo.RebuildAll()
	te.voxelCheckFlush()
}

// nextSide hands the turn to the next faction with live units. The player
// side always gets its turn; a new full turn starts after the last faction.
func (g *Game) nextSide() {
	bf := g.bf
	for {
		bf.side++
		if bf.side >= factionCount {
			bf.side = FactionPlayer
			bf.turn++
			g.updateEnvironment()
			g.log.Addf(nil, CatTurn, "turn", float64(bf.turn), "turn %d", bf.turn)
		}
		if bf.side == FactionPlayer || bf.LiveUnits(bf.side) > 0 {
			return
		}
	}
}

// beginSide prepares the units of the side to move and rolls panic.
func (g *Game) beginSide() {
	bf := g.bf
	te := g.te
	for _, u := range bf.units {
		if u.faction == bf.side && !u.IsOut() {
			u.prepareNewTurn()
		}
	}
	te.TickSpotting(bf.side)
	te.RecalculateLighting()
	te.RecalculateFOV()
	g.rollPanic()
	g.aiActionCounter = 0
	g.aiRethinks = 0
	g.lastMessage = ""
	g.selectFirstUnit()
	g.log.Addf(nil, CatTurn, "begin", float64(bf.turn), "%s", bf.side)
	g.logger.Debug().Int("turn", bf.turn).Str("side", bf.side.String()).Msg("side begins")
}

// rollPanic checks the morale of the side to move. A failed check turns a
// unit panicking or, a third of the time, berserk.
func (g *Game) rollPanic() {
	bf := g.bf
	te := g.te
	for _, u := range bf.units {
		if u.faction != bf.side || u.IsOut() || u.morale >= panicMorale {
			continue
		}
		if u.armor != nil && u.armor.FearImmune {
			continue
		}
		if te.rng.Intn(100) >= 100-2*u.morale {
			continue
		}
		if te.rng.Intn(100) < berserkChance {
			u.status = StatusBerserk
		} else {
			u.status = StatusPanicking
		}
		u.morale = clampInt(u.morale+panicRecovery, 0, 100)
		te.log.Add(u, CatMorale, "panic_roll", u.status.String(), float64(u.morale))
		g.statePushBack(newUnitPanicState(g, u.id))
	}
}
