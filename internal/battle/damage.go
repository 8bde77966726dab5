package battle

import (
	"math"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// itemArmor is the tile damage that destroys an item lying in a blast.
	itemArmor = 20
	// indestructible is the armor of parts nothing can destroy.
	indestructible = 255
)

// HitResult describes what a single impact did.
type HitResult struct {
	Part           VoxelType
	Tile           Position
	Unit           UnitID
	Damage         int
	HealthLost     int
	TerrainChanged bool
	Objective      bool
}

// smokeFromDamage is the smoke left on a tile by damage at or above threshold.
func smokeFromDamage(damage, threshold int) int {
	return clampInt(7+(damage-threshold)/20, 7, MaxSmoke)
}

// Hit resolves one bullet or melee impact at voxel center. The struck tile
// part or unit takes randomized damage; smoke and fire thresholds of the
// damage type then apply to the tile, and light and vision are refreshed
// locally when anything they depend on changed.
func (te *TileEngine) Hit(center Position, power int, dt DamageType, attacker *Unit, origin Position) HitResult {
	tilePos := center.ToTile()
	res := HitResult{Part: VoxelOutOfBounds, Tile: tilePos, Unit: NoUnit}
	t := te.bf.Tile(tilePos)
	if t == nil {
		return res
	}
	rule := te.bf.rules.DamageType(dt)
	te.voxelCheckFlush()
	res.Part = te.voxelCheck(center, NoUnit, NoUnit, false)
	te.voxelCheckFlush()

	damage := rule.RandomDamage(power, false, te.rng)
	res.Damage = damage

	switch {
	case res.Part.IsTerrain():
		k := PartKind(res.Part)
		tileDmg := rule.TileDamage(damage)
		if p := t.parts[k]; p != nil && p.Armor != indestructible && tileDmg >= p.Armor {
			res.Objective = t.destroyPart(k)
			res.TerrainChanged = true
			if res.Objective {
				te.bf.objectiveDestroyed = true
			}
			te.log.Addf(attacker, CatTerrain, "destroyed", float64(tileDmg), "%s at %v", p.Name, tilePos)
		}
	case res.Part == VoxelUnit:
		if target := te.unitAtVoxel(center); target != nil {
			res.Unit = target.id
			from := origin
			if !from.IsValid() {
				from = tilePos
			}
			res.HealthLost = te.DamageUnit(target, attacker, damage, dt, from.ToTile(), false)
		}
	}

	smokeOrFire := false
	if rule.SmokeThreshold >= 0 && damage >= rule.SmokeThreshold {
		t.AddSmoke(smokeFromDamage(damage, rule.SmokeThreshold))
		smokeOrFire = true
	}
	if rule.FireThreshold >= 0 && damage >= rule.FireThreshold && t.Ignite() {
		smokeOrFire = true
	}

	te.log.Addf(attacker, CatHit, res.Part.String(), float64(damage), "%s %d at %v", dt, damage, tilePos)
	if res.TerrainChanged || smokeOrFire {
		te.TerrainChanged(tilePos)
	}
	return res
}

// DamageUnit applies damage to target from the tile from and returns the
// health lost. Armor on the facing side absorbs first, scaled by the damage
// type's armor effectiveness; the remainder splits into health, stun and
// fatal wounds.
func (te *TileEngine) DamageUnit(target, attacker *Unit, damage int, dt DamageType, from Position, area bool) int {
	rule := te.bf.rules.DamageType(dt)
	if target.armor != nil {
		damage = int(float64(damage) * target.armor.Modifier(dt))
	}
	side := SideFront
	if !rule.IgnoreDirection {
		side = target.ArmorSideFrom(from)
	}
	if area && from == target.pos {
		side = SideUnder
	}
	armor := int(float64(target.ArmorValue(side)) * rule.ArmorEffectiveness)
	net := damage - armor
	if attacker != nil && attacker.id != target.id {
		target.lastAttacker = attacker.id
	}
	if net <= 0 {
		return 0
	}
	health := int(math.Round(float64(net) * rule.ToHealth))
	stun := int(math.Round(float64(net) * rule.ToStun))
	wounds := 0
	if rule.ToWound > 0 && health >= 10 && !target.IsOut() {
		wounds = te.rng.Intn(int(float64(health)*rule.ToWound/10) + 1)
	}
	lost := target.applyDamage(health, stun, wounds)
	if dt == DamageIncendiary && !target.IsOut() {
		target.fireTurns = maxInt(target.fireTurns, 1+te.rng.Intn(5))
	}
	te.log.Addf(target, CatHit, "wounded", float64(lost), "%s %s: -%d hp, +%d stun, %d wounds",
		dt, armorSideName(side), lost, stun, wounds)
	return lost
}

func armorSideName(s ArmorSide) string {
	switch s {
	case SideFront:
		return "front"
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideRear:
		return "rear"
	default:
		return "under"
	}
}

// DetonateResult reports what a detonation did to a tile.
type DetonateResult struct {
	// Remaining is the power left after each part's destruction cascade.
	Remaining [partKindCount]int
	Destroyed bool
	Objective bool
	Ignited   bool
}

// MaxRemaining returns the highest power left over any part.
func (r DetonateResult) MaxRemaining() int {
	best := 0
	for _, v := range r.Remaining {
		if v > best {
			best = v
		}
	}
	return best
}

// Detonate destroys every part of the tile whose armor the power reaches,
// following each die-into chain while power remains. The leftover power sets
// the tile alight when its flammability is no higher and a floor or object
// survives; otherwise destruction only leaves smoke.
func (te *TileEngine) Detonate(p Position, power int) DetonateResult {
	var res DetonateResult
	t := te.bf.Tile(p)
	if t == nil || power <= 0 {
		return res
	}
	for k := PartFloor; k < partKindCount; k++ {
		left := power
		// die-into chains are short; the bound only guards against a cyclic catalogue
		for depth, part := 0, t.parts[k]; depth < 8 && part != nil && part.Armor != indestructible && part.Armor <= left; depth, part = depth+1, t.parts[k] {
			left -= part.Armor
			if t.destroyPart(k) {
				res.Objective = true
			}
			res.Destroyed = true
			te.log.Addf(nil, CatTerrain, "destroyed", float64(left), "%s at %v", part.Name, p)
		}
		res.Remaining[k] = left
	}
	if res.Objective {
		te.bf.objectiveDestroyed = true
	}
	remaining := res.MaxRemaining()
	flam := t.Flammability()
	if flam != FlammableNever && flam <= remaining && (t.parts[PartFloor] != nil || t.parts[PartObject] != nil) {
		res.Ignited = t.Ignite()
	}
	if !res.Ignited && res.Destroyed {
		t.AddSmoke(clampInt(MaxSmoke-flam/10, 1, 12))
	}
	return res
}

// CheckForTerrainExplosions finds a tile left with a pending explosion by a
// destroyed explosive part, clears it and returns its voxel centre, power and type.
func (te *TileEngine) CheckForTerrainExplosions() (Position, int, DamageType, bool) {
	for i := range te.bf.tiles {
		t := &te.bf.tiles[i]
		if t.explosivePower <= 0 {
			continue
		}
		power, dt := t.explosivePower, t.explosiveType
		t.clearExplosive()
		return t.pos.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2)), power, dt, true
	}
	return InvalidPosition, 0, DamageNone, false
}

// ExplosionResult summarises an area effect.
type ExplosionResult struct {
	// Tiles holds the strongest power that reached each affected tile.
	Tiles     map[Position]int
	Units     []UnitID
	Objective bool
}

type blastRay struct {
	tiles     map[Position]int
	order     []Position
	units     map[UnitID]int
	unitOrder []UnitID
}

func (b *blastRay) reach(p Position, power int, t *Tile) {
	if old, ok := b.tiles[p]; !ok {
		b.order = append(b.order, p)
		b.tiles[p] = power
	} else if power > old {
		b.tiles[p] = power
	}
	if t.unit == NoUnit {
		return
	}
	if old, ok := b.units[t.unit]; !ok {
		b.unitOrder = append(b.unitOrder, t.unit)
		b.units[t.unit] = power
	} else if power > old {
		b.units[t.unit] = power
	}
}

// partBlock is how much blast of type dt a part absorbs.
func partBlock(p *TerrainPart, dt DamageType) int {
	if p == nil {
		return 0
	}
	switch dt {
	case DamageSmoke:
		if p.BlockSmoke {
			return MoveImpassable
		}
		return 0
	case DamageIncendiary:
		if p.BlockFire {
			return MoveImpassable
		}
		return 0
	}
	return p.BlockHE
}

// floorBlock is what a floor absorbs when a blast crosses it vertically.
func floorBlock(p *TerrainPart, dt DamageType) int {
	if p == nil {
		return 0
	}
	if b := partBlock(p, dt); b > 0 {
		return b
	}
	if dt == DamageSmoke || dt == DamageIncendiary {
		return 0
	}
	return p.Armor
}

// wallBetween returns the wall part crossed moving one cardinal step in d from p.
func (te *TileEngine) wallBetween(p Position, d Direction) *TerrainPart {
	return te.bf.wallCrossed(p, d)
}

// bigWallBlock is the blockage of big-wall objects when leaving from or entering to in direction d.
// A diagonal wall blocks rays crossing it and lets rays along its own axis through.
func bigWallBlock(from, to *Tile, d Direction, dt DamageType) int {
	block := 0
	if o := from.parts[PartObject]; o != nil && o.BigWall != BigWallNone && o.BigWall != BigWallBlock && bigWallCovers(o.BigWall, d) {
		if o.BigWall != BigWallNESW && o.BigWall != BigWallNWSE {
			block += partBlock(o, dt)
		}
	}
	if o := to.parts[PartObject]; o != nil && o.BigWall != BigWallNone && bigWallCovers(o.BigWall, d.Opposite()) {
		block += partBlock(o, dt)
	}
	return block
}

// horizontalBlockage is the blast power lost moving from p one step in d on the same level.
func (te *TileEngine) horizontalBlockage(p Position, d Direction, dt DamageType) int {
	from, to := te.bf.Tile(p), te.bf.Tile(p.Add(d.Vector()))
	if from == nil || to == nil {
		return MoveImpassable
	}
	if !d.IsDiagonal() {
		return partBlock(te.wallBetween(p, d), dt) + bigWallBlock(from, to, d, dt)
	}
	d1, d2 := (d+7)%8, (d+1)%8
	via := func(a, b Direction) int {
		mid := p.Add(a.Vector())
		if te.bf.Tile(mid) == nil {
			return MoveImpassable
		}
		return partBlock(te.wallBetween(p, a), dt) + partBlock(te.wallBetween(mid, b), dt)
	}
	return minInt(via(d1, d2), via(d2, d1)) + bigWallBlock(from, to, d, dt)
}

// verticalBlockage is the blast power lost crossing floors between levels.
func (te *TileEngine) verticalBlockage(from, to Position, dt DamageType) int {
	block := 0
	step := sign(to.Z - from.Z)
	for z := from.Z; z != to.Z; z += step {
		upper := z + 1
		if step < 0 {
			upper = z
		}
		if t := te.bf.Tile(Pos(to.X, to.Y, upper)); t != nil {
			block += floorBlock(t.parts[PartFloor], dt)
		}
	}
	return block
}

// Explode resolves an area effect centred on voxel center. Rays are cast
// every 5 degrees of elevation and 3 degrees of bearing; each loses the
// radius reduction per tile, half of it again on vertical or diagonal steps,
// and whatever walls and floors absorb. Every tile and unit keeps the
// strongest power any ray brought and is damaged once at the end.
func (te *TileEngine) Explode(center Position, power int, dt DamageType, maxRadius int, attacker *Unit) ExplosionResult {
	rule := te.bf.rules.DamageType(dt)
	rr := rule.RadiusReduction
	if rr <= 0 {
		rr = 10
	}
	if maxRadius <= 0 {
		maxRadius = rule.Radius(power)
	}
	b := &blastRay{tiles: map[Position]int{}, units: map[UnitID]int{}}
	centreTile := center.ToTile()
	if t := te.bf.Tile(centreTile); t != nil {
		b.reach(centreTile, power, t)
	}

	ox := float64(center.X) / VoxelsX
	oy := float64(center.Y) / VoxelsY
	oz := float64(centreTile.Z) + (float64(te.opts.ExplosionHeight)*2+1)/8

	for fi := -90; fi <= 90; fi += 5 {
		sinFi, cosFi := math.Sincos(float64(fi) * math.Pi / 180)
		for th := 0; th < 360; th += 3 {
			sinTe, cosTe := math.Sincos(float64(th) * math.Pi / 180)
			left := power
			prev := centreTile
			for l := 1; l <= maxRadius && left > 0; l++ {
				fl := float64(l)
				next := Pos(
					int(math.Floor(ox+fl*sinTe*cosFi)),
					int(math.Floor(oy-fl*cosTe*cosFi)),
					int(math.Floor(oz+fl*sinFi)),
				)
				if next == prev {
					continue
				}
				t := te.bf.Tile(next)
				if t == nil {
					break
				}
				left -= rr
				d := next.Sub(prev)
				if d.Z != 0 {
					left -= rr / 2
					left -= te.verticalBlockage(prev, next, dt)
				}
				if hd := VectorToDirection(Pos(sign(d.X), sign(d.Y), 0)); hd != DirNone {
					if hd.IsDiagonal() {
						left -= rr / 2
					}
					left -= te.horizontalBlockage(Pos(prev.X, prev.Y, next.Z), hd, dt)
				}
				if left <= 0 {
					break
				}
				b.reach(next, left, t)
				prev = next
			}
		}
	}

	te.metrics.add(te.metrics.explosions, 1, attribute.String("type", dt.String()))
	te.log.Addf(attacker, CatExplode, "explosion", float64(power), "%s %d r=%d at %v", dt, power, maxRadius, centreTile)

	res := ExplosionResult{Tiles: b.tiles}
	for _, p := range b.order {
		if te.applyBlastToTile(p, b.tiles[p], rule) {
			res.Objective = true
		}
	}
	for _, id := range b.unitOrder {
		u := te.bf.Unit(id)
		if u == nil || u.status == StatusDead {
			continue
		}
		dmg := rule.RandomDamage(b.units[id], true, te.rng)
		te.DamageUnit(u, attacker, dmg, dt, centreTile, true)
		res.Units = append(res.Units, id)
	}

	te.geo.RebuildAll()
	te.voxelCheckFlush()
	te.CalculateLighting(LayerAll, centreTile, maxRadius, true)
	te.CalculateFOV(centreTile, maxRadius, true)
	te.ApplyItemGravity()
	return res
}

// applyBlastToTile applies the power that reached one tile. It reports
// whether an objective part was destroyed.
func (te *TileEngine) applyBlastToTile(p Position, power int, rule *DamageTypeRule) bool {
	t := te.bf.Tile(p)
	dmg := rule.RandomDamage(power, true, te.rng)
	objective := false
	if rule.ToTile > 0 {
		objective = te.Detonate(p, rule.TileDamage(dmg)).Objective
	}
	if rule.SmokeThreshold >= 0 && dmg >= rule.SmokeThreshold {
		t.AddSmoke(smokeFromDamage(dmg, rule.SmokeThreshold))
	}
	if rule.FireThreshold >= 0 && dmg >= rule.FireThreshold {
		if !t.Ignite() && rule.FireBlast && (t.parts[PartFloor] != nil || t.parts[PartObject] != nil) && t.fire == 0 {
			t.SetFire(1 + te.rng.Intn(3))
		}
	}
	if rule.ToItem > 0 {
		for _, id := range append([]ItemID(nil), t.items...) {
			it := te.bf.Item(id)
			if it == nil || it.rule.Objective {
				continue
			}
			if int(float64(dmg)*rule.ToItem) >= itemArmor {
				te.bf.DestroyItem(it)
			}
		}
	}
	return objective
}

// ApplyItemGravity drops items resting on floorless tiles to the first tile with support.
func (te *TileEngine) ApplyItemGravity() {
	for _, it := range te.bf.items {
		if it.destroyed || !it.tile.IsValid() {
			continue
		}
		p := it.tile
		for p.Z > 0 && te.bf.Tile(p).HasNoFloor(te.bf.TileBelow(p)) {
			p = p.Add(Pos(0, 0, -1))
		}
		if p != it.tile {
			_ = te.bf.DropItem(it, p)
		}
	}
}

// FallingUnits returns the live units left standing on nothing.
func (te *TileEngine) FallingUnits() []*Unit {
	var out []*Unit
	for _, u := range te.bf.units {
		if u.IsOut() || u.pos.Z == 0 || u.rule.FloatHeight > 0 {
			continue
		}
		falls := true
		for _, p := range u.OccupiedTiles() {
			if !te.bf.Tile(p).HasNoFloor(te.bf.TileBelow(p)) {
				falls = false
				break
			}
		}
		if falls {
			out = append(out, u)
		}
	}
	return out
}
