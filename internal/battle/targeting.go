package battle

import "math"

// exposureBonusThreshold is the exposure below which the near and far
// silhouette slices are also sampled.
const exposureBonusThreshold = 0.2

// shoulderOffset is how far, in voxels, off-centre shots move the origin sideways.
const shoulderOffset = 4

// tileSpiral holds the voxel offsets (from the tile centre) sampled when
// searching a floor or object for a targetable voxel: the centre, then five
// rings of eight points.
var tileSpiral = func() [41][2]int {
	var out [41][2]int
	rings := [5]int{1, 2, 4, 6, 7}
	i := 1
	for _, r := range rings {
		for d := DirNorth; d <= DirNorthWest; d++ {
			v := d.Vector()
			out[i] = [2]int{v.X * r, v.Y * r}
			i++
		}
	}
	return out
}()

// wallSpiral is the order in which positions along a wall are sampled.
var wallSpiral = [7]int{8, 6, 10, 4, 12, 2, 14}

// unitAtVoxel returns the live unit whose silhouette contains v, checking
// the voxel's tile and the tile below it.
func (te *TileEngine) unitAtVoxel(v Position) *Unit {
	tp := v.ToTile()
	for _, p := range [2]Position{tp, tp.Add(Pos(0, 0, -1))} {
		t := te.bf.Tile(p)
		if t == nil || t.unit == NoUnit {
			continue
		}
		if u := te.bf.Unit(t.unit); u != nil && !u.IsOut() && te.unitOccupiesVoxel(u, v) {
			return u
		}
	}
	return nil
}

// silhouette describes the vertical and horizontal extent of a unit as seen from an origin.
type silhouette struct {
	cx, cy     int
	minZ, maxZ int
	radius     int
	// px, py is the unit vector perpendicular to the origin-target line.
	px, py float64
	// fx, fy points from the origin towards the target; zero when straight above or below.
	fx, fy float64
}

func (te *TileEngine) silhouetteOf(origin Position, target *Unit) silhouette {
	cx, cy := unitCenterVoxel(target)
	base := te.unitBaseZ(target)
	s := silhouette{cx: cx, cy: cy, minZ: base + 1, maxZ: base + target.Height(), radius: unitRadius(target)}
	dx, dy := float64(cx-origin.X), float64(cy-origin.Y)
	if l := math.Hypot(dx, dy); l > 0 {
		s.fx, s.fy = dx/l, dy/l
		s.px, s.py = -dy/l, dx/l
	}
	return s
}

// heightOffsets returns the heights to sample, alternating outward from the middle.
func (s silhouette) heightOffsets(step int) []int {
	mid := (s.minZ + s.maxZ) / 2
	out := []int{mid}
	for d := step; mid-d >= s.minZ || mid+d <= s.maxZ; d += step {
		if mid-d >= s.minZ {
			out = append(out, mid-d)
		}
		if mid+d <= s.maxZ {
			out = append(out, mid+d)
		}
	}
	return out
}

// sideOffsets returns horizontal sample offsets across the silhouette. When the
// origin is directly above or below, front and back points replace the sides.
func (s silhouette) sideOffsets(simple bool) [][2]int {
	r := float64(s.radius) * 0.8
	if s.fx == 0 && s.fy == 0 {
		h := int(r / 2)
		pts := [][2]int{{0, 0}, {0, -h}, {0, h}}
		if !simple {
			pts = append(pts, [2]int{-h, 0}, [2]int{h, 0})
		}
		return pts
	}
	pts := [][2]int{{0, 0}}
	fractions := []float64{0.6, -0.6}
	if !simple {
		fractions = []float64{0.4, -0.4, 0.8, -0.8}
	}
	for _, f := range fractions {
		pts = append(pts, [2]int{int(math.Round(s.px * r * f)), int(math.Round(s.py * r * f))})
	}
	return pts
}

// CanTargetUnit finds a voxel on the unit at tilePos that a line from origin
// reaches without hitting anything else. Candidates are tried in a fixed
// order: the middle of the silhouette, then heights stepping outwards, and at
// each height the centre before the sides. shooter is never hit by its own trace.
func (te *TileEngine) CanTargetUnit(origin, tilePos Position, shooter *Unit, simple bool) (Position, bool) {
	t := te.bf.Tile(tilePos)
	if t == nil {
		return InvalidPosition, false
	}
	target := te.bf.Unit(t.unit)
	if target == nil || target.IsOut() {
		return InvalidPosition, false
	}
	exclude := NoUnit
	if shooter != nil {
		exclude = shooter.id
		if target.id == shooter.id {
			return InvalidPosition, false
		}
	}
	s := te.silhouetteOf(origin, target)
	step := 2
	if simple {
		step = maxInt(2, (s.maxZ-s.minZ)/3)
	}
	sides := s.sideOffsets(simple)
	for _, z := range s.heightOffsets(step) {
		for _, o := range sides {
			voxel := Pos(s.cx+o[0], s.cy+o[1], z)
			if !te.unitOccupiesVoxel(target, voxel) {
				continue
			}
			line := te.CalculateLineVoxel(origin, voxel, false, exclude, NoUnit)
			if line.Hit != VoxelUnit {
				continue
			}
			if hit := te.unitAtVoxel(line.Impact); hit != nil && hit.id == target.id {
				return voxel, true
			}
		}
	}
	return InvalidPosition, false
}

// partSamplePoints returns the local voxel columns sampled on a part, in sample order.
func partSamplePoints(k PartKind) [][2]int {
	switch k {
	case PartWestWall:
		out := make([][2]int, 0, len(wallSpiral))
		for _, y := range wallSpiral {
			out = append(out, [2]int{0, y})
		}
		return out
	case PartNorthWall:
		out := make([][2]int, 0, len(wallSpiral))
		for _, x := range wallSpiral {
			out = append(out, [2]int{x, 0})
		}
		return out
	default:
		out := make([][2]int, 0, len(tileSpiral))
		for _, o := range tileSpiral {
			out = append(out, [2]int{VoxelsX/2 + o[0], VoxelsY/2 + o[1]})
		}
		return out
	}
}

// CanTargetTile finds a voxel of one part of the tile at tilePos reachable
// from origin. The sample pattern first establishes the part's height bounds,
// then scans heights from the middle outwards.
func (te *TileEngine) CanTargetTile(origin, tilePos Position, part PartKind, shooter *Unit) (Position, bool) {
	t := te.bf.Tile(tilePos)
	if t == nil || t.parts[part] == nil {
		return InvalidPosition, false
	}
	p := t.parts[part]
	points := partSamplePoints(part)

	minLayer, maxLayer := -1, -1
	for layer := 0; layer < loftLayers; layer++ {
		for _, pt := range points {
			if te.bf.terrain.loftBit(p.LOFT[layer], pt[0], pt[1]) {
				if minLayer < 0 {
					minLayer = layer
				}
				maxLayer = layer
				break
			}
		}
	}
	if minLayer < 0 {
		return InvalidPosition, false
	}

	exclude := NoUnit
	if shooter != nil {
		exclude = shooter.id
	}
	base := tilePos.ToVoxel()
	mid := (minLayer + maxLayer) / 2
	layers := []int{mid}
	for d := 1; mid-d >= minLayer || mid+d <= maxLayer; d++ {
		if mid+d <= maxLayer {
			layers = append(layers, mid+d)
		}
		if mid-d >= minLayer {
			layers = append(layers, mid-d)
		}
	}
	for _, layer := range layers {
		for _, pt := range points {
			if !te.bf.terrain.loftBit(p.LOFT[layer], pt[0], pt[1]) {
				continue
			}
			// the upper voxel of a layer is its visible top
			voxel := base.Add(Pos(pt[0], pt[1], layer*2+1))
			line := te.CalculateLineVoxel(origin, voxel, false, exclude, NoUnit)
			if line.Hit == VoxelType(part) && line.Impact.ToTile() == tilePos {
				return voxel, true
			}
		}
	}
	return InvalidPosition, false
}

// CheckVoxelExposure returns the fraction of the target unit's silhouette
// visible from origin. Simple mode samples a coarser grid. When the main
// slice is barely exposed, slices nearer to and further from the origin are
// sampled too and the best slice wins.
func (te *TileEngine) CheckVoxelExposure(origin, tilePos Position, shooter *Unit, simple bool) float64 {
	t := te.bf.Tile(tilePos)
	if t == nil {
		return 0
	}
	target := te.bf.Unit(t.unit)
	if target == nil || target.IsOut() {
		return 0
	}
	exclude := NoUnit
	if shooter != nil {
		exclude = shooter.id
	}
	s := te.silhouetteOf(origin, target)
	zStep, wStep := 2, 2
	if simple {
		zStep, wStep = 6, maxInt(2, s.radius)
	}

	slice := func(shift float64) float64 {
		total, hits := 0, 0
		sx := s.cx + int(math.Round(s.fx*shift))
		sy := s.cy + int(math.Round(s.fy*shift))
		for z := s.minZ; z <= s.maxZ; z += zStep {
			for w := -s.radius; w <= s.radius; w += wStep {
				voxel := Pos(sx+int(math.Round(s.px*float64(w))), sy+int(math.Round(s.py*float64(w))), z)
				if s.fx == 0 && s.fy == 0 {
					voxel = Pos(sx+w, sy, z)
				}
				if !te.unitOccupiesVoxel(target, voxel) {
					continue
				}
				total++
				line := te.CalculateLineVoxel(origin, voxel, false, exclude, target.id)
				if line.Hit == VoxelUnit {
					hits++
				}
			}
		}
		if total == 0 {
			return 0
		}
		return float64(hits) / float64(total)
	}

	shift := 0.0
	if s.fx != 0 || s.fy != 0 {
		shift = float64(s.radius) * 0.7
	}
	return bestExposure(slice, shift)
}

// bestExposure samples the main slice and, when it is below
// exposureBonusThreshold, the slices shift voxels nearer and further. A zero
// shift samples the main slice only.
func bestExposure(slice func(shift float64) float64, shift float64) float64 {
	best := slice(0)
	if best >= exposureBonusThreshold || shift == 0 {
		return best
	}
	for _, f := range [2]float64{-shift, shift} {
		if e := slice(f); e > best {
			best = e
		}
	}
	return best
}

// ShootingOrigins returns the voxel origins a unit can fire from, centre
// first, then the left and right shoulders relative to the target direction.
func (te *TileEngine) ShootingOrigins(u *Unit, target Position) []Position {
	centre := te.SightOriginVoxel(u)
	origins := []Position{centre}
	if !te.opts.OffCentreShooting {
		return origins
	}
	tv := target.VoxelCenter()
	dx, dy := float64(tv.X-centre.X), float64(tv.Y-centre.Y)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return origins
	}
	px, py := -dy/l*shoulderOffset, dx/l*shoulderOffset
	for _, sgn := range [2]float64{-1, 1} {
		origins = append(origins, Pos(centre.X+int(math.Round(px*sgn)), centre.Y+int(math.Round(py*sgn)), centre.Z-2))
	}
	return origins
}

// ResolveLineOfFire picks the origin and target voxel for a shot from u at
// tile target. A unit on the tile is preferred, then its object, walls and
// floor. With off-centre shooting enabled and no clear line from the centre,
// the shoulder with the most exposure is used. An empty tile is aimed at its
// centre when nothing is in the way.
func (te *TileEngine) ResolveLineOfFire(u *Unit, target Position) (origin, voxel Position, err error) {
	t := te.bf.Tile(target)
	if t == nil {
		return InvalidPosition, InvalidPosition, ErrOutOfRange
	}
	origins := te.ShootingOrigins(u, target)
	centre := origins[0]

	if tu := te.bf.Unit(t.unit); tu != nil && !tu.IsOut() && tu.id != u.id {
		if v, ok := te.CanTargetUnit(centre, target, u, false); ok {
			return centre, v, nil
		}
		bestOrigin, bestExposure := InvalidPosition, 0.0
		for _, o := range origins[1:] {
			if e := te.CheckVoxelExposure(o, target, u, false); e > bestExposure {
				bestOrigin, bestExposure = o, e
			}
		}
		if bestOrigin.IsValid() {
			if v, ok := te.CanTargetUnit(bestOrigin, target, u, false); ok {
				return bestOrigin, v, nil
			}
		}
		return InvalidPosition, InvalidPosition, ErrNoLineOfFire
	}

	for _, o := range origins {
		for _, k := range [4]PartKind{PartObject, PartNorthWall, PartWestWall, PartFloor} {
			if v, ok := te.CanTargetTile(o, target, k, u); ok {
				return o, v, nil
			}
		}
	}
	if t.IsVoid() {
		v := target.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
		if line := te.CalculateLineVoxel(centre, v, false, u.id, NoUnit); line.Hit == VoxelEmpty {
			return centre, v, nil
		}
	}
	return InvalidPosition, InvalidPosition, ErrNoLineOfFire
}

// modeAccuracy returns the weapon's base accuracy and effective range for an attack type.
func modeAccuracy(r *ItemRule, typ ActionType) (acc, rangeLimit int) {
	switch typ {
	case ActionAimedShot:
		return r.AccuracyAimed, r.AimRange
	case ActionAutoShot:
		return r.AccuracyAuto, r.AutoRange
	case ActionSnapShot:
		return r.AccuracySnap, r.SnapRange
	case ActionMelee:
		return r.AccuracyMelee, 1
	case ActionThrow:
		return r.AccuracyThrow, 0
	}
	return 0, 0
}

// FiringAccuracy returns the percent chance of an attack landing on target,
// from the weapon, the unit's skill, kneeling, wounds and range dropoff.
func (te *TileEngine) FiringAccuracy(u *Unit, typ ActionType, weapon *Item, target Position) int {
	if weapon == nil {
		return 0
	}
	r := weapon.Rule()
	acc, rangeLimit := modeAccuracy(r, typ)
	skill := u.stats.Firing
	switch typ {
	case ActionMelee:
		skill = u.stats.Melee
	case ActionThrow:
		skill = u.stats.Throwing
	}
	result := float64(acc) * float64(skill) / 100
	if u.kneeled && typ.IsShot() {
		result *= 1.15
	}
	if r.TwoHanded && u.rightHand != NoItem && u.leftHand != NoItem {
		result *= 0.8
	}
	if u.stats.Health > 0 && u.health < u.stats.Health {
		result *= 0.5 + 0.5*float64(u.health)/float64(u.stats.Health)
	}
	if typ.IsShot() {
		dist := u.pos.Distance(target)
		if rangeLimit > 0 && dist > rangeLimit {
			result -= float64((dist - rangeLimit) * r.DropOff)
		}
		if r.MaxRange > 0 && dist > r.MaxRange {
			return 0
		}
	}
	return clampInt(int(math.Round(result)), 0, 100)
}

// applyAccuracy returns where a shot at target really goes. A miss deviates
// by an amount growing with distance and inaccuracy, and the line is extended
// past the target so the projectile flies on until it hits something.
func (te *TileEngine) applyAccuracy(origin, target Position, accuracy int) Position {
	if te.rng.Intn(100) < accuracy {
		return target
	}
	d := target.Sub(origin)
	dist := d.Length()
	spread := int(dist*float64(100-accuracy)/400) + 1
	dev := Pos(te.rng.Intn(2*spread+1)-spread, te.rng.Intn(2*spread+1)-spread, (te.rng.Intn(2*spread+1)-spread)/2)
	aim := target.Add(dev)
	d = aim.Sub(origin)
	l := d.Length()
	if l == 0 {
		return target
	}
	sx, sy, sz := te.bf.Size()
	reach := math.Sqrt(float64(sx*sx*VoxelsX*VoxelsX + sy*sy*VoxelsY*VoxelsY + sz*sz*VoxelsZ*VoxelsZ))
	k := reach / l
	if k < 1 {
		k = 1
	}
	return Pos(origin.X+int(float64(d.X)*k), origin.Y+int(float64(d.Y)*k), origin.Z+int(float64(d.Z)*k))
}
