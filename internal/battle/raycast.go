package battle

import "math"

// VoxelType is what a voxel check or trace ran into.
type VoxelType int

const (
	VoxelEmpty       VoxelType = -1
	VoxelFloor       VoxelType = VoxelType(PartFloor)
	VoxelWestWall    VoxelType = VoxelType(PartWestWall)
	VoxelNorthWall   VoxelType = VoxelType(PartNorthWall)
	VoxelObject      VoxelType = VoxelType(PartObject)
	VoxelUnit        VoxelType = 4
	VoxelOutOfBounds VoxelType = 5
)

func (v VoxelType) String() string {
	switch v {
	case VoxelEmpty:
		return "empty"
	case VoxelFloor:
		return "floor"
	case VoxelWestWall:
		return "west_wall"
	case VoxelNorthWall:
		return "north_wall"
	case VoxelObject:
		return "object"
	case VoxelUnit:
		return "unit"
	case VoxelOutOfBounds:
		return "out_of_bounds"
	default:
		return "unknown"
	}
}

// IsTerrain reports whether the hit was a floor, wall or object.
func (v VoxelType) IsTerrain() bool { return v >= VoxelFloor && v <= VoxelObject }

type tracePoint struct {
	pos   Position
	drift bool
}

// lessPosition orders positions lexicographically by x, y, z.
func lessPosition(a, b Position) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// bresenham3D walks from origin to target along the dominant axis. The
// secondary axes drift with accumulators starting at half the primary delta;
// every drift produces an extra visit so consecutive positions differ on one
// axis. The walk ends on target.
func bresenham3D(origin, target Position, visit func(p Position, drift bool) bool) bool {
	x0, y0, z0 := origin.X, origin.Y, origin.Z
	x1, y1, z1 := target.X, target.Y, target.Z

	swapXY := absInt(y1-y0) > absInt(x1-x0)
	if swapXY {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	swapXZ := absInt(z1-z0) > absInt(x1-x0)
	if swapXZ {
		x0, z0 = z0, x0
		x1, z1 = z1, x1
	}

	deltaX := absInt(x1 - x0)
	deltaY := absInt(y1 - y0)
	deltaZ := absInt(z1 - z0)
	driftXY := deltaX / 2
	driftXZ := deltaX / 2

	stepX, stepY, stepZ := 1, 1, 1
	if x0 > x1 {
		stepX = -1
	}
	if y0 > y1 {
		stepY = -1
	}
	if z0 > z1 {
		stepZ = -1
	}

	unswap := func(x, y, z int) Position {
		if swapXZ {
			x, z = z, x
		}
		if swapXY {
			x, y = y, x
		}
		return Position{x, y, z}
	}

	y, z := y0, z0
	for x := x0; ; x += stepX {
		if visit(unswap(x, y, z), false) {
			return true
		}
		// secondary axes are already on target
		if x == x1 {
			return false
		}
		driftXY -= deltaY
		driftXZ -= deltaZ
		if driftXY < 0 {
			y += stepY
			driftXY += deltaX
			if visit(unswap(x, y, z), true) {
				return true
			}
		}
		if driftXZ < 0 {
			z += stepZ
			driftXZ += deltaX
			if visit(unswap(x, y, z), true) {
				return true
			}
		}
	}
}

// TraceLine walks the 3D line from origin to target calling step for each
// primary-axis position and drift for each secondary-axis correction. A
// callback returning true stops the trace. The walk is computed from the
// lexicographically smaller endpoint so a line and its reverse cover the same
// positions; it is then replayed in the requested direction.
func TraceLine(origin, target Position, step, drift func(Position) bool) bool {
	call := func(p Position, isDrift bool) bool {
		if isDrift {
			return drift != nil && drift(p)
		}
		return step != nil && step(p)
	}
	if !lessPosition(target, origin) {
		return bresenham3D(origin, target, call)
	}
	var pts []tracePoint
	bresenham3D(target, origin, func(p Position, isDrift bool) bool {
		pts = append(pts, tracePoint{p, isDrift})
		return false
	})
	// Replayed backwards, the first primary position is the origin and drift
	// flags stay attached to the positions they produced.
	for i := len(pts) - 1; i >= 0; i-- {
		if call(pts[i].pos, pts[i].drift) {
			return true
		}
	}
	return false
}

// LinePositions returns every position on the line from origin to target.
func LinePositions(origin, target Position) []Position {
	var out []Position
	add := func(p Position) bool {
		out = append(out, p)
		return false
	}
	TraceLine(origin, target, add, add)
	return out
}

// voxelCheckFlush clears the single-entry tile memo used by voxelCheck.
// Call before starting a trace that is unrelated to the previous one.
func (te *TileEngine) voxelCheckFlush() {
	te.cacheValid = false
	te.cacheTile = nil
	te.cacheTileBelow = nil
}

// voxelCheck returns what occupies a single voxel. Units other than
// excludeUnit block; with excludeAllBut set only that unit blocks.
func (te *TileEngine) voxelCheck(v Position, excludeUnit, excludeAllBut UnitID, excludeAllUnits bool) VoxelType {
	tilePos := v.ToTile()
	if !te.cacheValid || te.cacheTilePos != tilePos {
		te.cacheTilePos = tilePos
		te.cacheTile = te.bf.Tile(tilePos)
		te.cacheTileBelow = te.bf.TileBelow(tilePos)
		te.cacheValid = true
	}
	t := te.cacheTile
	if t == nil {
		return VoxelOutOfBounds
	}

	lx := ((v.X % VoxelsX) + VoxelsX) % VoxelsX
	ly := ((v.Y % VoxelsY) + VoxelsY) % VoxelsY
	lz := ((v.Z % VoxelsZ) + VoxelsZ) % VoxelsZ
	layer := lz / 2

	if !t.IsVoid() {
		for k := PartFloor; k < partKindCount; k++ {
			p := t.parts[k]
			if p == nil {
				continue
			}
			if te.bf.terrain.loftBit(p.LOFT[layer], lx, ly) {
				return VoxelType(k)
			}
		}
	}

	if excludeAllUnits {
		return VoxelEmpty
	}
	candidates := [2]*Tile{t, te.cacheTileBelow}
	for _, ct := range candidates {
		if ct == nil || ct.unit == NoUnit {
			continue
		}
		u := te.bf.Unit(ct.unit)
		if u == nil || u.IsOut() || u.id == excludeUnit {
			continue
		}
		if excludeAllBut != NoUnit && u.id != excludeAllBut {
			continue
		}
		if te.unitOccupiesVoxel(u, v) {
			return VoxelUnit
		}
	}
	return VoxelEmpty
}

// unitBaseZ returns the voxel height of the bottom of a unit's silhouette.
func (te *TileEngine) unitBaseZ(u *Unit) int {
	base := u.pos.Z*VoxelsZ + u.FloatHeight()
	if t := te.bf.Tile(u.pos); t != nil {
		base -= t.TerrainLevel()
	}
	return base
}

// unitCenterVoxel returns the horizontal centre of a unit's footprint.
func unitCenterVoxel(u *Unit) (cx, cy int) {
	size := u.Size()
	return u.pos.X*VoxelsX + size*VoxelsX/2, u.pos.Y*VoxelsY + size*VoxelsY/2
}

func unitRadius(u *Unit) int {
	return u.LoftRadius() + (u.Size()-1)*VoxelsX/2
}

// unitOccupiesVoxel tests v against the unit's cylindrical silhouette.
func (te *TileEngine) unitOccupiesVoxel(u *Unit, v Position) bool {
	base := te.unitBaseZ(u)
	if v.Z <= base || v.Z > base+u.Height() {
		return false
	}
	cx, cy := unitCenterVoxel(u)
	dx, dy := v.X-cx, v.Y-cy
	r := unitRadius(u)
	return dx*dx+dy*dy <= r*r
}

// LineResult is the outcome of a voxel trace.
type LineResult struct {
	Hit        VoxelType
	Impact     Position
	Trajectory []Position
}

// CalculateLineVoxel traces a voxel line and returns the first solid voxel.
// excludeUnit is skipped (usually the shooter); with excludeAllBut set only
// that unit can be hit.
func (te *TileEngine) CalculateLineVoxel(origin, target Position, storeTrajectory bool, excludeUnit, excludeAllBut UnitID) LineResult {
	res := LineResult{Hit: VoxelEmpty, Impact: target}
	te.voxelCheckFlush()
	check := func(p Position) bool {
		if storeTrajectory {
			res.Trajectory = append(res.Trajectory, p)
		}
		if p == origin {
			return false
		}
		hit := te.voxelCheck(p, excludeUnit, excludeAllBut, false)
		if hit != VoxelEmpty {
			res.Hit = hit
			res.Impact = p
			return true
		}
		return false
	}
	TraceLine(origin, target, check, check)
	return res
}

// CalculateLineTile traces a tile-granularity line through the geometry cache.
// It returns the tiles crossed and whether the trace was blocked before target.
func (te *TileEngine) CalculateLineTile(origin, target Position) (tiles []Position, blocked bool) {
	tiles = append(tiles, origin)
	prev := origin
	visit := func(p Position) bool {
		if p == origin {
			return false
		}
		if te.tileTransitionBlocked(prev, p) {
			blocked = true
			return true
		}
		tiles = append(tiles, p)
		prev = p
		return false
	}
	TraceLine(origin, target, visit, visit)
	return tiles, blocked
}

// tileTransitionBlocked checks one axis-aligned move between adjacent tiles.
func (te *TileEngine) tileTransitionBlocked(from, to Position) bool {
	g := te.geo.At(from)
	d := to.Sub(from)
	switch {
	case d.Z > 0:
		return g.BlockUp()
	case d.Z < 0:
		return g.BlockDown()
	}
	dir := VectorToDirection(d)
	if dir == DirNone {
		return false
	}
	return g.BlockDir(dir)
}

// ParabolaResult is the outcome of a ballistic trace.
type ParabolaResult struct {
	Hit        VoxelType
	Impact     Position
	Trajectory []Position
}

// CalculateParabolaVoxel traces a ballistic arc from origin to target.
// curvature raises the apex; delta spreads the horizontal (X) and vertical
// (Y+Z) angles in hundredths of pi. An arc still rising when it hits
// something reports VoxelOutOfBounds.
func (te *TileEngine) CalculateParabolaVoxel(origin, target Position, storeTrajectory bool, excludeUnit UnitID, curvature float64, delta Position) ParabolaResult {
	res := ParabolaResult{Hit: VoxelEmpty, Impact: origin}
	d := target.Sub(origin)
	ro := d.Length()
	if ro == 0 {
		return res
	}
	fi := math.Acos(float64(d.Z) / ro)
	te0 := math.Atan2(float64(d.Y), float64(d.X))
	te0 += float64(delta.X) / 100.0 * math.Pi
	fi += float64(delta.Z+delta.Y) / 100.0 * math.Pi * fi

	zA := math.Sqrt(ro) * curvature
	zK := 4.0 * zA / (ro * ro)

	last := origin
	maxSteps := int(ro)*4 + 4*VoxelsZ
	for i := 8; last.Z > 0 && i < maxSteps; i++ {
		fi64 := float64(i)
		next := Position{
			X: origin.X + int(fi64*math.Cos(te0)*math.Sin(fi)),
			Y: origin.Y + int(fi64*math.Sin(te0)*math.Sin(fi)),
			Z: origin.Z + int(fi64*math.Cos(fi)-zK*(fi64-ro/2.0)*(fi64-ro/2.0)+zA),
		}
		line := te.CalculateLineVoxel(last, next, false, excludeUnit, NoUnit)
		if line.Hit != VoxelEmpty {
			res.Hit = line.Hit
			if last.Z < next.Z {
				res.Hit = VoxelOutOfBounds
			}
			res.Impact = line.Impact
			if storeTrajectory {
				res.Trajectory = append(res.Trajectory, line.Impact)
			}
			return res
		}
		if storeTrajectory {
			res.Trajectory = append(res.Trajectory, next)
		}
		last = next
	}
	res.Impact = last
	return res
}

// ValidateThrow searches increasing curvatures for an arc that lands on the
// target tile. It returns the curvature used.
func (te *TileEngine) ValidateThrow(origin, target Position, thrower UnitID) (float64, bool) {
	targetTile := target.ToTile()
	for curvature := 1.0; curvature <= 4.0; curvature += 0.5 {
		res := te.CalculateParabolaVoxel(origin, target, false, thrower, curvature, Position{})
		if res.Hit == VoxelOutOfBounds {
			continue
		}
		if res.Impact.ToTile() == targetTile {
			return curvature, true
		}
	}
	return 0, false
}
