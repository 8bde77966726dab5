package battle

import (
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// viewConeHalfAngle is half the horizontal field of view, in radians.
const viewConeHalfAngle = math.Pi/4 + 1e-6

// fovScope restricts a field of view update to the tiles an event at
// (event, radius) can affect from origin: tiles not nearer than the event
// and inside the sector bounded by the tangents to the event circle.
type fovScope struct {
	full     bool
	origin   Position
	minDist  float64
	theta    float64
	halfArc  float64
	allAngle bool
}

func newFOVScope(origin, event Position, radius int) fovScope {
	if !event.IsValid() {
		return fovScope{full: true}
	}
	dx, dy := float64(event.X-origin.X), float64(event.Y-origin.Y)
	d := math.Hypot(dx, dy)
	s := fovScope{origin: origin, minDist: d - float64(radius)}
	if d <= float64(radius) || d == 0 {
		s.allAngle = true
		return s
	}
	s.theta = math.Atan2(dy, dx)
	s.halfArc = math.Asin(math.Min(1, float64(radius)/d))
	return s
}

// contains reports whether tile p must be recomputed.
func (s fovScope) contains(p Position) bool {
	if s.full {
		return true
	}
	dx, dy := float64(p.X-s.origin.X), float64(p.Y-s.origin.Y)
	d := math.Hypot(dx, dy)
	if d < s.minDist {
		return false
	}
	if s.allAngle || d == 0 {
		return true
	}
	diff := math.Abs(normalizeAngle(math.Atan2(dy, dx) - s.theta))
	// widen by the angular half-width of a tile at that distance
	return diff <= s.halfArc+math.Atan(0.71/d)
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// viewDirection is the turret direction when strafing, the body facing otherwise.
func (u *Unit) viewDirection() Direction {
	if u.turretDir != DirNone && u.turretDir != u.dir {
		return u.turretDir
	}
	return u.dir
}

// InViewCone reports whether tile p lies within the unit's 90 degree view cone.
func (u *Unit) InViewCone(p Position) bool {
	for _, o := range u.OccupiedTiles() {
		dx, dy := float64(p.X-o.X), float64(p.Y-o.Y)
		if dx == 0 && dy == 0 {
			return true
		}
		// 0 = north, clockwise; y grows southwards
		angle := math.Atan2(dx, -dy)
		facing := float64(u.viewDirection()) * math.Pi / 4
		if math.Abs(normalizeAngle(angle-facing)) <= viewConeHalfAngle {
			return true
		}
	}
	return false
}

// CalculateFOV refreshes vision for every live unit that an event at pos
// within eventRadius can affect. An invalid pos recomputes everything.
func (te *TileEngine) CalculateFOV(pos Position, eventRadius int, updateTiles bool) {
	if !pos.IsValid() && updateTiles {
		te.bf.ForEachTile(func(t *Tile) { t.visible = [factionCount]bool{} })
	}
	maxDist := te.opts.MaxViewDistance + eventRadius
	for _, u := range te.bf.units {
		if u.IsOut() {
			continue
		}
		if pos.IsValid() && u.pos.DistanceSq(pos, false) > maxDist*maxDist {
			continue
		}
		if updateTiles {
			te.CalculateTilesInFOV(u, pos, eventRadius)
		}
		te.CalculateUnitsInFOV(u, pos, eventRadius)
	}
}

// CalculateTilesInFOV marks the tiles the unit can see. With a valid
// eventPos only tiles within the event's scope are recomputed; the rest keep
// their previous visibility.
func (te *TileEngine) CalculateTilesInFOV(u *Unit, eventPos Position, eventRadius int) {
	te.metrics.add(te.metrics.fovRecomputes, 1, attribute.String("kind", "tiles"))
	scope := newFOVScope(u.pos, eventPos, eventRadius)
	view := te.opts.MaxViewDistance

	seen := make(map[Position]bool, len(u.visibleTiles))
	if !scope.full {
		for _, p := range u.visibleTiles {
			if !scope.contains(p) {
				seen[p] = true
			}
		}
	}

	sizeX, sizeY, sizeZ := te.bf.Size()
	origins := u.OccupiedTiles()
	for z := 0; z < sizeZ; z++ {
		for y := maxInt(0, u.pos.Y-view); y <= minInt(sizeY-1, u.pos.Y+view+u.Size()-1); y++ {
			for x := maxInt(0, u.pos.X-view); x <= minInt(sizeX-1, u.pos.X+view+u.Size()-1); x++ {
				p := Pos(x, y, z)
				if seen[p] || !scope.contains(p) {
					continue
				}
				if u.pos.DistanceSq(p, false) > view*view || !u.InViewCone(p) {
					continue
				}
				for _, o := range origins {
					crossed, blocked := te.CalculateLineTile(o, p)
					for _, c := range crossed {
						if !seen[c] && scope.contains(c) {
							seen[c] = true
						}
					}
					if !blocked {
						break
					}
				}
			}
		}
	}

	u.visibleTiles = u.visibleTiles[:0]
	for p := range seen {
		u.visibleTiles = append(u.visibleTiles, p)
		if t := te.bf.Tile(p); t != nil {
			t.markSeen(u.faction)
		}
	}
	sortPositions(u.visibleTiles)
}

// CalculateUnitsInFOV refreshes the enemy units the observer can see and
// reports whether it spotted a unit it did not see before.
func (te *TileEngine) CalculateUnitsInFOV(u *Unit, eventPos Position, eventRadius int) bool {
	te.metrics.add(te.metrics.fovRecomputes, 1, attribute.String("kind", "units"))
	scope := newFOVScope(u.pos, eventPos, eventRadius)
	if scope.full {
		u.visibleUnits = u.visibleUnits[:0]
	}
	spotted := false
	for _, other := range te.bf.units {
		if other.id == u.id || other.faction == u.faction {
			continue
		}
		if other.IsOut() {
			u.removeVisibleUnit(other.id)
			continue
		}
		inScope := scope.full
		for _, p := range other.OccupiedTiles() {
			if scope.contains(p) {
				inScope = true
				break
			}
		}
		if !inScope {
			continue
		}
		seen := false
		for _, p := range other.OccupiedTiles() {
			if u.InViewCone(p) && te.Visible(u, p) {
				seen = true
				break
			}
		}
		if !seen {
			u.removeVisibleUnit(other.id)
			continue
		}
		if u.addVisibleUnit(other.id) {
			spotted = true
			other.turnsSinceSpotted[u.faction] = 0
			te.log.Addf(u, CatVision, "spotted", float64(other.id), "U%d at %v", other.id, other.pos)
			if te.onUnitSpotted != nil {
				te.onUnitSpotted(u, other)
			}
		}
		other.turnsSinceSpotted[u.faction] = 0
	}
	return spotted
}

// SightOriginVoxel returns the eye position of a unit in voxel space.
func (te *TileEngine) SightOriginVoxel(u *Unit) Position {
	cx, cy := unitCenterVoxel(u)
	z := te.unitBaseZ(u) + u.Height() - 4
	if z <= te.unitBaseZ(u) {
		z = te.unitBaseZ(u) + 1
	}
	ceiling := (u.pos.Z + 1) * VoxelsZ
	if above := te.bf.Tile(u.pos.Add(Pos(0, 0, 1))); z >= ceiling && (above == nil || above.parts[PartFloor] != nil) {
		z = ceiling - 2
	}
	return Pos(cx, cy, z)
}

// darkAt reports whether a tile is too dark to make out units by sight.
func (te *TileEngine) darkAt(t *Tile) bool {
	return MaxLight-t.Light() > te.opts.MaxDarknessToSeeUnits && t.fire == 0
}

// maxSightRange returns the tiles an observer can see target at, given the
// light on the target tile and both armors.
func (te *TileEngine) maxSightRange(observer, target *Unit, t *Tile) int {
	rng := te.opts.MaxViewDistance
	if te.darkAt(t) {
		rng = 9
		if observer.armor != nil && observer.armor.VisibilityAtDark > 0 {
			rng = observer.armor.VisibilityAtDark
		}
		if target.armor != nil {
			rng -= target.armor.CamouflageAtDark
		}
	} else {
		if observer.armor != nil && observer.armor.VisibilityAtDay > 0 {
			rng = observer.armor.VisibilityAtDay
		}
		if target.armor != nil {
			rng -= target.armor.CamouflageAtDay
		}
	}
	return clampInt(rng, 0, te.opts.MaxViewDistance)
}

// Visible reports whether observer can see the unit on tile p. Same-faction
// units always see each other. Otherwise the distance cutoff applies, then
// psi vision, then the day/night sight range, then a voxel trace whose length
// grows with the smoke and fire it crosses.
func (te *TileEngine) Visible(observer *Unit, p Position) bool {
	t := te.bf.Tile(p)
	if t == nil || t.unit == NoUnit {
		return false
	}
	target := te.bf.Unit(t.unit)
	if target == nil || target.IsOut() {
		return false
	}
	if target.faction == observer.faction {
		return true
	}
	distSq := observer.pos.DistanceSq(p, false)
	view := te.opts.MaxViewDistance
	if distSq > view*view {
		return false
	}
	if observer.armor != nil {
		psi := observer.armor.PsiVision
		if target.armor != nil {
			psi -= target.armor.PsiCamouflage
		}
		if psi > 0 && distSq <= psi*psi {
			return true
		}
	}
	sight := te.maxSightRange(observer, target, t)
	if distSq > sight*sight {
		return false
	}
	eff, ok := te.effectiveSightDistance(observer, p)
	return ok && eff <= float64(sight*VoxelsX)
}

// effectiveSightDistance traces from the observer's eye to the target's
// silhouette and returns the distance in voxels plus smoke and fire
// penalties scaled by the observer's resistance.
func (te *TileEngine) effectiveSightDistance(observer *Unit, p Position) (float64, bool) {
	origin := te.SightOriginVoxel(observer)
	voxel, ok := te.CanTargetUnit(origin, p, observer, false)
	if !ok {
		return 0, false
	}
	line := te.CalculateLineVoxel(origin, voxel, true, observer.id, NoUnit)
	return tileDistanceVoxels(observer.pos, p) + te.sightPenalty(observer, line.Trajectory), true
}

func tileDistanceVoxels(a, b Position) float64 {
	return math.Sqrt(float64(a.DistanceSq(b, true))) * VoxelsX
}

// sightPenalty converts the smoke and fire crossed by a trajectory into extra voxels of distance.
func (te *TileEngine) sightPenalty(observer *Unit, trajectory []Position) float64 {
	smoke, fire := 0, 0
	track := InvalidPosition
	for _, v := range trajectory {
		tp := v.ToTile()
		if tp == track {
			continue
		}
		track = tp
		if t := te.bf.Tile(tp); t != nil {
			smoke += t.smoke
			fire += t.fire
		}
	}
	smokeFactor, fireFactor := 100, 100
	if observer.armor != nil {
		smokeFactor -= observer.armor.SmokeVision
		fireFactor -= observer.armor.FireVision
	}
	// fresh smoke (15) leaves about four tiles of sight
	return float64(smoke*smokeFactor+fire*fireFactor) / 100.0 / 3.0 * VoxelsX
}

// LineOfSightQuality scores how clearly observer sees the unit on tile p:
// 1 is an unobstructed view at point blank, 0 no view. Smoke and fire on
// the line only ever lower the score.
func (te *TileEngine) LineOfSightQuality(observer *Unit, p Position) float64 {
	t := te.bf.Tile(p)
	if t == nil {
		return 0
	}
	target := te.bf.Unit(t.unit)
	if target == nil || target.IsOut() {
		return 0
	}
	eff, ok := te.effectiveSightDistance(observer, p)
	if !ok {
		return 0
	}
	maxVoxels := float64(te.opts.MaxViewDistance * VoxelsX)
	q := 1 - eff/maxVoxels
	if q < 0 {
		return 0
	}
	return q
}

// IsTileInLOS reports whether the observer has a clear terrain line of sight
// to the centre of tile p. Psi vision and camouflage play no part.
func (te *TileEngine) IsTileInLOS(observer *Unit, p Position) bool {
	if te.bf.Tile(p) == nil {
		return false
	}
	view := te.opts.MaxViewDistance
	if observer.pos.DistanceSq(p, false) > view*view {
		return false
	}
	origin := te.SightOriginVoxel(observer)
	target := p.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
	line := te.CalculateLineVoxel(origin, target, true, observer.id, NoUnit)
	if line.Hit != VoxelEmpty && line.Hit != VoxelUnit && line.Impact.ToTile() != p {
		return false
	}
	return tileDistanceVoxels(observer.pos, p)+te.sightPenalty(observer, line.Trajectory) <= float64(view*VoxelsX)
}

// TickSpotting ages the turns-since-spotted counters of the given faction's enemies.
func (te *TileEngine) TickSpotting(observerFaction Faction) {
	for _, u := range te.bf.units {
		if u.turnsSinceSpotted[observerFaction] < NeverSpotted {
			u.turnsSinceSpotted[observerFaction]++
		}
	}
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool { return lessPosition(ps[i], ps[j]) })
}
