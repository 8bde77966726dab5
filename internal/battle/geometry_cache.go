package battle

// TileGeometry is the packed blockage summary of one tile.
//
//	bit  0      block up (tile above has a floor)
//	bit  1      block down (tile has a floor)
//	bits 2-9    horizontal blockage towards each compass direction
//	bits 10-17  blockage towards the neighbour one level up
//	bits 18-25  blockage towards the neighbour one level down
//	bit  26     big wall object present
//	bit  27     smoke present
//	bit  28     fire present
//	bit  29     fully opaque tile
//	bits 32-35  height step (0-4)
type TileGeometry uint64

const (
	geoBlockUp      TileGeometry = 1 << 0
	geoBlockDown    TileGeometry = 1 << 1
	geoDirShift                  = 2
	geoDirUpShift                = 10
	geoDirDownShift              = 18
	geoBigWall      TileGeometry = 1 << 26
	geoSmoke        TileGeometry = 1 << 27
	geoFire         TileGeometry = 1 << 28
	geoFullBlock    TileGeometry = 1 << 29
	geoHeightShift               = 32
	geoHeightMask   TileGeometry = 0xF << geoHeightShift
	geoOutOfBounds  TileGeometry = geoBlockUp | geoBlockDown | 0xFFFFFF<<geoDirShift | geoFullBlock
)

func (g TileGeometry) BlockUp() bool   { return g&geoBlockUp != 0 }
func (g TileGeometry) BlockDown() bool { return g&geoBlockDown != 0 }
func (g TileGeometry) BigWall() bool   { return g&geoBigWall != 0 }
func (g TileGeometry) Smoke() bool     { return g&geoSmoke != 0 }
func (g TileGeometry) Fire() bool      { return g&geoFire != 0 }
func (g TileGeometry) FullBlock() bool { return g&geoFullBlock != 0 }
func (g TileGeometry) Height() int     { return int((g & geoHeightMask) >> geoHeightShift) }

// BlockDir reports whether propagation towards the neighbour in d is blocked.
// DirUp and DirDown map to BlockUp and BlockDown.
func (g TileGeometry) BlockDir(d Direction) bool {
	switch {
	case d == DirUp:
		return g.BlockUp()
	case d == DirDown:
		return g.BlockDown()
	case d < DirNorth || d > DirNorthWest:
		return true
	}
	return g&(1<<(geoDirShift+uint(d))) != 0
}

// BlockDirUp reports whether propagation to the neighbour in d one level up is blocked.
func (g TileGeometry) BlockDirUp(d Direction) bool {
	if d < DirNorth || d > DirNorthWest {
		return true
	}
	return g&(1<<(geoDirUpShift+uint(d))) != 0
}

// BlockDirDown reports whether propagation to the neighbour in d one level down is blocked.
func (g TileGeometry) BlockDirDown(d Direction) bool {
	if d < DirNorth || d > DirNorthWest {
		return true
	}
	return g&(1<<(geoDirDownShift+uint(d))) != 0
}

// GeometryCache holds a TileGeometry per tile, rebuilt when terrain changes.
type GeometryCache struct {
	bf    *Battlefield
	masks []TileGeometry
}

// NewGeometryCache builds the cache for every tile of bf.
func NewGeometryCache(bf *Battlefield) *GeometryCache {
	c := &GeometryCache{bf: bf, masks: make([]TileGeometry, len(bf.tiles))}
	c.RebuildAll()
	return c
}

// At returns the geometry of the tile at p; out-of-bounds tiles are fully blocked.
func (c *GeometryCache) At(p Position) TileGeometry {
	if !c.bf.InBounds(p) {
		return geoOutOfBounds
	}
	return c.masks[c.bf.index(p.X, p.Y, p.Z)]
}

// RebuildAll recomputes every tile.
func (c *GeometryCache) RebuildAll() {
	c.bf.ForEachTile(func(t *Tile) {
		c.masks[c.bf.index(t.pos.X, t.pos.Y, t.pos.Z)] = c.compute(t.pos)
	})
}

// Rebuild recomputes p and the 26 tiles around it, whose transitions depend on p.
func (c *GeometryCache) Rebuild(p Position) {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				q := p.Add(Pos(dx, dy, dz))
				if c.bf.InBounds(q) {
					c.masks[c.bf.index(q.X, q.Y, q.Z)] = c.compute(q)
				}
			}
		}
	}
}

func (c *GeometryCache) compute(p Position) TileGeometry {
	bf := c.bf
	t := bf.Tile(p)
	var g TileGeometry
	if t.parts[PartFloor] != nil {
		g |= geoBlockDown
	}
	if above := bf.Tile(p.Add(Pos(0, 0, 1))); above == nil || above.parts[PartFloor] != nil {
		g |= geoBlockUp
	}
	for d := DirNorth; d <= DirNorthWest; d++ {
		if transitionBlocked(bf, p, d) {
			g |= 1 << (geoDirShift + uint(d))
		}
		if verticalTransitionBlocked(bf, p, d, 1) {
			g |= 1 << (geoDirUpShift + uint(d))
		}
		if verticalTransitionBlocked(bf, p, d, -1) {
			g |= 1 << (geoDirDownShift + uint(d))
		}
	}
	if t.BigWall() != BigWallNone {
		g |= geoBigWall
	}
	if t.smoke > 0 {
		g |= geoSmoke
	}
	if t.fire > 0 {
		g |= geoFire
	}
	if tileOpaque(t) {
		g |= geoFullBlock
	}
	h := clampInt(-t.TerrainLevel()*4/VoxelsZ, 0, 4)
	g |= TileGeometry(h) << geoHeightShift
	return g
}

// tileOpaque reports whether the tile's object blocks sight from every side.
func tileOpaque(t *Tile) bool {
	o := t.parts[PartObject]
	if o == nil || !o.BlockVision {
		return false
	}
	return o.BigWall == BigWallNone || o.BigWall == BigWallBlock
}

// bigWallCovers reports whether an object of the given wall type sits on the
// side s of its tile. Diagonal walls cover every side except their own axis.
func bigWallCovers(w BigWall, s Direction) bool {
	switch w {
	case BigWallBlock:
		return true
	case BigWallNESW:
		return s != DirNorthEast && s != DirSouthWest
	case BigWallNWSE:
		return s != DirNorthWest && s != DirSouthEast
	case BigWallWest:
		return s == DirWest || s == DirNorthWest || s == DirSouthWest
	case BigWallNorth:
		return s == DirNorth || s == DirNorthWest || s == DirNorthEast
	case BigWallEast:
		return s == DirEast || s == DirNorthEast || s == DirSouthEast
	case BigWallSouth:
		return s == DirSouth || s == DirSouthWest || s == DirSouthEast
	case BigWallEastAndSouth:
		return s != DirNorth && s != DirWest && s != DirNorthWest
	case BigWallWestAndNorth:
		return s != DirSouth && s != DirEast && s != DirSouthEast
	}
	return false
}

// sideBlocked reports whether something on side s (a cardinal direction) of t blocks sight.
func sideBlocked(t *Tile, s Direction) bool {
	switch s {
	case DirNorth:
		if w := t.parts[PartNorthWall]; w != nil && w.BlockVision {
			return true
		}
	case DirWest:
		if w := t.parts[PartWestWall]; w != nil && w.BlockVision {
			return true
		}
	}
	if o := t.parts[PartObject]; o != nil && o.BlockVision && o.BigWall != BigWallNone {
		return bigWallCovers(o.BigWall, s)
	}
	return false
}

// cardinalBlocked checks a move between horizontally adjacent tiles.
func cardinalBlocked(from, to *Tile, d Direction) bool {
	if to == nil {
		return true
	}
	if tileOpaque(to) {
		return true
	}
	return sideBlocked(from, d) || sideBlocked(to, d.Opposite())
}

// transitionBlocked checks propagation from p into its neighbour in d on the same level.
// Diagonal moves are blocked only when both L-shaped detours are.
func transitionBlocked(bf *Battlefield, p Position, d Direction) bool {
	from := bf.Tile(p)
	to := bf.Tile(p.Add(d.Vector()))
	if from == nil || to == nil {
		return true
	}
	if !d.IsDiagonal() {
		return cardinalBlocked(from, to, d)
	}
	if tileOpaque(to) {
		return true
	}
	d1, d2 := (d+7)%8, (d+1)%8
	via := func(a, b Direction) bool {
		mid := bf.Tile(p.Add(a.Vector()))
		return cardinalBlocked(from, mid, a) || cardinalBlocked(mid, to, b)
	}
	blocked := via(d1, d2) && via(d2, d1)
	if o := to.parts[PartObject]; !blocked && o != nil && o.BlockVision && bigWallCovers(o.BigWall, d.Opposite()) {
		blocked = true
	}
	return blocked
}

// verticalTransitionBlocked checks p -> neighbour in d, one level up (dz=1) or down (dz=-1):
// either go level first then vertical, or vertical first then level.
func verticalTransitionBlocked(bf *Battlefield, p Position, d Direction, dz int) bool {
	side := p.Add(d.Vector())
	vert := p.Add(Pos(0, 0, dz))
	target := side.Add(Pos(0, 0, dz))
	if !bf.InBounds(target) {
		return true
	}
	vBlocked := func(a, b Position) bool {
		lower := a
		if dz < 0 {
			lower = b
		}
		upper := lower.Add(Pos(0, 0, 1))
		t := bf.Tile(upper)
		return t == nil || t.parts[PartFloor] != nil
	}
	levelFirst := transitionBlocked(bf, p, d) || vBlocked(side, target)
	vertFirst := vBlocked(p, vert) || transitionBlocked(bf, vert, d)
	return levelFirst && vertFirst
}
