package battle

import (
	"math"

	"go.opentelemetry.io/otel/attribute"
)

// LightLayer is one independently refreshed source of light.
type LightLayer int

const (
	LayerAmbient LightLayer = iota
	LayerFire
	LayerItems
	LayerUnits
	lightLayerCount

	// LayerAll recomputes every layer in dependency order.
	LayerAll LightLayer = -1
)

func (l LightLayer) String() string {
	switch l {
	case LayerAmbient:
		return "ambient"
	case LayerFire:
		return "fire"
	case LayerItems:
		return "items"
	case LayerUnits:
		return "units"
	case LayerAll:
		return "all"
	default:
		return "unknown"
	}
}

// Light levels.
const (
	MaxLight       = 15
	fireLightPower = 15
	// enhancedPathOffset is the perpendicular voxel offset of the two light paths.
	enhancedPathOffset = 3
)

// isDynamic reports whether the layer changes as units and items move.
func (l LightLayer) isDynamic() bool { return l == LayerItems || l == LayerUnits }

type lightBox struct {
	min, max Position
}

func (b lightBox) contains(p Position) bool {
	return p.X >= b.min.X && p.X <= b.max.X && p.Y >= b.min.Y && p.Y <= b.max.Y && p.Z >= b.min.Z && p.Z <= b.max.Z
}

func (te *TileEngine) fullBox() lightBox {
	x, y, z := te.bf.Size()
	return lightBox{min: Pos(0, 0, 0), max: Pos(x-1, y-1, z-1)}
}

func (te *TileEngine) boxAround(p Position, r int) lightBox {
	x, y, z := te.bf.Size()
	return lightBox{
		min: Pos(clampInt(p.X-r, 0, x-1), clampInt(p.Y-r, 0, y-1), clampInt(p.Z-r, 0, z-1)),
		max: Pos(clampInt(p.X+r, 0, x-1), clampInt(p.Y+r, 0, y-1), clampInt(p.Z+r, 0, z-1)),
	}
}

func (te *TileEngine) forBox(b lightBox, fn func(*Tile)) {
	for z := b.min.Z; z <= b.max.Z; z++ {
		for y := b.min.Y; y <= b.max.Y; y++ {
			for x := b.min.X; x <= b.max.X; x++ {
				fn(te.bf.Tile(Pos(x, y, z)))
			}
		}
	}
}

// CalculateLighting recomputes layer (or every layer from it onwards when
// terrain changed) around pos. An invalid pos recomputes the whole map;
// otherwise only tiles within eventRadius plus the light reach are touched,
// with dynamic layers using a wider box than static ones.
func (te *TileEngine) CalculateLighting(layer LightLayer, pos Position, eventRadius int, terrainChanged bool) {
	first, last := layer, layer
	if layer == LayerAll {
		first, last = LayerAmbient, LayerUnits
	} else if terrainChanged {
		last = LayerUnits
	}
	for l := first; l <= last; l++ {
		box := te.fullBox()
		if pos.IsValid() {
			reach := eventRadius + MaxLight
			if l.isDynamic() {
				reach += 2
			}
			box = te.boxAround(pos, reach)
		}
		te.forBox(box, func(t *Tile) { t.resetLight(l) })
		te.applyLayer(l, box)
		te.metrics.add(te.metrics.lightRecomputes, 1, attribute.String("layer", l.String()))
	}
}

func (te *TileEngine) applyLayer(l LightLayer, box lightBox) {
	switch l {
	case LayerAmbient:
		te.applySunlight(box)
	case LayerFire:
		search := te.expandBox(box, MaxLight)
		te.forBox(search, func(t *Tile) {
			if t.fire > 0 {
				te.addLight(t.pos, fireLightPower, l, box)
			}
			for _, p := range t.parts {
				if p != nil && p.LightSource > 0 {
					te.addLight(t.pos, p.LightSource, l, box)
				}
			}
		})
	case LayerItems:
		search := te.expandBox(box, MaxLight)
		for _, it := range te.bf.items {
			if it.destroyed || !it.tile.IsValid() || it.Glow() <= 0 || !search.contains(it.tile) {
				continue
			}
			te.addLight(it.tile, it.Glow(), l, box)
		}
	case LayerUnits:
		search := te.expandBox(box, MaxLight)
		for _, u := range te.bf.units {
			if !search.contains(u.pos) {
				continue
			}
			power := te.unitLightPower(u)
			if power <= 0 {
				continue
			}
			for _, p := range u.OccupiedTiles() {
				te.addLight(p, power, l, box)
			}
		}
	}
}

func (te *TileEngine) expandBox(b lightBox, r int) lightBox {
	x, y, z := te.bf.Size()
	return lightBox{
		min: Pos(clampInt(b.min.X-r, 0, x-1), clampInt(b.min.Y-r, 0, y-1), clampInt(b.min.Z-r, 0, z-1)),
		max: Pos(clampInt(b.max.X+r, 0, x-1), clampInt(b.max.Y+r, 0, y-1), clampInt(b.max.Z+r, 0, z-1)),
	}
}

// unitLightPower is the brightest of armor light, glowing held items and burning.
func (te *TileEngine) unitLightPower(u *Unit) int {
	power := 0
	if !u.IsOut() && u.armor != nil {
		power = u.armor.PersonalLight
	}
	for _, id := range [2]ItemID{u.rightHand, u.leftHand} {
		if it := te.bf.Item(id); it != nil && it.Glow() > power {
			power = it.Glow()
		}
	}
	if u.fireTurns > 0 {
		power = fireLightPower
	}
	return power
}

// applySunlight lights every tile from the global shade. Roofs dim daylight.
func (te *TileEngine) applySunlight(box lightBox) {
	shade := te.bf.GlobalShade()
	power := MaxLight - shade
	_, _, sizeZ := te.bf.Size()
	te.forBox(box, func(t *Tile) {
		p := power
		if shade <= 5 && te.hasRoof(t.pos, sizeZ) {
			p -= 2
		}
		t.addLight(p, LayerAmbient)
	})
}

func (te *TileEngine) hasRoof(p Position, sizeZ int) bool {
	for z := p.Z + 1; z < sizeZ; z++ {
		if t := te.bf.Tile(Pos(p.X, p.Y, z)); t != nil && t.parts[PartFloor] != nil {
			return true
		}
	}
	return false
}

func (te *TileEngine) enhancedFor(l LightLayer) bool {
	if l.isDynamic() {
		return te.opts.EnhancedLighting&EnhancedLightingDynamic != 0
	}
	return te.opts.EnhancedLighting&EnhancedLightingStatic != 0
}

// addLight spreads power from center into every tile of box, keeping the
// highest value per layer.
func (te *TileEngine) addLight(center Position, power int, l LightLayer, box lightBox) {
	if power <= 0 {
		return
	}
	if power > MaxLight {
		power = MaxLight
	}
	reach := te.boxAround(center, power)
	enhanced := te.enhancedFor(l)
	for z := maxInt(reach.min.Z, box.min.Z); z <= minInt(reach.max.Z, box.max.Z); z++ {
		for y := maxInt(reach.min.Y, box.min.Y); y <= minInt(reach.max.Y, box.max.Y); y++ {
			for x := maxInt(reach.min.X, box.min.X); x <= minInt(reach.max.X, box.max.X); x++ {
				target := Pos(x, y, z)
				dist := math.Sqrt(float64(center.DistanceSq(target, true)))
				if dist >= float64(power) {
					continue
				}
				var v int
				if enhanced {
					v = te.enhancedLight(center, target, power)
				} else {
					v = power - int(math.Ceil(dist))
				}
				if v > 0 {
					te.bf.Tile(target).addLight(v, l)
				}
			}
		}
	}
}

// enhancedLight walks two paths offset either side of the source-target line
// through the geometry cache and averages what arrives. Each smoke tile, fire
// tile or upward height step costs one level; a blocked transition stops a path.
func (te *TileEngine) enhancedLight(src, dst Position, power int) int {
	if src == dst {
		return power
	}
	s := src.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
	d := dst.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
	dx, dy := float64(d.X-s.X), float64(d.Y-s.Y)
	var off Position
	if l := math.Hypot(dx, dy); l > 0 {
		off = Pos(int(math.Round(-dy/l*enhancedPathOffset)), int(math.Round(dx/l*enhancedPathOffset)), 0)
	} else {
		off = Pos(enhancedPathOffset, 0, 0)
	}
	dist := int(math.Ceil(math.Sqrt(float64(src.DistanceSq(dst, true)))))
	a := te.lightPath(te.clampVoxel(s.Add(off)), te.clampVoxel(d.Add(off)), power-dist)
	b := te.lightPath(te.clampVoxel(s.Sub(off)), te.clampVoxel(d.Sub(off)), power-dist)
	return (a + b) / 2
}

func (te *TileEngine) clampVoxel(v Position) Position {
	x, y, z := te.bf.Size()
	return Pos(clampInt(v.X, 0, x*VoxelsX-1), clampInt(v.Y, 0, y*VoxelsY-1), clampInt(v.Z, 0, z*VoxelsZ-1))
}

func (te *TileEngine) lightPath(from, to Position, light int) int {
	if light <= 0 {
		return 0
	}
	prev := from.ToTile()
	prevHeight := te.geo.At(prev).Height()
	stopped := false
	visit := func(v Position) bool {
		tp := v.ToTile()
		if tp == prev {
			return false
		}
		if te.tileTransitionBlocked(prev, tp) {
			stopped = true
			return true
		}
		g := te.geo.At(tp)
		if g.Smoke() {
			light--
		}
		if g.Fire() {
			light--
		}
		if h := g.Height(); h > prevHeight && tp.Z == prev.Z {
			light--
		}
		prevHeight = g.Height()
		prev = tp
		return light <= 0
	}
	TraceLine(from, to, visit, visit)
	if stopped || light < 0 {
		return 0
	}
	return light
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
