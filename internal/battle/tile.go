package battle

// Maximum smoke density and the fire level cap.
const (
	MaxSmoke = 15
	MaxFire  = 15
)

// Tile is one cell of the 3D battlefield grid.
type Tile struct {
	pos   Position
	parts [partKindCount]*TerrainPart

	smoke int
	fire  int

	// pending explosion left behind by a destroyed explosive part
	explosivePower int
	explosiveType  DamageType

	light [lightLayerCount]int

	discovered [factionCount]bool
	visible    [factionCount]bool

	unit  UnitID
	items []ItemID
}

func newTile(p Position) *Tile {
	return &Tile{pos: p, unit: NoUnit}
}

// Pos returns the tile coordinates.
func (t *Tile) Pos() Position { return t.pos }

// Part returns the terrain part of the given kind, or nil.
func (t *Tile) Part(k PartKind) *TerrainPart { return t.parts[k] }

// SetPart places (or clears, with nil) a terrain part.
func (t *Tile) SetPart(k PartKind, p *TerrainPart) {
	if p != nil && p.Kind != k {
		panic(InvariantViolation{Msg: "terrain part " + p.Name + " placed in " + k.String() + " slot"})
	}
	t.parts[k] = p
}

// IsVoid reports whether the tile holds no terrain at all.
func (t *Tile) IsVoid() bool {
	for _, p := range t.parts {
		if p != nil {
			return false
		}
	}
	return true
}

// HasNoFloor reports whether a unit or item here would fall.
func (t *Tile) HasNoFloor(below *Tile) bool {
	if t.parts[PartFloor] != nil {
		return false
	}
	if below != nil && below.parts[PartObject] != nil && below.parts[PartObject].TerrainLevel <= -VoxelsZ {
		return false
	}
	return true
}

// TerrainLevel returns how many voxels above the tile floor a unit stands (negative up).
func (t *Tile) TerrainLevel() int {
	level := 0
	if f := t.parts[PartFloor]; f != nil && f.TerrainLevel < level {
		level = f.TerrainLevel
	}
	if o := t.parts[PartObject]; o != nil && o.TerrainLevel < level {
		level = o.TerrainLevel
	}
	return level
}

// MoveCost returns the TU cost of entering the tile horizontally.
func (t *Tile) MoveCost() int {
	cost := 0
	if f := t.parts[PartFloor]; f != nil {
		cost = f.MoveCost
	}
	if o := t.parts[PartObject]; o != nil {
		if o.MoveCost == MoveImpassable {
			return MoveImpassable
		}
		cost += o.MoveCost
	}
	if cost == 0 {
		cost = 4
	}
	return cost
}

// Flammability is the lowest flammability among present parts.
func (t *Tile) Flammability() int {
	flam := FlammableNever
	for _, p := range t.parts {
		if p != nil && p.Flammable < flam {
			flam = p.Flammable
		}
	}
	return flam
}

// Fuel is the burn duration of the most flammable part.
func (t *Tile) Fuel() int {
	flam, fuel := FlammableNever, 0
	for _, p := range t.parts {
		if p != nil && p.Flammable <= flam && p.Flammable != FlammableNever {
			flam = p.Flammable
			fuel = p.Fuel
		}
	}
	return fuel
}

// Smoke returns the smoke density (0-15).
func (t *Tile) Smoke() int { return t.smoke }

// SetSmoke sets smoke density, clamped to 0-15.
func (t *Tile) SetSmoke(v int) { t.smoke = clampInt(v, 0, MaxSmoke) }

// AddSmoke raises smoke density without lowering it.
func (t *Tile) AddSmoke(v int) {
	if v > t.smoke {
		t.SetSmoke(v)
	}
}

// Fire returns the remaining burn turns.
func (t *Tile) Fire() int { return t.fire }

// SetFire sets the remaining burn turns.
func (t *Tile) SetFire(v int) { t.fire = clampInt(v, 0, MaxFire) }

// Ignite sets the tile burning when it has fuel and is not already alight.
// The burn lasts fuel+1 turns and produces smoke inversely related to flammability.
func (t *Tile) Ignite() bool {
	if t.fire > 0 {
		return false
	}
	if t.Flammability() == FlammableNever || t.Fuel() == 0 {
		return false
	}
	if t.parts[PartFloor] == nil && t.parts[PartObject] == nil {
		return false
	}
	t.SetFire(t.Fuel() + 1)
	t.AddSmoke(MaxSmoke - clampInt(t.Flammability()/10, 1, 12))
	return true
}

// BigWall returns the wall behaviour of the object part.
func (t *Tile) BigWall() BigWall {
	if o := t.parts[PartObject]; o != nil {
		return o.BigWall
	}
	return BigWallNone
}

// Light returns the final light level, the max across layers.
func (t *Tile) Light() int {
	best := 0
	for _, l := range t.light {
		if l > best {
			best = l
		}
	}
	return best
}

// LayerLight returns the light contributed by one layer.
func (t *Tile) LayerLight(l LightLayer) int { return t.light[l] }

func (t *Tile) resetLight(l LightLayer) { t.light[l] = 0 }

func (t *Tile) addLight(v int, l LightLayer) {
	if v > t.light[l] {
		t.light[l] = clampInt(v, 0, MaxLight)
	}
}

// IsDiscovered reports whether the faction has ever seen the tile.
func (t *Tile) IsDiscovered(f Faction) bool { return t.discovered[f] }

// IsVisible reports whether the faction currently sees the tile.
func (t *Tile) IsVisible(f Faction) bool { return t.visible[f] }

func (t *Tile) markSeen(f Faction) {
	t.discovered[f] = true
	t.visible[f] = true
}

// Unit returns the occupying unit id or NoUnit.
func (t *Tile) Unit() UnitID { return t.unit }

// Items returns the ids of items resting on the tile.
func (t *Tile) Items() []ItemID { return t.items }

func (t *Tile) addItem(id ItemID) { t.items = append(t.items, id) }

func (t *Tile) removeItem(id ItemID) bool {
	for i, it := range t.items {
		if it == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return true
		}
	}
	return false
}

// PendingExplosion returns the power and type of an explosion left by a destroyed part.
func (t *Tile) PendingExplosion() (int, DamageType) { return t.explosivePower, t.explosiveType }

func (t *Tile) setExplosive(power int, dt DamageType) {
	if power > t.explosivePower {
		t.explosivePower = power
		t.explosiveType = dt
	}
}

func (t *Tile) clearExplosive() {
	t.explosivePower = 0
	t.explosiveType = DamageNone
}

// destroyPart replaces a part with its die-into part and reports whether
// an objective part was destroyed.
func (t *Tile) destroyPart(k PartKind) (objective bool) {
	p := t.parts[k]
	if p == nil {
		return false
	}
	objective = p.Objective
	if p.IsExplosive() {
		t.setExplosive(p.ExplosivePower, p.ExplosiveType)
	}
	t.parts[k] = p.dieInto
	if t.Flammability() == FlammableNever || t.Fuel() == 0 {
		t.fire = 0
	}
	return objective
}

// DoorResult is the outcome of a door toggle attempt.
type DoorResult int

const (
	DoorNone DoorResult = iota
	DoorOpened
	DoorClosed
	DoorBlocked
)

// toggleDoor swaps a door part with its alternate state.
func (t *Tile) toggleDoor(k PartKind) DoorResult {
	p := t.parts[k]
	if p == nil || !p.Door || p.altPart == nil {
		return DoorNone
	}
	t.parts[k] = p.altPart
	if p.BlockVision {
		return DoorOpened
	}
	return DoorClosed
}
