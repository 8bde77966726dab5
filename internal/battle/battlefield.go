package battle

import "fmt"

// Battlefield is the battle context shared by every engine component: the
// tile grid, the unit and item arenas and the turn counters. Units and items
// are referenced by id everywhere, never by owning pointer.
type Battlefield struct {
	sizeX, sizeY, sizeZ int
	tiles               []Tile

	terrain *TerrainSet
	rules   *Ruleset

	units []*Unit
	items []*Item

	turn        int
	side        Faction
	globalShade int

	movingUnit   UnitID
	selectedUnit UnitID

	objectiveDestroyed bool
}

// NewBattlefield preallocates every tile of a sizeX*sizeY*sizeZ map.
func NewBattlefield(sizeX, sizeY, sizeZ int, terrain *TerrainSet) *Battlefield {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		panic(invariantf("battlefield size %dx%dx%d", sizeX, sizeY, sizeZ))
	}
	if terrain == nil {
		terrain = DefaultTerrainSet()
	}
	bf := &Battlefield{
		sizeX:        sizeX,
		sizeY:        sizeY,
		sizeZ:        sizeZ,
		tiles:        make([]Tile, sizeX*sizeY*sizeZ),
		terrain:      terrain,
		rules:        DefaultRuleset(),
		turn:         1,
		side:         FactionPlayer,
		movingUnit:   NoUnit,
		selectedUnit: NoUnit,
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				bf.tiles[bf.index(x, y, z)] = *newTile(Pos(x, y, z))
			}
		}
	}
	return bf
}

// SetRuleset replaces the rule table. Call before adding units or items.
func (bf *Battlefield) SetRuleset(rs *Ruleset) { bf.rules = rs }

// Rules returns the rule table.
func (bf *Battlefield) Rules() *Ruleset { return bf.rules }

// Terrain returns the terrain catalogue.
func (bf *Battlefield) Terrain() *TerrainSet { return bf.terrain }

// Size returns the map dimensions in tiles.
func (bf *Battlefield) Size() (x, y, z int) { return bf.sizeX, bf.sizeY, bf.sizeZ }

func (bf *Battlefield) index(x, y, z int) int {
	return z*bf.sizeX*bf.sizeY + y*bf.sizeX + x
}

// InBounds reports whether p addresses a tile of the map.
func (bf *Battlefield) InBounds(p Position) bool {
	return p.X >= 0 && p.X < bf.sizeX && p.Y >= 0 && p.Y < bf.sizeY && p.Z >= 0 && p.Z < bf.sizeZ
}

// Tile returns the tile at p, or nil outside the map.
func (bf *Battlefield) Tile(p Position) *Tile {
	if !bf.InBounds(p) {
		return nil
	}
	return &bf.tiles[bf.index(p.X, p.Y, p.Z)]
}

// TileBelow returns the tile under p, or nil on the bottom layer.
func (bf *Battlefield) TileBelow(p Position) *Tile { return bf.Tile(p.Add(Pos(0, 0, -1))) }

// ForEachTile visits every tile in index order.
func (bf *Battlefield) ForEachTile(fn func(*Tile)) {
	for i := range bf.tiles {
		fn(&bf.tiles[i])
	}
}

// SetPart places a named terrain part on a tile.
func (bf *Battlefield) SetPart(p Position, name string) error {
	t := bf.Tile(p)
	if t == nil {
		return fmt.Errorf("set part %q at %v: %w", name, p, ErrInvalidPlacement)
	}
	part := bf.terrain.Part(name)
	if part == nil {
		return fmt.Errorf("set part %q at %v: unknown terrain part", name, p)
	}
	t.SetPart(part.Kind, part)
	return nil
}

// FillFloor lays a floor part over a whole level.
func (bf *Battlefield) FillFloor(z int, name string) {
	part := bf.terrain.MustPart(name)
	for y := 0; y < bf.sizeY; y++ {
		for x := 0; x < bf.sizeX; x++ {
			bf.Tile(Pos(x, y, z)).SetPart(PartFloor, part)
		}
	}
}

// Turn returns the current turn number, starting at 1.
func (bf *Battlefield) Turn() int { return bf.turn }

// Side returns the faction whose turn it is.
func (bf *Battlefield) Side() Faction { return bf.side }

// GlobalShade returns the ambient darkness level.
func (bf *Battlefield) GlobalShade() int { return bf.globalShade }

// SetGlobalShade sets the ambient darkness level (0-15).
func (bf *Battlefield) SetGlobalShade(v int) { bf.globalShade = clampInt(v, 0, 15) }

// ObjectiveDestroyed reports whether a mission objective part was destroyed.
func (bf *Battlefield) ObjectiveDestroyed() bool { return bf.objectiveDestroyed }

// Units returns every unit in id order, including out ones.
func (bf *Battlefield) Units() []*Unit { return bf.units }

// Unit returns the unit with the given id, or nil.
func (bf *Battlefield) Unit(id UnitID) *Unit {
	if id < 0 || int(id) >= len(bf.units) {
		return nil
	}
	return bf.units[id]
}

// Items returns every item in id order, including destroyed ones.
func (bf *Battlefield) Items() []*Item { return bf.items }

// Item returns the item with the given id, or nil.
func (bf *Battlefield) Item(id ItemID) *Item {
	if id < 0 || int(id) >= len(bf.items) {
		return nil
	}
	return bf.items[id]
}

// UnitAt returns the unit occupying p, or nil.
func (bf *Battlefield) UnitAt(p Position) *Unit {
	t := bf.Tile(p)
	if t == nil {
		return nil
	}
	return bf.Unit(t.unit)
}

// AddUnit creates a unit from a rule and places it. On an occupied or
// out-of-bounds position nothing is created and ErrInvalidPlacement is returned.
func (bf *Battlefield) AddUnit(ruleName string, faction Faction, pos Position, dir Direction) (*Unit, error) {
	rule := bf.rules.Unit(ruleName)
	if rule == nil {
		return nil, fmt.Errorf("add unit %q: unknown unit rule", ruleName)
	}
	armor := bf.rules.Armor(rule.Armor)
	if armor == nil {
		return nil, fmt.Errorf("add unit %q: unknown armor %q", ruleName, rule.Armor)
	}
	size := armor.Size
	if size < 1 {
		size = 1
	}
	if !bf.canPlace(pos, size, NoUnit) {
		return nil, ErrInvalidPlacement
	}
	u := newUnit(UnitID(len(bf.units)), rule, armor, faction, pos, dir)
	bf.units = append(bf.units, u)
	bf.occupy(u)
	return u, nil
}

func (bf *Battlefield) canPlace(pos Position, size int, self UnitID) bool {
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			t := bf.Tile(pos.Add(Pos(x, y, 0)))
			if t == nil {
				return false
			}
			if t.unit != NoUnit && t.unit != self {
				if other := bf.Unit(t.unit); other != nil && !other.IsOut() {
					return false
				}
			}
			if o := t.parts[PartObject]; o != nil && o.MoveCost == MoveImpassable {
				return false
			}
		}
	}
	return true
}

func (bf *Battlefield) occupy(u *Unit) {
	for _, p := range u.OccupiedTiles() {
		if t := bf.Tile(p); t != nil {
			t.unit = u.id
		}
	}
}

func (bf *Battlefield) vacate(u *Unit) {
	for _, p := range u.OccupiedTiles() {
		if t := bf.Tile(p); t != nil && t.unit == u.id {
			t.unit = NoUnit
		}
	}
}

// MoveUnit relocates a unit, updating tile occupancy.
func (bf *Battlefield) MoveUnit(u *Unit, to Position) error {
	if !bf.canPlace(to, u.Size(), u.id) {
		return ErrInvalidPlacement
	}
	bf.vacate(u)
	u.lastPos = u.pos
	u.pos = to
	bf.occupy(u)
	return nil
}

// SetMovingUnit records the unit currently animated by a walk or fall state.
func (bf *Battlefield) SetMovingUnit(id UnitID) { bf.movingUnit = id }

// ClearMovingUnit clears the moving-unit tracker. Clearing a unit other than
// the tracked one is an invariant violation.
func (bf *Battlefield) ClearMovingUnit(id UnitID) {
	if bf.movingUnit != id {
		panic(invariantf("clearing moving unit %d while %d is tracked", id, bf.movingUnit))
	}
	bf.movingUnit = NoUnit
}

// MovingUnit returns the tracked moving unit id.
func (bf *Battlefield) MovingUnit() UnitID { return bf.movingUnit }

// SelectedUnit returns the currently selected unit id.
func (bf *Battlefield) SelectedUnit() UnitID { return bf.selectedUnit }

// SetSelectedUnit changes the selection.
func (bf *Battlefield) SetSelectedUnit(id UnitID) { bf.selectedUnit = id }

// NewItem creates an unplaced item from a rule.
func (bf *Battlefield) NewItem(ruleName string) (*Item, error) {
	rule := bf.rules.Item(ruleName)
	if rule == nil {
		return nil, fmt.Errorf("new item %q: unknown item rule", ruleName)
	}
	it := newItem(ItemID(len(bf.items)), rule)
	bf.items = append(bf.items, it)
	return it, nil
}

// GiveItem puts an item in a unit's right hand (or left, or inventory).
func (bf *Battlefield) GiveItem(u *Unit, it *Item) {
	bf.detachItem(it)
	it.owner = u.id
	it.previousOwner = u.id
	switch {
	case u.rightHand == NoItem:
		u.rightHand = it.id
	case u.leftHand == NoItem:
		u.leftHand = it.id
	default:
		u.inventory = append(u.inventory, it.id)
	}
}

// DropItem places an item on the tile at p, removing it from its owner.
func (bf *Battlefield) DropItem(it *Item, p Position) error {
	t := bf.Tile(p)
	if t == nil {
		return ErrInvalidPlacement
	}
	bf.detachItem(it)
	it.tile = p
	t.addItem(it.id)
	return nil
}

// DestroyItem removes an item from play.
func (bf *Battlefield) DestroyItem(it *Item) {
	bf.detachItem(it)
	it.destroyed = true
}

// detachItem removes the item from whichever single slot holds it.
func (bf *Battlefield) detachItem(it *Item) {
	if it.owner != NoUnit {
		if u := bf.Unit(it.owner); u != nil {
			switch it.id {
			case u.rightHand:
				u.rightHand = NoItem
			case u.leftHand:
				u.leftHand = NoItem
			default:
				for i, id := range u.inventory {
					if id == it.id {
						u.inventory = append(u.inventory[:i], u.inventory[i+1:]...)
						break
					}
				}
			}
		}
		it.owner = NoUnit
	}
	if it.tile.IsValid() {
		if t := bf.Tile(it.tile); t != nil {
			t.removeItem(it.id)
		}
		it.tile = InvalidPosition
	}
}

// UnitItems returns every item a unit carries, hands first.
func (bf *Battlefield) UnitItems(u *Unit) []*Item {
	var out []*Item
	for _, id := range append([]ItemID{u.rightHand, u.leftHand}, u.inventory...) {
		if it := bf.Item(id); it != nil && !it.destroyed {
			out = append(out, it)
		}
	}
	return out
}

// LiveUnits counts units of a faction that are not out.
func (bf *Battlefield) LiveUnits(f Faction) int {
	n := 0
	for _, u := range bf.units {
		if u.faction == f && !u.IsOut() {
			n++
		}
	}
	return n
}

// Placement returns the tile position of an item: its own tile, or its carrier's.
func (bf *Battlefield) Placement(it *Item) Position {
	if it.tile.IsValid() {
		return it.tile
	}
	if u := bf.Unit(it.owner); u != nil {
		return u.pos
	}
	return InvalidPosition
}
