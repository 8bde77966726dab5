package battle

import "fmt"

// PartKind identifies one of the four terrain parts a tile can hold.
type PartKind int

const (
	PartFloor PartKind = iota
	PartWestWall
	PartNorthWall
	PartObject
	partKindCount
)

func (k PartKind) String() string {
	switch k {
	case PartFloor:
		return "floor"
	case PartWestWall:
		return "west_wall"
	case PartNorthWall:
		return "north_wall"
	case PartObject:
		return "object"
	default:
		return "unknown"
	}
}

// BigWall classifies objects that behave like walls inside a tile.
type BigWall int

const (
	BigWallNone BigWall = iota
	BigWallBlock
	BigWallNESW
	BigWallNWSE
	BigWallWest
	BigWallNorth
	BigWallEast
	BigWallSouth
	BigWallEastAndSouth
	BigWallWestAndNorth
)

// MoveImpassable is the movement cost of a part nothing can cross.
const MoveImpassable = 255

// FlammableNever marks parts that never catch fire.
const FlammableNever = 255

// loftLayers is the number of 2-voxel layers in a tile's LOFT profile.
const loftLayers = VoxelsZ / 2

// TerrainPart is the immutable definition of a floor, wall or object.
type TerrainPart struct {
	ID   int
	Name string
	Kind PartKind

	Armor     int
	Flammable int
	Fuel      int
	// LightSource is the light power emitted by fixtures such as lamps.
	LightSource int
	MoveCost    int
	// TerrainLevel raises units standing on the part (negative voxels upward).
	TerrainLevel int

	BlockVision bool
	BlockSmoke  bool
	BlockFire   bool
	// BlockHE is the explosive power absorbed when a blast crosses the part.
	BlockHE int

	LOFT    [loftLayers]int
	BigWall BigWall

	Door    bool
	DieInto string
	AltPart string

	ExplosivePower int
	ExplosiveType  DamageType
	Objective      bool

	dieInto *TerrainPart
	altPart *TerrainPart
}

// DiesInto returns the part left behind when this part is destroyed, or nil.
func (p *TerrainPart) DiesInto() *TerrainPart { return p.dieInto }

// Alternate returns the toggled state of a door part, or nil.
func (p *TerrainPart) Alternate() *TerrainPart { return p.altPart }

// IsExplosive reports whether destroying the part sets off an explosion.
func (p *TerrainPart) IsExplosive() bool { return p.ExplosivePower > 0 }

// TerrainSet is the catalogue of terrain parts available to a battlefield.
type TerrainSet struct {
	parts  []*TerrainPart
	byName map[string]*TerrainPart
	lofts  [][VoxelsY]uint16
}

// NewTerrainSet returns an empty catalogue backed by the standard LOFT library.
func NewTerrainSet() *TerrainSet {
	return &TerrainSet{
		byName: make(map[string]*TerrainPart),
		lofts:  buildLoftLibrary(),
	}
}

// Add registers a part. Links to other parts are resolved by Resolve.
func (ts *TerrainSet) Add(p *TerrainPart) *TerrainPart {
	p.ID = len(ts.parts)
	if p.Flammable == 0 {
		p.Flammable = FlammableNever
	}
	ts.parts = append(ts.parts, p)
	ts.byName[p.Name] = p
	return p
}

// Resolve links DieInto and AltPart names to their parts.
func (ts *TerrainSet) Resolve() error {
	for _, p := range ts.parts {
		if p.DieInto != "" {
			d, ok := ts.byName[p.DieInto]
			if !ok {
				return fmt.Errorf("terrain part %q: unknown die-into part %q", p.Name, p.DieInto)
			}
			p.dieInto = d
		}
		if p.AltPart != "" {
			a, ok := ts.byName[p.AltPart]
			if !ok {
				return fmt.Errorf("terrain part %q: unknown alternate part %q", p.Name, p.AltPart)
			}
			p.altPart = a
		}
		for _, l := range p.LOFT {
			if l < 0 || l >= len(ts.lofts) {
				return fmt.Errorf("terrain part %q: loft id %d out of range", p.Name, l)
			}
		}
	}
	return nil
}

// Part returns the part with the given name, or nil.
func (ts *TerrainSet) Part(name string) *TerrainPart { return ts.byName[name] }

// MustPart returns the named part and panics if it is missing.
func (ts *TerrainSet) MustPart(name string) *TerrainPart {
	p := ts.byName[name]
	if p == nil {
		panic(fmt.Sprintf("terrain part %q not registered", name))
	}
	return p
}

// Parts returns every registered part in registration order.
func (ts *TerrainSet) Parts() []*TerrainPart { return ts.parts }

// loftBit reports whether voxel (x, y) of LOFT id is solid.
func (ts *TerrainSet) loftBit(id, x, y int) bool {
	if id <= 0 || id >= len(ts.lofts) {
		return false
	}
	return ts.lofts[id][y]&(1<<uint(x)) != 0
}

// AddLoft appends a custom LOFT and returns its id.
func (ts *TerrainSet) AddLoft(rows [VoxelsY]uint16) int {
	ts.lofts = append(ts.lofts, rows)
	return len(ts.lofts) - 1
}

// Standard LOFT ids.
const (
	LoftEmpty = iota
	LoftFull
	LoftWestWall
	LoftNorthWall
	LoftCrate
	LoftPillar
	LoftTableTop
	LoftDiagNESW
	LoftDiagNWSE
	LoftLampPost
	LoftEastWall
	LoftSouthWall
	LoftBarrel
	loftStandardCount
)

func buildLoftLibrary() [][VoxelsY]uint16 {
	lib := make([][VoxelsY]uint16, loftStandardCount)
	fill := func(id int, solid func(x, y int) bool) {
		for y := 0; y < VoxelsY; y++ {
			var row uint16
			for x := 0; x < VoxelsX; x++ {
				if solid(x, y) {
					row |= 1 << uint(x)
				}
			}
			lib[id][y] = row
		}
	}
	fill(LoftFull, func(_, _ int) bool { return true })
	fill(LoftWestWall, func(x, _ int) bool { return x <= 1 })
	fill(LoftNorthWall, func(_, y int) bool { return y <= 1 })
	fill(LoftEastWall, func(x, _ int) bool { return x >= 14 })
	fill(LoftSouthWall, func(_, y int) bool { return y >= 14 })
	fill(LoftCrate, func(x, y int) bool { return x >= 2 && x <= 13 && y >= 2 && y <= 13 })
	fill(LoftPillar, func(x, y int) bool { return x >= 5 && x <= 10 && y >= 5 && y <= 10 })
	fill(LoftTableTop, func(x, y int) bool { return x >= 1 && x <= 14 && y >= 1 && y <= 14 })
	fill(LoftDiagNESW, func(x, y int) bool { return absInt(x+y-15) <= 1 })
	fill(LoftDiagNWSE, func(x, y int) bool { return absInt(x-y) <= 1 })
	fill(LoftLampPost, func(x, y int) bool { return x >= 7 && x <= 8 && y >= 7 && y <= 8 })
	fill(LoftBarrel, func(x, y int) bool {
		dx, dy := 2*x-15, 2*y-15
		return dx*dx+dy*dy <= 100
	})
	return lib
}

func loftColumn(id, fromLayer, toLayer int) [loftLayers]int {
	var l [loftLayers]int
	for i := fromLayer; i <= toLayer && i < loftLayers; i++ {
		l[i] = id
	}
	return l
}

// DefaultTerrainSet returns the built-in catalogue of terrain parts.
func DefaultTerrainSet() *TerrainSet {
	ts := NewTerrainSet()
	floorLoft := loftColumn(LoftFull, 0, 0)
	full := loftColumn(LoftFull, 0, loftLayers-1)

	// Floors.
	ts.Add(&TerrainPart{Name: "grass", Kind: PartFloor, Armor: 10, Flammable: 30, Fuel: 2, MoveCost: 4, LOFT: floorLoft, BlockHE: 0})
	ts.Add(&TerrainPart{Name: "scorched_earth", Kind: PartFloor, Armor: 255, MoveCost: 4, LOFT: floorLoft})
	ts.Add(&TerrainPart{Name: "dirt", Kind: PartFloor, Armor: 20, MoveCost: 4, LOFT: floorLoft, DieInto: "scorched_earth"})
	ts.Add(&TerrainPart{Name: "concrete", Kind: PartFloor, Armor: 60, MoveCost: 4, LOFT: floorLoft, DieInto: "rubble_floor"})
	ts.Add(&TerrainPart{Name: "wood_floor", Kind: PartFloor, Armor: 20, Flammable: 10, Fuel: 4, MoveCost: 4, LOFT: floorLoft})
	ts.Add(&TerrainPart{Name: "rubble_floor", Kind: PartFloor, Armor: 30, MoveCost: 6, LOFT: floorLoft})
	ts.Add(&TerrainPart{Name: "roof", Kind: PartFloor, Armor: 40, MoveCost: 4, LOFT: floorLoft, BlockSmoke: true})

	// Walls.
	for _, w := range []struct {
		suffix string
		kind   PartKind
		loft   int
	}{{"west", PartWestWall, LoftWestWall}, {"north", PartNorthWall, LoftNorthWall}} {
		col := loftColumn(w.loft, 0, loftLayers-1)
		ts.Add(&TerrainPart{Name: "brick_wall_" + w.suffix, Kind: w.kind, Armor: 50, MoveCost: MoveImpassable,
			BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 40, LOFT: col})
		ts.Add(&TerrainPart{Name: "wood_wall_" + w.suffix, Kind: w.kind, Armor: 20, Flammable: 20, Fuel: 3,
			MoveCost: MoveImpassable, BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 15, LOFT: col})
		window := col
		for i := 3; i <= 7; i++ {
			window[i] = LoftEmpty
		}
		ts.Add(&TerrainPart{Name: "window_" + w.suffix, Kind: w.kind, Armor: 15, MoveCost: MoveImpassable,
			BlockSmoke: true, BlockHE: 5, LOFT: window, DieInto: "broken_window_" + w.suffix})
		broken := window
		ts.Add(&TerrainPart{Name: "broken_window_" + w.suffix, Kind: w.kind, Armor: 10, MoveCost: MoveImpassable,
			BlockHE: 5, LOFT: broken})
		ts.Add(&TerrainPart{Name: "door_" + w.suffix, Kind: w.kind, Armor: 25, Flammable: 40, Fuel: 2, MoveCost: 0,
			BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 10, LOFT: col, Door: true, AltPart: "door_open_" + w.suffix})
		ts.Add(&TerrainPart{Name: "door_open_" + w.suffix, Kind: w.kind, Armor: 25, MoveCost: 0,
			Door: true, AltPart: "door_" + w.suffix, LOFT: loftColumn(LoftEmpty, 0, 0)})
	}

	// Objects.
	ts.Add(&TerrainPart{Name: "crate", Kind: PartObject, Armor: 30, Flammable: 25, Fuel: 3, MoveCost: MoveImpassable,
		TerrainLevel: -12, BlockHE: 10, LOFT: loftColumn(LoftCrate, 0, 5), DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "debris", Kind: PartObject, Armor: 20, MoveCost: 2, LOFT: loftColumn(LoftCrate, 0, 0)})
	ts.Add(&TerrainPart{Name: "table", Kind: PartObject, Armor: 15, Flammable: 30, Fuel: 2, MoveCost: 4,
		TerrainLevel: -8, LOFT: func() [loftLayers]int { l := [loftLayers]int{}; l[3] = LoftTableTop; return l }()})
	ts.Add(&TerrainPart{Name: "pillar", Kind: PartObject, Armor: 80, MoveCost: MoveImpassable,
		BlockVision: false, BlockHE: 30, LOFT: loftColumn(LoftPillar, 0, loftLayers-1), DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "lamp", Kind: PartObject, Armor: 10, MoveCost: MoveImpassable, LightSource: 15,
		LOFT: loftColumn(LoftLampPost, 0, loftLayers-1), DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "fuel_barrel", Kind: PartObject, Armor: 12, MoveCost: MoveImpassable,
		LOFT: loftColumn(LoftBarrel, 0, 6), ExplosivePower: 60, ExplosiveType: DamageHE, DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "power_source", Kind: PartObject, Armor: 70, MoveCost: MoveImpassable,
		BlockVision: true, BlockHE: 30, LOFT: full, Objective: true, ExplosivePower: 120, ExplosiveType: DamageHE,
		DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "rock_block", Kind: PartObject, Armor: 100, MoveCost: MoveImpassable, BigWall: BigWallBlock,
		BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 60, LOFT: full, DieInto: "debris"})
	ts.Add(&TerrainPart{Name: "diag_wall_nesw", Kind: PartObject, Armor: 50, MoveCost: MoveImpassable, BigWall: BigWallNESW,
		BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 40, LOFT: loftColumn(LoftDiagNESW, 0, loftLayers-1)})
	ts.Add(&TerrainPart{Name: "diag_wall_nwse", Kind: PartObject, Armor: 50, MoveCost: MoveImpassable, BigWall: BigWallNWSE,
		BlockVision: true, BlockSmoke: true, BlockFire: true, BlockHE: 40, LOFT: loftColumn(LoftDiagNWSE, 0, loftLayers-1)})
	ts.Add(&TerrainPart{Name: "fence_east", Kind: PartObject, Armor: 15, MoveCost: MoveImpassable, BigWall: BigWallEast,
		BlockHE: 5, LOFT: loftColumn(LoftEastWall, 0, 5)})
	ts.Add(&TerrainPart{Name: "fence_south", Kind: PartObject, Armor: 15, MoveCost: MoveImpassable, BigWall: BigWallSouth,
		BlockHE: 5, LOFT: loftColumn(LoftSouthWall, 0, 5)})
	ts.Add(&TerrainPart{Name: "hedge", Kind: PartObject, Armor: 20, Flammable: 15, Fuel: 4, MoveCost: MoveImpassable,
		BlockVision: true, BlockHE: 5, LOFT: loftColumn(LoftCrate, 0, 7)})

	if err := ts.Resolve(); err != nil {
		panic(err)
	}
	return ts
}
