package battle

import "math"

// Voxel dimensions of a single tile.
const (
	VoxelsX = 16
	VoxelsY = 16
	VoxelsZ = 24
)

// Position addresses a tile (or, for voxel-space helpers, a voxel).
type Position struct {
	X, Y, Z int
}

// InvalidPosition is used as the "no event position" marker for full recomputes.
var InvalidPosition = Position{X: -1, Y: -1, Z: -1}

// Pos is shorthand for Position{x, y, z}.
func Pos(x, y, z int) Position { return Position{X: x, Y: y, Z: z} }

// Add returns p+o.
func (p Position) Add(o Position) Position { return Position{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

// Sub returns p-o.
func (p Position) Sub(o Position) Position { return Position{p.X - o.X, p.Y - o.Y, p.Z - o.Z} }

// IsValid reports whether p is not the InvalidPosition marker.
func (p Position) IsValid() bool { return p != InvalidPosition }

// ToVoxel converts a tile position to the voxel at its lower north-west corner.
func (p Position) ToVoxel() Position {
	return Position{p.X * VoxelsX, p.Y * VoxelsY, p.Z * VoxelsZ}
}

// ToTile converts a voxel position to the tile containing it.
func (p Position) ToTile() Position {
	return Position{floorDiv(p.X, VoxelsX), floorDiv(p.Y, VoxelsY), floorDiv(p.Z, VoxelsZ)}
}

// VoxelCenter returns the voxel at the horizontal centre of the tile, at floor level.
func (p Position) VoxelCenter() Position {
	return Position{p.X*VoxelsX + VoxelsX/2, p.Y*VoxelsY + VoxelsY/2, p.Z * VoxelsZ}
}

// DistanceSq returns the squared euclidean distance between p and o.
// When useZ is false only the horizontal plane is considered.
func (p Position) DistanceSq(o Position, useZ bool) int {
	d := p.Sub(o)
	s := d.X*d.X + d.Y*d.Y
	if useZ {
		s += d.Z * d.Z
	}
	return s
}

// Distance returns the rounded euclidean distance in the horizontal plane.
func (p Position) Distance(o Position) int {
	return int(math.Round(math.Sqrt(float64(p.DistanceSq(o, false)))))
}

// Length returns the euclidean length of p treated as a vector.
func (p Position) Length() float64 {
	return math.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Direction is one of the eight compass directions (0 = north, clockwise)
// or DirUp/DirDown for vertical movement.
type Direction int

const (
	DirNorth Direction = iota
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouth
	DirSouthWest
	DirWest
	DirNorthWest
	DirUp
	DirDown
	DirNone Direction = -1
)

var dirVectors = [8]Position{
	{0, -1, 0}, {1, -1, 0}, {1, 0, 0}, {1, 1, 0},
	{0, 1, 0}, {-1, 1, 0}, {-1, 0, 0}, {-1, -1, 0},
}

// Vector returns the unit tile offset for the direction.
func (d Direction) Vector() Position {
	switch {
	case d >= DirNorth && d <= DirNorthWest:
		return dirVectors[d]
	case d == DirUp:
		return Position{0, 0, 1}
	case d == DirDown:
		return Position{0, 0, -1}
	}
	return Position{}
}

// Opposite returns the reverse compass direction.
func (d Direction) Opposite() Direction {
	if d >= DirNorth && d <= DirNorthWest {
		return (d + 4) % 8
	}
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	}
	return DirNone
}

// IsDiagonal reports whether d is one of the four diagonal compass directions.
func (d Direction) IsDiagonal() bool { return d >= DirNorth && d <= DirNorthWest && d%2 == 1 }

func (d Direction) String() string {
	switch d {
	case DirNorth:
		return "N"
	case DirNorthEast:
		return "NE"
	case DirEast:
		return "E"
	case DirSouthEast:
		return "SE"
	case DirSouth:
		return "S"
	case DirSouthWest:
		return "SW"
	case DirWest:
		return "W"
	case DirNorthWest:
		return "NW"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "none"
	}
}

// VectorToDirection converts a horizontal offset into a compass direction.
// Returns DirNone for a zero offset. Offsets are reduced to their signs.
func VectorToDirection(v Position) Direction {
	sx, sy := sign(v.X), sign(v.Y)
	for d, dv := range dirVectors {
		if dv.X == sx && dv.Y == sy {
			return Direction(d)
		}
	}
	return DirNone
}

// DirectionTo returns the compass direction best matching the vector from a to b.
func DirectionTo(a, b Position) Direction {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	if dx == 0 && dy == 0 {
		return DirNone
	}
	// 0 = north, clockwise; screen y grows southwards.
	angle := math.Atan2(dx, -dy)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return Direction(int(math.Round(angle/(math.Pi/4))) % 8)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
