package battle

// wallCrossed returns the wall part crossed moving one cardinal step in d from p.
func (bf *Battlefield) wallCrossed(p Position, d Direction) *TerrainPart {
	var t *Tile
	var k PartKind
	switch d {
	case DirNorth:
		t, k = bf.Tile(p), PartNorthWall
	case DirSouth:
		t, k = bf.Tile(p.Add(d.Vector())), PartNorthWall
	case DirWest:
		t, k = bf.Tile(p), PartWestWall
	case DirEast:
		t, k = bf.Tile(p.Add(d.Vector())), PartWestWall
	default:
		return nil
	}
	if t == nil {
		return nil
	}
	return t.parts[k]
}

func wallPassable(w *TerrainPart) bool {
	return w == nil || w.MoveCost != MoveImpassable
}

// enterable reports whether a unit other than self can stand on p.
func (bf *Battlefield) enterable(p Position, self UnitID) bool {
	t := bf.Tile(p)
	if t == nil || t.MoveCost() == MoveImpassable {
		return false
	}
	if t.unit != NoUnit && t.unit != self {
		if u := bf.Unit(t.unit); u != nil && !u.IsOut() {
			return false
		}
	}
	return true
}

// StepCost returns the TU cost for u to move one tile from p in direction d,
// or MoveImpassable. Diagonal steps cost half as much again and are blocked
// when either adjacent wall is.
func (bf *Battlefield) StepCost(u *Unit, p Position, d Direction) int {
	if d < DirNorth || d > DirNorthWest {
		return MoveImpassable
	}
	to := p.Add(d.Vector())
	size := u.Size()
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if !bf.enterable(to.Add(Pos(x, y, 0)), u.id) {
				return MoveImpassable
			}
		}
	}
	if !d.IsDiagonal() {
		if !wallPassable(bf.wallCrossed(p, d)) {
			return MoveImpassable
		}
	} else {
		d1, d2 := (d+7)%8, (d+1)%8
		mid1, mid2 := p.Add(d1.Vector()), p.Add(d2.Vector())
		if !wallPassable(bf.wallCrossed(p, d1)) || !wallPassable(bf.wallCrossed(p, d2)) ||
			!wallPassable(bf.wallCrossed(mid1, d2)) || !wallPassable(bf.wallCrossed(mid2, d1)) {
			return MoveImpassable
		}
		if !bf.enterable(mid1, u.id) || !bf.enterable(mid2, u.id) {
			return MoveImpassable
		}
	}
	cost := bf.Tile(to).MoveCost()
	if w := bf.wallCrossed(p, d); w != nil && w.Door {
		cost += 4
	}
	if d.IsDiagonal() {
		cost = cost * 3 / 2
	}
	return cost
}
