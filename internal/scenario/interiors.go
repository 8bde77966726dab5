package scenario

import (
	"math/rand"

	"github.com/Garsondee/battlecore/internal/battle"
)

// furnishHouse scatters tables and a crate over the farmhouse floor and
// sometimes leaves the door open. Tiles in reserved stay free so the door,
// lamp and objective remain reachable.
func furnishHouse(bf *battle.Battlefield, rng *rand.Rand, h house, door battle.Position, reserved ...battle.Position) {
	if rng.Float64() < 0.25 {
		mustPart(bf, door, "door_open_west")
	}

	free := func(p battle.Position) bool {
		for _, r := range reserved {
			if p == r {
				return false
			}
		}
		return bf.Tile(p).Part(battle.PartObject) == nil
	}

	// Interior tiles away from the door column.
	var spots []battle.Position
	for y := h.y0; y <= h.y1; y++ {
		for x := h.x0 + 1; x <= h.x1; x++ {
			if p := battle.Pos(x, y, 0); free(p) {
				spots = append(spots, p)
			}
		}
	}
	rng.Shuffle(len(spots), func(i, j int) { spots[i], spots[j] = spots[j], spots[i] })

	pieces := []string{"table", "table", "crate"}
	for i, name := range pieces {
		if i >= len(spots) || rng.Float64() < 0.3 {
			continue
		}
		mustPart(bf, spots[i], name)
	}
}
