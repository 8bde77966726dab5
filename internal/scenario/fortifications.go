package scenario

import (
	"math/rand"

	"github.com/Garsondee/battlecore/internal/battle"
)

// fortConfig holds tuneable parameters for fortification generation.
type fortConfig struct {
	SandbagCount int // number of crate clusters standing in for sandbag positions
	FenceCount   int // number of fence runs
	FenceMinLen  int
	FenceMaxLen  int
}

var defaultFortConfig = fortConfig{
	SandbagCount: 3,
	FenceCount:   2,
	FenceMinLen:  3,
	FenceMaxLen:  6,
}

// generateFortifications places field positions on level 0 after the biome,
// skipping kept tiles and tiles that already hold an object.
func generateFortifications(bf *battle.Battlefield, rng *rand.Rand, cfg fortConfig, keep func(battle.Position) bool) {
	for i := 0; i < cfg.SandbagCount; i++ {
		placeSandbagCluster(bf, rng, keep)
	}
	for i := 0; i < cfg.FenceCount; i++ {
		placeFenceRun(bf, rng, cfg.FenceMinLen, cfg.FenceMaxLen, keep)
	}
}

// fortCanPlace returns true if p is free outdoor ground.
func fortCanPlace(bf *battle.Battlefield, p battle.Position, keep func(battle.Position) bool) bool {
	if !bf.InBounds(p) || keep(p) {
		return false
	}
	return bf.Tile(p).Part(battle.PartObject) == nil
}

func randomAnchor(bf *battle.Battlefield, rng *rand.Rand) battle.Position {
	sx, sy, _ := bf.Size()
	return battle.Pos(4+rng.Intn(max(1, sx-8)), 2+rng.Intn(max(1, sy-4)), 0)
}

// placeSandbagCluster places a straight run of 2-3 crates.
func placeSandbagCluster(bf *battle.Battlefield, rng *rand.Rand, keep func(battle.Position) bool) {
	start := randomAnchor(bf, rng)
	step := battle.Pos(1, 0, 0)
	if rng.Intn(2) == 0 {
		step = battle.Pos(0, 1, 0)
	}
	length := 2 + rng.Intn(2)

	p := start
	for i := 0; i < length; i++ {
		if !fortCanPlace(bf, p, keep) {
			break
		}
		mustPart(bf, p, "crate")
		p = p.Add(step)
	}
}

// placeFenceRun places a low fence, along x on the south edges or along y
// on the east edges.
func placeFenceRun(bf *battle.Battlefield, rng *rand.Rand, minLen, maxLen int, keep func(battle.Position) bool) {
	start := randomAnchor(bf, rng)
	horizontal := rng.Intn(2) == 0
	length := minLen + rng.Intn(max(1, maxLen-minLen+1))

	step, part := battle.Pos(0, 1, 0), "fence_east"
	if horizontal {
		step, part = battle.Pos(1, 0, 0), "fence_south"
	}
	p := start
	for i := 0; i < length; i++ {
		if !fortCanPlace(bf, p, keep) {
			break
		}
		mustPart(bf, p, part)
		p = p.Add(step)
	}
}
