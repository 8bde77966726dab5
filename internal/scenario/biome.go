package scenario

import (
	"math"
	"math/rand"

	"github.com/Garsondee/battlecore/internal/battle"
)

// biomeConfig holds tuneable noise and cover parameters.
type biomeConfig struct {
	// Noise layer scales (smaller = broader features).
	CoverScale     float64
	RoughnessScale float64

	// Cover density thresholds (noise value 0-1).
	HedgeThreshold float64 // above this: hedge
	CrateThreshold float64 // above this, sparsely: crate
	RockThreshold  float64 // above this: rock block
	CrateChance    float64
	BarrelChance   float64 // per crate tile, swap in a fuel barrel

	// Ground thresholds.
	DirtThreshold  float64
	GrassThreshold float64
}

var defaultBiomeConfig = biomeConfig{
	CoverScale:     0.18,
	RoughnessScale: 0.12,

	HedgeThreshold: 0.80,
	CrateThreshold: 0.66,
	RockThreshold:  0.90,
	CrateChance:    0.35,
	BarrelChance:   0.15,

	DirtThreshold:  0.62,
	GrassThreshold: 0.30,
}

// generateBiome lays noise-driven ground and scatters cover over level 0.
// Tiles for which keep returns true are left alone.
func generateBiome(bf *battle.Battlefield, rng *rand.Rand, cfg biomeConfig, keep func(battle.Position) bool) {
	coverSeed := rng.Int63()
	roughSeed := rng.Int63()

	sx, sy, _ := bf.Size()
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			p := battle.Pos(x, y, 0)
			if keep(p) {
				continue
			}

			rough := valueNoise2D(float64(x)*cfg.RoughnessScale, float64(y)*cfg.RoughnessScale, roughSeed)
			switch {
			case rough > cfg.DirtThreshold:
				mustPart(bf, p, "dirt")
			case rough > cfg.GrassThreshold:
				mustPart(bf, p, "grass")
			}

			cover := valueNoise2D(float64(x)*cfg.CoverScale, float64(y)*cfg.CoverScale, coverSeed)
			switch {
			case cover > cfg.RockThreshold:
				mustPart(bf, p, "rock_block")
			case cover > cfg.HedgeThreshold:
				mustPart(bf, p, "hedge")
			case cover > cfg.CrateThreshold && rng.Float64() < cfg.CrateChance:
				if rng.Float64() < cfg.BarrelChance {
					mustPart(bf, p, "fuel_barrel")
				} else {
					mustPart(bf, p, "crate")
				}
			}
		}
	}
}

// valueNoise2D returns smooth value noise in [0,1] at (x, y).
func valueNoise2D(x, y float64, seed int64) float64 {
	xi := int(math.Floor(x))
	yi := int(math.Floor(y))
	xf := x - float64(xi)
	yf := y - float64(yi)

	// Hermite smoothstep.
	u := xf * xf * (3 - 2*xf)
	v := yf * yf * (3 - 2*yf)

	n00 := latticeValue(xi, yi, seed)
	n10 := latticeValue(xi+1, yi, seed)
	n01 := latticeValue(xi, yi+1, seed)
	n11 := latticeValue(xi+1, yi+1, seed)

	nx0 := n00*(1-u) + n10*u
	nx1 := n01*(1-u) + n11*u
	return nx0*(1-v) + nx1*v
}

// latticeValue returns a pseudo-random value in [0,1] for integer coordinates.
func latticeValue(x, y int, seed int64) float64 {
	h := uint64(seed)
	h ^= uint64(x) * 0x517cc1b727220a95
	h ^= uint64(y) * 0x6c62272e07bb0142
	h = h*0x2545f4914f6cdd1d + 0x14057b7ef767814f
	h ^= h >> 16
	h *= 0xd6e8feb86659fd93
	h ^= h >> 16
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func mustPart(bf *battle.Battlefield, p battle.Position, name string) {
	if err := bf.SetPart(p, name); err != nil {
		panic(err)
	}
}
