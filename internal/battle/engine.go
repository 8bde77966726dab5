package battle

import (
	"math/rand"

	"github.com/rs/zerolog"
)

// TileEngine owns the derived caches of a battlefield and implements the
// geometry, lighting, visibility, targeting and damage rules on top of it.
type TileEngine struct {
	bf   *Battlefield
	opts Options
	rng  *rand.Rand
	geo  *GeometryCache

	logger  zerolog.Logger
	log     *BattleLog
	metrics *engineMetrics

	// single-entry tile memo for voxelCheck
	cacheValid     bool
	cacheTilePos   Position
	cacheTile      *Tile
	cacheTileBelow *Tile

	// onUnitSpotted is called when a unit sees an enemy it did not see before.
	onUnitSpotted func(observer, spotted *Unit)
}

// NewTileEngine builds the caches for bf and computes initial lighting and vision.
func NewTileEngine(bf *Battlefield, opts Options, rng *rand.Rand) *TileEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) // #nosec G404 -- deterministic simulation RNG, not security-sensitive
	}
	if opts.MaxViewDistance <= 0 {
		opts.MaxViewDistance = DefaultOptions().MaxViewDistance
	}
	bf.SetGlobalShade(opts.GlobalShade)
	te := &TileEngine{
		bf:      bf,
		opts:    opts,
		rng:     rng,
		logger:  opts.Logger.With().Str("component", "tile_engine").Logger(),
		metrics: newEngineMetrics(opts.Meter),
	}
	te.log = NewBattleLog(opts.Logger)
	te.log.turn = bf.Turn
	te.geo = NewGeometryCache(bf)
	te.RecalculateLighting()
	te.RecalculateFOV()
	return te
}

// Battlefield returns the shared battle context.
func (te *TileEngine) Battlefield() *Battlefield { return te.bf }

// Geometry returns the tile geometry cache.
func (te *TileEngine) Geometry() *GeometryCache { return te.geo }

// Log returns the structured battle log.
func (te *TileEngine) Log() *BattleLog { return te.log }

// Options returns the engine options.
func (te *TileEngine) Options() Options { return te.opts }

// RNG returns the engine's random source.
func (te *TileEngine) RNG() *rand.Rand { return te.rng }

// OnUnitSpotted registers a callback for newly spotted enemies.
func (te *TileEngine) OnUnitSpotted(fn func(observer, spotted *Unit)) { te.onUnitSpotted = fn }

// TerrainChanged rebuilds the geometry around p and refreshes light and vision locally.
func (te *TileEngine) TerrainChanged(p Position) {
	te.geo.Rebuild(p)
	te.voxelCheckFlush()
	te.CalculateLighting(LayerAll, p, 1, true)
	te.CalculateFOV(p, 1, false)
}

// RecalculateLighting recomputes every light layer over the whole map.
func (te *TileEngine) RecalculateLighting() {
	te.CalculateLighting(LayerAll, InvalidPosition, 0, true)
}

// RecalculateFOV recomputes tiles and units in view for every live unit.
func (te *TileEngine) RecalculateFOV() {
	te.CalculateFOV(InvalidPosition, 0, true)
}
