package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShade(shade int) BattleOption {
	return WithOptions(func(o *Options) { o.GlobalShade = shade })
}

func TestLighting_AmbientFollowsShade(t *testing.T) {
	for _, shade := range []int{0, 6, 10, 15} {
		tb := NewTestBattle(withShade(shade))
		got := tb.Battlefield.Tile(Pos(4, 4, 0)).LayerLight(LayerAmbient)
		assert.Equal(t, MaxLight-shade, got, "shade %d", shade)
	}
}

func TestLighting_RoofDimsDaylight(t *testing.T) {
	tb := NewTestBattle(withShade(0), WithPart(Pos(2, 2, 1), "roof"))
	assert.Equal(t, MaxLight-2, tb.Battlefield.Tile(Pos(2, 2, 0)).LayerLight(LayerAmbient))
	assert.Equal(t, MaxLight, tb.Battlefield.Tile(Pos(5, 5, 0)).LayerLight(LayerAmbient))
}

func TestLighting_LampFalloff(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(20, 11, 1),
		withShade(15),
		WithPart(Pos(5, 5, 0), "lamp"),
	)
	bf := tb.Battlefield
	assert.Equal(t, 15, bf.Tile(Pos(5, 5, 0)).Light())
	assert.Equal(t, 12, bf.Tile(Pos(8, 5, 0)).Light())
	assert.Equal(t, 0, bf.Tile(Pos(19, 5, 0)).Light(), "beyond the lamp's reach")
}

func TestLighting_EnhancedModeStopsAtWalls(t *testing.T) {
	build := func(mode int) *TestBattle {
		return NewTestBattle(
			WithMapSize(20, 11, 1),
			withShade(15),
			WithOptions(func(o *Options) { o.EnhancedLighting = mode }),
			WithPart(Pos(5, 5, 0), "lamp"),
			WithWall("rock_block", Pos(7, 0, 0), Pos(7, 10, 0)),
		)
	}
	classic := build(0)
	enhanced := build(EnhancedLightingStatic)

	behind := Pos(9, 5, 0)
	assert.Positive(t, classic.Battlefield.Tile(behind).LayerLight(LayerFire), "classic light ignores occluders")
	assert.Zero(t, enhanced.Battlefield.Tile(behind).LayerLight(LayerFire))

	open := Pos(3, 5, 0)
	assert.Equal(t, 13, classic.Battlefield.Tile(open).LayerLight(LayerFire))
	assert.Equal(t, 13, enhanced.Battlefield.Tile(open).LayerLight(LayerFire))
}

func TestLighting_UnitsAndItemsLayers(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(20, 20, 1),
		withShade(15),
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirNorth, "flare"),
	)
	bf := tb.Battlefield
	u := tb.Unit(0)
	assert.Equal(t, 9, bf.Tile(u.Pos()).LayerLight(LayerUnits))
	assert.Equal(t, 5, bf.Tile(Pos(7, 3, 0)).LayerLight(LayerUnits))

	flare := bf.Item(u.RightHand())
	require.NoError(t, bf.DropItem(flare, Pos(12, 12, 0)))
	tb.Engine.CalculateLighting(LayerItems, InvalidPosition, 0, false)
	tb.Engine.CalculateLighting(LayerUnits, InvalidPosition, 0, false)

	assert.Zero(t, bf.Tile(u.Pos()).LayerLight(LayerUnits), "the flare left the unit's hands")
	assert.Equal(t, 9, bf.Tile(Pos(12, 12, 0)).LayerLight(LayerItems))
}

func TestLighting_LocalRecomputeMatchesFull(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(30, 30, 1),
		withShade(12),
		WithPart(Pos(5, 5, 0), "lamp"),
		WithPart(Pos(22, 22, 0), "lamp"),
	)
	bf := tb.Battlefield
	bf.Tile(Pos(20, 20, 0)).SetFire(3)
	tb.Engine.CalculateLighting(LayerFire, Pos(20, 20, 0), 1, false)
	local := bf.Tile(Pos(18, 20, 0)).Light()
	farLamp := bf.Tile(Pos(5, 7, 0)).Light()

	tb.Engine.RecalculateLighting()
	assert.Equal(t, bf.Tile(Pos(18, 20, 0)).Light(), local)
	assert.Equal(t, bf.Tile(Pos(5, 7, 0)).Light(), farLamp, "tiles outside the event box keep their light")
}
