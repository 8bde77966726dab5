package battle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEnvironment_FireBurnsOut(t *testing.T) {
	tb := NewTestBattle(WithPart(Pos(4, 4, 0), "wood_floor"))
	tile := tb.Battlefield.Tile(Pos(4, 4, 0))
	tile.SetFire(2)

	tb.Game.updateEnvironment()
	assert.Equal(t, 1, tile.Fire())
	assert.NotNil(t, tile.Part(PartFloor))

	tb.Game.updateEnvironment()
	assert.Zero(t, tile.Fire())
	assert.Nil(t, tile.Part(PartFloor), "the fuel is consumed")
	assert.Zero(t, tb.Log.Count(CatTerrain, "fire_spread"), "concrete around it never catches")
}

func TestUpdateEnvironment_FireSpreadStopsAtWalls(t *testing.T) {
	tb := NewTestBattle(
		WithPart(Pos(5, 5, 0), "grass"),
		WithPart(Pos(6, 5, 0), "grass"),
		WithPart(Pos(4, 5, 0), "grass"),
		WithPart(Pos(5, 5, 0), "brick_wall_west"),
	)
	bf := tb.Battlefield
	west := fmt.Sprintf("%v", Pos(4, 5, 0))

	for i := 0; i < 60; i++ {
		bf.Tile(Pos(5, 5, 0)).SetFire(3)
		tb.Game.updateEnvironment()
	}
	assert.Positive(t, tb.Log.Count(CatTerrain, "fire_spread"))
	assert.False(t, tb.Log.HasEntry(CatTerrain, "fire_spread", west), "the brick wall stops the fire")
	assert.NotNil(t, bf.Tile(Pos(4, 5, 0)).Part(PartFloor))
}

func TestUpdateEnvironment_SmokeThinsAndDrifts(t *testing.T) {
	tb := NewTestBattle(
		WithPart(Pos(5, 5, 0), "brick_wall_west"),
		WithSmoke(8, Pos(5, 5, 0)),
	)
	bf := tb.Battlefield
	tb.Game.updateEnvironment()

	assert.Equal(t, 7, bf.Tile(Pos(5, 5, 0)).Smoke())
	for _, p := range []Position{Pos(5, 4, 0), Pos(6, 5, 0), Pos(5, 6, 0)} {
		assert.Equal(t, 4, bf.Tile(p).Smoke(), "drifted to %v", p)
	}
	assert.Zero(t, bf.Tile(Pos(4, 5, 0)).Smoke(), "walls hold smoke back")
	assert.Zero(t, bf.Tile(Pos(6, 6, 0)).Smoke(), "no diagonal drift")

	thin := bf.Tile(Pos(1, 1, 0))
	thin.SetSmoke(2)
	tb.Game.updateEnvironment()
	assert.Equal(t, 1, thin.Smoke())
	assert.Zero(t, bf.Tile(Pos(1, 2, 0)).Smoke(), "thin smoke does not drift")
}

func TestFactionEndOfTurn_BurningAndMorale(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(2, 2, 0), DirEast),
		WithUnit("soldier", FactionPlayer, Pos(6, 6, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	burning, shaken := tb.Unit(0), tb.Unit(1)
	tb.Battlefield.Tile(Pos(2, 2, 0)).SetFire(3)
	shaken.morale = 50
	shaken.stun = 3

	tb.Game.factionEndOfTurn(FactionPlayer)

	lost := 40 - burning.Health()
	assert.GreaterOrEqual(t, lost, fireDamageMin)
	assert.Less(t, lost, fireDamageMin+fireDamageRange)
	assert.GreaterOrEqual(t, burning.FireTurns(), 1)
	assert.Equal(t, 1, tb.Log.Count(CatHit, "burning"))

	assert.Equal(t, 54, shaken.Morale(), "recovers bravery/10")
	assert.Equal(t, 2, shaken.Stun())
	assert.Equal(t, 30, tb.Unit(2).Health(), "other sides are untouched")
}

func TestRollPanic(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(2, 2, 0), DirEast, "rifle"),
		WithUnit("soldier", FactionPlayer, Pos(4, 4, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	scared, calm := tb.Unit(0), tb.Unit(1)
	scared.morale = 0

	tb.Game.rollPanic()
	require.Contains(t, []UnitStatus{StatusPanicking, StatusBerserk}, scared.Status())
	assert.Equal(t, panicRecovery, scared.Morale())
	assert.Equal(t, StatusStanding, calm.Status())
	assert.Equal(t, []string{"panic"}, tb.Game.QueuedStates())
	assert.False(t, tb.Game.canAct(scared))

	tb.RunUntilIdle(200)
	if scared.Status() == StatusPanicking {
		assert.Zero(t, scared.TU())
		assert.Equal(t, NoItem, scared.RightHand(), "dropped the rifle")
	}
}

func TestRollPanic_FearImmune(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(2, 2, 0), DirEast),
		WithUnit("chryssalid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	bug := tb.Unit(1)
	bug.morale = 0
	tb.Battlefield.side = FactionHostile

	tb.Game.rollPanic()
	assert.Equal(t, StatusStanding, bug.Status())
	assert.False(t, tb.Game.Busy())
}

func TestNextSide_SkipsEmptyFactions(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(2, 2, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
		WithUnit("civilian", FactionNeutral, Pos(5, 5, 0), DirWest),
	)
	bf := tb.Battlefield

	tb.Game.nextSide()
	assert.Equal(t, FactionHostile, bf.Side())
	tb.Game.nextSide()
	assert.Equal(t, FactionNeutral, bf.Side(), "neutrals with live units get a turn")
	tb.Game.nextSide()
	assert.Equal(t, FactionPlayer, bf.Side())
	assert.Equal(t, 2, bf.Turn())

	tb.Unit(2).health = 0
	tb.Unit(2).status = StatusDead
	tb.Game.nextSide()
	tb.Game.nextSide()
	assert.Equal(t, FactionPlayer, bf.Side())
	assert.Equal(t, 3, bf.Turn())
}
