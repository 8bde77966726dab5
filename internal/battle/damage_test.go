package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetonate_LeavesRemainingPower(t *testing.T) {
	tb := NewTestBattle(WithFloor("grass"))
	p := Pos(3, 3, 0)

	res := tb.Engine.Detonate(p, 15)
	assert.True(t, res.Destroyed)
	assert.Equal(t, 5, res.Remaining[PartFloor])
	assert.False(t, res.Ignited, "grass needs more than 5 power left to catch")
	assert.Nil(t, tb.Battlefield.Tile(p).Part(PartFloor))
	assert.Positive(t, tb.Battlefield.Tile(p).Smoke(), "destruction without fire leaves smoke")
}

func TestDetonate_IgnitesWhenFlammabilityReached(t *testing.T) {
	tb := NewTestBattle(WithFloor("wood_floor"))
	p := Pos(3, 3, 0)

	res := tb.Engine.Detonate(p, 15)
	assert.False(t, res.Destroyed, "wood floor armor is 20")
	assert.True(t, res.Ignited)
	assert.Equal(t, 5, tb.Battlefield.Tile(p).Fire(), "fuel 4 burns for five turns")
}

func TestDetonate_FollowsDieIntoChain(t *testing.T) {
	tb := NewTestBattle(WithPart(Pos(4, 4, 0), "crate"))
	p := Pos(4, 4, 0)

	res := tb.Engine.Detonate(p, 35)
	require.True(t, res.Destroyed)
	obj := tb.Battlefield.Tile(p).Part(PartObject)
	require.NotNil(t, obj)
	assert.Equal(t, "debris", obj.Name, "5 power left cannot break the 20 armor debris")
	assert.Equal(t, 5, res.Remaining[PartObject])

	tb.Engine.Detonate(p, 60)
	assert.Nil(t, tb.Battlefield.Tile(p).Part(PartObject))
}

func TestCheckForTerrainExplosions(t *testing.T) {
	tb := NewTestBattle(WithPart(Pos(6, 6, 0), "fuel_barrel"))
	te := tb.Engine

	_, _, _, ok := te.CheckForTerrainExplosions()
	require.False(t, ok)

	te.Detonate(Pos(6, 6, 0), 20)
	center, power, dt, ok := te.CheckForTerrainExplosions()
	require.True(t, ok)
	assert.Equal(t, Pos(6, 6, 0), center.ToTile())
	assert.Equal(t, 60, power)
	assert.Equal(t, DamageHE, dt)

	_, _, _, ok = te.CheckForTerrainExplosions()
	assert.False(t, ok, "a pending explosion fires once")
}

func TestExplode_PowerDecaysAlongRay(t *testing.T) {
	tb := NewTestBattle(WithMapSize(21, 21, 1))
	origin := Pos(10, 10, 0)
	center := origin.VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))

	res := tb.Engine.Explode(center, 50, DamageHE, 0, nil)
	require.Equal(t, 50, res.Tiles[origin])

	for _, d := range []Direction{DirNorth, DirEast, DirSouth, DirWest} {
		v := d.Vector()
		for step := 1; step <= 4; step++ {
			p := origin.Add(Pos(v.X*step, v.Y*step, 0))
			assert.Equal(t, 50-10*step, res.Tiles[p], "%s step %d", d, step)
		}
		_, reached := res.Tiles[origin.Add(Pos(v.X*5, v.Y*5, 0))]
		assert.False(t, reached, "%s: power runs out after four tiles", d)
	}
	for p, power := range res.Tiles {
		assert.LessOrEqual(t, power, 50-10*maxInt(absInt(p.X-10), absInt(p.Y-10)), "tile %v", p)
	}
}

func TestExplode_WallAbsorbs(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(21, 21, 1),
		WithWall("brick_wall_west", Pos(12, 0, 0), Pos(12, 20, 0)),
	)
	center := Pos(10, 10, 0).VoxelCenter().Add(Pos(0, 0, VoxelsZ/2))
	res := tb.Engine.Explode(center, 50, DamageHE, 0, nil)

	_, behind := res.Tiles[Pos(12, 10, 0)]
	assert.False(t, behind, "the wall soaks up the 30 power left at its face")
	assert.Equal(t, 40, res.Tiles[Pos(11, 10, 0)])
	assert.Equal(t, 40, res.Tiles[Pos(9, 10, 0)])
}

func TestExplode_SmokeStaysInThresholdBand(t *testing.T) {
	tb := NewTestBattle(WithMapSize(12, 12, 1))
	bf := tb.Battlefield
	center := Pos(5, 5, 0).VoxelCenter().Add(Pos(0, 0, 2))

	tb.Engine.Explode(center, 60, DamageSmoke, 1, nil)

	c := bf.Tile(Pos(5, 5, 0)).Smoke()
	assert.GreaterOrEqual(t, c, 7)
	assert.LessOrEqual(t, c, MaxSmoke)
	assert.Positive(t, bf.Tile(Pos(6, 5, 0)).Smoke())
	assert.Zero(t, bf.Tile(Pos(8, 5, 0)).Smoke(), "outside the radius")
}

func TestExplode_DamagesUnitsAndItems(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(12, 12, 1),
		WithUnit("sectoid", FactionHostile, Pos(6, 5, 0), DirWest),
	)
	bf := tb.Battlefield
	sectoid := tb.Unit(0)
	before := sectoid.Health()
	it, err := bf.NewItem("pistol")
	require.NoError(t, err)
	require.NoError(t, bf.DropItem(it, Pos(5, 5, 0)))

	center := Pos(5, 5, 0).VoxelCenter().Add(Pos(0, 0, 2))
	res := tb.Engine.Explode(center, 80, DamageHE, 0, nil)

	assert.Contains(t, res.Units, sectoid.ID())
	assert.Less(t, sectoid.Health(), before)
	assert.True(t, it.IsDestroyed(), "an item at ground zero of an 80 blast is destroyed")
	assert.Equal(t, 1, tb.Log.Count(CatExplode, "explosion"))
}

func TestDamageUnit_ArmorSides(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(5, 5, 0), DirNorth),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirNorth),
	)
	front, rear := tb.Unit(0), tb.Unit(1)
	rear.dir = DirSouth

	lost := tb.Engine.DamageUnit(front, nil, 30, DamageAP, Pos(5, 2, 0), false)
	assert.Equal(t, 18, lost, "front armor 12")
	assert.Equal(t, 22, front.Health())
	assert.LessOrEqual(t, front.FatalWounds(), 1)

	lost = tb.Engine.DamageUnit(rear, nil, 30, DamageAP, Pos(1, 0, 0), false)
	assert.Equal(t, 25, lost, "attack from behind meets rear armor 5")

	assert.Zero(t, tb.Engine.DamageUnit(front, nil, 10, DamageAP, Pos(5, 2, 0), false))
}

func TestDamageUnit_StunAndCredit(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(5, 5, 0), DirNorth),
		WithUnit("sectoid", FactionHostile, Pos(5, 4, 0), DirSouth),
	)
	victim, attacker := tb.Unit(0), tb.Unit(1)
	tb.Engine.DamageUnit(victim, attacker, 60, DamageStun, attacker.Pos(), false)

	assert.Equal(t, 40, victim.Health(), "stun damage leaves health alone")
	assert.Equal(t, 48, victim.Stun())
	assert.Equal(t, attacker.ID(), victim.LastAttacker())
	assert.True(t, victim.IsOutThresholdExceed())
	assert.Equal(t, StatusUnconscious, victim.OutStatus())
}

func TestGravity(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(2, 2, 1), DirNorth))
	bf := tb.Battlefield
	it, err := bf.NewItem("grenade")
	require.NoError(t, err)
	require.NoError(t, bf.DropItem(it, Pos(3, 3, 1)))

	tb.Engine.ApplyItemGravity()
	assert.Equal(t, Pos(3, 3, 0), it.Tile())

	falling := tb.Engine.FallingUnits()
	require.Len(t, falling, 1)
	assert.Equal(t, UnitID(0), falling[0].ID())
}
