package scenario

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/battlecore/internal/ai"
	"github.com/Garsondee/battlecore/internal/battle"
)

func partName(bf *battle.Battlefield, p battle.Position, k battle.PartKind) string {
	part := bf.Tile(p).Part(k)
	if part == nil {
		return ""
	}
	return part.Name
}

func TestBuild_Layout(t *testing.T) {
	sk, err := Build(42)
	require.NoError(t, err)
	bf := sk.Battlefield

	sx, sy, sz := bf.Size()
	assert.Equal(t, []int{28, 18, 1}, []int{sx, sy, sz})
	assert.Equal(t, "power_source", partName(bf, sk.Objective, battle.PartObject))
	assert.True(t, strings.HasPrefix(partName(bf, sk.Rally.Add(battle.Pos(1, 0, 0)), battle.PartWestWall), "door"))

	require.Len(t, sk.Player, 4)
	require.Len(t, sk.Hostile, 4)
	for _, id := range sk.Player {
		u := bf.Unit(id)
		assert.Equal(t, battle.FactionPlayer, u.Faction())
		assert.Equal(t, 1, u.Pos().X)
		require.NotEqual(t, battle.NoItem, u.RightHand())
		assert.Equal(t, "rifle", bf.Item(u.RightHand()).Rule().Name)
		assert.Len(t, bf.UnitItems(u), 2)
	}
	for _, id := range sk.Hostile {
		assert.Equal(t, battle.FactionHostile, bf.Unit(id).Faction())
		assert.Equal(t, sx-2, bf.Unit(id).Pos().X)
	}
}

func TestBuild_DeploymentZonesStayClear(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		sk, err := Build(seed)
		require.NoError(t, err)
		bf := sk.Battlefield
		sx, sy, _ := bf.Size()
		for y := 0; y < sy; y++ {
			for _, x := range []int{0, 1, 2, sx - 3, sx - 2, sx - 1} {
				assert.Empty(t, partName(bf, battle.Pos(x, y, 0), battle.PartObject), "seed %d at (%d,%d)", seed, x, y)
			}
		}
	}
}

func TestBuild_SameSeedSameMap(t *testing.T) {
	a, err := Build(7)
	require.NoError(t, err)
	b, err := Build(7)
	require.NoError(t, err)

	sx, sy, _ := a.Battlefield.Size()
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			p := battle.Pos(x, y, 0)
			assert.Equal(t, partName(a.Battlefield, p, battle.PartObject), partName(b.Battlefield, p, battle.PartObject))
			assert.Equal(t, partName(a.Battlefield, p, battle.PartFloor), partName(b.Battlefield, p, battle.PartFloor))
		}
	}
}

func TestBuild_Options(t *testing.T) {
	sk, err := Build(3, WithSize(24, 16), WithSquadSize(2), WithoutCover())
	require.NoError(t, err)
	assert.Len(t, sk.Player, 2)

	sx, sy, _ := sk.Battlefield.Size()
	assert.Equal(t, 24, sx)
	assert.Equal(t, 16, sy)
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			name := partName(sk.Battlefield, battle.Pos(x, y, 0), battle.PartObject)
			assert.NotContains(t, []string{"hedge", "rock_block", "fuel_barrel", "fence_east", "fence_south"}, name)
		}
	}
	assert.Empty(t, partName(sk.Battlefield, battle.Pos(4, 2, 0), battle.PartObject))

	_, err = Build(1, WithSize(10, 10))
	assert.Error(t, err)
	_, err = Build(1, WithSquadSize(0))
	assert.Error(t, err)
}

func TestValueNoise2D_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := valueNoise2D(float64(i)*0.37, float64(i)*0.11, 99)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, valueNoise2D(3, 4, 5), latticeValue(3, 4, 5), "lattice points are exact")
}

func TestStart_WiresAI(t *testing.T) {
	sk, err := Build(5, WithoutCover())
	require.NoError(t, err)
	g := sk.Start(battle.Dependencies{Options: battle.DefaultOptions(), AutoPlay: true})

	for _, u := range sk.Battlefield.Units() {
		require.IsType(t, &ai.Module{}, u.AI())
	}
	for i := 0; i < 400 && sk.Battlefield.Turn() == 1; i++ {
		g.Think()
	}
	assert.Greater(t, g.Log().Count(battle.CatAction, "queued"), 0, "units acted on their own")
}

func TestGenerateFortifications(t *testing.T) {
	bf := battle.NewBattlefield(20, 14, 1, nil)
	bf.FillFloor(0, "grass")
	keep := func(p battle.Position) bool { return p.X < 6 }
	cfg := fortConfig{SandbagCount: 6, FenceCount: 6, FenceMinLen: 3, FenceMaxLen: 3}
	generateFortifications(bf, rand.New(rand.NewSource(4)), cfg, keep)

	placed := 0
	for y := 0; y < 14; y++ {
		for x := 0; x < 20; x++ {
			name := partName(bf, battle.Pos(x, y, 0), battle.PartObject)
			if name == "" {
				continue
			}
			placed++
			assert.GreaterOrEqual(t, x, 6, "kept tiles stay empty")
			assert.Contains(t, []string{"crate", "fence_east", "fence_south"}, name)
		}
	}
	assert.Positive(t, placed)
}

func TestFurnishHouse_KeepsReservedTilesFree(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		sk, err := Build(seed, WithoutCover())
		require.NoError(t, err)
		bf := sk.Battlefield

		sx, sy, _ := bf.Size()
		h := house{x0: sx/2 - 3, y0: sy/2 - 3, x1: sx/2 + 2, y1: sy/2 + 2}
		for y := h.y0; y <= h.y1; y++ {
			assert.Empty(t, partName(bf, battle.Pos(h.x0, y, 0), battle.PartObject), "seed %d: entrance column", seed)
		}
		assert.Equal(t, "lamp", partName(bf, lampPos(h), battle.PartObject))
		assert.Equal(t, "power_source", partName(bf, sk.Objective, battle.PartObject))
	}
}
