package battle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAI returns a fixed action every time it is asked and records alerts.
type scriptedAI struct {
	next    func(te *TileEngine, self UnitID) Action
	calls   int
	alerted []UnitID
}

func (a *scriptedAI) Think(te *TileEngine, self UnitID) Action {
	a.calls++
	return a.next(te, self)
}

func (a *scriptedAI) Alert(spotted UnitID) { a.alerted = append(a.alerted, spotted) }

func sideIs(f Faction) func(*TestBattle) bool {
	return func(tb *TestBattle) bool { return tb.Battlefield.Side() == f }
}

func TestPrimaryAction_Rejected(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirNorth, "rifle"),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	soldier, sectoid := tb.Unit(0), tb.Unit(1)

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{"unknown unit", Action{Type: ActionTurn, Actor: 99, Weapon: NoItem}, ErrUnknownUnit},
		{"other side's unit", NewAction(ActionTurn, sectoid, nil, Pos(0, 0, 0)), ErrNotYourTurn},
		{"turn off the map", NewAction(ActionTurn, soldier, nil, Pos(40, 3, 0)), ErrOutOfRange},
		{"no door ahead", NewAction(ActionOpenDoor, soldier, nil, soldier.Pos()), ErrNoDoor},
		{"not an action", NewAction(ActionRethink, soldier, nil, soldier.Pos()), ErrInvalidAction},
		{"shot without weapon", NewAction(ActionSnapShot, soldier, nil, sectoid.Pos()), ErrNoWeapon},
		{"walk to another level", NewAction(ActionWalk, soldier, nil, Pos(3, 6, 1)), ErrNoPath},
		{"melee with a rifle", NewAction(ActionMelee, soldier, tb.Battlefield.Item(soldier.RightHand()), sectoid.Pos()), ErrNoWeapon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tb.Game.PrimaryAction(tt.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.want.Error(), tb.Game.LastMessage())
			assert.False(t, tb.Game.Busy(), "nothing is queued on failure")
		})
	}
	assert.Equal(t, 60, soldier.TU())
	assert.Equal(t, len(tests), tb.Log.Count(CatAction, "rejected"))
}

func TestPrimaryAction_BusyWhileStatesRun(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirNorth))
	soldier := tb.Unit(0)

	require.NoError(t, tb.Game.SecondaryAction(soldier.ID(), Pos(8, 3, 0)))
	err := tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos()))
	assert.True(t, errors.Is(err, ErrBusy))

	require.NotEqual(t, -1, tb.RunUntilIdle(50))
	assert.Equal(t, DirEast, soldier.Direction())
	assert.Equal(t, 58, soldier.TU(), "one time unit per eighth turned")
	assert.NoError(t, tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos())))
}

func TestTurn_NoTimeSpentWantsToEndTurn(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast))
	soldier := tb.Unit(0)

	require.NoError(t, tb.Game.SecondaryAction(soldier.ID(), Pos(8, 3, 0)))
	tb.RunUntilIdle(10)
	assert.True(t, soldier.WantsToEndTurn(), "an action that cost nothing marks the unit done")
	assert.Equal(t, 60, soldier.TU())
}

func TestWalk_FollowsDirectPath(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast))
	soldier := tb.Unit(0)

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionWalk, soldier, nil, Pos(4, 1, 0))))
	assert.Equal(t, []string{"walk"}, tb.Game.QueuedStates())
	require.NotEqual(t, -1, tb.RunUntilIdle(50))

	assert.Equal(t, Pos(4, 1, 0), soldier.Pos())
	assert.Equal(t, 60-3*4, soldier.TU())
	assert.Equal(t, 60-3*2, soldier.Energy())
	assert.Equal(t, StatusStanding, soldier.Status())
	assert.Equal(t, soldier.ID(), tb.Battlefield.Tile(Pos(4, 1, 0)).Unit())
	assert.Equal(t, NoUnit, tb.Battlefield.Tile(Pos(1, 1, 0)).Unit())
	assert.True(t, tb.Battlefield.Tile(Pos(6, 1, 0)).IsVisible(FactionPlayer))
}

func TestWalk_StopsWhenOutOfTime(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast))
	soldier := tb.Unit(0)
	soldier.tu = 9

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionWalk, soldier, nil, Pos(8, 1, 0))))
	tb.RunUntilIdle(50)
	assert.Equal(t, Pos(3, 1, 0), soldier.Pos())
	assert.Equal(t, 1, soldier.TU())
	assert.Equal(t, ErrNotEnoughTimeUnits.Reason, tb.Game.LastMessage())
}

func TestSnapShot_SpendsTimeAndAmmo(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(12, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 5, 0), DirEast, "rifle"),
		WithUnit("sectoid", FactionHostile, Pos(6, 5, 0), DirWest),
		WithUnit("sectoid", FactionHostile, Pos(10, 1, 0), DirWest),
	)
	soldier := tb.Unit(0)
	rifle := tb.Battlefield.Item(soldier.RightHand())

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionSnapShot, soldier, rifle, Pos(6, 5, 0))))
	require.NotEqual(t, -1, tb.RunUntilIdle(500))

	assert.Equal(t, 60-15, soldier.TU())
	assert.Equal(t, 19, rifle.AmmoLeft())
	assert.Equal(t, 1, tb.Log.Count(CatShot, "snap"))
	assert.False(t, soldier.WantsToEndTurn())
}

func TestAutoShot_FiresEveryRound(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(12, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 5, 0), DirEast, "rifle"),
		WithUnit("sectoid", FactionHostile, Pos(10, 1, 0), DirWest),
	)
	soldier := tb.Unit(0)
	rifle := tb.Battlefield.Item(soldier.RightHand())

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionAutoShot, soldier, rifle, Pos(8, 8, 0))))
	require.NotEqual(t, -1, tb.RunUntilIdle(1000))
	assert.Equal(t, 3, tb.Log.Count(CatShot, "auto"))
	assert.Equal(t, 17, rifle.AmmoLeft())
}

func TestShot_OutOfRangeAndNoAmmo(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(60, 5, 1),
		WithUnit("soldier", FactionPlayer, Pos(0, 2, 0), DirEast, "pistol"),
		WithUnit("sectoid", FactionHostile, Pos(45, 2, 0), DirWest),
	)
	soldier := tb.Unit(0)
	pistol := tb.Battlefield.Item(soldier.RightHand())

	err := tb.Game.PrimaryAction(NewAction(ActionSnapShot, soldier, pistol, Pos(45, 2, 0)))
	assert.True(t, errors.Is(err, ErrOutOfRange))

	pistol.ammoLeft = 0
	err = tb.Game.PrimaryAction(NewAction(ActionSnapShot, soldier, pistol, Pos(5, 2, 0)))
	assert.True(t, errors.Is(err, ErrNoAmmo))
}

func TestPrime_SetsFuse(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast, "grenade"))
	soldier := tb.Unit(0)
	grenade := tb.Battlefield.Item(soldier.RightHand())

	a := NewAction(ActionPrime, soldier, grenade, soldier.Pos())
	a.Fuse = 2
	require.NoError(t, tb.Game.PrimaryAction(a))
	assert.False(t, tb.Game.Busy(), "priming is instant")
	assert.True(t, grenade.IsPrimed())
	assert.Equal(t, 2, grenade.Fuse())
	assert.Equal(t, 30, soldier.TU())

	rifle, err := tb.Battlefield.NewItem("rifle")
	require.NoError(t, err)
	tb.Battlefield.GiveItem(soldier, rifle)
	err = tb.Game.PrimaryAction(NewAction(ActionPrime, soldier, rifle, soldier.Pos()))
	assert.True(t, errors.Is(err, ErrNoWeapon), "rifles have no fuse")
}

func TestThrow_LandsNearTarget(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(14, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 5, 0), DirEast, "flare"),
		WithUnit("sectoid", FactionHostile, Pos(12, 1, 0), DirWest),
	)
	soldier := tb.Unit(0)
	flare := tb.Battlefield.Item(soldier.RightHand())

	err := tb.Game.PrimaryAction(NewAction(ActionThrow, soldier, flare, Pos(13, 9, 0)))
	require.True(t, errors.Is(err, ErrOutOfRange), "range is 4 + strength/4 = 11 tiles")

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionThrow, soldier, flare, Pos(5, 5, 0))))
	require.NotEqual(t, -1, tb.RunUntilIdle(500))

	assert.Equal(t, NoItem, soldier.RightHand())
	assert.Equal(t, NoUnit, flare.Owner())
	assert.Equal(t, soldier.ID(), flare.PreviousOwner())
	landed := flare.Tile()
	require.True(t, landed.IsValid())
	assert.LessOrEqual(t, landed.DistanceSq(Pos(5, 5, 0), false), 9)
	assert.True(t, tb.Log.HasEntry(CatShot, "landed", "flare"))
}

func TestOpenDoor_Toggles(t *testing.T) {
	tb := NewTestBattle(
		WithPart(Pos(3, 3, 0), "door_north"),
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirNorth),
	)
	soldier := tb.Unit(0)
	tile := tb.Battlefield.Tile(Pos(3, 3, 0))
	require.False(t, tb.Battlefield.Tile(Pos(3, 1, 0)).IsVisible(FactionPlayer), "the closed door blocks the view")

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionOpenDoor, soldier, nil, soldier.Pos())))
	assert.Equal(t, "door_open_north", tile.Part(PartNorthWall).Name)
	assert.Equal(t, 56, soldier.TU())
	assert.True(t, tb.Battlefield.Tile(Pos(3, 1, 0)).IsVisible(FactionPlayer))
	assert.Equal(t, 1, tb.Log.Count(CatTerrain, "door_opened"))

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionOpenDoor, soldier, nil, soldier.Pos())))
	assert.Equal(t, "door_north", tile.Part(PartNorthWall).Name)
	assert.Equal(t, 1, tb.Log.Count(CatTerrain, "door_closed"))
}

func TestOpenDoor_NeighbourWall(t *testing.T) {
	tb := NewTestBattle(
		WithPart(Pos(4, 3, 0), "door_west"),
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast),
	)
	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionOpenDoor, tb.Unit(0), nil, Pos(3, 3, 0))))
	assert.Equal(t, "door_open_west", tb.Battlefield.Tile(Pos(4, 3, 0)).Part(PartWestWall).Name)
}

func TestKneel_Toggles(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast))
	soldier := tb.Unit(0)

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos())))
	assert.True(t, soldier.IsKneeled())
	assert.Equal(t, 14, soldier.Height())
	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos())))
	assert.False(t, soldier.IsKneeled())
	assert.Equal(t, 52, soldier.TU())
}

func TestEndTurn_CyclesSidesAndTurns(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	soldier.tu = 5

	require.NoError(t, tb.Game.RequestEndTurn())
	require.NoError(t, tb.Game.RequestEndTurn(), "a second request is a no-op")
	assert.True(t, errors.Is(tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos())), ErrBusy))

	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionHostile), 20))
	assert.Equal(t, 1, tb.Battlefield.Turn())
	assert.Equal(t, sectoid.ID(), tb.Battlefield.SelectedUnit())

	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionPlayer), 50))
	assert.Equal(t, 2, tb.Battlefield.Turn())
	assert.Equal(t, 60, soldier.TU(), "time units restored for the new turn")
	assert.True(t, sectoid.WantsToEndTurn(), "the unit without an AI module gave up its turn")
	assert.Equal(t, 2, tb.Log.Count(CatTurn, "end"))
	assert.Equal(t, 1, tb.Log.Count(CatTurn, "turn"))
	assert.Equal(t, 2, tb.Log.Count(CatTurn, "begin"))
	assert.False(t, tb.Game.Outcome().Over)
}

func TestEndTurn_FuseAndBleedingApplyOnce(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(20, 20, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(18, 1, 0), DirWest),
	)
	bf := tb.Battlefield
	soldier := tb.Unit(0)
	soldier.fatalWounds = 2

	slow, err := bf.NewItem("grenade")
	require.NoError(t, err)
	require.NoError(t, bf.DropItem(slow, Pos(1, 18, 0)))
	slow.Prime(1)
	fast, err := bf.NewItem("grenade")
	require.NoError(t, err)
	require.NoError(t, bf.DropItem(fast, Pos(15, 15, 0)))
	fast.Prime(0)

	require.NoError(t, tb.Game.RequestEndTurn())
	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionHostile), 100))

	assert.True(t, fast.IsDestroyed())
	assert.Equal(t, 1, tb.Log.Count(CatExplode, "fuse"))
	assert.False(t, slow.IsDestroyed(), "the fuse counts down once per turn end")
	assert.Equal(t, 0, slow.Fuse())
	assert.Equal(t, 38, soldier.Health(), "bleeding applies once")
	assert.Equal(t, 1, tb.Log.Count(CatCasualty, "bleeding"))
}

func TestEndTurn_SmokeGrenadeLeavesGradedSmoke(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(20, 20, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(18, 1, 0), DirWest),
	)
	bf := tb.Battlefield
	smoke, err := bf.NewItem("smoke_grenade")
	require.NoError(t, err)
	require.NoError(t, bf.DropItem(smoke, Pos(10, 10, 0)))
	smoke.Prime(0)

	require.NoError(t, tb.Game.RequestEndTurn())
	exploded := func(tb *TestBattle) bool { return tb.Log.Count(CatExplode, "explosion") > 0 }
	require.NotEqual(t, -1, tb.RunUntil(exploded, 50))

	centre := bf.Tile(Pos(10, 10, 0)).Smoke()
	assert.GreaterOrEqual(t, centre, 7)
	assert.LessOrEqual(t, centre, MaxSmoke)
	for _, p := range []Position{Pos(12, 10, 0), Pos(10, 8, 0), Pos(8, 10, 0), Pos(10, 12, 0)} {
		assert.Less(t, bf.Tile(p).Smoke(), centre, "at %v", p)
		assert.Positive(t, bf.Tile(p).Smoke(), "at %v", p)
	}
}

func TestEndTurn_TerrainExplosionChains(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(20, 20, 1),
		WithPart(Pos(10, 10, 0), "fuel_barrel"),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(18, 1, 0), DirWest),
	)
	tb.Engine.Detonate(Pos(10, 10, 0), 20)

	require.NoError(t, tb.Game.RequestEndTurn())
	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionHostile), 50))
	assert.True(t, tb.Log.HasEntry(CatExplode, "explosion", "he 60"))
	power, _ := tb.Battlefield.Tile(Pos(10, 10, 0)).PendingExplosion()
	assert.Zero(t, power)
}

func TestCasualty_KillCreditAndDedupe(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(5, 1, 0), DirWest, "pistol"),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	soldier, victim, comrade := tb.Unit(0), tb.Unit(1), tb.Unit(2)
	tb.Engine.DamageUnit(victim, soldier, 500, DamageAP, soldier.Pos(), false)

	tb.Game.checkForCasualties(soldier)
	tb.Game.checkForCasualties(soldier)
	require.NotEqual(t, -1, tb.RunUntilIdle(20))

	require.Len(t, tb.Casualties(), 1)
	c := tb.Casualties()[0]
	assert.Equal(t, victim.ID(), c.Victim)
	assert.Equal(t, "sectoid", c.VictimRule)
	assert.Equal(t, StatusDead, c.Status)
	assert.Equal(t, soldier.ID(), c.Murderer)
	assert.Equal(t, FactionPlayer, c.MurdererFaction)
	assert.False(t, c.FriendlyFire)

	assert.Equal(t, StatusDead, victim.Status())
	assert.Equal(t, 1, soldier.Kills())
	assert.Equal(t, NoUnit, tb.Battlefield.Tile(Pos(5, 1, 0)).Unit())
	items := tb.Battlefield.Tile(Pos(5, 1, 0)).Items()
	require.Len(t, items, 2, "the pistol and the body")
	assert.Equal(t, 94, comrade.Morale(), "comrades lose 200*((110-80)/10)/100")
	assert.Equal(t, 100, soldier.Morale())
	assert.False(t, tb.Game.Outcome().Over)
}

func TestCasualty_FriendlyFire(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("soldier", FactionPlayer, Pos(3, 1, 0), DirWest),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	shooter, victim := tb.Unit(0), tb.Unit(1)
	tb.Engine.DamageUnit(victim, shooter, 500, DamageAP, shooter.Pos(), false)
	tb.Game.checkForCasualties(nil)
	tb.RunUntilIdle(20)

	require.Len(t, tb.Casualties(), 1)
	c := tb.Casualties()[0]
	assert.True(t, c.FriendlyFire)
	assert.Equal(t, shooter.ID(), c.Murderer, "the last attacker is credited")
	assert.Zero(t, shooter.Kills())
	assert.Equal(t, 100-20-14, shooter.Morale())
}

func TestCasualty_UnconsciousThenDead(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(5, 1, 0), DirWest),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	soldier, victim := tb.Unit(0), tb.Unit(1)

	tb.Engine.DamageUnit(victim, soldier, 100, DamageStun, soldier.Pos(), false)
	tb.Game.checkForCasualties(soldier)
	tb.RunUntilIdle(20)
	require.Equal(t, StatusUnconscious, victim.Status())
	assert.Zero(t, soldier.Kills())

	tb.Game.checkForCasualties(soldier)
	require.Len(t, tb.Casualties(), 1, "still unconscious is not a new casualty")

	tb.Engine.DamageUnit(victim, soldier, 500, DamageAP, soldier.Pos(), false)
	tb.Game.checkForCasualties(soldier)
	tb.RunUntilIdle(20)
	require.Len(t, tb.Casualties(), 2)
	assert.Equal(t, StatusDead, tb.Casualties()[1].Status)
	assert.Equal(t, StatusDead, victim.Status())
	assert.Equal(t, 1, soldier.Kills())
	bodies := 0
	for _, id := range tb.Battlefield.Tile(Pos(5, 1, 0)).Items() {
		if it := tb.Battlefield.Item(id); it.Rule().BattleType == ItemCorpse {
			bodies++
		}
	}
	assert.Equal(t, 1, bodies, "a unit collapses only once")
}

func TestCasualty_WakesUp(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
	)
	sleeper := tb.Unit(1)
	tb.Engine.DamageUnit(sleeper, tb.Unit(2), 60, DamageStun, Pos(8, 3, 0), false)
	tb.Game.checkForCasualties(nil)
	tb.RunUntilIdle(20)
	require.Equal(t, StatusUnconscious, sleeper.Status())
	require.Equal(t, NoUnit, tb.Battlefield.Tile(Pos(3, 3, 0)).Unit())

	sleeper.stun = 1
	tb.Game.factionEndOfTurn(FactionPlayer)

	assert.Equal(t, StatusStanding, sleeper.Status())
	assert.Equal(t, sleeper.ID(), tb.Battlefield.Tile(Pos(3, 3, 0)).Unit())
	for _, id := range tb.Battlefield.Tile(Pos(3, 3, 0)).Items() {
		assert.NotEqual(t, ItemCorpse, tb.Battlefield.Item(id).Rule().BattleType, "the body item is gone")
	}
	assert.Equal(t, 1, tb.Log.Count(CatCasualty, "woke"))

	tb.Engine.DamageUnit(sleeper, nil, 100, DamageStun, Pos(3, 3, 0), true)
	tb.Game.checkForCasualties(nil)
	assert.Len(t, tb.Casualties(), 2, "a woken unit can be knocked out again")
}

func TestCasualty_SpawnOnDeath(t *testing.T) {
	var spawned []UnitID
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("zombie", FactionHostile, Pos(5, 5, 0), DirWest),
	)
	tb.Game.deps.NewAI = func(id UnitID) AIModule {
		spawned = append(spawned, id)
		return nil
	}
	soldier, zombie := tb.Unit(0), tb.Unit(1)
	tb.Engine.DamageUnit(zombie, soldier, 500, DamageAP, soldier.Pos(), false)
	tb.Game.checkForCasualties(soldier)
	tb.RunUntilIdle(20)

	require.Equal(t, StatusDead, zombie.Status())
	require.Len(t, tb.Battlefield.Units(), 3)
	child := tb.Unit(2)
	assert.Equal(t, "chryssalid", child.Rule().Name)
	assert.Equal(t, FactionHostile, child.Faction())
	assert.Equal(t, Pos(5, 5, 0), child.Pos())
	assert.Zero(t, child.TU(), "spawned units wait for their next turn")
	assert.Equal(t, []UnitID{2}, spawned)
	assert.False(t, tb.Game.Outcome().Over, "the spawn keeps the side alive")
}

func TestOutcome_Elimination(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(5, 1, 0), DirWest),
	)
	soldier := tb.Unit(0)
	tb.Engine.DamageUnit(tb.Unit(1), soldier, 500, DamageAP, soldier.Pos(), false)
	tb.Game.checkForCasualties(soldier)
	tb.RunUntilIdle(20)

	out := tb.Game.Outcome()
	require.True(t, out.Over)
	assert.Equal(t, FactionPlayer, out.Winner)
	assert.Equal(t, "elimination", out.Reason)
	assert.False(t, out.Aborted)
	assert.Equal(t, []Outcome{out}, tb.Outcomes())

	assert.True(t, errors.Is(tb.Game.PrimaryAction(NewAction(ActionKneel, soldier, nil, soldier.Pos())), ErrBattleOver))
	assert.True(t, errors.Is(tb.Game.RequestEndTurn(), ErrBattleOver))
	tb.RunTicks(5)
	assert.Len(t, tb.Outcomes(), 1, "the outcome is recorded once")
}

func TestOutcome_TurnLimit(t *testing.T) {
	tests := []struct {
		name    string
		policy  TurnLimitPolicy
		winner  Faction
		aborted bool
	}{
		{"lose", TurnLimitLose, FactionHostile, false},
		{"win", TurnLimitWin, FactionPlayer, false},
		{"abort", TurnLimitAbort, factionCount, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := NewTestBattle(
				WithOptions(func(o *Options) {
					o.TurnLimit = 1
					o.TurnLimitPolicy = tt.policy
				}),
				WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
				WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
			)
			require.NoError(t, tb.Game.RequestEndTurn())
			over := func(tb *TestBattle) bool { return tb.Game.Outcome().Over }
			require.NotEqual(t, -1, tb.RunUntil(over, 50))

			out := tb.Game.Outcome()
			assert.Equal(t, tt.winner, out.Winner)
			assert.Equal(t, tt.aborted, out.Aborted)
			assert.Equal(t, "turn_limit", out.Reason)
			assert.Equal(t, 2, out.Turn)
		})
	}
}

func TestOutcome_ObjectiveAtTurnBoundary(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(30, 30, 1),
		WithPart(Pos(25, 25, 0), "power_source"),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(2, 28, 0), DirWest),
	)
	res := tb.Engine.Detonate(Pos(25, 25, 0), 200)
	require.True(t, res.Objective)
	assert.False(t, tb.Game.Outcome().Over, "the objective is checked at the turn boundary")

	require.NoError(t, tb.Game.RequestEndTurn())
	over := func(tb *TestBattle) bool { return tb.Game.Outcome().Over }
	require.NotEqual(t, -1, tb.RunUntil(over, 50))
	assert.Equal(t, "objective", tb.Game.Outcome().Reason)
	assert.Equal(t, FactionPlayer, tb.Game.Outcome().Winner)
	assert.True(t, tb.Log.HasEntry(CatExplode, "explosion", "he 120"), "the power source blew up first")
}

func TestAI_AutoPlayAndAlerts(t *testing.T) {
	ai := &scriptedAI{next: func(te *TileEngine, self UnitID) Action {
		u := te.Battlefield().Unit(self)
		return NewAction(ActionTurn, u, nil, Pos(8, 5, 0))
	}}
	tb := NewTestBattle(
		WithAutoPlay(),
		WithUnit("soldier", FactionPlayer, Pos(2, 5, 0), DirWest),
		WithUnit("sectoid", FactionHostile, Pos(8, 5, 0), DirWest),
		WithAI(0, ai),
	)
	soldier := tb.Unit(0)
	require.Empty(t, soldier.VisibleUnits())

	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionHostile), 200))
	assert.Equal(t, DirEast, soldier.Direction())
	assert.Contains(t, ai.alerted, UnitID(1))
	assert.LessOrEqual(t, ai.calls, DefaultOptions().AIActionsPerUnit)
	assert.Positive(t, tb.Log.Count(CatAction, "queued"))
}

func TestAI_RethinkThenGiveUp(t *testing.T) {
	tests := []struct {
		name   string
		action func(u *Unit) Action
		log    string
	}{
		{"rethink", func(u *Unit) Action { return NewAction(ActionRethink, u, nil, u.Pos()) }, ""},
		{"invalid plan", func(u *Unit) Action { return NewAction(ActionWalk, u, nil, Pos(99, 99, 0)) }, "ai_dropped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &scriptedAI{next: func(te *TileEngine, self UnitID) Action {
				return tt.action(te.Battlefield().Unit(self))
			}}
			tb := NewTestBattle(
				WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
				WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
				WithAI(1, ai),
			)
			require.NoError(t, tb.Game.RequestEndTurn())
			require.NotEqual(t, -1, tb.RunUntil(func(tb *TestBattle) bool { return tb.Battlefield.Turn() == 2 }, 50))
			assert.Equal(t, 2, ai.calls, "one retry, then the unit ends its turn")
			if tt.log != "" {
				assert.Equal(t, 2, tb.Log.Count(CatAction, tt.log))
			}
		})
	}
}

func TestAI_HandsOverBetweenUnits(t *testing.T) {
	var order []UnitID
	kneel := func(te *TileEngine, self UnitID) Action {
		order = append(order, self)
		u := te.Battlefield().Unit(self)
		return NewAction(ActionKneel, u, nil, u.Pos())
	}
	tb := NewTestBattle(
		WithOptions(func(o *Options) { o.AIActionsPerUnit = 2 }),
		WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(8, 8, 0), DirWest),
		WithUnit("sectoid", FactionHostile, Pos(8, 6, 0), DirWest),
		WithAI(1, &scriptedAI{next: kneel}),
		WithAI(2, &scriptedAI{next: kneel}),
	)
	require.NoError(t, tb.Game.RequestEndTurn())
	require.NotEqual(t, -1, tb.RunUntil(sideIs(FactionPlayer), 400))
	require.GreaterOrEqual(t, len(order), 4)
	assert.Equal(t, []UnitID{1, 1, 2, 2}, order[:4], "each unit gets its actions before handing over")
}

func TestCancelCurrentAction(t *testing.T) {
	tb := NewTestBattle(WithUnit("soldier", FactionPlayer, Pos(1, 1, 0), DirEast))
	soldier := tb.Unit(0)
	assert.False(t, tb.Game.CancelCurrentAction())

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionWalk, soldier, nil, Pos(8, 1, 0))))
	tb.RunTicks(3)
	require.True(t, tb.Game.CancelCurrentAction())
	tb.RunUntilIdle(10)
	assert.Less(t, soldier.Pos().X, 8)
	assert.False(t, tb.Game.Busy())
}

func TestMelee_ShortOfTimeAtStrike(t *testing.T) {
	tb := NewTestBattle(
		WithUnit("soldier", FactionPlayer, Pos(3, 3, 0), DirEast, "knife"),
		WithUnit("sectoid", FactionHostile, Pos(4, 3, 0), DirWest),
	)
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	knife := tb.Battlefield.Item(soldier.RightHand())
	health := sectoid.Health()

	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionMelee, soldier, knife, sectoid.Pos())))
	// the queued strike finds the time units gone
	soldier.tu = 5
	require.NotEqual(t, -1, tb.RunUntilIdle(50))

	assert.Equal(t, ErrNotEnoughTimeUnits.Reason, tb.Game.LastMessage())
	assert.Equal(t, 1, tb.Log.Count(CatAction, "failed"))
	assert.Equal(t, 5, soldier.TU())
	assert.Equal(t, health, sectoid.Health())
	assert.Zero(t, tb.Log.Count(CatShot, "melee")+tb.Log.Count(CatShot, "melee_missed"))
}

func TestSelectNextAIUnit_NoUnits(t *testing.T) {
	tb := NewTestBattle()
	tb.Battlefield.selectedUnit = 3
	assert.False(t, tb.Game.selectNextAIUnit())
	assert.Equal(t, NoUnit, tb.Battlefield.selectedUnit)
}
