package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reactionRecorder is a ReactionSink that remembers what it was handed.
type reactionRecorder struct {
	accept  bool
	actions []Action
}

func (r *reactionRecorder) sink(_ *Unit, a Action) bool {
	r.actions = append(r.actions, a)
	return r.accept
}

func standoff(opts ...BattleOption) *TestBattle {
	base := []BattleOption{
		WithMapSize(12, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(2, 5, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(7, 5, 0), DirWest, "pistol"),
	}
	return NewTestBattle(append(base, opts...)...)
}

func TestCheckReactionFire_ReactsUntilOutscored(t *testing.T) {
	tb := standoff()
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	rec := &reactionRecorder{accept: true}

	reacted := tb.Engine.CheckReactionFire(soldier, rec.sink)
	require.True(t, reacted)
	// 63 reactions against 50: each 9 TU snap shot costs 10.5 points of score
	require.Len(t, rec.actions, 2)
	for _, a := range rec.actions {
		assert.Equal(t, ActionSnapShot, a.Type)
		assert.True(t, a.Reaction)
		assert.Equal(t, sectoid.ID(), a.Actor)
		assert.Equal(t, soldier.Pos(), a.Target)
		assert.True(t, a.TargetVoxel.IsValid(), "line of fire is resolved before queueing")
	}
	assert.Equal(t, 54-2*9, sectoid.TU())
	assert.Equal(t, 2, tb.Log.Count(CatReaction, "fired"))
}

func TestCheckReactionFire_NobodyOutscoresActor(t *testing.T) {
	tb := standoff()
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	sectoid.tu = 20
	rec := &reactionRecorder{accept: true}

	assert.False(t, tb.Engine.CheckReactionFire(soldier, rec.sink))
	assert.Empty(t, rec.actions)
	assert.Equal(t, 20, sectoid.TU())
}

func TestCheckReactionFire_OnlyDuringActorsTurn(t *testing.T) {
	tb := standoff()
	rec := &reactionRecorder{accept: true}
	assert.False(t, tb.Engine.CheckReactionFire(tb.Unit(1), rec.sink), "the sectoid is not the side to move")
	assert.Empty(t, rec.actions)
}

func TestCheckReactionFire_TerminatesWhenSinkRefuses(t *testing.T) {
	tb := standoff()
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	// a score far above the actor's with a cheap reduction would react forever
	sectoid.tu = 540
	rec := &reactionRecorder{accept: false}

	reacted := tb.Engine.CheckReactionFire(soldier, rec.sink)
	assert.False(t, reacted)
	assert.Len(t, rec.actions, maxReactionAttempts)
	assert.Zero(t, tb.Log.Count(CatReaction, "fired"))
}

func TestCheckReactionFire_MeleePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		precedence ReactionPrecedence
		want       ActionType
	}{
		{"cqb first", PrecedenceCQBFirst, ActionMelee},
		{"line of fire first", PrecedenceLineOfFireFirst, ActionSnapShot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := NewTestBattle(
				WithMapSize(12, 10, 1),
				WithOptions(func(o *Options) { o.ReactionPrecedence = tt.precedence }),
				WithUnit("soldier", FactionPlayer, Pos(5, 5, 0), DirEast),
				WithUnit("sectoid", FactionHostile, Pos(6, 5, 0), DirWest, "pistol", "knife"),
			)
			rec := &reactionRecorder{accept: true}
			require.True(t, tb.Engine.CheckReactionFire(tb.Unit(0), rec.sink))
			assert.Equal(t, tt.want, rec.actions[0].Type)
		})
	}
}

func TestCheckReactionFire_AccuracyThreshold(t *testing.T) {
	tb := standoff(WithOptions(func(o *Options) { o.ReactionAccuracyThreshold = 1000 }))
	rec := &reactionRecorder{accept: true}
	assert.Empty(t, tb.Engine.SpottingUnits(tb.Unit(0)))
	assert.False(t, tb.Engine.CheckReactionFire(tb.Unit(0), rec.sink))
}

func TestSpottingUnits_Filters(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(30, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(2, 5, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(7, 5, 0), DirWest, "pistol"),
		WithUnit("sectoid", FactionHostile, Pos(27, 5, 0), DirWest, "pistol"),
		WithUnit("sectoid", FactionHostile, Pos(7, 7, 0), DirWest),
		WithUnit("civilian", FactionNeutral, Pos(5, 3, 0), DirWest),
	)
	got := tb.Engine.SpottingUnits(tb.Unit(0))
	require.Len(t, got, 1, "too far, unarmed and neutral units cannot react")
	assert.Equal(t, UnitID(1), got[0].Unit.ID())
	assert.InDelta(t, 63.0, got[0].Score, 0.001)
	assert.InDelta(t, 10.5, got[0].Reduction, 0.001)
}

func TestSpottingUnits_NeedsActorSpottedBySide(t *testing.T) {
	tb := standoff()
	soldier, sectoid := tb.Unit(0), tb.Unit(1)
	require.Zero(t, soldier.TurnsSinceSpotted(FactionHostile))
	require.Len(t, tb.Engine.SpottingUnits(soldier), 1)

	tb.Engine.TickSpotting(FactionHostile)
	assert.Empty(t, tb.Engine.SpottingUnits(soldier), "the side lost track of the soldier")

	tb.Engine.CalculateUnitsInFOV(sectoid, InvalidPosition, 0)
	assert.Zero(t, soldier.TurnsSinceSpotted(FactionHostile))
	assert.Len(t, tb.Engine.SpottingUnits(soldier), 1)
}

func TestGetReactor(t *testing.T) {
	tb := standoff()
	a := ReactionCandidate{Unit: tb.Unit(1), Score: 40}
	b := ReactionCandidate{Unit: tb.Unit(1), Score: 55}
	c := ReactionCandidate{Unit: tb.Unit(1), Score: 55}

	assert.Equal(t, 1, getReactor([]ReactionCandidate{a, b, c}, 30), "first of the tied best")
	assert.Equal(t, -1, getReactor([]ReactionCandidate{a, b}, 55), "ties with the threshold do not react")
	assert.Equal(t, -1, getReactor(nil, 0))
}

func TestWalk_InterruptedByReactionFire(t *testing.T) {
	tb := NewTestBattle(
		WithMapSize(14, 10, 1),
		WithUnit("soldier", FactionPlayer, Pos(1, 5, 0), DirEast),
		WithUnit("sectoid", FactionHostile, Pos(9, 5, 0), DirWest, "pistol"),
	)
	soldier := tb.Unit(0)
	require.NoError(t, tb.Game.PrimaryAction(NewAction(ActionWalk, soldier, nil, Pos(5, 5, 0))))
	require.NotEqual(t, -1, tb.RunUntilIdle(2000))

	assert.True(t, tb.Log.HasEntry(CatReaction, "fired", "snap"))
	assert.Equal(t, Pos(2, 5, 0), soldier.Pos(), "the first step draws fire and ends the walk")
	assert.Equal(t, NoUnit, tb.Battlefield.MovingUnit())
}
