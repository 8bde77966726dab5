package view

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/battlecore/internal/battle"
)

func newTestGame() *battle.Game {
	tb := battle.NewTestBattle(
		battle.WithMapSize(12, 8, 1),
		battle.WithUnit("soldier", battle.FactionPlayer, battle.Pos(1, 1, 0), battle.DirEast),
		battle.WithUnit("sectoid", battle.FactionHostile, battle.Pos(10, 6, 0), battle.DirWest),
	)
	return tb.Game
}

func TestNew_WindowSize(t *testing.T) {
	v := New(newTestGame())
	w, h := v.WindowSize()
	assert.Equal(t, borderWidth*3+12*tileSize+panelWidth, w)
	assert.Equal(t, 640, h, "short maps keep room for the log panel")
	lw, lh := v.Layout(0, 0)
	assert.Equal(t, w, lw)
	assert.Equal(t, h, lh)
}

func TestStepSpeed(t *testing.T) {
	tests := []struct {
		cur  float64
		dir  int
		want float64
	}{
		{1, +1, 4},
		{1, -1, 0.25},
		{0, -1, 0},
		{16, +1, 16},
		{0.5, +1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stepSpeed(tt.cur, tt.dir), "from %v by %d", tt.cur, tt.dir)
	}
}

func TestNextSide(t *testing.T) {
	assert.Equal(t, battle.FactionHostile, nextSide(battle.FactionPlayer))
	assert.Equal(t, battle.FactionPlayer, nextSide(battle.FactionHostile))
}

func TestShade(t *testing.T) {
	c := color.RGBA{R: 200, G: 100, B: 40, A: 255}
	assert.Equal(t, c, shade(c, 15))
	assert.Equal(t, color.RGBA{R: 50, G: 25, B: 10, A: 255}, shade(c, 0))
	assert.Equal(t, shade(c, 0), shade(c, -3), "light is clamped")
}

func TestColors(t *testing.T) {
	assert.Equal(t, backgroundCol, floorColor(""))
	assert.NotEqual(t, floorColor("grass"), floorColor("dirt"))
	assert.Equal(t, doorCol, wallColor("door_west"))
	assert.Equal(t, windowCol, wallColor("broken_window_north"))
	assert.Equal(t, wallCol, wallColor("brick_wall_north"))
}

func TestLogTail(t *testing.T) {
	entries := []battle.LogEntry{
		{Turn: 1, Unit: "U0", Category: battle.CatTurn, Key: "begin"},
		{Turn: 1, Unit: "U1", Category: battle.CatVision, Key: "spotted"},
		{Turn: 2, Unit: "U0", Category: battle.CatShot, Key: "fired"},
	}
	tail := logTail(entries, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, entries[1].String(), tail[0])
	assert.Equal(t, entries[2].String(), tail[1])
	assert.Len(t, logTail(entries, 10), 3)
	assert.Empty(t, logTail(entries, 0))
}

func TestReport(t *testing.T) {
	g := newTestGame()
	require.NoError(t, g.RequestEndTurn())
	for i := 0; i < 50 && g.Busy(); i++ {
		g.Think()
	}
	r := report(g)
	assert.Contains(t, r, "--- Summary at turn")
	assert.Contains(t, r, "end_requested")
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "aborted", outcomeLabel(battle.Outcome{Over: true, Aborted: true}))
	assert.Equal(t, "hostile wins", outcomeLabel(battle.Outcome{Over: true, Winner: battle.FactionHostile}))
}

func TestRestartNext(t *testing.T) {
	var asked []int64
	v := New(newTestGame(), WithRestart(10, func(seed int64) (*battle.Game, error) {
		asked = append(asked, seed)
		if seed == 12 {
			return nil, errors.New("boom")
		}
		return newTestGame(), nil
	}))

	first := v.game
	v.restartNext()
	assert.Equal(t, int64(11), v.seed)
	assert.NotSame(t, first, v.game)
	assert.Equal(t, "seed 11", v.status)

	v.restartNext()
	assert.Equal(t, int64(11), v.seed, "a failed restart keeps the running battle")
	assert.Equal(t, "restart failed", v.status)
	assert.Equal(t, []int64{11, 12}, asked)
}
