package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/battlecore/internal/battle"
	"github.com/Garsondee/battlecore/internal/stats"
)

func testSettings(ticks int) runSettings {
	return runSettings{ticks: ticks, squad: 2, opts: battle.DefaultOptions()}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name string
		out  battle.Outcome
		want string
	}{
		{"still running", battle.Outcome{}, "unfinished"},
		{"aborted", battle.Outcome{Over: true, Aborted: true, Reason: "turn_limit"}, "aborted"},
		{"player", battle.Outcome{Over: true, Winner: battle.FactionPlayer}, "player_win"},
		{"hostile", battle.Outcome{Over: true, Winner: battle.FactionHostile}, "hostile_win"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verdict(runStats{outcome: tt.out}))
		})
	}
}

func TestFirstTurn(t *testing.T) {
	entries := []battle.LogEntry{
		{Turn: 1, Category: battle.CatVision, Key: "spotted", Value: "U5 at (3,4,0)"},
		{Turn: 2, Category: battle.CatShot, Key: "fired", Value: "snap"},
		{Turn: 3, Category: battle.CatShot, Key: "fired", Value: "aimed"},
	}
	assert.Equal(t, 1, firstTurn(entries, battle.CatVision, "spotted", ""))
	assert.Equal(t, 2, firstTurn(entries, battle.CatShot, "", ""))
	assert.Equal(t, 3, firstTurn(entries, battle.CatShot, "fired", "aimed"))
	assert.Equal(t, -1, firstTurn(entries, battle.CatCasualty, "casualty", ""))
}

func TestRunSkirmish_SameSeedSameReport(t *testing.T) {
	a, err := runSkirmish(1, 11, testSettings(300), zerolog.Nop())
	require.NoError(t, err)
	b, err := runSkirmish(1, 11, testSettings(300), zerolog.Nop())
	require.NoError(t, err)

	var outA, outB bytes.Buffer
	printRun(&outA, a)
	printRun(&outB, b)
	assert.Equal(t, outA.String(), outB.String())
	assert.LessOrEqual(t, a.survivors["player"], 2)
}

func TestRunSkirmish_RecordsStats(t *testing.T) {
	store, err := stats.Open("sqlite", filepath.Join(t.TempDir(), "report.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := testSettings(50)
	s.store = store
	_, err = runSkirmish(1, 3, s, zerolog.Nop())
	require.NoError(t, err)

	sum, err := store.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Battles)
}

func TestPrintAggregate(t *testing.T) {
	all := []runStats{
		{
			outcome:           battle.Outcome{Over: true, Winner: battle.FactionPlayer, Turn: 6},
			shots:             10,
			hits:              4,
			firstContactTurn:  2,
			firstCasualtyTurn: 3,
			casualties:        map[string]int{"hostile": 2},
		},
		{
			outcome:          battle.Outcome{Over: true, Aborted: true, Turn: 10},
			shots:            6,
			hits:             0,
			firstContactTurn: 4,
			casualties:       map[string]int{"player": 1, "hostile": 1},
		},
	}
	var out bytes.Buffer
	printAggregate(&out, all)
	s := out.String()
	assert.Contains(t, s, "runs=2")
	assert.Contains(t, s, "results: aborted=1 player_win=1")
	assert.Contains(t, s, "hit_rate=25%")
	assert.Contains(t, s, "avg_casualties_per_run: player=0.5 hostile=1.5")
	assert.Contains(t, s, "first_contact=3.0 first_casualty=3.0 battle_length=8.0")
}

func TestJoinHelpers(t *testing.T) {
	assert.Equal(t, "none", joinCounts(nil))
	assert.Equal(t, "a=1 b=2", joinCounts(map[string]int{"b": 2, "a": 1}))
	assert.Equal(t, "none", joinSet(nil))
	assert.Equal(t, "U1,U3", joinSet(map[string]struct{}{"U3": {}, "U1": {}}))
	assert.Equal(t, "n/a", percent(1, 0))
}
