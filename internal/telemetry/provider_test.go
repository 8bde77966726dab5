package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Garsondee/battlecore/internal/battle"
)

func TestProvider_Disabled(t *testing.T) {
	p := New(false)
	assert.False(t, p.Enabled())
	assert.IsType(t, noop.Meter{}, p.Meter())

	totals, err := p.Totals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, totals)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_CountsBattleStates(t *testing.T) {
	p := New(true)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	tb := battle.NewTestBattle(
		battle.WithOptions(func(o *battle.Options) { o.Meter = p.Meter() }),
		battle.WithUnit("soldier", battle.FactionPlayer, battle.Pos(1, 1, 0), battle.DirEast),
		battle.WithUnit("sectoid", battle.FactionHostile, battle.Pos(8, 8, 0), battle.DirWest),
	)
	require.NoError(t, tb.Game.RequestEndTurn())
	tb.RunUntilIdle(100)

	totals, err := p.Totals(context.Background())
	require.NoError(t, err)
	byName := map[string]int64{}
	for _, c := range totals {
		byName[c.Name] = c.Value
	}
	assert.Positive(t, byName["battle.states.processed"])
	assert.Positive(t, byName["battle.fov.recomputes"])
}
