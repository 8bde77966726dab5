package battle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type engineMetrics struct {
	statesProcessed metric.Int64Counter
	fovRecomputes   metric.Int64Counter
	lightRecomputes metric.Int64Counter
	explosions      metric.Int64Counter
	reactions       metric.Int64Counter
	casualties      metric.Int64Counter
}

// newEngineMetrics registers the battle counters on m, or on a noop meter when m is nil.
// Instrument creation errors fall back to noop instruments.
func newEngineMetrics(m metric.Meter) *engineMetrics {
	if m == nil {
		m = noop.NewMeterProvider().Meter("battlecore")
	}
	nm := noop.NewMeterProvider().Meter("battlecore")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = nm.Int64Counter(name)
		}
		return c
	}
	return &engineMetrics{
		statesProcessed: counter("battle.states.processed", "Battle states popped from the queue"),
		fovRecomputes:   counter("battle.fov.recomputes", "Per-unit field of view recomputations"),
		lightRecomputes: counter("battle.light.recomputes", "Lighting layer recomputations"),
		explosions:      counter("battle.explosions", "Explosions resolved"),
		reactions:       counter("battle.reactions", "Reaction attacks fired"),
		casualties:      counter("battle.casualties", "Units killed or knocked out"),
	}
}

func (m *engineMetrics) add(c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if len(attrs) == 0 {
		c.Add(context.Background(), n)
		return
	}
	c.Add(context.Background(), n, metric.WithAttributes(attrs...))
}
