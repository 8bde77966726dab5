// Package telemetry owns the OpenTelemetry meter the battle engine counts on.
package telemetry

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// ServiceName names the meter.
const ServiceName = "battlecore"

// Provider manages the meter provider. When disabled every method is a no-op.
type Provider struct {
	enabled bool
	reader  *sdkmetric.ManualReader
	mp      *sdkmetric.MeterProvider
}

// New creates a provider. An enabled provider is also installed as the
// global otel meter provider.
func New(enabled bool) *Provider {
	p := &Provider{enabled: enabled}
	if !enabled {
		return p
	}
	p.reader = sdkmetric.NewManualReader()
	p.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(p.reader))
	otel.SetMeterProvider(p.mp)
	return p
}

// Enabled returns whether metrics are collected.
func (p *Provider) Enabled() bool { return p.enabled }

// Meter returns the battle meter, or a no-op meter when disabled.
func (p *Provider) Meter() metric.Meter {
	if !p.enabled {
		return noop.Meter{}
	}
	return p.mp.Meter(ServiceName)
}

// Counter is one collected counter total.
type Counter struct {
	Name  string
	Value int64
}

// Totals collects every int64 sum, adding up its data points. Counters are
// sorted by name.
func (p *Provider) Totals(ctx context.Context) ([]Counter, error) {
	if !p.enabled {
		return nil, nil
	}
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	var out []Counter
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			c := Counter{Name: m.Name}
			for _, dp := range sum.DataPoints {
				c.Value += dp.Value
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter shutdown failed: %w", err)
	}
	return nil
}
