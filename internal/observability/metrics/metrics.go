// Package metrics holds the service's metric instruments: low-cardinality
// HTTP server metrics on OpenTelemetry, and Prometheus counters for the
// payment reconciliation pipeline.
package metrics

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/fx"

	"github.com/renatoambrosi/backmercadopro/internal/config"
)

// Config scopes instrument names and constant labels.
type Config struct {
	ServiceName string
	Environment string
}

var Module = fx.Module("metrics",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			ServiceName: "backmercadopro",
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(func() metric.MeterProvider {
		return noop.NewMeterProvider()
	}),
	fx.Provide(NewHTTPMetrics),
)

// FilterAttributes drops empty-valued attributes so instruments never see
// blank label values.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := attrs[:0]
	for _, attr := range attrs {
		if attr.Value.Emit() == "" {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
