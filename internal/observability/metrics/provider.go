package metrics

import (
	"context"
	"strings"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
)

// Config carries the identity labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) serviceName() string {
	name := strings.TrimSpace(c.ServiceName)
	if name == "" {
		return "customer-projects"
	}
	return name
}

// NewMeterProvider builds an otel meter provider that exposes its
// instruments through the default Prometheus registry, so /metrics
// serves both otel instruments and native Prometheus collectors.
func NewMeterProvider(lc fx.Lifecycle) (metric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	return provider, nil
}
