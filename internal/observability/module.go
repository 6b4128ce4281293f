package observability

import (
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/observability/logger"
	"github.com/jep-hq/tools/internal/observability/metrics"
	"github.com/jep-hq/tools/internal/observability/tracing"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics for the whole service.
var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.ProjectWithConfig),
	fx.Invoke(tracing.NewProvider),
)
