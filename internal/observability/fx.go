package observability

import (
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/observability/logger"
	"github.com/smallbiznis/recipecost/internal/observability/metrics"
	"github.com/smallbiznis/recipecost/internal/observability/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		splitConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(func(trace.TracerProvider) {}),
)

type componentConfigs struct {
	fx.Out

	Logger  logger.Config
	Tracing tracing.Config
	Metrics metrics.Config
}

// splitConfig hands each telemetry component its slice of the process config.
func splitConfig(cfg config.Config) componentConfigs {
	service := cfg.AppName
	if service == "" {
		service = "recipecost"
	}

	return componentConfigs{
		Logger: logger.Config{
			ServiceName:         service,
			Environment:         cfg.Environment,
			Version:             cfg.AppVersion,
			Level:               cfg.LogLevel,
			Format:              cfg.LogFormat,
			Debug:               cfg.Debug(),
			IncludeCaller:       true,
			IncludeStackOnError: cfg.Debug(),
		},
		Tracing: tracing.Config{
			Enabled:          cfg.OtelEnabled,
			ServiceName:      service,
			ServiceVersion:   cfg.AppVersion,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.OTLPEndpoint,
			ExporterProtocol: cfg.OTLPProtocol,
			SamplingRatio:    cfg.OtelSamplingRatio,
		},
		Metrics: metrics.Config{
			Enabled:          cfg.OtelEnabled,
			ExporterEndpoint: cfg.OTLPEndpoint,
			ExporterProtocol: cfg.OTLPProtocol,
			ServiceName:      service,
			Environment:      cfg.Environment,
		},
	}
}
