package observability

import (
	"github.com/smallbiznis/taxengine/internal/observability/logger"
	"github.com/smallbiznis/taxengine/internal/observability/metrics"
	"github.com/smallbiznis/taxengine/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		provideTaxMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:        cfg.Service.Name,
		Environment:        cfg.Service.Environment,
		Version:            cfg.Service.Version,
		Level:              cfg.LogLevel,
		Format:             cfg.LogFormat,
		Debug:              cfg.Debug(),
		SamplingInitial:    cfg.LogSamplingInitial,
		SamplingThereafter: cfg.LogSamplingThereafter,
		IncludeCaller:      true,
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.Service.Name,
		ServiceVersion:   cfg.Service.Version,
		Environment:      cfg.Service.Environment,
		ExporterEndpoint: cfg.OtelEndpoint,
		ExporterProtocol: cfg.OtelProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelEndpoint,
		ExporterProtocol: cfg.OtelProtocol,
		ServiceName:      cfg.Service.Name,
		Environment:      cfg.Service.Environment,
	}
}

// provideTaxMetrics yields nil when the tax metrics are switched off; the
// tax modules treat a nil recorder as a no-op.
func provideTaxMetrics(cfg Config, mcfg metrics.Config) *metrics.TaxMetrics {
	if !cfg.TaxMetricsEnabled {
		return nil
	}
	return metrics.TaxWithConfig(mcfg)
}
