package observability

import (
	"testing"

	"github.com/smallbiznis/taxengine/internal/config"
	"github.com/smallbiznis/taxengine/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:  " production ",
		AppVersion:   "1.2.0",
		LogLevel:     "WARN",
		OTLPEndpoint: "collector:4318",
		Telemetry: config.TelemetryConfig{
			LogFormat:         "Console",
			OtelProtocol:      "HTTP/protobuf",
			OtelSamplingRatio: 3,
			TaxMetricsEnabled: true,
		},
	})

	assert.Equal(t, Service{Name: "taxengine", Environment: "production", Version: "1.2.0"}, cfg.Service)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http", cfg.OtelProtocol)
	assert.Equal(t, "collector:4318", cfg.OtelEndpoint)
	assert.Equal(t, defaultSamplingRatio, cfg.OtelSamplingRatio)
	assert.False(t, cfg.OtelEnabled)
	assert.True(t, cfg.TaxMetricsEnabled)
	assert.False(t, cfg.Debug())

	assert.Equal(t, "grpc", LoadConfig(config.Config{}).OtelProtocol)
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, Config{Service: Service{Environment: "Development"}}.Debug())
	assert.True(t, Config{Service: Service{Environment: "production"}, LogLevel: "debug"}.Debug())
	assert.False(t, Config{Service: Service{Environment: "staging"}}.Debug())
}

func TestProvideTaxMetricsToggle(t *testing.T) {
	assert.Nil(t, provideTaxMetrics(Config{}, metrics.Config{}))
}

func TestProviderConfigsCarryService(t *testing.T) {
	cfg := Config{
		Service:               Service{Name: "taxengine", Environment: "test", Version: "1"},
		LogSamplingInitial:    10,
		LogSamplingThereafter: 50,
		OtelEndpoint:          "collector:4317",
		OtelProtocol:          "grpc",
	}

	lc := provideLoggerConfig(cfg)
	assert.Equal(t, 10, lc.SamplingInitial)
	assert.Equal(t, 50, lc.SamplingThereafter)
	assert.True(t, lc.Debug)

	assert.Equal(t, "collector:4317", provideTracingConfig(cfg).ExporterEndpoint)
	assert.Equal(t, "taxengine", provideMetricsConfig(cfg).ServiceName)
}
