package observability

import (
	"strings"

	"github.com/smallbiznis/taxengine/internal/config"
)

const (
	defaultServiceName   = "taxengine"
	defaultSamplingRatio = 0.1
)

// Service identifies the process on every log line, span and metric.
type Service struct {
	Name        string
	Environment string
	Version     string
}

// Config is the normalized telemetry setup of the tax engine.
type Config struct {
	Service Service

	LogLevel              string
	LogFormat             string
	LogSamplingInitial    int
	LogSamplingThereafter int

	OtelEnabled       bool
	OtelEndpoint      string
	OtelProtocol      string
	OtelSamplingRatio float64

	TaxMetricsEnabled bool
}

// LoadConfig derives the telemetry setup from the process config.
func LoadConfig(cfg config.Config) Config {
	t := cfg.Telemetry

	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	protocol := strings.ToLower(strings.TrimSpace(t.OtelProtocol))
	switch protocol {
	case "http", "http/protobuf":
		protocol = "http"
	default:
		protocol = "grpc"
	}
	ratio := t.OtelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = defaultSamplingRatio
	}

	return Config{
		Service: Service{
			Name:        name,
			Environment: strings.TrimSpace(cfg.Environment),
			Version:     strings.TrimSpace(cfg.AppVersion),
		},
		LogLevel:              strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:             strings.ToLower(strings.TrimSpace(t.LogFormat)),
		LogSamplingInitial:    t.LogSamplingInitial,
		LogSamplingThereafter: t.LogSamplingThereafter,
		OtelEnabled:           t.OtelEnabled,
		OtelEndpoint:          strings.TrimSpace(cfg.OTLPEndpoint),
		OtelProtocol:          protocol,
		OtelSamplingRatio:     ratio,
		TaxMetricsEnabled:     t.TaxMetricsEnabled,
	}
}

// Debug is on for debug logging and for local environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Service.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
