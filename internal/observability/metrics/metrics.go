package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	taxCalculations metric.Int64Counter
	lineTaxes       metric.Int64Counter
	taxErrors       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "taxengine"
	}
	meter := provider.Meter(name)

	taxCalculations, err := meter.Int64Counter("taxengine_tax_calculations_total")
	if err != nil {
		return nil, err
	}
	lineTaxes, err := meter.Int64Counter("taxengine_line_taxes_total")
	if err != nil {
		return nil, err
	}
	taxErrors, err := meter.Int64Counter("taxengine_tax_errors_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		taxCalculations: taxCalculations,
		lineTaxes:       lineTaxes,
		taxErrors:       taxErrors,
	}, nil
}

// RecordTaxCalculation counts one AddTaxes run and the line taxes it produced.
func (m *Metrics) RecordTaxCalculation(ctx context.Context, module, currency string, lineTaxes int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("module", strings.TrimSpace(module)),
		attribute.String("currency", strings.TrimSpace(currency)),
	)
	m.taxCalculations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.lineTaxes.Add(ctx, int64(lineTaxes), metric.WithAttributes(attrs...))
}

// RecordTaxError counts failed AddTaxes runs.
func (m *Metrics) RecordTaxError(ctx context.Context, module, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("module", strings.TrimSpace(module)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.taxErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"module":   {},
	"currency": {},
	"reason":   {},
	"outcome":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
