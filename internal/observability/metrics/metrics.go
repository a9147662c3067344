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
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the engine's instruments.
type Metrics struct {
	computations    metric.Int64Counter
	resolutions     metric.Int64Counter
	computeDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter
}

const exportInterval = 10 * time.Second

// NewProvider registers the global meter provider. With telemetry disabled
// it is a noop provider, so instruments are always usable.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		mp := noop.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, nil
	}

	exp, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		)),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(mp)

	// shutdown flushes the last interval; one-shot runs rely on it
	lc.Append(fx.StopHook(mp.Shutdown))
	log.Named("metrics").Info("otlp metrics enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return mp, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gstengine"
	}
	meter := provider.Meter(name)

	computations, err := meter.Int64Counter("gst_computations_total")
	if err != nil {
		return nil, err
	}
	resolutions, err := meter.Int64Counter("gst_rate_resolutions_total")
	if err != nil {
		return nil, err
	}
	computeDuration, err := meter.Float64Histogram("gst_compute_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	cacheLookups, err := meter.Int64Counter("gst_rate_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		computations:    computations,
		resolutions:     resolutions,
		computeDuration: computeDuration,
		cacheLookups:    cacheLookups,
	}, nil
}

// NewNoop returns instruments backed by the noop provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordComputation counts one computation and its latency by outcome.
func (m *Metrics) RecordComputation(ctx context.Context, taxSpec, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tax_spec", strings.TrimSpace(taxSpec)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.computations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.computeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordResolution counts one rate lookup per component and outcome (hit/miss).
func (m *Metrics) RecordResolution(ctx context.Context, component, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("component", strings.TrimSpace(component)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheLookup counts rate cache hits and misses.
func (m *Metrics) RecordCacheLookup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
}

// Classification and state codes are never labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"tax_spec":  {},
	"status":    {},
	"component": {},
	"outcome":   {},
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
