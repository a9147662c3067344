package observability

import (
	"github.com/smallbiznis/gstengine/internal/observability/logger"
	"github.com/smallbiznis/gstengine/internal/observability/metrics"
	"github.com/smallbiznis/gstengine/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				Service:     cfg.ServiceName,
				Environment: cfg.Environment,
				Version:     cfg.Version,
				Level:       cfg.LogLevel,
				Format:      cfg.LogFormat,
				Stacktraces: cfg.Verbose(),
			}
		},
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OTLPEndpoint,
				ExporterProtocol: cfg.OTLPProtocol,
				SamplingRatio:    cfg.SamplingRatio,
			}
		},
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.OtelEnabled,
				ExporterEndpoint: cfg.OTLPEndpoint,
				ExporterProtocol: cfg.OTLPProtocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
	),
	// the engine starts spans through otel.Tracer, so the provider must be built
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
