package tracer

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"AutoBlog/internal/config"
)

// InitTracer installs an OTLP HTTP tracer provider. Tracing stays disabled
// (the global no-op provider) unless an endpoint is configured. The returned
// function flushes and shuts the provider down.
func InitTracer(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled, no OTLP endpoint configured")
		return noop
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop
	}

	name := cfg.ServiceName
	if name == "" {
		name = "autoblog"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(name),
		)),
	)

	otel.SetTracerProvider(tp)
	logger.Info("tracer initialized", "endpoint", cfg.Endpoint, "service", name)
	return tp.Shutdown
}
