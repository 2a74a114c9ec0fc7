// Package telemetry configures OpenTelemetry tracing for the server.
package telemetry

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Baalavignesh/DiggerMan/internal/config"
)

// Config holds tracing settings.
type Config struct {
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint string `env:"OTEL_ENDPOINT"`
}

// LoadConfigFromEnv loads tracing settings from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, fmt.Errorf("load telemetry config: %w", err)
	}
	return cfg, nil
}

// Setup initialises tracing for serviceName.
//
// Tracing is opt-in: with no endpoint, or with tracing disabled, Setup
// registers nothing and returns a no-op shutdown function. The returned
// shutdown function flushes pending spans and should be deferred by the
// caller.
func Setup(ctx context.Context, cfg *Config, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled || cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	log.Printf("[Telemetry] Exporting traces to %s", cfg.Endpoint)

	return tp.Shutdown, nil
}
