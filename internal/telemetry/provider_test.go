package telemetry

import (
	"context"
	"testing"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), &Config{Enabled: true}, "test-service")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), &Config{Enabled: false, Endpoint: "http://localhost:4318"}, "test-service")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupCreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	shutdown, err := Setup(context.Background(), &Config{Enabled: true, Endpoint: "http://192.0.2.1:4318"}, "test-service")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Enabled || cfg.Endpoint != "http://collector:4318" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
