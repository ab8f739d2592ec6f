package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/nextlevelbuilder/relaycat/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown = %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled telemetry replaced the tracer provider")
	}
}

func TestSetupRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TelemetryConfig
	}{
		{"no endpoint", config.TelemetryConfig{Enabled: true}},
		{"bad protocol", config.TelemetryConfig{Enabled: true, Endpoint: "localhost:4317", Protocol: "carrier-pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Setup(context.Background(), tt.cfg, "test"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSetupHTTPExporter(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "127.0.0.1:4318",
		Protocol: "HTTP",
		Insecure: true,
	}, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if otel.GetTracerProvider() == before {
		t.Error("tracer provider not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx) // nothing was exported, so there is nothing to flush
}
