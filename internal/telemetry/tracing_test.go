package telemetry

import (
	"context"
	"testing"
)

func TestSetupTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TraceConfig
		wantErr bool
	}{
		{name: "disabled by default", cfg: TraceConfig{}},
		{name: "explicit none", cfg: TraceConfig{Exporter: "None"}},
		{name: "stdout", cfg: TraceConfig{Exporter: "stdout", ServiceName: "test"}},
		{name: "otlp without endpoint", cfg: TraceConfig{Exporter: "otlp"}, wantErr: true},
		{name: "unknown exporter", cfg: TraceConfig{Exporter: "zipkin"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := SetupTracing(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetupTracing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if err := shutdown(context.Background()); err != nil {
					t.Errorf("shutdown failed: %v", err)
				}
			}
		})
	}
}
