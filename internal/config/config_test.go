package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadTelemetryDefaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_SAMPLING_RATIO",
	} {
		t.Setenv(key, "")
	}

	got := Load().Telemetry
	assert.Equal(t, "info", got.LogLevel)
	assert.Equal(t, "json", got.LogFormat)
	assert.False(t, got.OTelEnabled)
	assert.Equal(t, "localhost:4317", got.OTLPEndpoint)
	assert.Equal(t, "grpc", got.OTLPProtocol)
	assert.InDelta(t, 0.1, got.SamplingRatio, 1e-9)
}

func TestLoadTelemetryEndpointPrecedence(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	assert.Equal(t, "collector:4317", Load().Telemetry.OTLPEndpoint)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4318")
	assert.Equal(t, "otel:4318", Load().Telemetry.OTLPEndpoint)
}

func TestLoadTelemetryOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	got := Load().Telemetry
	assert.Equal(t, "debug", got.LogLevel)
	assert.True(t, got.OTelEnabled)
	assert.Equal(t, "http", got.OTLPProtocol)
	assert.InDelta(t, 0.5, got.SamplingRatio, 1e-9)
}
