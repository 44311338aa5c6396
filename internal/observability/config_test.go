package observability

import (
	"testing"

	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigMapsApplicationConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:  "1.2.3",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "warn",
			LogFormat:     "console",
			OTelEnabled:   true,
			OTLPEndpoint:  "otel:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 0.25,
		},
	})

	assert.Equal(t, "affiliate", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "otel:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.InDelta(t, 0.25, cfg.OtelSamplingRatio, 1e-9)
	assert.False(t, cfg.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{LogLevel: "info", Environment: "Local"}.Debug())
	assert.False(t, Config{LogLevel: "info", Environment: "staging"}.Debug())
}
