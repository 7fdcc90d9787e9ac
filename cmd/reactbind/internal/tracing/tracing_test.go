package tracing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(t.Context(), DefaultConfig())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(t.Context(), "noop")
	require.False(t, span.IsRecording())
	span.End()
	require.NoError(t, p.Shutdown(t.Context()))
}

func TestNewProvider_NoExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "none"

	p, err := NewProvider(t.Context(), cfg)
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(t.Context(), "lifecycle.render")
	require.True(t, span.IsRecording())
	span.End()
	require.NoError(t, p.Shutdown(t.Context()))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "otlp", mutate: func(c *Config) { c.Exporter = "otlp" }},
		{name: "bad exporter", mutate: func(c *Config) { c.Exporter = "file" }, wantErr: "unsupported exporter type: file"},
		{name: "bad rate", mutate: func(c *Config) { c.SampleRate = 2 }, wantErr: "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewProvider_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "jaeger"

	_, err := NewProvider(t.Context(), cfg)
	require.ErrorContains(t, err, "unsupported exporter type")
}
