package observability

import (
	"testing"

	"github.com/smallbiznis/popstore/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_METRICS_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadConfig(config.Config{AppName: "", Environment: "production", TracingEnabled: true})
	require.Equal(t, "popstore", cfg.ServiceName)
	require.True(t, cfg.OtelEnabled)
	require.False(t, cfg.MetricsEnabled)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.Debug())
}

func TestDebugInDevelopment(t *testing.T) {
	require.True(t, Config{Environment: "development"}.Debug())
	require.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
}
