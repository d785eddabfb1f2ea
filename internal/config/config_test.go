package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":8090", cfg.ObsHTTPAddr)
	assert.Equal(t, "chat-relay", cfg.ServiceName)
	assert.Equal(t, 10, cfg.HistoryCapacity)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, "sequential", cfg.DispatchMode)
	assert.Equal(t, 16, cfg.MaxInFlight)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "memory", cfg.BrokerBackend)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("SEND_BUFFER", "1024")
	t.Setenv("DISPATCH_MODE", "concurrent")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 1024, cfg.SendBuffer)
	assert.Equal(t, "concurrent", cfg.DispatchMode)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("SEND_BUFFER", "not-a-number")

	cfg := Load()
	assert.Equal(t, 256, cfg.SendBuffer)
}
