package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Redis.Address)
	assert.Equal(t, 7*24*time.Hour, cfg.Database.MetricRetention)
	assert.Equal(t, 30*24*time.Hour, cfg.Database.EventRetention)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Equal(t, 100, cfg.Analytics.WindowSize)
	assert.Equal(t, 50, cfg.Analytics.TrendWindow)
	assert.Equal(t, 2.0, cfg.Analytics.OutlierThreshold)
	assert.Equal(t, 0.7, cfg.Analytics.CorrelationThreshold)
	assert.True(t, cfg.Analytics.EnableOutlierDetection)
	assert.True(t, cfg.Analytics.EnableModelDetection)
	assert.True(t, cfg.Analytics.EnablePrediction)

	assert.Equal(t, 5*time.Second, cfg.Monitor.DrainInterval)
	assert.Equal(t, 10*time.Second, cfg.Monitor.ReportInterval)
	assert.Equal(t, 60*time.Second, cfg.Monitor.NodeStaleAfter)

	assert.Empty(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		modifyFn func(*Config)
		field    string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"redis pool", func(c *Config) { c.Redis.Address = "localhost:6379"; c.Redis.PoolSize = 0 }, "redis.pool_size"},
		{"missing db path", func(c *Config) { c.Database.SQLitePath = "" }, "database.sqlite_path"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"trend window", func(c *Config) { c.Analytics.TrendWindow = 1 }, "analytics.trend_window"},
		{"correlation", func(c *Config) { c.Analytics.CorrelationThreshold = 1.5 }, "analytics.correlation_threshold"},
		{"queue size", func(c *Config) { c.Monitor.QueueSize = 0 }, "monitor.queue_size"},
		{"simulate interval", func(c *Config) { c.Monitor.Simulate = true; c.Monitor.MonitoringInterval = 0 }, "monitor.monitoring_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			var verr *ValidationError
			require.ErrorAs(t, errs[0], &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Error(t, JoinErrors(errs))
		})
	}
}

func TestJoinErrors_Empty(t *testing.T) {
	assert.NoError(t, JoinErrors(nil))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
analytics:
  trend_window: 20
  enable_prediction: false
monitor:
  drain_interval: 2s
  simulate: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("RANMON_REDIS_ADDRESS", "redis:6379")
	t.Setenv("RANMON_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 20, cfg.Analytics.TrendWindow)
	assert.False(t, cfg.Analytics.EnablePrediction)
	assert.True(t, cfg.Analytics.EnableModelDetection)
	assert.Equal(t, 2*time.Second, cfg.Monitor.DrainInterval)
	assert.True(t, cfg.Monitor.Simulate)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
