package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
)

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Redis.Address != "" && c.Redis.PoolSize < 1 {
		add("redis.pool_size", "pool_size must be positive, got %d", c.Redis.PoolSize)
	}

	if c.Database.SQLitePath == "" {
		add("database.sqlite_path", "sqlite_path is required")
	}
	if c.Database.MetricRetention <= 0 {
		add("database.metric_retention", "metric_retention must be positive")
	}
	if c.Database.EventRetention <= 0 {
		add("database.event_retention", "event_retention must be positive")
	}

	if !slices.Contains(validLogLevels, c.Logging.Level) {
		add("logging.level", "level must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.Logging.Level)
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		add("logging.format", "format must be one of %s, got %q", strings.Join(validLogFormats, ", "), c.Logging.Format)
	}

	if c.Analytics.WindowSize < 1 {
		add("analytics.window_size", "window_size must be positive, got %d", c.Analytics.WindowSize)
	}
	if c.Analytics.TrendWindow < 2 {
		add("analytics.trend_window", "trend_window must be at least 2, got %d", c.Analytics.TrendWindow)
	}
	if c.Analytics.OutlierThreshold <= 0 {
		add("analytics.outlier_threshold", "outlier_threshold must be positive")
	}
	if c.Analytics.CorrelationThreshold < 0 || c.Analytics.CorrelationThreshold > 1 {
		add("analytics.correlation_threshold", "correlation_threshold must be in [0, 1], got %g", c.Analytics.CorrelationThreshold)
	}

	if c.Monitor.QueueSize < 1 {
		add("monitor.queue_size", "queue_size must be positive, got %d", c.Monitor.QueueSize)
	}
	if c.Monitor.DrainInterval <= 0 {
		add("monitor.drain_interval", "drain_interval must be positive")
	}
	if c.Monitor.ReportInterval <= 0 {
		add("monitor.report_interval", "report_interval must be positive")
	}
	if c.Monitor.Simulate && c.Monitor.MonitoringInterval <= 0 {
		add("monitor.monitoring_interval", "monitoring_interval must be positive when simulate is on")
	}
	if c.Monitor.Duration < 0 {
		add("monitor.duration", "duration must not be negative")
	}

	return errs
}
