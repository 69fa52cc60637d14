package config

import "time"

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	// Redis defaults
	cfg.Redis.Address = ""
	cfg.Redis.PoolSize = 100
	cfg.Redis.MinIdleConns = 10
	cfg.Redis.MaxRetries = 3
	cfg.Redis.SampleTTL = time.Hour

	// Database defaults
	cfg.Database.SQLitePath = "ran-analytics.db"
	cfg.Database.MetricRetention = 7 * 24 * time.Hour
	cfg.Database.EventRetention = 30 * 24 * time.Hour
	cfg.Database.CleanupInterval = time.Hour

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 30

	// Analytics defaults
	cfg.Analytics.WindowSize = 100
	cfg.Analytics.TrendWindow = 50
	cfg.Analytics.OutlierThreshold = 2.0
	cfg.Analytics.CorrelationThreshold = 0.7
	cfg.Analytics.EnableOutlierDetection = true
	cfg.Analytics.EnableModelDetection = true
	cfg.Analytics.EnablePrediction = true
	cfg.Analytics.ThresholdsFile = ""

	// Monitor defaults
	cfg.Monitor.QueueSize = 1000
	cfg.Monitor.MonitoringInterval = time.Second
	cfg.Monitor.DrainInterval = 5 * time.Second
	cfg.Monitor.ReportInterval = 10 * time.Second
	cfg.Monitor.NodeStaleAfter = 60 * time.Second
	cfg.Monitor.Duration = 0
	cfg.Monitor.Simulate = false
	cfg.Monitor.SimulatedNodes = 1

	return cfg
}
