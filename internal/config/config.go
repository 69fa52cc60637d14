// Package config provides configuration management for the RAN analytics
// service.
//
// Configuration Sources (priority order, high to low):
//  1. Environment variables (RANMON_* prefix, "." replaced by "_")
//  2. YAML config file (optional, passed with -config)
//  3. Built-in defaults
//
// Per-metric thresholds live in a separate YAML file, see LoadThresholds.
package config

import "time"

// Config contains all configuration fields.
type Config struct {
	// HTTP surface
	Server struct {
		Port         int
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin.
		AllowedOrigins []string
	}

	// Recent-results cache. An empty Address disables Redis.
	Redis struct {
		Address      string
		PoolSize     int
		MinIdleConns int
		MaxRetries   int
		SampleTTL    time.Duration
	}

	// Durable store
	Database struct {
		SQLitePath      string
		MetricRetention time.Duration
		EventRetention  time.Duration
		CleanupInterval time.Duration
	}

	Logging struct {
		Level  string
		Format string
		// File enables a rotated log file next to stdout output.
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	Analytics struct {
		// WindowSize is the default number of samples returned by history
		// queries.
		WindowSize             int
		TrendWindow            int
		OutlierThreshold       float64
		CorrelationThreshold   float64
		EnableOutlierDetection bool
		EnableModelDetection   bool
		EnablePrediction       bool
		ThresholdsFile         string
	}

	Monitor struct {
		QueueSize          int
		MonitoringInterval time.Duration
		DrainInterval      time.Duration
		ReportInterval     time.Duration
		NodeStaleAfter     time.Duration
		// Duration stops the service after the given time. Zero runs until
		// interrupted.
		Duration       time.Duration
		Simulate       bool
		SimulatedNodes int
	}
}
