package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "RANMON"

// Load reads configuration from defaults, the optional YAML file at path and
// RANMON_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return unmarshalConfig(v), nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	v.SetDefault("redis.address", defaults.Redis.Address)
	v.SetDefault("redis.pool_size", defaults.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", defaults.Redis.MinIdleConns)
	v.SetDefault("redis.max_retries", defaults.Redis.MaxRetries)
	v.SetDefault("redis.sample_ttl", defaults.Redis.SampleTTL)

	v.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)
	v.SetDefault("database.metric_retention", defaults.Database.MetricRetention)
	v.SetDefault("database.event_retention", defaults.Database.EventRetention)
	v.SetDefault("database.cleanup_interval", defaults.Database.CleanupInterval)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)

	v.SetDefault("analytics.window_size", defaults.Analytics.WindowSize)
	v.SetDefault("analytics.trend_window", defaults.Analytics.TrendWindow)
	v.SetDefault("analytics.outlier_threshold", defaults.Analytics.OutlierThreshold)
	v.SetDefault("analytics.correlation_threshold", defaults.Analytics.CorrelationThreshold)
	v.SetDefault("analytics.enable_outlier_detection", defaults.Analytics.EnableOutlierDetection)
	v.SetDefault("analytics.enable_model_detection", defaults.Analytics.EnableModelDetection)
	v.SetDefault("analytics.enable_prediction", defaults.Analytics.EnablePrediction)
	v.SetDefault("analytics.thresholds_file", defaults.Analytics.ThresholdsFile)

	v.SetDefault("monitor.queue_size", defaults.Monitor.QueueSize)
	v.SetDefault("monitor.monitoring_interval", defaults.Monitor.MonitoringInterval)
	v.SetDefault("monitor.drain_interval", defaults.Monitor.DrainInterval)
	v.SetDefault("monitor.report_interval", defaults.Monitor.ReportInterval)
	v.SetDefault("monitor.node_stale_after", defaults.Monitor.NodeStaleAfter)
	v.SetDefault("monitor.duration", defaults.Monitor.Duration)
	v.SetDefault("monitor.simulate", defaults.Monitor.Simulate)
	v.SetDefault("monitor.simulated_nodes", defaults.Monitor.SimulatedNodes)
}

func unmarshalConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")

	cfg.Redis.Address = v.GetString("redis.address")
	cfg.Redis.PoolSize = v.GetInt("redis.pool_size")
	cfg.Redis.MinIdleConns = v.GetInt("redis.min_idle_conns")
	cfg.Redis.MaxRetries = v.GetInt("redis.max_retries")
	cfg.Redis.SampleTTL = v.GetDuration("redis.sample_ttl")

	cfg.Database.SQLitePath = v.GetString("database.sqlite_path")
	cfg.Database.MetricRetention = v.GetDuration("database.metric_retention")
	cfg.Database.EventRetention = v.GetDuration("database.event_retention")
	cfg.Database.CleanupInterval = v.GetDuration("database.cleanup_interval")

	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = v.GetInt("logging.max_age_days")

	cfg.Analytics.WindowSize = v.GetInt("analytics.window_size")
	cfg.Analytics.TrendWindow = v.GetInt("analytics.trend_window")
	cfg.Analytics.OutlierThreshold = v.GetFloat64("analytics.outlier_threshold")
	cfg.Analytics.CorrelationThreshold = v.GetFloat64("analytics.correlation_threshold")
	cfg.Analytics.EnableOutlierDetection = v.GetBool("analytics.enable_outlier_detection")
	cfg.Analytics.EnableModelDetection = v.GetBool("analytics.enable_model_detection")
	cfg.Analytics.EnablePrediction = v.GetBool("analytics.enable_prediction")
	cfg.Analytics.ThresholdsFile = v.GetString("analytics.thresholds_file")

	cfg.Monitor.QueueSize = v.GetInt("monitor.queue_size")
	cfg.Monitor.MonitoringInterval = v.GetDuration("monitor.monitoring_interval")
	cfg.Monitor.DrainInterval = v.GetDuration("monitor.drain_interval")
	cfg.Monitor.ReportInterval = v.GetDuration("monitor.report_interval")
	cfg.Monitor.NodeStaleAfter = v.GetDuration("monitor.node_stale_after")
	cfg.Monitor.Duration = v.GetDuration("monitor.duration")
	cfg.Monitor.Simulate = v.GetBool("monitor.simulate")
	cfg.Monitor.SimulatedNodes = v.GetInt("monitor.simulated_nodes")

	return cfg
}

// JoinErrors folds the result of Validate into one error, or nil.
func JoinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
