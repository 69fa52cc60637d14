package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ran-analytics/internal/analytics"
	"ran-analytics/internal/cache"
	"ran-analytics/internal/config"
	"ran-analytics/internal/logging"
	"ran-analytics/internal/monitor"
	"ran-analytics/internal/server"
	"ran-analytics/internal/storage"
	"ran-analytics/internal/stream"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	thresholdsPath := flag.String("thresholds", "", "path to the per-metric thresholds file (overrides analytics.thresholds_file)")
	flag.Parse()

	if err := run(*configPath, *thresholdsPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, thresholdsPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if thresholdsPath != "" {
		cfg.Analytics.ThresholdsFile = thresholdsPath
	}
	if err := config.JoinErrors(cfg.Validate()); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Monitor.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Monitor.Duration)
		defer cancel()
	}

	thresholds, err := config.LoadThresholds(cfg.Analytics.ThresholdsFile)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	opts := analytics.DefaultOptions()
	opts.Thresholds = thresholds
	opts.TrendWindow = cfg.Analytics.TrendWindow
	opts.OutlierDetection = cfg.Analytics.EnableOutlierDetection
	opts.ModelDetection = cfg.Analytics.EnableModelDetection
	opts.Prediction = cfg.Analytics.EnablePrediction
	engine := analytics.NewAnalyzer(opts)

	hub := stream.NewHub(logger.Named("stream"), cfg.Server.AllowedOrigins)

	monOpts := []monitor.Option{monitor.WithPublisher(hub)}
	var recent server.RecentCache
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cache.Options{
			Addr:         cfg.Redis.Address,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			SampleTTL:    cfg.Redis.SampleTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		monOpts = append(monOpts, monitor.WithCache(redisClient))
		recent = redisClient
		logger.Info("redis cache enabled", zap.String("addr", cfg.Redis.Address))
	}

	mon := monitor.New(engine, store, logger.Named("monitor"), monitor.Config{
		QueueSize:       cfg.Monitor.QueueSize,
		DrainInterval:   cfg.Monitor.DrainInterval,
		ReportInterval:  cfg.Monitor.ReportInterval,
		CleanupInterval: cfg.Database.CleanupInterval,
		NodeStaleAfter:  cfg.Monitor.NodeStaleAfter,
		MetricRetention: cfg.Database.MetricRetention,
		EventRetention:  cfg.Database.EventRetention,
	}, monOpts...)

	srv := server.New(engine, mon, store, hub, logger.Named("http"), server.Options{
		Cache:        recent,
		WindowSize:   cfg.Analytics.WindowSize,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	logger.Info("starting RAN analytics service",
		zap.String("version", server.Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("sqlite", cfg.Database.SQLitePath),
		zap.Bool("simulate", cfg.Monitor.Simulate),
		zap.Duration("duration", cfg.Monitor.Duration))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error { return mon.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, fmt.Sprintf(":%d", cfg.Server.Port)) })
	if cfg.Monitor.Simulate {
		sim := monitor.NewSimulator(cfg.Monitor.SimulatedNodes, rand.New(rand.NewSource(time.Now().UnixNano())), nil)
		g.Go(func() error {
			sim.Run(gctx, cfg.Monitor.MonitoringInterval, mon.Submit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		return err
	}
	logger.Info("service stopped")
	return nil
}
