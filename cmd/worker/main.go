package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mma_v2/ingestion/internal/api"
	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/cache"
	"mma_v2/ingestion/internal/client"
	"mma_v2/ingestion/internal/config"
	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/reconcile"
	"mma_v2/ingestion/internal/repository"
	"mma_v2/ingestion/internal/scheduler"
	"mma_v2/ingestion/internal/syncer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting MMA v2 Fight Record Sync Worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// FightData API client
	apiClient := client.NewClient(cfg.FightDataBaseURL, cfg.FightDataAPIKey, client.Options{
		Timeout:    cfg.FightDataTimeout,
		MaxRetries: cfg.APIMaxRetries,
		RetryDelay: cfg.APIRetryDelay,
		RateLimit:  cfg.APIRateLimit,
		BurstLimit: cfg.APIBurstLimit,
	})
	log.Info().
		Float64("rate_limit", cfg.APIRateLimit).
		Msg("FightData client initialized")

	// Database
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Eventlog cache is an optimization; a dead Redis is not fatal.
	// The nil cache handle skips caching transparently.
	var redisCache *cache.RedisCache
	if cfg.EnableEventlogCache {
		redisCache, err = cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.EventlogCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without eventlog cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info().Msg("Redis eventlog cache connected")
		}
	}

	// Sync pipeline
	reconciler := reconcile.New(apiClient, db.Fights, redisCache)
	executor := backfill.New(apiClient, db, cfg.BackfillWorkers)
	orchestrator := syncer.New(
		db.Fighters, reconciler, executor, db.JobRuns,
		cfg.ActivityLookback, cfg.BackfillBatchSize,
	)

	// Metrics server and uptime gauge
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort, db)
	}

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				stat := db.Pool.Stat()
				metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Admin API
	var adminServer *api.Server
	if cfg.EnableAdminAPI {
		adminServer = api.NewServer(
			fmt.Sprintf(":%d", cfg.AdminAPIPort),
			orchestrator, db.JobRuns, db, cfg.IsDevelopment(),
		)
		go func() {
			if err := adminServer.Start(); err != nil {
				log.Error().Err(err).Msg("Admin API server failed")
			}
		}()
	}

	// Scheduler
	sched := scheduler.New(cfg, orchestrator)
	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Optional catch-up pass on boot, for deploys after downtime
	if cfg.SyncOnStart {
		log.Info().Msg("Running startup incremental sync...")
		if stats, err := orchestrator.RunIncremental(ctx); err != nil {
			log.Error().Err(err).Msg("Startup sync failed, continuing anyway...")
		} else {
			log.Info().
				Str("status", stats.Status()).
				Int("added", stats.Added).
				Msg("Startup sync completed")
		}
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Admin API shutdown failed")
		}
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int, db *repository.Database) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
