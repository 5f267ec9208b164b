// Command manualsync runs one sync pass from the terminal and exits.
// Useful for catching up after downtime and for verifying a deployment
// without waiting for the scheduler.
//
// Exit codes: 0 success, 1 partial, 2 failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/cache"
	"mma_v2/ingestion/internal/client"
	"mma_v2/ingestion/internal/config"
	"mma_v2/ingestion/internal/models"
	"mma_v2/ingestion/internal/reconcile"
	"mma_v2/ingestion/internal/repository"
	"mma_v2/ingestion/internal/syncer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	mode := flag.String("mode", "incremental", "sync mode: incremental or full")
	flag.Parse()

	if *mode != "incremental" && *mode != "full" {
		fmt.Fprintf(os.Stderr, "unknown mode %q: want incremental or full\n", *mode)
		os.Exit(2)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	cfg := config.MustLoad()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("Interrupted, cancelling run...")
		cancel()
	}()

	apiClient := client.NewClient(cfg.FightDataBaseURL, cfg.FightDataAPIKey, client.Options{
		Timeout:    cfg.FightDataTimeout,
		MaxRetries: cfg.APIMaxRetries,
		RetryDelay: cfg.APIRetryDelay,
		RateLimit:  cfg.APIRateLimit,
		BurstLimit: cfg.APIBurstLimit,
	})

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

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	var redisCache *cache.RedisCache
	if cfg.EnableEventlogCache {
		redisCache, err = cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.EventlogCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, running without eventlog cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	reconciler := reconcile.New(apiClient, db.Fights, redisCache)
	executor := backfill.New(apiClient, db, cfg.BackfillWorkers)
	orchestrator := syncer.New(
		db.Fighters, reconciler, executor, db.JobRuns,
		cfg.ActivityLookback, cfg.BackfillBatchSize,
	)

	var stats *backfill.RunStats
	switch *mode {
	case "incremental":
		stats, err = orchestrator.RunIncremental(ctx)
	case "full":
		stats, err = orchestrator.RunFull(ctx)
	}

	if err != nil {
		log.Error().Err(err).Msg("Sync run failed")
		os.Exit(2)
	}

	log.Info().
		Str("status", stats.Status()).
		Int("processed", stats.Processed).
		Int("added", stats.Added).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Sync run complete")

	for _, runErr := range stats.Errors {
		log.Warn().
			Str("scope", runErr.Scope).
			Int("id", runErr.ID).
			Str("error", runErr.Error).
			Msg("Run error")
	}

	switch stats.Status() {
	case models.RunStatusSuccess:
		os.Exit(0)
	case models.RunStatusPartial:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}
