package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/models"
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache keeps fighters' eventlogs between sync runs so that
// back-to-back runs (a scheduled pass followed by a manual one) do not
// re-walk upstream pagination. Staleness is bounded by the TTL.
//
// All methods are nil-receiver safe; a nil cache always misses, so the
// worker can run without Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Host+":"+cfg.Port).Msg("Connected to Redis")

	return &RedisCache{client: client, ttl: ttl}, nil
}

func eventlogKey(fighterID int) string {
	return fmt.Sprintf("eventlog:%d", fighterID)
}

// GetEventlog returns a fighter's cached eventlog, if present
func (c *RedisCache) GetEventlog(ctx context.Context, fighterID int) ([]models.EventlogEntry, bool) {
	if c == nil {
		return nil, false
	}

	start := time.Now()
	data, err := c.client.Get(ctx, eventlogKey(fighterID)).Bytes()
	metrics.RecordCacheOperation("get", time.Since(start).Seconds())

	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Int("fighter_id", fighterID).Msg("Cache read failed")
		metrics.RecordCacheMiss()
		return nil, false
	}

	var entries []models.EventlogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Int("fighter_id", fighterID).Msg("Cache payload corrupt, ignoring")
		metrics.RecordCacheMiss()
		return nil, false
	}

	metrics.RecordCacheHit()
	return entries, true
}

// SetEventlog caches a fighter's full eventlog with the configured TTL
func (c *RedisCache) SetEventlog(ctx context.Context, fighterID int, entries []models.EventlogEntry) {
	if c == nil {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	start := time.Now()
	if err := c.client.Set(ctx, eventlogKey(fighterID), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int("fighter_id", fighterID).Msg("Cache write failed")
	}
	metrics.RecordCacheOperation("set", time.Since(start).Seconds())
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
