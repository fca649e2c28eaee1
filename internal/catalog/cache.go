/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
)

// Default TTL values for catalog data
const (
	DefaultStationListTTL = 5 * time.Minute
	DefaultTrackListTTL   = 10 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyStationList = "lava:cache:stations"
	KeyTrackList   = "lava:cache:tracks:" // + station_id
)

// CacheConfig contains cache configuration.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StationListTTL time.Duration
	TrackListTTL   time.Duration

	// DisableOnError disables caching entirely after a Redis error so
	// a sick cache never slows down playback.
	DisableOnError bool
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RedisAddr:      "localhost:6379",
		StationListTTL: DefaultStationListTTL,
		TrackListTTL:   DefaultTrackListTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching of catalog responses with
// graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config CacheConfig

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// NewCache creates a new cache instance. An unreachable Redis yields a
// disabled cache, not an error.
func NewCache(cfg CacheConfig, logger zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "catalog_cache").Logger(),
			config:   cfg,
			disabled: true,
		}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
		config: cfg,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// GetStations returns the cached station list, reporting a miss when
// the cache is cold or unavailable.
func (c *Cache) GetStations(ctx context.Context) ([]models.Station, bool) {
	var stations []models.Station
	ok, _ := c.get(ctx, KeyStationList, &stations)
	return stations, ok
}

// SetStations caches the station list.
func (c *Cache) SetStations(ctx context.Context, stations []models.Station) {
	_ = c.set(ctx, KeyStationList, stations, c.ttl(c.config.StationListTTL, DefaultStationListTTL))
}

// GetTracks returns the cached track list for a station.
func (c *Cache) GetTracks(ctx context.Context, stationID int64) ([]models.Track, bool) {
	var tracks []models.Track
	ok, _ := c.get(ctx, KeyTrackList+strconv.FormatInt(stationID, 10), &tracks)
	return tracks, ok
}

// SetTracks caches a station's track list.
func (c *Cache) SetTracks(ctx context.Context, stationID int64, tracks []models.Track) {
	_ = c.set(ctx, KeyTrackList+strconv.FormatInt(stationID, 10), tracks, c.ttl(c.config.TrackListTTL, DefaultTrackListTTL))
}

// Invalidate drops the cached station list.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.IsAvailable() {
		return
	}
	if err := c.client.Del(ctx, KeyStationList).Err(); err != nil {
		c.handleError(err, "delete")
	}
}

func (c *Cache) ttl(configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return fallback
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}
