/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	// Catalog (back-office API the player reads stations/tracks from and
	// writes playback history to).
	CatalogBaseURL string
	CatalogTimeout time.Duration
	StationSeed    string // optional YAML file with a local station catalog

	// Redis read-through cache for catalog responses.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS connection used for the offline cache worker notifications.
	NATSURL          string
	CacheSubject     string
	OfflineCacheOn   bool
	DefaultVolume    float64 // 0..1
	AutoplayPreset   int     // preset slot auto-selected once stations arrive
	VisualizerBars   int
	VisualizerHeight int

	// Video element capability. When true the video slot consumes HLS
	// manifests natively and the software HLS session is bypassed.
	NativeHLS bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("LAVA_ENV", "development"),
		HTTPBind:    getEnv("LAVA_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("LAVA_HTTP_PORT", 8080),
		MetricsBind: getEnv("LAVA_METRICS_BIND", "127.0.0.1:9000"),

		CatalogBaseURL: getEnv("LAVA_CATALOG_BASE_URL", ""),
		CatalogTimeout: time.Duration(getEnvInt("LAVA_CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
		StationSeed:    getEnv("LAVA_STATION_SEED", ""),

		RedisAddr:     getEnv("LAVA_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("LAVA_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("LAVA_REDIS_DB", 0),

		NATSURL:        getEnv("LAVA_NATS_URL", ""),
		CacheSubject:   getEnv("LAVA_CACHE_SUBJECT", "lava.cache.requests"),
		OfflineCacheOn: getEnvBool("LAVA_OFFLINE_CACHE_ENABLED", true),

		DefaultVolume:    getEnvFloat("LAVA_DEFAULT_VOLUME", 0.8),
		AutoplayPreset:   getEnvInt("LAVA_AUTOPLAY_PRESET", 1),
		VisualizerBars:   getEnvInt("LAVA_VISUALIZER_BARS", 32),
		VisualizerHeight: getEnvInt("LAVA_VISUALIZER_HEIGHT", 160),

		NativeHLS: getEnvBool("LAVA_NATIVE_HLS", false),

		TracingEnabled:    getEnvBool("LAVA_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("LAVA_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("LAVA_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.CatalogBaseURL == "" && cfg.StationSeed == "" {
		return nil, fmt.Errorf("LAVA_CATALOG_BASE_URL or LAVA_STATION_SEED must be provided")
	}

	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 1 {
		return nil, fmt.Errorf("LAVA_DEFAULT_VOLUME must be within [0,1], got %v", cfg.DefaultVolume)
	}

	if cfg.AutoplayPreset < 1 || cfg.AutoplayPreset > 5 {
		return nil, fmt.Errorf("LAVA_AUTOPLAY_PRESET must be a preset slot 1-5, got %d", cfg.AutoplayPreset)
	}

	if cfg.VisualizerBars <= 0 {
		return nil, fmt.Errorf("LAVA_VISUALIZER_BARS must be positive, got %d", cfg.VisualizerBars)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
