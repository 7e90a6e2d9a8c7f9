// Package config loads pipeline configuration from the environment. A
// .env file in the working directory is merged in without overriding
// variables already set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all pipeline settings.
type Config struct {
	// Storage backends. Empty Postgres or ClickHouse DSN selects the
	// in-memory stores; empty Redis address selects the in-memory queue.
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string

	// Chain access.
	RPCEndpoint string
	WSEndpoint  string

	// Launch feed. Empty disables discovery ingestion.
	FeedEndpoint string

	// Enrichment.
	Workers     int
	SOLPriceUSD float64

	// Trading.
	PaperTrading bool
	CopyTrading  bool

	// Sweeps.
	StalePositionMaxAge time.Duration
	SignalDecayWindow   time.Duration

	// Observability.
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully populated.
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:       os.Getenv("CLICKHOUSE_DSN"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RPCEndpoint:         os.Getenv("SOLANA_RPC_ENDPOINT"),
		WSEndpoint:          os.Getenv("SOLANA_WS_ENDPOINT"),
		FeedEndpoint:        envString("DISCOVERY_FEED_WS", "wss://pumpportal.fun/api/data"),
		Workers:             envInt("ENRICH_WORKERS", 8),
		SOLPriceUSD:         envFloat("SOL_PRICE_USD", 150),
		PaperTrading:        envBool("PAPER_TRADING", true),
		CopyTrading:         envBool("COPY_TRADING", false),
		StalePositionMaxAge: envDuration("STALE_POSITION_MAX_AGE", time.Hour),
		SignalDecayWindow:   envDuration("SIGNAL_DECAY_WINDOW", 30*time.Minute),
		MetricsAddr:         envString("METRICS_ADDR", ":9090"),
		LogLevel:            envString("LOG_LEVEL", "info"),
	}

	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	if cfg.CopyTrading && cfg.WSEndpoint == "" {
		return nil, fmt.Errorf("SOLANA_WS_ENDPOINT is required when COPY_TRADING is enabled")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("ENRICH_WORKERS must be positive, got %d", cfg.Workers)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
