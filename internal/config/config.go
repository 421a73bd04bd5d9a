// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns an
// error and the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all runtime configuration for the aggregator service.
type Config struct {
	Port        string
	GRPCPort    string // gRPC health service
	DatabaseURL string
	RedisURL    string
	LogLevel    string

	ScrapeIntervalHours int    // How often the scrape job fires
	ScrapeQuery         string // Search term used by scheduled scrapes
	CleanupSchedule     string // 5-field cron expression, UTC
	RetentionDays       int

	SourceTimeout   time.Duration
	SourceRetries   int
	SourceUserAgent string
	RemotiveURL     string
	RemoteOKURL     string
	ArbeitnowURL    string
	DedupeByURL     bool
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval, err := positiveInt("SCRAPE_INTERVAL_HOURS", 6)
	if err != nil {
		return nil, err
	}
	retention, err := positiveInt("RETENTION_DAYS", 14)
	if err != nil {
		return nil, err
	}
	timeout, err := positiveInt("SOURCE_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	retries := 0
	if s := os.Getenv("SOURCE_RETRIES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("SOURCE_RETRIES must be a non-negative integer, got %q", s)
		}
		retries = v
	}

	cleanup := getEnv("CLEANUP_SCHEDULE", "0 0 * * *")
	if _, err := cron.ParseStandard(cleanup); err != nil {
		return nil, fmt.Errorf("CLEANUP_SCHEDULE %q: %w", cleanup, err)
	}

	dedupe := false
	if s := os.Getenv("DEDUPE_BY_URL"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("DEDUPE_BY_URL must be a boolean, got %q", s)
		}
		dedupe = v
	}

	return &Config{
		Port:                getEnv("AGGREGATOR_PORT", "8083"),
		GRPCPort:            getEnv("AGGREGATOR_GRPC_PORT", "9083"),
		DatabaseURL:         dbURL,
		RedisURL:            redisURL,
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ScrapeIntervalHours: interval,
		ScrapeQuery:         getEnv("SCRAPE_QUERY", "job"),
		CleanupSchedule:     cleanup,
		RetentionDays:       retention,
		SourceTimeout:       time.Duration(timeout) * time.Second,
		SourceRetries:       retries,
		SourceUserAgent:     getEnv("SOURCE_USER_AGENT", "JobScraperBot/1.0"),
		RemotiveURL:         os.Getenv("REMOTIVE_URL"),
		RemoteOKURL:         os.Getenv("REMOTEOK_URL"),
		ArbeitnowURL:        os.Getenv("ARBEITNOW_URL"),
		DedupeByURL:         dedupe,
	}, nil
}

// Retention is RetentionDays as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// ScrapeInterval is ScrapeIntervalHours as a duration.
func (c *Config) ScrapeInterval() time.Duration {
	return time.Duration(c.ScrapeIntervalHours) * time.Hour
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
