// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Scoring settings
	ScorerSeed         int64  // 0 = seed from clock (placeholder scorer)
	BatchWorkers       int    // bounded worker pool per batch
	BatchFailurePolicy string // "fail_fast" or "continue"
	RetrainDurationMS  int64  // simulated retraining duration

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing

	// Security
	RateLimitRPM int
}

// Defaults
const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultBatchWorkers  = 8
	DefaultFailurePolicy = "fail_fast"
	DefaultRetrainMS     = 2000
	DefaultRateLimit     = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ScorerSeed:         getEnvInt64("SCORER_SEED", 0),
		BatchWorkers:       int(getEnvInt64("BATCH_WORKERS", DefaultBatchWorkers)),
		BatchFailurePolicy: getEnv("BATCH_FAILURE_POLICY", DefaultFailurePolicy),
		RetrainDurationMS:  getEnvInt64("RETRAIN_DURATION_MS", DefaultRetrainMS),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	if c.BatchFailurePolicy != "fail_fast" && c.BatchFailurePolicy != "continue" {
		return fmt.Errorf("BATCH_FAILURE_POLICY must be %q or %q", "fail_fast", "continue")
	}
	if c.RetrainDurationMS < 0 {
		return fmt.Errorf("RETRAIN_DURATION_MS must be non-negative")
	}
	if c.RateLimitRPM < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
