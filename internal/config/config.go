// Package config loads the service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every setting read at startup
type Config struct {
	Port               string
	LogLevel           zerolog.Level
	CORSAllowedOrigins []string

	DatabaseURL     string
	RedisURL        string
	MongoURI        string
	MongoDatabase   string
	DefaultTenantID uint

	ShopifyAPIVersion     string
	ShopifyPageSize       int
	ShopifyRequestTimeout time.Duration
	ShopifyMaxRetries     int
	ShopifyRateLimitRPS   float64

	SyncInterval             time.Duration
	SyncMaxConcurrentTenants int
	IngestionTimeout         time.Duration
	IngestSkipUnreachable    bool
	LockTTL                  time.Duration
}

// Load reads .env when present, then the process environment.
// The returned warnings are meant for the logger, which is not built yet.
func Load() (*Config, []string, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, ".env file not found")
	}

	p := &parser{}
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "shop_insights"),
		DefaultTenantID:    p.positiveID("DEFAULT_TENANT_ID", 1),

		ShopifyAPIVersion:     getEnv("SHOPIFY_API_VERSION", "2024-10"),
		ShopifyPageSize:       p.int("SHOPIFY_PAGE_SIZE", 250),
		ShopifyRequestTimeout: p.duration("SHOPIFY_REQUEST_TIMEOUT", 30*time.Second),
		ShopifyMaxRetries:     p.int("SHOPIFY_MAX_RETRIES", 4),
		ShopifyRateLimitRPS:   p.float("SHOPIFY_RATE_LIMIT_RPS", 2),

		SyncInterval:             p.syncInterval(),
		SyncMaxConcurrentTenants: p.int("SYNC_MAX_CONCURRENT_TENANTS", 1),
		IngestionTimeout:         p.duration("INGESTION_TIMEOUT", 10*time.Minute),
		IngestSkipUnreachable:    p.bool("INGEST_SKIP_UNREACHABLE", false),
		LockTTL:                  p.duration("LOCK_TTL", 30*time.Minute),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	cfg.LogLevel = level

	if cfg.DatabaseURL == "" {
		p.errs = append(p.errs, "DATABASE_URL is required")
	}
	if len(p.errs) > 0 {
		return nil, warnings, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	return cfg, warnings, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma separated value, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed value so they are reported together
type parser struct {
	errs []string
}

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return v
}

// positiveID parses an integer id and rejects zero or negative values before they reach an unsigned field
func (p *parser) positiveID(key string, fallback uint) uint {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s must be positive, got %q", key, raw))
		return fallback
	}
	return uint(v)
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not a number", key, raw))
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s: %q is not a positive duration", key, raw))
		return fallback
	}
	return v
}

// syncInterval prefers SYNC_INTERVAL and falls back to the millisecond SYNC_INTERVAL_MS
func (p *parser) syncInterval() time.Duration {
	if getEnv("SYNC_INTERVAL", "") != "" {
		return p.duration("SYNC_INTERVAL", 15*time.Minute)
	}
	ms := p.int("SYNC_INTERVAL_MS", 0)
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return 15 * time.Minute
}
