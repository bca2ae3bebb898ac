// Package config loads process configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is shared by the API, the render worker and the CLI. Each binary
// reads only the fields it needs.
type Config struct {
	AWSRegion        string
	TryOnsTable      string
	CartTable        string
	ProductsTable    string
	IdempotencyTable string
	RenderQueueURL   string
	PhotoBucket      string
	PhotoURLTTL      time.Duration
	MetricsNamespace string
	IdempotencyTTL   time.Duration

	RunLocal    bool
	Port        string
	CORSOrigins []string

	APIBaseURL   string
	UserID       string
	PollInterval time.Duration

	LogLevel string
}

// Load reads a .env file when present and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment only")
	}

	return Config{
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		TryOnsTable:      getEnv("TRYONS_TABLE", "tryons"),
		CartTable:        getEnv("CART_TABLE", "cart_items"),
		ProductsTable:    getEnv("PRODUCTS_TABLE", "products"),
		IdempotencyTable: getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		RenderQueueURL:   os.Getenv("RENDER_QUEUE_URL"),
		PhotoBucket:      getEnv("PHOTO_BUCKET", "tryon-photos"),
		PhotoURLTTL:      getDuration("PHOTO_URL_TTL", 15*time.Minute),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "TryOnCart"),
		IdempotencyTTL:   getDuration("IDEMPOTENCY_TTL", 48*time.Hour),

		RunLocal:    getBool("RUN_LOCAL", false),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		UserID:       os.Getenv("USER_ID"),
		PollInterval: getDuration("POLL_INTERVAL", time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean, using default")
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return def
	}
	return d
}

// getList splits a comma separated value, dropping empty entries.
func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
