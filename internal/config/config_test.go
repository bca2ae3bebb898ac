package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"AWS_REGION", "TRYONS_TABLE", "CART_TABLE", "RUN_LOCAL", "PORT", "POLL_INTERVAL", "USER_ID", "CORS_ORIGINS", "PRODUCTS_TABLE", "PHOTO_URL_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "tryons", cfg.TryOnsTable)
	assert.Equal(t, "cart_items", cfg.CartTable)
	assert.Equal(t, "products", cfg.ProductsTable)
	assert.Equal(t, 15*time.Minute, cfg.PhotoURLTTL)
	assert.False(t, cfg.RunLocal)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRYONS_TABLE", "tryons-dev")
	t.Setenv("RUN_LOCAL", "true")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("USER_ID", "u-42")
	t.Setenv("CORS_ORIGINS", " https://shop.example.com, ,https://admin.example.com")

	cfg := Load()

	assert.Equal(t, "tryons-dev", cfg.TryOnsTable)
	assert.True(t, cfg.RunLocal)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "u-42", cfg.UserID)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RUN_LOCAL", "maybe")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()

	assert.False(t, cfg.RunLocal)
	assert.Equal(t, time.Second, cfg.PollInterval)
}
