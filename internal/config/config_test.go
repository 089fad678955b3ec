package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("SHOPIFY_SHOP", "meetup.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")
	t.Setenv("SHOPIFY_API_KEY", "api_key")
	t.Setenv("SHOPIFY_API_SECRET", "api_secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "claude-3-5-sonnet-20240620", cfg.AnthropicModel)
	assert.Equal(t, 1000, cfg.AnthropicMaxTokens)
	assert.Equal(t, 20, cfg.CatalogPageSize)
	assert.Equal(t, "2024-07", cfg.ShopifyAPIVersion)
	assert.Equal(t, 60, cfg.SessionTTLMinutes)
	assert.Empty(t, cfg.RedisAddr(), "no redis host means in-memory store")
}

func TestLoad_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "anthropic api key", omit: "ANTHROPIC_API_KEY"},
		{name: "shop domain", omit: "SHOPIFY_SHOP"},
		{name: "access token", omit: "SHOPIFY_ACCESS_TOKEN"},
		{name: "api key", omit: "SHOPIFY_API_KEY"},
		{name: "api secret", omit: "SHOPIFY_API_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.omit, "")

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.omit)
		})
	}
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_RedisAddr(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_HOST", "redis.prod")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "redis.prod:6380", cfg.RedisAddr())
}

func TestLoad_KafkaBrokers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}
