package config

import (
	"fmt"

	pkgconfig "github.com/IliasHad/shopify-remix-meetup-app/pkg/config"
)

// Config holds all configuration for the description service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Shopify Admin API
	ShopifyShop        string `env:"SHOPIFY_SHOP"`
	ShopifyAccessToken string `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPIKey      string `env:"SHOPIFY_API_KEY"`
	ShopifyAPISecret   string `env:"SHOPIFY_API_SECRET"`
	ShopifyAPIVersion  string `env:"SHOPIFY_API_VERSION" envDefault:"2024-07"`

	// Anthropic Messages API
	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20240620"`
	AnthropicMaxTokens int    `env:"ANTHROPIC_MAX_TOKENS" envDefault:"1000"`

	// Catalog page shown in the picker
	CatalogPageSize int `env:"CATALOG_PAGE_SIZE" envDefault:"20"`

	// Redis workflow session store. Empty host falls back to the in-memory
	// store, for local development.
	RedisHost         string `env:"REDIS_HOST"`
	RedisPort         int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"60"`

	// Kafka domain events. Empty broker list disables publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"description-events"`

	// Per-shop rate limiting
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables. Missing credentials
// fail here, at startup, instead of on the first outbound call with an
// empty header.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if cfg.ShopifyShop == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP is required")
	}
	if cfg.ShopifyAccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	if cfg.ShopifyAPIKey == "" {
		return nil, fmt.Errorf("SHOPIFY_API_KEY is required")
	}
	if cfg.ShopifyAPISecret == "" {
		return nil, fmt.Errorf("SHOPIFY_API_SECRET is required")
	}
	if cfg.CatalogPageSize < 1 {
		return nil, fmt.Errorf("invalid catalog page size: %d", cfg.CatalogPageSize)
	}
	return cfg, nil
}

// RedisAddr returns host:port for the session store, or empty when Redis is
// not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
