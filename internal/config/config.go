// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
)

// ストレージバックエンド
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Collaborators
	APIURL       string        `env:"STOREFRONT_API_URL"`
	APITimeout   time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIRateLimit float64       `env:"API_RATE_LIMIT" envDefault:"10"`

	// Catalog
	CatalogFixture string `env:"CATALOG_FIXTURE"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"storefront-state.json"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"storefront.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// Cart
	ClearCartOnLogout bool   `env:"CART_CLEAR_ON_LOGOUT" envDefault:"true"`
	TaxRateBPS        int    `env:"TAX_RATE_BPS" envDefault:"800"`
	Currency          string `env:"CURRENCY" envDefault:"USD"`

	// Session
	SessionCheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"1m"`

	// Rate Limit
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Cookie
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や、値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
// 未設定の必須項目はまとめて1つのエラーとして返す。
func (c *Config) Validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))

	var missing []string
	if c.APIURL == "" {
		missing = append(missing, "STOREFRONT_API_URL")
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if c.StoragePath == "" {
			missing = append(missing, "STORAGE_PATH")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", c.StorageBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if c.TaxRateBPS < 0 {
		return fmt.Errorf("TAX_RATE_BPS must not be negative: %d", c.TaxRateBPS)
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitAuth <= 0 {
		return fmt.Errorf("RATE_LIMIT_GENERAL and RATE_LIMIT_AUTH must be positive")
	}
	if c.APIRateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive: %v", c.APIRateLimit)
	}
	return nil
}
