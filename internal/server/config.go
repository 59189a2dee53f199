package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server settings. Values come from the environment via
// envconfig; zero or nonsense values are replaced with the defaults below so
// a partially configured deployment still comes up with safe settings.
type Config struct {
	Addr                    string        `envconfig:"SERVER_ADDR" default:":3009"`
	AllowedOrigins          []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3009"`
	MaxMessageSize          int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	TokenCookieName         string        `envconfig:"TOKEN_COOKIE_NAME" default:"token"`
	TokenTTL                time.Duration `envconfig:"TOKEN_TTL" default:"720h"`
	ShutdownTimeout         time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.sanitized(), nil
}

// DefaultConfig returns the built-in defaults without consulting the
// environment. Used by tests and as the fallback in constructors.
func DefaultConfig() Config {
	return Config{
		Addr:                    ":3009",
		AllowedOrigins:          []string{"http://localhost:3009"},
		MaxMessageSize:          4096,
		RateLimitBurst:          5,
		RateLimitRefillInterval: time.Second,
		TokenCookieName:         "token",
		TokenTTL:                30 * 24 * time.Hour,
		ShutdownTimeout:         10 * time.Second,
	}
}

// sanitized replaces unusable values with defaults.
func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = def.RateLimitBurst
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = def.RateLimitRefillInterval
	}
	if c.TokenCookieName == "" {
		c.TokenCookieName = def.TokenCookieName
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = def.TokenTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}
