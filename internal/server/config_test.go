package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(":3009", cfg.Addr)
	req.Equal([]string{"http://localhost:3009"}, cfg.AllowedOrigins)
	req.Equal("token", cfg.TokenCookieName)
	req.Equal(30*24*time.Hour, cfg.TokenTTL)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	req := require.New(t)

	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com,https://staging.example.com")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("TOKEN_TTL", "24h")

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(":9000", cfg.Addr)
	req.Equal([]string{"https://chat.example.com", "https://staging.example.com"}, cfg.AllowedOrigins)
	req.Equal(10, cfg.RateLimitBurst)
	req.Equal(24*time.Hour, cfg.TokenTTL)
}

func TestSanitizedReplacesUnusableValues(t *testing.T) {
	req := require.New(t)

	cfg := Config{
		Addr:           "",
		MaxMessageSize: -1,
		RateLimitBurst: 0,
	}.sanitized()

	def := DefaultConfig()
	req.Equal(def.Addr, cfg.Addr)
	req.Equal(def.MaxMessageSize, cfg.MaxMessageSize)
	req.Equal(def.RateLimitBurst, cfg.RateLimitBurst)
	req.Equal(def.RateLimitRefillInterval, cfg.RateLimitRefillInterval)
	req.Equal(def.ShutdownTimeout, cfg.ShutdownTimeout)
}
