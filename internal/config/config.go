// Package config loads and sanitizes the relay server configuration from the
// environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the runtime settings for the relay server, including the
// security controls applied to incoming WebSocket connections.
type Config struct {
	Port            string        `envconfig:"SERVER_PORT" default:":5000"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5000,http://localhost:3000"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendBufferSize  int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment, honoring a .env file when one
// is present in the working directory. Invalid or missing values fall back to
// defaults via Sanitize.
func Load() (*Config, error) {
	// A missing .env file is not an error; the environment may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "processing environment configuration")
	}
	cfg.Sanitize()
	return &cfg, nil
}

// Default returns a Config populated with the built-in defaults, ignoring the
// environment entirely. Used by tests and as a fallback.
func Default() *Config {
	cfg := &Config{
		Port:            ":5000",
		AllowedOrigins:  []string{"http://localhost:5000", "http://localhost:3000"},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		RateLimitBurst:  10,
		RateLimitRefill: time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
	return cfg
}

// Sanitize replaces zero or nonsensical values with safe defaults so the
// server never starts with an unusable configuration.
func (c *Config) Sanitize() {
	if c.Port == "" {
		c.Port = ":5000"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
	if c.RateLimitRefill <= 0 {
		c.RateLimitRefill = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
