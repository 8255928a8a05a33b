package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the tasksync API server
type Config struct {
	// Server settings
	Port            int           `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"tasksync.db"`

	// Session tokens
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
	BcryptCost   int           `env:"BCRYPT_COST"`

	// Password reset
	ResetSecret   string        `env:"RESET_SECRET"`
	ResetCodeTTL  time.Duration `env:"RESET_CODE_TTL" envDefault:"15m"`
	ResetThrottle time.Duration `env:"RESET_THROTTLE" envDefault:"1m"`

	// Notifications
	NotifyWebhookURL    string `env:"NOTIFY_WEBHOOK_URL"`
	NotifyWebhookSecret string `env:"NOTIFY_WEBHOOK_SECRET"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Dispatcher settings
	DispatcherWorkers           int     `env:"DISPATCHER_WORKERS" envDefault:"2"`
	DispatcherQueueSize         int     `env:"DISPATCHER_QUEUE_SIZE" envDefault:"64"`
	DispatcherMaxAttempts       int     `env:"DISPATCHER_MAX_ATTEMPTS" envDefault:"3"`
	DispatcherRetrySeconds      int     `env:"DISPATCHER_RETRY_SECONDS" envDefault:"5"`
	DispatcherRetryMaxSeconds   int     `env:"DISPATCHER_RETRY_MAX_SECONDS" envDefault:"60"`
	DispatcherBackoffMultiplier float64 `env:"DISPATCHER_BACKOFF_MULTIPLIER" envDefault:"2"`
}

const minSecretLength = 16

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.ResetSecret = strings.TrimSpace(cfg.ResetSecret)
	cfg.NotifyWebhookURL = strings.TrimSpace(cfg.NotifyWebhookURL)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DispatcherRetryInitial is the delay before the first notification retry.
func (c *Config) DispatcherRetryInitial() time.Duration {
	return time.Duration(c.DispatcherRetrySeconds) * time.Second
}

// DispatcherRetryMax caps the notification retry delay.
func (c *Config) DispatcherRetryMax() time.Duration {
	return time.Duration(c.DispatcherRetryMaxSeconds) * time.Second
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if err := c.validateSecrets(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	c.applyDispatcherDefaults()
	return c.validateDispatcherConfig()
}

func (c *Config) validateSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.ResetSecret == "" {
		c.ResetSecret = c.JWTSecret
	}
	if c.NotifyWebhookURL != "" && c.NotifyWebhookSecret == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_SECRET is required when NOTIFY_WEBHOOK_URL is set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be greater than 0")
	}
	if c.ResetCodeTTL <= 0 {
		return fmt.Errorf("RESET_CODE_TTL must be greater than 0")
	}
	if c.ResetThrottle < 0 {
		return fmt.Errorf("RESET_THROTTLE must not be negative")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

func (c *Config) applyDispatcherDefaults() {
	if c.DispatcherWorkers <= 0 {
		c.DispatcherWorkers = 2
	}
	if c.DispatcherQueueSize <= 0 {
		c.DispatcherQueueSize = 64
	}
	if c.DispatcherMaxAttempts <= 0 {
		c.DispatcherMaxAttempts = 3
	}
	if c.DispatcherRetrySeconds <= 0 {
		c.DispatcherRetrySeconds = 5
	}
	if c.DispatcherRetryMaxSeconds <= 0 {
		c.DispatcherRetryMaxSeconds = 60
	}
	if c.DispatcherBackoffMultiplier < 1 {
		c.DispatcherBackoffMultiplier = 2
	}
}

func (c *Config) validateDispatcherConfig() error {
	if c.DispatcherRetryMaxSeconds < c.DispatcherRetrySeconds {
		return fmt.Errorf("DISPATCHER_RETRY_MAX_SECONDS must be >= DISPATCHER_RETRY_SECONDS")
	}
	return nil
}
