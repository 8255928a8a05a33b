package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var configKeys = []string{
	"PORT", "SHUTDOWN_TIMEOUT", "DATABASE_PATH", "JWT_SECRET", "TOKEN_TTL", "COOKIE_SECURE",
	"BCRYPT_COST", "RESET_SECRET", "RESET_CODE_TTL", "RESET_THROTTLE", "NOTIFY_WEBHOOK_URL",
	"NOTIFY_WEBHOOK_SECRET", "LOG_LEVEL", "LOG_FORMAT", "DISPATCHER_WORKERS",
	"DISPATCHER_QUEUE_SIZE", "DISPATCHER_MAX_ATTEMPTS", "DISPATCHER_RETRY_SECONDS",
	"DISPATCHER_RETRY_MAX_SECONDS", "DISPATCHER_BACKOFF_MULTIPLIER",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

const testSecret = "0123456789abcdef0123"

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults applied",
			env:  map[string]string{"JWT_SECRET": testSecret},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 8080 {
					t.Errorf("Port = %d, want 8080", cfg.Port)
				}
				if cfg.DatabasePath != "tasksync.db" {
					t.Errorf("DatabasePath = %s, want tasksync.db", cfg.DatabasePath)
				}
				if cfg.TokenTTL != 168*time.Hour {
					t.Errorf("TokenTTL = %s, want 168h", cfg.TokenTTL)
				}
				if cfg.ResetCodeTTL != 15*time.Minute {
					t.Errorf("ResetCodeTTL = %s, want 15m", cfg.ResetCodeTTL)
				}
				if cfg.ResetSecret != testSecret {
					t.Errorf("ResetSecret should fall back to JWT_SECRET")
				}
				if cfg.BcryptCost != bcrypt.DefaultCost {
					t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, bcrypt.DefaultCost)
				}
				if !cfg.CookieSecure {
					t.Error("CookieSecure should default to true")
				}
				if cfg.DispatcherWorkers != 2 {
					t.Errorf("DispatcherWorkers = %d, want 2", cfg.DispatcherWorkers)
				}
				if cfg.DispatcherRetryInitial() != 5*time.Second {
					t.Errorf("DispatcherRetryInitial = %s, want 5s", cfg.DispatcherRetryInitial())
				}
				if cfg.DispatcherRetryMax() != time.Minute {
					t.Errorf("DispatcherRetryMax = %s, want 1m", cfg.DispatcherRetryMax())
				}
				if cfg.Addr() != ":8080" {
					t.Errorf("Addr = %s, want :8080", cfg.Addr())
				}
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"JWT_SECRET":         testSecret,
				"PORT":               "9000",
				"DATABASE_PATH":      "/tmp/x.db",
				"TOKEN_TTL":          "1h",
				"BCRYPT_COST":        "4",
				"RESET_SECRET":       "another-secret-value",
				"COOKIE_SECURE":      "false",
				"DISPATCHER_WORKERS": "8",
				"LOG_LEVEL":          "debug",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 9000 {
					t.Errorf("Port = %d, want 9000", cfg.Port)
				}
				if cfg.DatabasePath != "/tmp/x.db" {
					t.Errorf("DatabasePath = %s", cfg.DatabasePath)
				}
				if cfg.TokenTTL != time.Hour {
					t.Errorf("TokenTTL = %s, want 1h", cfg.TokenTTL)
				}
				if cfg.BcryptCost != 4 {
					t.Errorf("BcryptCost = %d, want 4", cfg.BcryptCost)
				}
				if cfg.ResetSecret != "another-secret-value" {
					t.Errorf("ResetSecret = %s", cfg.ResetSecret)
				}
				if cfg.CookieSecure {
					t.Error("CookieSecure should be false")
				}
				if cfg.DispatcherWorkers != 8 {
					t.Errorf("DispatcherWorkers = %d, want 8", cfg.DispatcherWorkers)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name:    "missing JWT secret",
			env:     map[string]string{},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "short JWT secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "at least 16 bytes",
		},
		{
			name:    "invalid port type",
			env:     map[string]string{"JWT_SECRET": testSecret, "PORT": "abc"},
			wantErr: "parse env",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"JWT_SECRET": testSecret, "PORT": "70000"},
			wantErr: "PORT must be between",
		},
		{
			name:    "bcrypt cost too high",
			env:     map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "40"},
			wantErr: "BCRYPT_COST",
		},
		{
			name:    "negative token ttl",
			env:     map[string]string{"JWT_SECRET": testSecret, "TOKEN_TTL": "-1h"},
			wantErr: "TOKEN_TTL",
		},
		{
			name:    "webhook without secret",
			env:     map[string]string{"JWT_SECRET": testSecret, "NOTIFY_WEBHOOK_URL": "http://hooks.local"},
			wantErr: "NOTIFY_WEBHOOK_SECRET",
		},
		{
			name: "retry window inverted",
			env: map[string]string{
				"JWT_SECRET":                   testSecret,
				"DISPATCHER_RETRY_SECONDS":     "30",
				"DISPATCHER_RETRY_MAX_SECONDS": "10",
			},
			wantErr: "DISPATCHER_RETRY_MAX_SECONDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Load() error = nil, want %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfigValidateDefaultsApplied(t *testing.T) {
	cfg := &Config{
		Port:         8080,
		DatabasePath: "db",
		JWTSecret:    testSecret,
		TokenTTL:     time.Hour,
		ResetCodeTTL: time.Minute,
	}

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if cfg.DispatcherWorkers != 2 {
		t.Errorf("DispatcherWorkers = %d, want 2", cfg.DispatcherWorkers)
	}
	if cfg.DispatcherQueueSize != 64 {
		t.Errorf("DispatcherQueueSize = %d, want 64", cfg.DispatcherQueueSize)
	}
	if cfg.DispatcherMaxAttempts != 3 {
		t.Errorf("DispatcherMaxAttempts = %d, want 3", cfg.DispatcherMaxAttempts)
	}
	if cfg.DispatcherBackoffMultiplier != 2 {
		t.Errorf("DispatcherBackoffMultiplier = %f, want 2", cfg.DispatcherBackoffMultiplier)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 10s", cfg.ShutdownTimeout)
	}
}
