package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minSessionSecretLen = 32

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	RecordStoreURL         string        `env:"RECORD_STORE_URL"`
	RecordStoreTimeout     time.Duration `env:"RECORD_STORE_TIMEOUT" default:"0s"` // 0 = no timeout
	RecordStoreGetAttempts int           `env:"RECORD_STORE_GET_ATTEMPTS" default:"1"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	RedisURL      string        `env:"REDIS_URL"`

	ControllerIdleTTL time.Duration `env:"CONTROLLER_IDLE_TTL" default:"30m"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" default:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" default:"10"`

	AllowPlaintextPasswords bool `env:"ALLOW_PLAINTEXT_PASSWORDS" default:"false"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"RECORD_STORE_URL", cfg.RecordStoreURL},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	u, err := url.Parse(cfg.RecordStoreURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("RECORD_STORE_URL must be an absolute http(s) URL, got %q", cfg.RecordStoreURL)
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	if cfg.RecordStoreTimeout < 0 {
		return errors.New("RECORD_STORE_TIMEOUT must not be negative")
	}
	if cfg.RecordStoreGetAttempts < 1 {
		return errors.New("RECORD_STORE_GET_ATTEMPTS must be at least 1")
	}
	if cfg.AuthRateLimit <= 0 || cfg.AuthRateBurst < 1 {
		return errors.New("AUTH_RATE_LIMIT must be positive and AUTH_RATE_BURST at least 1")
	}

	return nil
}
