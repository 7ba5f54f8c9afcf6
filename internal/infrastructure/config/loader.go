package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	TwitchClientID       string        `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret   string        `env:"TWITCH_CLIENT_SECRET"`
	TokenCachePath       string        `env:"TOKEN_CACHE_PATH"`
	PollInterval         time.Duration `env:"POLL_INTERVAL" default:"10s"`
	TokenRefreshMargin   time.Duration `env:"TOKEN_REFRESH_MARGIN" default:"5s"`
	HTTPTimeout          time.Duration `env:"HTTP_TIMEOUT" default:"0s"`
	DesktopNotifications bool          `env:"DESKTOP_NOTIFICATIONS" default:"true"`
	LogLevel             string        `env:"LOG_LEVEL" default:"info"`
	LogFormat            string        `env:"LOG_FORMAT" default:"text"`
}

// ConfigError reports a required environment variable that is not set.
type ConfigError struct {
	Variable string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is required", e.Variable)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"TWITCH_CLIENT_ID", cfg.TwitchClientID},
		{"TWITCH_CLIENT_SECRET", cfg.TwitchClientSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Variable: r.name}
		}
	}

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.TokenRefreshMargin < 0 {
		return fmt.Errorf("TOKEN_REFRESH_MARGIN must not be negative, got %s", cfg.TokenRefreshMargin)
	}
	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative, got %s", cfg.HTTPTimeout)
	}

	return nil
}
