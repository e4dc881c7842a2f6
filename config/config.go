package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"3000"`
	Mode            string        `envconfig:"MODE" default:"session"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	RelayTimeout    time.Duration `envconfig:"RELAY_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != "session" && c.Mode != "global" {
		return fmt.Errorf("config: MODE must be \"session\" or \"global\", got %q", c.Mode)
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("config: RELAY_TIMEOUT must be positive, got %s", c.RelayTimeout)
	}
	return nil
}
