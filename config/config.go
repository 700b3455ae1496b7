// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/Singh2236/chatLocalAnom/modules/api"
	"github.com/Singh2236/chatLocalAnom/modules/history"
	"github.com/Singh2236/chatLocalAnom/modules/moderation"
	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration.
type Config struct {
	Port      string `env:"PORT" envDefault:"3000"`
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`

	HistoryBackend   string `env:"HISTORY_BACKEND" envDefault:"sqlite"`
	DBPath           string `env:"DB_PATH" envDefault:"chat.db"`
	DBDebug          bool   `env:"DB_DEBUG" envDefault:"false"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	HistoryLimit     int    `env:"HISTORY_LIMIT" envDefault:"100"`
	HistoryRetention int    `env:"HISTORY_RETENTION" envDefault:"1000"`

	RateMinGap       time.Duration `env:"RATE_MIN_GAP" envDefault:"400ms"`
	RateWindow       time.Duration `env:"RATE_WINDOW" envDefault:"10s"`
	RateMaxPerWindow int           `env:"RATE_MAX_PER_WINDOW" envDefault:"6"`

	MaxUploadBytes     int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.HistoryBackend {
	case history.BackendSQLite, history.BackendRedis:
	default:
		return fmt.Errorf("HISTORY_BACKEND: %w: %q", history.ErrUnknownBackend, c.HistoryBackend)
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > history.DefaultLimit {
		return fmt.Errorf("HISTORY_LIMIT must be between 1 and %d, got %d", history.DefaultLimit, c.HistoryLimit)
	}
	if c.RateMaxPerWindow < 1 {
		return fmt.Errorf("RATE_MAX_PER_WINDOW must be positive, got %d", c.RateMaxPerWindow)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// History returns the history module configuration.
func (c Config) History() history.Config {
	return history.Config{
		Backend:       c.HistoryBackend,
		DBPath:        c.DBPath,
		DBDebug:       c.DBDebug,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		Limit:         c.HistoryLimit,
		Retention:     c.HistoryRetention,
	}
}

// Rate returns the per-session rate limit.
func (c Config) Rate() moderation.RateConfig {
	return moderation.RateConfig{
		MinGap:       c.RateMinGap,
		Window:       c.RateWindow,
		MaxPerWindow: c.RateMaxPerWindow,
	}
}

// API returns the HTTP module configuration.
func (c Config) API() api.Config {
	return api.Config{
		Port:               c.Port,
		PublicDir:          c.PublicDir,
		UploadDir:          c.UploadDir,
		MaxUploadBytes:     c.MaxUploadBytes,
		CORSAllowedOrigins: c.CORSAllowedOrigins,
		Rate:               c.Rate(),
	}
}
