package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds all application configuration.
// We use a struct (not globals) so it's testable and explicit.
//
// The ICE variables (STUN_SERVERS, TURN_SERVER_CONFIGS, TURN_SERVERS,
// TURN_USERNAME, TURN_CREDENTIAL, ICE_SERVER_WHITELIST) are deliberately not
// snapshot here: the rtc resolver reads its source on every request, so TURN
// credentials can rotate without a restart.
type Config struct {
	// Server
	ServerAddr string
	Env        string // "development" or "production"
	LogLevel   string // "debug", "info", "warn" or "error"

	// CORS origins allowed in production
	AllowedOrigins []string

	// Room-event bus (for horizontal scaling)
	PubSubType string // "memory" or "redis"
	RedisURL   string // e.g., "redis://localhost:6379"
}

// Load reads configuration from environment variables.
// In production, these come from the host. In dev, from a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:     getEnvOrDefault("SERVER_ADDR", "0.0.0.0:8080"),
		Env:            getEnvOrDefault("APP_ENV", "development"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "debug"),
		AllowedOrigins: splitEnv("ALLOWED_ORIGINS", ""),
		PubSubType:     getEnvOrDefault("PUBSUB_TYPE", "memory"),
		RedisURL:       os.Getenv("REDIS_URL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	switch c.PubSubType {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when PUBSUB_TYPE=redis")
		}
	default:
		return fmt.Errorf("PUBSUB_TYPE must be memory or redis; got %q", c.PubSubType)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SlogLevel maps LogLevel onto its slog constant.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// splitEnv splits a comma-separated env var into a slice
func splitEnv(key, defaultVal string) []string {
	val := os.Getenv(key)
	if val == "" {
		val = defaultVal
	}
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
