// Package config loads the API server configuration from environment
// variables. The polling reader uses the richer YAML configuration in
// pkg/config instead; the server daemon only needs hub credentials and
// listener settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the API server
type Config struct {
	Server  ServerConfig
	Hub     HubConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// HubConfig holds the hub account credentials
type HubConfig struct {
	Username string
	Password string
	BaseURL  string

	ValidTempMinC float64
	ValidTempMaxC float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("NEOHUB_SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("NEOHUB_SERVER_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("NEOHUB_SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("NEOHUB_SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("NEOHUB_SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Hub: HubConfig{
			Username:      getEnv("NEOHUB_USERNAME", ""),
			Password:      getEnv("NEOHUB_PASSWORD", ""),
			BaseURL:       getEnv("NEOHUB_BASE_URL", ""),
			ValidTempMinC: getEnvAsFloat("NEOHUB_VALID_TEMP_MIN_C", 0.0),
			ValidTempMaxC: getEnvAsFloat("NEOHUB_VALID_TEMP_MAX_C", 50.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("NEOHUB_LOG_LEVEL", "info"),
			Format: getEnv("NEOHUB_LOG_FORMAT", "json"),
		},
	}

	if cfg.Hub.Username == "" || cfg.Hub.Password == "" {
		return nil, fmt.Errorf("NEOHUB_USERNAME and NEOHUB_PASSWORD must be set")
	}
	if cfg.Hub.ValidTempMinC >= cfg.Hub.ValidTempMaxC {
		return nil, fmt.Errorf("valid temperature range is inverted: min %.1f >= max %.1f",
			cfg.Hub.ValidTempMinC, cfg.Hub.ValidTempMaxC)
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// String returns a loggable representation without credentials
func (c *Config) String() string {
	return fmt.Sprintf("Config{Addr:%s, BaseURL:%s, LogLevel:%s}",
		c.Server.Addr(), c.Hub.BaseURL, c.Logging.Level)
}
