package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Reader    ReaderConfig     `yaml:"reader" mapstructure:"reader"`
	Providers []ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Sinks     []SinkConfig     `yaml:"sinks" mapstructure:"sinks"`
}

// ReaderConfig contains core application settings
type ReaderConfig struct {
	Timezone        string        `yaml:"timezone" mapstructure:"timezone"`
	PollInterval    time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	HistoryInterval time.Duration `yaml:"history_interval" mapstructure:"history_interval"`
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`
	HealthPort      int           `yaml:"health_port" mapstructure:"health_port"`
	MetricsPort     int           `yaml:"metrics_port" mapstructure:"metrics_port"`

	// Temperature readings outside this range are treated as sensor
	// faults rather than real values.
	ValidTempMinC float64 `yaml:"valid_temp_min_c" mapstructure:"valid_temp_min_c"`
	ValidTempMaxC float64 `yaml:"valid_temp_max_c" mapstructure:"valid_temp_max_c"`

	// OffsetDBPath is the SQLite file holding poll and history
	// offsets. Empty keeps offsets in memory only, so history imports
	// restart from scratch on every boot.
	OffsetDBPath string `yaml:"offset_db_path" mapstructure:"offset_db_path"`
}

// ProviderConfig contains provider-specific configuration
type ProviderConfig struct {
	Name     string         `yaml:"name" mapstructure:"name"`
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty" mapstructure:"settings"`
}

// SinkConfig contains sink-specific configuration
type SinkConfig struct {
	Name     string         `yaml:"name" mapstructure:"name"`
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty" mapstructure:"settings"`
}

// LoadConfig loads configuration from a YAML file. Values of the form
// ${VAR} or ${VAR:-default} inside the file are substituted from the
// environment, and top-level reader settings can additionally be
// overridden via NEOHUB_READER_* environment variables.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	content := substituteEnvVars(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("neohub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader([]byte(content))); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values
func substituteEnvVars(content string) string {
	return os.Expand(content, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}

// setDefaults registers default values so env overrides bind even when
// the config file omits a key
func setDefaults(v *viper.Viper) {
	v.SetDefault("reader.timezone", "UTC")
	v.SetDefault("reader.poll_interval", 5*time.Minute)
	v.SetDefault("reader.history_interval", 6*time.Hour)
	v.SetDefault("reader.log_level", "info")
	v.SetDefault("reader.health_port", 8080)
	v.SetDefault("reader.metrics_port", 9090)
	v.SetDefault("reader.valid_temp_min_c", 0.0)
	v.SetDefault("reader.valid_temp_max_c", 50.0)
	v.SetDefault("reader.offset_db_path", "")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Reader.PollInterval < time.Minute {
		return fmt.Errorf("poll_interval must be at least 1 minute")
	}
	if config.Reader.HistoryInterval < time.Hour {
		return fmt.Errorf("history_interval must be at least 1 hour")
	}
	if config.Reader.ValidTempMinC >= config.Reader.ValidTempMaxC {
		return fmt.Errorf("valid_temp_min_c must be below valid_temp_max_c")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.Reader.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", config.Reader.LogLevel)
	}

	// Check that at least one provider is enabled
	hasEnabledProvider := false
	for _, provider := range config.Providers {
		if provider.Enabled {
			hasEnabledProvider = true
			break
		}
	}
	if !hasEnabledProvider {
		return fmt.Errorf("at least one provider must be enabled")
	}

	// Check that at least one sink is enabled
	hasEnabledSink := false
	for _, sink := range config.Sinks {
		if sink.Enabled {
			hasEnabledSink = true
			break
		}
	}
	if !hasEnabledSink {
		return fmt.Errorf("at least one sink must be enabled")
	}

	return nil
}

// GetProviderConfig returns the configuration for a specific provider
func (c *Config) GetProviderConfig(name string) (*ProviderConfig, error) {
	for _, provider := range c.Providers {
		if provider.Name == name {
			return &provider, nil
		}
	}
	return nil, fmt.Errorf("provider %s not found in configuration", name)
}

// GetSinkConfig returns the configuration for a specific sink
func (c *Config) GetSinkConfig(name string) (*SinkConfig, error) {
	for _, sink := range c.Sinks {
		if sink.Name == name {
			return &sink, nil
		}
	}
	return nil, fmt.Errorf("sink %s not found in configuration", name)
}

// GetEnabledProviders returns all enabled provider configurations
func (c *Config) GetEnabledProviders() []ProviderConfig {
	var enabled []ProviderConfig
	for _, provider := range c.Providers {
		if provider.Enabled {
			enabled = append(enabled, provider)
		}
	}
	return enabled
}

// GetEnabledSinks returns all enabled sink configurations
func (c *Config) GetEnabledSinks() []SinkConfig {
	var enabled []SinkConfig
	for _, sink := range c.Sinks {
		if sink.Enabled {
			enabled = append(enabled, sink)
		}
	}
	return enabled
}

// CreateExampleConfig creates an example configuration file
func CreateExampleConfig(path string) error {
	config := Config{
		Reader: ReaderConfig{
			Timezone:        "Europe/London",
			PollInterval:    5 * time.Minute,
			HistoryInterval: 6 * time.Hour,
			LogLevel:        "info",
			HealthPort:      8080,
			MetricsPort:     9090,
			ValidTempMinC:   0,
			ValidTempMaxC:   50,
			OffsetDBPath:    "neohub-offsets.db",
		},
		Providers: []ProviderConfig{
			{
				Name:    "neohub",
				Enabled: true,
				Settings: map[string]any{
					"username": "${NEOHUB_USERNAME}",
					"password": "${NEOHUB_PASSWORD}",
					"base_url": "https://neohub.co.uk/",
				},
			},
		},
		Sinks: []SinkConfig{
			{
				Name:    "elasticsearch",
				Enabled: true,
				Settings: map[string]any{
					"url":              "https://es.example:9200",
					"api_key":          "${ELASTIC_API_KEY}",
					"index_prefix":     "neohub",
					"create_templates": true,
				},
			},
			{
				Name:    "mqtt",
				Enabled: false,
				Settings: map[string]any{
					"broker":       "tcp://localhost:1883",
					"topic_prefix": "neohub",
					"username":     "${MQTT_USERNAME:-}",
					"password":     "${MQTT_PASSWORD:-}",
				},
			},
		},
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling example config: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing example config: %w", err)
	}

	return nil
}
