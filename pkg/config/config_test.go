package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

const minimalConfig = `
providers:
  - name: "neohub"
    enabled: true
    settings:
      username: "user@example.com"
      password: "hunter2"

sinks:
  - name: "elasticsearch"
    enabled: true
    settings:
      url: "http://localhost:9200"
`

func TestLoadConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
reader:
  timezone: "Europe/London"
  poll_interval: "10m"
  history_interval: "12h"
  log_level: "debug"
  valid_temp_min_c: 5
  valid_temp_max_c: 35

providers:
  - name: "neohub"
    enabled: true
    settings:
      username: "user@example.com"
      password: "hunter2"
      base_url: "https://neohub.co.uk/"

sinks:
  - name: "elasticsearch"
    enabled: true
    settings:
      url: "http://localhost:9200"
      api_key: "test-api-key"
      index_prefix: "test"
      create_templates: false
  - name: "mqtt"
    enabled: false
    settings:
      broker: "tcp://localhost:1883"
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Reader.Timezone != "Europe/London" {
		t.Errorf("Expected timezone Europe/London, got %s", config.Reader.Timezone)
	}
	if config.Reader.PollInterval != 10*time.Minute {
		t.Errorf("Expected poll interval 10m, got %v", config.Reader.PollInterval)
	}
	if config.Reader.HistoryInterval != 12*time.Hour {
		t.Errorf("Expected history interval 12h, got %v", config.Reader.HistoryInterval)
	}
	if config.Reader.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Reader.LogLevel)
	}
	if config.Reader.ValidTempMinC != 5 || config.Reader.ValidTempMaxC != 35 {
		t.Errorf("Expected valid temp range 5..35, got %v..%v",
			config.Reader.ValidTempMinC, config.Reader.ValidTempMaxC)
	}

	if len(config.Providers) != 1 {
		t.Fatalf("Expected 1 provider, got %d", len(config.Providers))
	}
	provider := config.Providers[0]
	if provider.Name != "neohub" {
		t.Errorf("Expected provider name neohub, got %s", provider.Name)
	}
	if !provider.Enabled {
		t.Error("Expected provider to be enabled")
	}

	if len(config.Sinks) != 2 {
		t.Fatalf("Expected 2 sinks, got %d", len(config.Sinks))
	}
	if config.Sinks[0].Name != "elasticsearch" || !config.Sinks[0].Enabled {
		t.Errorf("Expected enabled elasticsearch sink, got %+v", config.Sinks[0])
	}
	if config.Sinks[1].Name != "mqtt" || config.Sinks[1].Enabled {
		t.Errorf("Expected disabled mqtt sink, got %+v", config.Sinks[1])
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeConfigFile(t, minimalConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Reader.Timezone != "UTC" {
		t.Errorf("Expected default timezone UTC, got %s", config.Reader.Timezone)
	}
	if config.Reader.PollInterval != 5*time.Minute {
		t.Errorf("Expected default poll interval 5m, got %v", config.Reader.PollInterval)
	}
	if config.Reader.HistoryInterval != 6*time.Hour {
		t.Errorf("Expected default history interval 6h, got %v", config.Reader.HistoryInterval)
	}
	if config.Reader.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", config.Reader.LogLevel)
	}
	if config.Reader.HealthPort != 8080 {
		t.Errorf("Expected default health port 8080, got %d", config.Reader.HealthPort)
	}
	if config.Reader.MetricsPort != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", config.Reader.MetricsPort)
	}
	if config.Reader.ValidTempMinC != 0 || config.Reader.ValidTempMaxC != 50 {
		t.Errorf("Expected default valid temp range 0..50, got %v..%v",
			config.Reader.ValidTempMinC, config.Reader.ValidTempMaxC)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEOHUB_READER_LOG_LEVEL", "warn")

	config, err := LoadConfig(writeConfigFile(t, minimalConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Reader.LogLevel != "warn" {
		t.Errorf("Expected log_level overridden to warn, got %s", config.Reader.LogLevel)
	}
}

func TestEnvSubstitutionInSettings(t *testing.T) {
	t.Setenv("TEST_NEOHUB_PASSWORD", "s3cret")

	configPath := writeConfigFile(t, `
providers:
  - name: "neohub"
    enabled: true
    settings:
      username: "user@example.com"
      password: "${TEST_NEOHUB_PASSWORD}"
      base_url: "${TEST_NEOHUB_URL:-https://neohub.co.uk/}"

sinks:
  - name: "elasticsearch"
    enabled: true
    settings:
      url: "http://localhost:9200"
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	settings := config.Providers[0].Settings
	if settings["password"] != "s3cret" {
		t.Errorf("Expected password substituted from env, got %v", settings["password"])
	}
	if settings["base_url"] != "https://neohub.co.uk/" {
		t.Errorf("Expected base_url fallback applied, got %v", settings["base_url"])
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      minimalConfig,
			expectError: false,
		},
		{
			name: "no providers",
			config: `
providers: []

sinks:
  - name: "elasticsearch"
    enabled: true
    settings:
      url: "http://localhost:9200"
`,
			expectError: true,
			errorMsg:    "at least one provider must be enabled",
		},
		{
			name: "no sinks",
			config: `
providers:
  - name: "neohub"
    enabled: true
    settings:
      username: "user@example.com"
      password: "hunter2"

sinks: []
`,
			expectError: true,
			errorMsg:    "at least one sink must be enabled",
		},
		{
			name: "invalid log level",
			config: `
reader:
  log_level: "loud"
` + minimalConfig,
			expectError: true,
			errorMsg:    "invalid log_level",
		},
		{
			name: "inverted temperature range",
			config: `
reader:
  valid_temp_min_c: 60
  valid_temp_max_c: 50
` + minimalConfig,
			expectError: true,
			errorMsg:    "valid_temp_min_c must be below valid_temp_max_c",
		},
		{
			name: "poll interval too short",
			config: `
reader:
  poll_interval: "10s"
` + minimalConfig,
			expectError: true,
			errorMsg:    "poll_interval must be at least 1 minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, tt.config))
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error message to contain %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestGetProviderConfig(t *testing.T) {
	config := &Config{
		Providers: []ProviderConfig{
			{Name: "neohub", Enabled: true},
			{Name: "tado", Enabled: false},
		},
	}

	provider, err := config.GetProviderConfig("neohub")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if provider.Name != "neohub" {
		t.Errorf("Expected provider name neohub, got %s", provider.Name)
	}

	if _, err = config.GetProviderConfig("unknown"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestGetEnabledSinks(t *testing.T) {
	config := &Config{
		Sinks: []SinkConfig{
			{Name: "elasticsearch", Enabled: true},
			{Name: "mqtt", Enabled: false},
		},
	}

	enabled := config.GetEnabledSinks()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled sink, got %d", len(enabled))
	}
	if enabled[0].Name != "elasticsearch" {
		t.Errorf("Expected elasticsearch enabled, got %s", enabled[0].Name)
	}
}

func TestCreateExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "example.yaml")
	if err := CreateExampleConfig(path); err != nil {
		t.Fatalf("Failed to create example config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read example config: %v", err)
	}
	if !strings.Contains(string(data), "neohub") {
		t.Error("Expected example config to mention the neohub provider")
	}
}
