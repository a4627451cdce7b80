// Package config loads todo-summary configuration from environment
// variables and an optional YAML config file.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the full service configuration.
//
// Credentials have no defaults: a missing database URL, API key, or webhook
// URL surfaces as a configuration error at the operation that needs it,
// never as a silent degradation. The only documented degradation is the
// database-to-local-mirror storage fallback, which is driven by the probe
// result, not by configuration.
type Config struct {
	// DatabaseURL is the Postgres connection URL. Empty means no database
	// is configured.
	DatabaseURL string `mapstructure:"database_url"`

	// SupabaseRestURL is the optional REST endpoint used as the last
	// schema-creation fallback.
	SupabaseRestURL string `mapstructure:"supabase_rest_url"`

	// SupabaseServiceKey authenticates REST fallback requests.
	SupabaseServiceKey string `mapstructure:"supabase_service_key"`

	// AnthropicAPIKey is the text-generation service credential.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	// SlackWebhookURL is the default webhook for CLI-triggered summaries.
	// HTTP requests carry their own webhook URL in the body.
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`

	// DataDir is where the local mirror blobs and storage state live.
	DataDir string `mapstructure:"data_dir"`

	// Port is the HTTP listen port.
	Port int `mapstructure:"port"`

	// LogFile, when set, routes serve logs through a rotating file.
	LogFile string `mapstructure:"log_file"`
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"database_url":         "DATABASE_URL",
	"supabase_rest_url":    "SUPABASE_REST_URL",
	"supabase_service_key": "SUPABASE_SERVICE_KEY",
	"anthropic_api_key":    "ANTHROPIC_API_KEY",
	"slack_webhook_url":    "SLACK_WEBHOOK_URL",
	"data_dir":             "TODO_DATA_DIR",
	"port":                 "TODO_PORT",
	"log_file":             "TODO_LOG_FILE",
}

// Load reads configuration from the environment, overlaid on an optional
// YAML config file. An empty path skips the file entirely; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", ".todo-summary")
	v.SetDefault("port", 8080)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// RequireDatabase returns an error unless a database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not configured")
	}
	return nil
}
