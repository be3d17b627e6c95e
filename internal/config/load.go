package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the MNEMO_ prefix with underscores
// for nesting (MNEMO_SYNC_SERVER_URL) and take precedence over file
// values. An empty path skips the file entirely.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.status_addr", "127.0.0.1:7312")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.path", "mnemo.db")

	// Keys without a meaningful default still need registering so their
	// environment variables bind during Unmarshal.
	v.SetDefault("sync.server_url", "")
	v.SetDefault("sync.interval_seconds", 30)
	v.SetDefault("sync.retry_ceiling", 5)
	v.SetDefault("sync.request_timeout_seconds", 15)
	v.SetDefault("sync.probe_interval_seconds", 20)

	v.SetDefault("study.cards_per_session", 20)
	v.SetDefault("study.new_cards_per_day", 10)

	v.SetDefault("generation.gemini_api_key", "")
	v.SetDefault("generation.model_name", "gemini-2.0-flash")
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.retry_delay_seconds", 2)
}
