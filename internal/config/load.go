package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (prefix BIOTRACK_)
// and an optional config.yaml in the working directory. Environment
// variables take precedence over file values. Returns a validated Config
// or an error describing the missing or malformed settings.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.tick_interval", time.Minute)
	v.SetDefault("app.queue_size", 64)
	v.SetDefault("app.worker_count", 2)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BIOTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; the
	// database URL has no default, so bind it explicitly.
	_ = v.BindEnv("database.url")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults cover everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
