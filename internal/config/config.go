package config

import "time"

// Config holds all application configuration. It is passed explicitly into
// each component at construction; there is no process-wide singleton, so
// persistence and recurrence logic stay testable in isolation.
type Config struct {
	App      AppConfig      `mapstructure:"app"      validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
}

// AppConfig contains logging and dispatcher settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// TickInterval is how often the dispatcher evaluates due schedules.
	// The dispatcher tolerates late ticks; catch-up covers missed ranges.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"required,min=1s"`

	// QueueSize bounds the buffered reminder queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// WorkerCount is the number of reminder workers.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}
