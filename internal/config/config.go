// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8088".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file backing the key-value store.
	// ":memory:" keeps SQLite in memory; empty uses the plain in-memory map store.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// HTTPLogging starts with per-request logging switched on.
	HTTPLogging bool `koanf:"http_logging"`

	// OfficerPassword provisions the shared officer secret when none is stored yet.
	// A password is generated when this is empty.
	OfficerPassword string `koanf:"officer_password"`

	// EnforceOfficer requires the officer header on officer-only routes.
	EnforceOfficer bool `koanf:"enforce_officer"`

	// StreamInterval is how often open event streams re-read persisted state.
	StreamInterval time.Duration `koanf:"stream_interval"`

	// BaseURL is the externally reachable address used in signup links and QR codes.
	// Derived from the preferred local IP when empty.
	BaseURL string `koanf:"base_url"`

	// AMQPURL enables publishing changes to a broker when set.
	AMQPURL string `koanf:"amqp_url"`

	// AMQPExchange names the topic exchange changes are published to.
	AMQPExchange string `koanf:"amqp_exchange"`

	// Keyboard enables the interactive terminal shortcuts.
	Keyboard bool `koanf:"keyboard"`
}

// New returns a Config holding the defaults
func New() *Config {
	return &Config{
		Addr:           ":8088",
		DBPath:         "pbplanner.db",
		LogLevel:       "info",
		StreamInterval: 2 * time.Second,
		AMQPExchange:   "pbplanner.changes",
		Keyboard:       true,
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("%w: stream_interval must be positive, got %s", ErrInvalidConfig, c.StreamInterval)
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return fmt.Errorf("%w: amqp_exchange is required when amqp_url is set", ErrInvalidConfig)
	}
	return nil
}
