package extension

import "time"

// Config holds the Lendpool extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.lendpool" or "lendpool" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the pool currency in lowercase ISO 4217 (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// SweepInterval is how often the overdue sweep runs (default: 1m).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:      "usd",
		SweepInterval: time.Minute,
	}
}
