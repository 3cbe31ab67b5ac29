// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// OptionMatch selects how option set labels are compared with step text.
type OptionMatch string

const (
	// MatchExact compares labels byte for byte.
	MatchExact OptionMatch = "exact"
	// MatchFold compares labels under Unicode case folding.
	MatchFold OptionMatch = "fold"
)

// Config holds every tunable of a scenario run. Flags on the CLI override
// the environment.
type Config struct {
	// LanguageCode selects which option label is matched. There is no
	// fallback to other languages.
	LanguageCode int         `env:"CRMBDD_LANGUAGE_CODE" envDefault:"1033"`
	OptionMatch  OptionMatch `env:"CRMBDD_OPTION_MATCH"  envDefault:"exact"`

	// Timezone is the location of date/time values written without an offset.
	Timezone string `env:"CRMBDD_TIMEZONE" envDefault:"UTC"`

	AsyncPollInterval time.Duration `env:"CRMBDD_ASYNC_POLL_INTERVAL" envDefault:"1s"`
	AsyncTimeout      time.Duration `env:"CRMBDD_ASYNC_TIMEOUT"       envDefault:"2m"`

	// DatabasePath is the SQLite record store; ":memory:" gives every
	// scenario a fresh store.
	DatabasePath string `env:"CRMBDD_DB" envDefault:":memory:"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied and no
// environment consulted.
func Default() Config {
	return Config{
		LanguageCode:      1033,
		OptionMatch:       MatchExact,
		Timezone:          "UTC",
		AsyncPollInterval: time.Second,
		AsyncTimeout:      2 * time.Minute,
		DatabasePath:      ":memory:",
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.OptionMatch {
	case MatchExact, MatchFold:
	default:
		return fmt.Errorf("invalid option match %q: expected %q or %q", c.OptionMatch, MatchExact, MatchFold)
	}
	if c.LanguageCode <= 0 {
		return fmt.Errorf("invalid language code %d", c.LanguageCode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.AsyncPollInterval <= 0 {
		return fmt.Errorf("async poll interval must be positive, got %s", c.AsyncPollInterval)
	}
	if c.AsyncTimeout < c.AsyncPollInterval {
		return fmt.Errorf("async timeout %s is shorter than the poll interval %s", c.AsyncTimeout, c.AsyncPollInterval)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
