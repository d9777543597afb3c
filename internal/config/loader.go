// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone so server-assigned timestamps never drift.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the configuration. The optional dotenv paths
// are passed to godotenv; with none, ./.env is tried. Dotenv files never
// override variables already present in the environment.
func LoadConfig(dotenvFiles ...string) (*Config, error) {
	time.Local = time.UTC

	// godotenv.Load fails when a file is missing; that is expected outside
	// local development.
	_ = godotenv.Load(dotenvFiles...)

	// The empty prefix means envconfig uses the exact tag values.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct validation rules and the cross-field checks that
// tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if cfg.Store.MinConns > cfg.Store.MaxConns {
		return &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Store.MinConns, cfg.Store.MaxConns),
		}
	}
	if cfg.Store.Driver == DriverBadger && cfg.Store.BadgerPath == "" {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "BADGER_PATH is required when STORE_DRIVER=badger",
		}
	}

	return nil
}

// Location resolves the dashboard timezone. Validation guarantees the name
// is loadable.
func (c DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
