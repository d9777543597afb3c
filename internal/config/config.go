// Package config defines the configuration structure for the PlantWatch
// ingestion service and dashboard. Configuration is loaded once at process
// start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Any invalid value causes startup to fail fast.
package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"plantwatch/internal/types"
)

// SecretString is an alias for types.SecretString so that credentials in the
// config are redacted whenever the config is logged.
type SecretString = types.SecretString

// Store driver names accepted by STORE_DRIVER.
const (
	DriverCrate  = "crate"
	DriverBadger = "badger"
)

// Config is the top-level configuration struct shared by every binary.
// Each binary reads only the subsets it needs.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"plantwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Ingest        IngestConfig
	Dashboard     DashboardConfig
	Store         StoreConfig
	Observability ObservabilityConfig

	// Filled from ldflags by LoadConfig.
	Build BuildInfo `ignored:"true"`
}

// IngestConfig holds the ingestion HTTP server settings.
type IngestConfig struct {
	// Port binds on all interfaces.
	Port string `envconfig:"INGEST_PORT" default:"80" validate:"required,numeric"`
}

// DashboardConfig holds the refresh orchestrator and dashboard HTTP settings.
type DashboardConfig struct {
	Port                string        `envconfig:"DASHBOARD_PORT" default:"8050" validate:"required,numeric"`
	RefreshInterval     time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m" validate:"gt=0"`
	CollaboratorTimeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"10s" validate:"gt=0"`
	SessionTTL          time.Duration `envconfig:"SESSION_TTL" default:"12h" validate:"gt=0"`
	MaxSessions         int           `envconfig:"SESSION_MAX" default:"10000" validate:"min=1"`
	Timezone            string        `envconfig:"DASHBOARD_TIMEZONE" default:"UTC" validate:"required,timezone"`
}

// StoreConfig selects and tunes the time-series store.
type StoreConfig struct {
	Driver      string        `envconfig:"STORE_DRIVER" default:"crate" validate:"oneof=crate badger"`
	Timeout     time.Duration `envconfig:"STORE_TIMEOUT" default:"5s" validate:"gt=0"`
	AutoMigrate bool          `envconfig:"STORE_AUTO_MIGRATE" default:"false"`

	// CrateDB over the PostgreSQL wire protocol.
	Host     string       `envconfig:"CRATE_HOST" default:"db-crate" validate:"required_if=Driver crate"`
	Port     int          `envconfig:"CRATE_PORT" default:"5432" validate:"min=1,max=65535"`
	User     string       `envconfig:"CRATE_USER" default:"crate"`
	Password SecretString `envconfig:"CRATE_PASSWORD"`
	Schema   string       `envconfig:"CRATE_SCHEMA" default:"doc" validate:"required"`
	Table    string       `envconfig:"CRATE_TABLE" default:"sensor_data" validate:"required"`

	// Pool Tuning
	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections

	// Embedded badger store.
	BadgerPath string `envconfig:"BADGER_PATH" default:"./data/readings"`
}

// ConnString builds the pgx connection string for CrateDB. The password is
// unmasked here and nowhere else.
func (c StoreConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, fmt.Sprint(c.Port)),
		Path:   "/" + c.Schema,
	}
	if c.Password.IsSet() {
		u.User = url.UserPassword(c.User, c.Password.Unmask())
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"PlantWatch"`
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
