package config

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable LoadConfig reads so that the host
// environment cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "OTEL_SERVICE_NAME", "LOG_LEVEL",
		"INGEST_PORT", "DASHBOARD_PORT", "REFRESH_INTERVAL", "COLLABORATOR_TIMEOUT",
		"SESSION_TTL", "SESSION_MAX", "DASHBOARD_TIMEZONE",
		"STORE_DRIVER", "STORE_TIMEOUT", "STORE_AUTO_MIGRATE",
		"CRATE_HOST", "CRATE_PORT", "CRATE_USER", "CRATE_PASSWORD", "CRATE_SCHEMA", "CRATE_TABLE",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_LIFETIME", "DB_HEALTH_CHECK_PERIOD",
		"BADGER_PATH", "ENABLE_METRICS", "METRIC_NAMESPACE", "AWS_REGION", "AWS_ENDPOINT_URL",
	} {
		if old, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, old) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "80", cfg.Ingest.Port)
	assert.Equal(t, "8050", cfg.Dashboard.Port)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.Dashboard.CollaboratorTimeout)
	assert.Equal(t, 10000, cfg.Dashboard.MaxSessions)
	assert.Equal(t, DriverCrate, cfg.Store.Driver)
	assert.Equal(t, "db-crate", cfg.Store.Host)
	assert.Equal(t, 5432, cfg.Store.Port)
	assert.Equal(t, "sensor_data", cfg.Store.Table)
	assert.Equal(t, "dev", cfg.Build.Version)
	assert.Equal(t, time.UTC, time.Local)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CRATE_HOST", "crate.internal")
	t.Setenv("INGEST_PORT", "9000")
	t.Setenv("REFRESH_INTERVAL", "30s")
	t.Setenv("STORE_DRIVER", "badger")
	t.Setenv("BADGER_PATH", "/var/lib/plantwatch")
	t.Setenv("DASHBOARD_TIMEZONE", "America/Bogota")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "crate.internal", cfg.Store.Host)
	assert.Equal(t, "9000", cfg.Ingest.Port)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, DriverBadger, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/plantwatch", cfg.Store.BadgerPath)
	assert.Equal(t, "America/Bogota", cfg.Dashboard.Location().String())
}

func TestLoadConfig_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CRATE_HOST=from-dotenv\nDASHBOARD_PORT=9100\n"), 0o600))
	t.Setenv("CRATE_HOST", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DASHBOARD_PORT") })

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Store.Host)
	assert.Equal(t, "9100", cfg.Dashboard.Port)
}

func TestLoadConfig_ParsingError(t *testing.T) {
	clearEnv(t)
	t.Setenv("REFRESH_INTERVAL", "every five minutes")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"non-numeric port", map[string]string{"INGEST_PORT": "http"}},
		{"bad environment", map[string]string{"APP_ENV": "qa"}},
		{"bad timezone", map[string]string{"DASHBOARD_TIMEZONE": "Mars/Olympus"}},
		{"zero interval", map[string]string{"REFRESH_INTERVAL": "0s"}},
		{"min above max conns", map[string]string{"DB_MIN_CONNS": "20", "DB_MAX_CONNS": "5"}},
		{"badger without path", map[string]string{"STORE_DRIVER": "badger", "BADGER_PATH": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrValidation, cfgErr.Type)
		})
	}
}

func TestStoreConfig_ConnString(t *testing.T) {
	sc := StoreConfig{Host: "db-crate", Port: 5432, User: "crate", Schema: "doc"}
	u, err := url.Parse(sc.ConnString())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db-crate:5432", u.Host)
	assert.Equal(t, "/doc", u.Path)
	assert.Equal(t, "crate", u.User.Username())
	_, hasPassword := u.User.Password()
	assert.False(t, hasPassword)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	sc.Password = "s3cr:et"
	u, err = url.Parse(sc.ConnString())
	require.NoError(t, err)
	pw, _ := u.User.Password()
	assert.Equal(t, "s3cr:et", pw)
}

func TestConfig_PasswordRedactedInJSON(t *testing.T) {
	cfg := Config{Store: StoreConfig{Password: "hunter2"}}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}
