package types

import "log/slog"

// redactedPlaceholder stands in for a secret wherever it could be printed.
const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential such as CRATE_PASSWORD. It formats,
// marshals and logs as the placeholder; only Unmask yields the value.
type SecretString string

func (s SecretString) String() string { return redactedPlaceholder }

// GoString covers %#v, which bypasses String.
func (s SecretString) GoString() string { return redactedPlaceholder }

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// LogValue implements slog.LogValuer.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// IsSet reports whether a non-empty secret was configured.
func (s SecretString) IsSet() bool { return s != "" }

// Unmask returns the raw value. Call it only where the driver needs it.
func (s SecretString) Unmask() string { return string(s) }
