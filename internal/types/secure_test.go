package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "crate-password-12345"

func TestSecretString_RedactsInFormatting(t *testing.T) {
	s := SecretString(testPassword)

	for _, verb := range []string{"%s", "%v", "%+v", "%#v"} {
		result := fmt.Sprintf("password="+verb, s)
		assert.NotContains(t, result, testPassword, "verb %s leaked the secret", verb)
		assert.Equal(t, "password="+redactedPlaceholder, result)
	}
}

func TestSecretString_RedactsInJSON(t *testing.T) {
	type storeConfig struct {
		Password SecretString `json:"password"`
		Host     string       `json:"host"`
	}

	data, err := json.Marshal(storeConfig{Password: testPassword, Host: "db-crate"})
	require.NoError(t, err)

	assert.NotContains(t, string(data), testPassword)
	assert.JSONEq(t, `{"password":"***REDACTED***","host":"db-crate"}`, string(data))
}

func TestSecretString_RedactsInLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("connecting", "password", SecretString(testPassword))

	assert.NotContains(t, buf.String(), testPassword)
	assert.Contains(t, buf.String(), `"password":"***REDACTED***"`)
}

func TestSecretString_UnmaskAndIsSet(t *testing.T) {
	assert.Equal(t, testPassword, SecretString(testPassword).Unmask())
	assert.True(t, SecretString(testPassword).IsSet())

	assert.Equal(t, "", SecretString("").Unmask())
	assert.False(t, SecretString("").IsSet())
	assert.Equal(t, redactedPlaceholder, SecretString("").String())
}
