package ops

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/adapter/enum"
	"portwatch/pkg/exception"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "BTC", cfg.Base)
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1100*time.Millisecond, cfg.Tick)

	specs := cfg.Specs()
	require.Len(t, specs, 4)
	assert.Equal(t, enum.CallBalances, specs[0].Kind)
	assert.Equal(t, 5, specs[0].Weight)
	assert.Equal(t, enum.CallOpenOrders, specs[1].Kind)
	assert.Equal(t, 2, specs[1].Priority)
	assert.Equal(t, enum.CallPriceTable, specs[2].Kind)
	assert.Equal(t, 3*time.Second, specs[2].Period)
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORTWATCH_BASE":                 "eth",
		"PORTWATCH_CAPACITY":             "10",
		"PORTWATCH_TICK":                 "2s",
		"PORTWATCH_OPEN_ORDERS_WEIGHT":   "10",
		"PORTWATCH_PRICE_TABLE_PERIOD":   "500ms",
		"PORTWATCH_REDIS_URL":            "redis://localhost:6379/0",
		"UNRELATED_PORTWATCH_CAPACITY":   "1",
		"PORTWATCH_SYMBOLS_PRIORITY":     "3",
		"PORTWATCH_CREDENTIALS_FILE":     "/etc/portwatch/keys.json",
		"PORTWATCH_PYROSCOPE_ADDR":       "http://pyroscope:4040",
		"PORTWATCH_BALANCES_PERIOD":      "90s",
		"PORTWATCH_BALANCES_WEIGHT":      "5",
		"PORTWATCH_BALANCES_PRIORITY":    "0",
		"PORTWATCH_OPEN_ORDERS_PERIOD":   "30s",
		"PORTWATCH_OPEN_ORDERS_PRIORITY": "2",
	})
	require.NoError(t, err)

	assert.Equal(t, "ETH", cfg.Base)
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Tick)
	assert.Equal(t, 10, cfg.OpenOrders.Weight)
	assert.Equal(t, 30*time.Second, cfg.OpenOrders.Period)
	assert.Equal(t, 500*time.Millisecond, cfg.PriceTable.Period)
	assert.Equal(t, 90*time.Second, cfg.Balances.Period)
	assert.Equal(t, 3, cfg.Symbols.Priority)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisUrl)
	assert.Equal(t, "/etc/portwatch/keys.json", cfg.CredentialsFile)
}

func TestLoadFromInvalid(t *testing.T) {
	testCases := []struct {
		desc string
		env  map[string]string
		want error
	}{
		{"weight above capacity", map[string]string{"PORTWATCH_CAPACITY": "3"}, exception.ErrCallTooHeavy},
		{"zero capacity", map[string]string{"PORTWATCH_CAPACITY": "0"}, exception.ErrInvalidBudget},
		{"zero weight", map[string]string{"PORTWATCH_SYMBOLS_WEIGHT": "0"}, exception.ErrInvalidCall},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := LoadFrom(tc.env)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := LoadFrom(map[string]string{"PORTWATCH_TICK": "soon"})
	require.Error(t, err)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiKeys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentialsFile(t *testing.T) {
	path := writeFile(t, `[{"api_key":"key-1","api_secret":"secret-1"},{"api_key":"key-2","api_secret":"secret-2"}]`)

	token, err := LoadCredentialsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key-1", token.Key.String())
	assert.Equal(t, "secret-1", token.Secret.String())
}

func TestLoadCredentialsFileErrors(t *testing.T) {
	testCases := []struct {
		desc string
		path string
		want error
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.json"), exception.ErrNotConfigured},
		{"no path", "", exception.ErrNotConfigured},
		{"malformed json", writeFile(t, `{"api_key":`), exception.ErrMalformedCredential},
		{"empty list", writeFile(t, `[]`), exception.ErrMalformedCredential},
		{"blank secret", writeFile(t, `[{"api_key":"k","api_secret":"  "}]`), exception.ErrMalformedCredential},
		{"secret too long", writeFile(t, `[{"api_key":"k","api_secret":"`+strings.Repeat("s", 65)+`"}]`), exception.ErrMalformedCredential},
		{"key with NUL", writeFile(t, `[{"api_key":"k\u0000ey","api_secret":"s"}]`), exception.ErrMalformedCredential},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := LoadCredentialsFile(tc.path)
			require.ErrorIs(t, err, tc.want)

			var ce *exception.ConfigError
			require.True(t, errors.As(err, &ce))
		})
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	cfg := Default()
	cfg.ApiKey = "env-key"
	cfg.ApiSecret = "env-secret"
	cfg.CredentialsFile = ""

	token, err := cfg.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "env-key", token.Key.String())

	cfg.ApiSecret = ""
	_, err = cfg.LoadCredentials()
	require.ErrorIs(t, err, exception.ErrMalformedCredential)

	cfg.ApiSecret = strings.Repeat("s", 80)
	_, err = cfg.LoadCredentials()
	require.ErrorIs(t, err, exception.ErrMalformedCredential)

	cfg.ApiSecret = strings.Repeat("s", 64)
	token, err = cfg.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, cfg.ApiSecret, token.Secret.String())
}
