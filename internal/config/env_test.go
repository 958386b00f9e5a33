package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	t.Setenv("WALLET_FILE_PATH", "/tmp/wallet.cwt")

	require.NoError(t, Init())

	assert.Equal(t, "8080", GetPort())
	assert.Equal(t, "/tmp/wallet.cwt", GetWalletFilePath())
	assert.Equal(t, "info", GetLogLevel())
	assert.False(t, GetStrictContracts())
	assert.Equal(t, 150*time.Millisecond, GetWatchDebounce())
}

func TestInit_Overrides(t *testing.T) {
	t.Setenv("WALLET_FILE_PATH", "/tmp/wallet.cwt")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STRICT_CONTRACTS", "true")
	t.Setenv("WATCH_DEBOUNCE_MS", "0")

	require.NoError(t, Init())

	assert.Equal(t, "9090", GetPort())
	assert.Equal(t, "debug", GetLogLevel())
	assert.True(t, GetStrictContracts())
	assert.Zero(t, GetWatchDebounce())
}

func TestInit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{name: "missing path", path: ""},
		{name: "wrong extension", path: "/tmp/wallet.json"},
		{name: "negative debounce", path: "/tmp/wallet.cwt", env: map[string]string{"WATCH_DEBOUNCE_MS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WALLET_FILE_PATH", tt.path)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, Init())
		})
	}
}

func TestPassword(t *testing.T) {
	t.Cleanup(ClearPassword)

	ClearPassword()
	_, err := GetWalletPasswordBytes()
	require.Error(t, err)

	require.Error(t, SetPassword(nil))

	source := []byte("dev")
	require.NoError(t, SetPassword(source))
	clear(source)

	first, err := GetWalletPasswordBytes()
	require.NoError(t, err)
	assert.Equal(t, "dev", string(first))

	// Callers get independent copies
	clear(first)
	second, err := GetWalletPasswordBytes()
	require.NoError(t, err)
	assert.Equal(t, "dev", string(second))
}
