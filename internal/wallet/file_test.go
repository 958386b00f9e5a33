package wallet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tyler-smith/go-bip39"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticPassword(p string) PasswordFunc {
	return func() ([]byte, error) {
		return []byte(p), nil
	}
}

func TestFileWallet_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	w := NewFileWallet(path, staticPassword("dev"))
	ctx := context.Background()

	assert.Equal(t, path, w.Path())
	assert.False(t, w.HasStoredWallet())
	assert.Empty(t, w.StorageID())

	_, err := w.Decrypt(ctx)
	require.ErrorIs(t, err, ErrNoStoredWallet)

	require.NoError(t, w.CreateWallet(ctx))
	assert.True(t, w.HasStoredWallet())

	id := w.StorageID()
	assert.Len(t, id, 64)

	// Idempotent: the stored wallet is left untouched
	require.NoError(t, w.CreateWallet(ctx))
	assert.Equal(t, id, w.StorageID())

	mnemonic, err := w.Decrypt(ctx)
	require.NoError(t, err)
	defer clear(mnemonic)
	assert.True(t, bip39.IsMnemonicValid(string(mnemonic)))
}

func TestFileWallet_StorageIDFollowsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	w := NewFileWallet(path, staticPassword("dev"))

	require.NoError(t, os.WriteFile(path, []byte(`{"address":"a"}`), 0600))
	first := w.StorageID()

	require.NoError(t, os.WriteFile(path, []byte(`{"address":"b"}`), 0600))
	second := w.StorageID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)

	require.NoError(t, os.Remove(path))
	assert.Empty(t, w.StorageID())
}

func TestFileWallet_PasswordError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	passwordErr := errors.New("password not set")
	w := NewFileWallet(path, func() ([]byte, error) { return nil, passwordErr })

	err := w.CreateWallet(context.Background())
	assert.ErrorIs(t, err, passwordErr)
	assert.False(t, w.HasStoredWallet())
}

func TestFileWallet_CanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	w := NewFileWallet(path, staticPassword("dev"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.CreateWallet(ctx), context.Canceled)
	_, err := w.Decrypt(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
