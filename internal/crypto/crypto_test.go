package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/seedvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	scryptN = 1 << 10
	os.Exit(m.Run())
}

func writeTestWallet(t *testing.T, password string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wallet.cwt")
	data := &model.WalletData{
		Mnemonic:  []byte("abandon ability able about above absent absorb abstract absurd abuse access accident"),
		CreatedAt: "2026-01-02T03:04:05Z",
	}
	require.NoError(t, EncryptWallet(path, "solana", "addr1", "qr-png", data, []byte(password)))
	return path
}

func TestEncryptDecrypt(t *testing.T) {
	path := writeTestWallet(t, "dev")

	cwtFile, walletData, err := DecryptWallet(path, []byte("dev"))
	require.NoError(t, err)

	assert.Equal(t, "solana", cwtFile.Network)
	assert.Equal(t, "addr1", cwtFile.Address)
	assert.Equal(t, "qr-png", cwtFile.QR)
	assert.Equal(t, "2026-01-02T03:04:05Z", walletData.CreatedAt)
	assert.Contains(t, string(walletData.Mnemonic), "abandon ability")
}

func TestEncryptWallet_FileMode(t *testing.T) {
	path := writeTestWallet(t, "dev")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, raw[:3])
	assert.NotContains(t, string(raw), "abandon")
}

func TestEncryptWallet_Rejects(t *testing.T) {
	data := &model.WalletData{Mnemonic: []byte("seed")}

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wallet.txt")
		assert.Error(t, EncryptWallet(path, "solana", "a", "", data, []byte("dev")))
	})

	t.Run("non-empty file", func(t *testing.T) {
		path := writeTestWallet(t, "dev")
		err := EncryptWallet(path, "solana", "a", "", data, []byte("dev"))
		assert.ErrorIs(t, err, os.ErrExist)
	})

	t.Run("empty file is reused", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wallet.cwt")
		require.NoError(t, os.WriteFile(path, nil, 0600))
		assert.NoError(t, EncryptWallet(path, "solana", "a", "", data, []byte("dev")))
	})
}

func TestDecryptWallet_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := DecryptWallet(filepath.Join(t.TempDir(), "none.cwt"), []byte("dev"))
		assert.ErrorIs(t, err, ErrFileNotExist)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wallet.cwt")
		require.NoError(t, os.WriteFile(path, nil, 0600))
		_, _, err := DecryptWallet(path, []byte("dev"))
		assert.ErrorIs(t, err, ErrFileEmpty)
	})

	t.Run("wrong password", func(t *testing.T) {
		path := writeTestWallet(t, "dev")
		_, _, err := DecryptWallet(path, []byte("nope"))
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wallet.cwt")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		_, _, err := DecryptWallet(path, []byte("dev"))
		assert.Error(t, err)
	})
}

func TestReadWalletAddress(t *testing.T) {
	path := writeTestWallet(t, "dev")

	address, err := ReadWalletAddress(path)
	require.NoError(t, err)
	assert.Equal(t, "addr1", address)

	// No BOM is accepted too
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	plain := filepath.Join(t.TempDir(), "plain.cwt")
	require.NoError(t, os.WriteFile(plain, raw[3:], 0600))

	address, err = ReadWalletAddress(plain)
	require.NoError(t, err)
	assert.Equal(t, "addr1", address)
}
