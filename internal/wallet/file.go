// Package wallet provides the encrypted wallet backed by a .cwt file.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/seedvault/internal/crypto"
	"github.com/AlexZinkM/seedvault/solana"

	"github.com/zeebo/blake3"
)

// ErrNoStoredWallet is returned by Decrypt before any wallet was created
var ErrNoStoredWallet = errors.New("no stored wallet")

// PasswordFunc returns a fresh copy of the wallet password.
// The wallet clears the copy after use.
type PasswordFunc func() ([]byte, error)

// FileWallet is an encrypted wallet stored in a single .cwt file
type FileWallet struct {
	path     string
	password PasswordFunc
}

// NewFileWallet creates a FileWallet for path
func NewFileWallet(path string, password PasswordFunc) *FileWallet {
	return &FileWallet{
		path:     path,
		password: password,
	}
}

// Path returns the .cwt file path
func (w *FileWallet) Path() string {
	return w.path
}

// HasStoredWallet reports whether the .cwt file exists and is not empty
func (w *FileWallet) HasStoredWallet() bool {
	fileInfo, err := os.Stat(w.path)
	return err == nil && fileInfo.Size() > 0
}

// StorageID identifies the stored wallet: empty when there is none,
// otherwise the BLAKE3 hash of the envelope. A new wallet written to the
// same path gets a new ID because salt and nonce are fresh.
func (w *FileWallet) StorageID() string {
	if !w.HasStoredWallet() {
		return ""
	}

	data, err := os.ReadFile(w.path)
	if err != nil || len(data) == 0 {
		return ""
	}

	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CreateWallet generates and stores a new wallet. No-op when one exists.
func (w *FileWallet) CreateWallet(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.HasStoredWallet() {
		return nil
	}

	password, err := w.password()
	if err != nil {
		return err
	}
	defer clear(password) // Always clear password from memory

	if _, err := solana.GenerateWallet(w.path, password); err != nil {
		// Somebody else created it first
		if solana.IsFileExistsError(err) {
			return nil
		}
		return err
	}

	return nil
}

// Decrypt returns the wallet mnemonic. Caller owns the slice and must clear it.
func (w *FileWallet) Decrypt(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !w.HasStoredWallet() {
		return nil, ErrNoStoredWallet
	}

	password, err := w.password()
	if err != nil {
		return nil, err
	}
	defer clear(password) // Always clear password from memory

	cwtFile, walletData, err := crypto.DecryptWallet(w.path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt wallet: %w", err)
	}

	// Verify mnemonic matches the published address
	address, err := solana.AddressFromMnemonic(walletData.Mnemonic)
	if err != nil || address != cwtFile.Address {
		clear(walletData.Mnemonic)
		return nil, errors.New("mnemonic does not match address")
	}

	return walletData.Mnemonic, nil
}
