package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AlexZinkM/seedvault/internal/crypto"
	"github.com/AlexZinkM/seedvault/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
	"github.com/tyler-smith/go-bip39"
)

const (
	networkSolana  = "solana"
	entropyBitSize = 128 // 12 words
)

// FileExistsError is an error when file already exists and is not empty
type FileExistsError struct {
	Message string
}

func (e *FileExistsError) Error() string {
	return e.Message
}

// IsFileExistsError checks if error is FileExistsError
func IsFileExistsError(err error) bool {
	var target *FileExistsError
	return errors.As(err, &target)
}

// GenerateWallet generates a new mnemonic-backed Solana wallet and saves it to .cwt file.
// Returns the generated public address on success.
// password must be []byte for security (caller should zero it after use)
func GenerateWallet(filePath string, password []byte) (address string, err error) {
	// Check file extension (.cwt)
	if filepath.Ext(filePath) != ".cwt" {
		return "", fmt.Errorf("file must have .cwt extension")
	}

	// Check file existence
	if fileInfo, err := os.Stat(filePath); err == nil && fileInfo.Size() > 0 {
		return "", &FileExistsError{Message: "file is not empty"}
	}

	// Generate mnemonic for memorization and backup
	entropy, err := bip39.NewEntropy(entropyBitSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	// Mnemonic stored as []byte (will be base64 encoded in JSON)
	walletData := &model.WalletData{
		Mnemonic:  []byte(mnemonic),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer clear(walletData.Mnemonic)

	address, err = AddressFromMnemonic(walletData.Mnemonic)
	if err != nil {
		return "", err
	}

	qrCode, err := generateQRCode(address)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Encrypt and write to file
	if err := crypto.EncryptWallet(filePath, networkSolana, address, qrCode, walletData, password); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", &FileExistsError{Message: "file is not empty"}
		}
		return "", fmt.Errorf("failed to encrypt wallet: %w", err)
	}

	return address, nil
}

// AddressFromMnemonic derives the Solana address the way solana-keygen does
// without a derivation path: ed25519 key from the first 32 bytes of the
// BIP-39 seed (empty passphrase).
func AddressFromMnemonic(mnemonic []byte) (string, error) {
	phrase := string(mnemonic)
	if !bip39.IsMnemonicValid(phrase) {
		return "", errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(phrase, "")
	defer clear(seed)

	privateKey := solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]))
	defer clear(privateKey)

	return privateKey.PublicKey().String(), nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
