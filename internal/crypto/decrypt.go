package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/seedvault/internal/model"
)

var (
	// ErrFileNotExist is returned when the .cwt file is missing
	ErrFileNotExist = errors.New("file does not exist")
	// ErrFileEmpty is returned when the .cwt file has no content
	ErrFileEmpty = errors.New("file is empty")
	// ErrInvalidPassword is returned when the ciphertext does not open
	ErrInvalidPassword = errors.New("invalid password")
)

// DecryptWallet reads and decrypts .cwt file
// password must be []byte for security (caller should zero it after use)
// Caller must clear walletData.Mnemonic after use.
func DecryptWallet(filePath string, password []byte) (*model.CWTFile, *model.WalletData, error) {
	cwtFile, err := ReadWalletEnvelope(filePath)
	if err != nil {
		return nil, nil, err
	}

	// Decode salt and nonce
	salt, err := base64.StdEncoding.DecodeString(cwtFile.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(cwtFile.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(cwtFile.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != aesGCM.NonceSize() {
		return nil, nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, ErrInvalidPassword
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var walletData model.WalletData
	if err := json.Unmarshal(plaintext, &walletData); err != nil {
		// Do not wrap: the json error can quote plaintext
		return nil, nil, errors.New("failed to unmarshal wallet data")
	}

	return cwtFile, &walletData, nil
}

// ReadWalletEnvelope reads the public part of .cwt file (without decryption)
func ReadWalletEnvelope(filePath string) (*model.CWTFile, error) {
	fileData, err := readWalletFile(filePath)
	if err != nil {
		return nil, err
	}

	var cwtFile model.CWTFile
	if err := json.Unmarshal(fileData, &cwtFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cwt file: %w", err)
	}

	return &cwtFile, nil
}

// ReadWalletAddress reads only the address from .cwt file (without decryption)
func ReadWalletAddress(filePath string) (string, error) {
	cwtFile, err := ReadWalletEnvelope(filePath)
	if err != nil {
		return "", err
	}
	return cwtFile.Address, nil
}

// readWalletFile returns file bytes with the UTF-8 BOM stripped
func readWalletFile(filePath string) ([]byte, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotExist
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, ErrFileEmpty
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return bytes.TrimPrefix(fileData, utf8BOM), nil
}
