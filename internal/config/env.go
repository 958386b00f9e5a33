package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: Password is prompted at runtime and stored in memory - use GetWalletPasswordBytes()
type Config struct {
	Port            string `envconfig:"PORT" default:"8080"`
	WalletFilePath  string `envconfig:"WALLET_FILE_PATH" required:"true"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	StrictContracts bool   `envconfig:"STRICT_CONTRACTS" default:"false"`
	WatchDebounceMS int    `envconfig:"WATCH_DEBOUNCE_MS" default:"150"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Validate checks values envconfig cannot check by itself
func (c *Config) Validate() error {
	if filepath.Ext(c.WalletFilePath) != ".cwt" {
		return errors.New("WALLET_FILE_PATH must have .cwt extension")
	}
	if c.WatchDebounceMS < 0 {
		return errors.New("WATCH_DEBOUNCE_MS cannot be negative")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetWalletFilePath returns path to .cwt file from configuration
func GetWalletFilePath() string {
	return Get().WalletFilePath
}

// GetLogLevel returns log level name from configuration
func GetLogLevel() string {
	return Get().LogLevel
}

// GetStrictContracts reports whether contract violations should panic
func GetStrictContracts() bool {
	return Get().StrictContracts
}

// GetWatchDebounce returns how long wallet file events are coalesced
func GetWatchDebounce() time.Duration {
	return time.Duration(Get().WatchDebounceMS) * time.Millisecond
}

var passwordBytes []byte

// PromptForPassword prompts the user for the wallet password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter wallet password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer clear(raw)

	return SetPassword(raw)
}

// SetPassword stores a copy of password in memory
func SetPassword(password []byte) error {
	if len(password) == 0 {
		return errors.New("password cannot be empty")
	}

	clear(passwordBytes)
	passwordBytes = make([]byte, len(password))
	copy(passwordBytes, password)
	return nil
}

// ClearPassword wipes the stored password
func ClearPassword() {
	clear(passwordBytes)
	passwordBytes = nil
}

// GetWalletPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetWalletPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
