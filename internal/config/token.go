package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
)

const serviceName = "notion-cli"

// ErrTokenNotFound is returned when no integration token has been stored.
var ErrTokenNotFound = errors.New("no integration token found; run 'notion-cli auth setup --token <token>' first")

// TokenStore keeps integration tokens in the OS keyring, falling back to an
// encrypted file store where no native keyring is available.
type TokenStore struct {
	ring          keyring.Keyring
	usingFallback bool
}

// NewTokenStore opens the keyring with platform-appropriate backends.
func NewTokenStore(configDir string) (*TokenStore, error) {
	backends := backendsForPlatform()

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      serviceName,
		AllowedBackends:  backends,
		FileDir:          filepath.Join(configDir, "keyring"),
		FilePasswordFunc: keyring.FixedStringPrompt(filePassword()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &TokenStore{
		ring:          ring,
		usingFallback: len(backends) == 1 && backends[0] == keyring.FileBackend,
	}, nil
}

func backendsForPlatform() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.FileBackend}
	case "linux":
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.FileBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend, keyring.FileBackend}
	default:
		return []keyring.BackendType{keyring.FileBackend}
	}
}

// filePassword derives the file-backend password from host identity, so the
// fallback store is at least bound to the machine it was written on.
func filePassword() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return serviceName + ":" + host
}

// IsUsingFallback reports whether tokens are stored in the file backend
// instead of a native OS keyring.
func (s *TokenStore) IsUsingFallback() bool {
	return s.usingFallback
}

// SetToken stores the integration token for an account.
func (s *TokenStore) SetToken(accountID, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	err := s.ring.Set(keyring.Item{
		Key:         accountID,
		Data:        []byte(token),
		Label:       fmt.Sprintf("notion-cli: %s", accountID),
		Description: "Notion integration token",
	})
	if err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}

// Token retrieves the integration token for an account. The NOTION_TOKEN
// environment variable always takes precedence over the stored token.
func (s *TokenStore) Token(accountID string) (string, error) {
	if env := EnvToken(); env != "" {
		return env, nil
	}

	item, err := s.ring.Get(accountID)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return string(item.Data), nil
}

// DeleteToken removes an account's token. Deleting a missing token is not
// an error.
func (s *TokenStore) DeleteToken(accountID string) error {
	err := s.ring.Remove(accountID)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
