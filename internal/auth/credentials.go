// internal/auth/credentials.go
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "westie-scraper"
	// FallbackDir is the directory for file-based storage (when keyring fails)
	FallbackDir = ".westie/credentials"

	emailKey = "login-email"
)

// ErrNoCredentials is returned when no login e-mail has been stored.
var ErrNoCredentials = errors.New("no stored credentials")

// CredentialStore keeps the login e-mail in the OS keyring, or in a private
// file where no keyring is available (Codespaces, CI, headless servers).
type CredentialStore struct {
	dir     string
	useFile bool
}

// NewCredentialStore probes the keyring once and picks the backend.
func NewCredentialStore() (*CredentialStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return &CredentialStore{
		dir:     filepath.Join(home, FallbackDir),
		useFile: useFileBasedStorage(),
	}, nil
}

// Backend names the storage in use, for display.
func (s *CredentialStore) Backend() string {
	if s.useFile {
		return "file:" + s.dir
	}
	return "keyring"
}

func useFileBasedStorage() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}

	testKey := "_test_keyring_access_"
	if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
		return true
	}
	_ = keyring.Delete(KeyringService, testKey)
	return false
}

func (s *CredentialStore) path() (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, emailKey), nil
}

// SaveEmail stores the login e-mail.
func (s *CredentialStore) SaveEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid e-mail address %q", email)
	}

	if s.useFile {
		path, err := s.path()
		if err != nil {
			return fmt.Errorf("failed to prepare credential directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(email), 0o600); err != nil {
			return fmt.Errorf("failed to save credential file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, emailKey, email); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// LoadEmail returns the stored e-mail or ErrNoCredentials.
func (s *CredentialStore) LoadEmail() (string, error) {
	if s.useFile {
		path, err := s.path()
		if err != nil {
			return "", fmt.Errorf("failed to prepare credential directory: %w", err)
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoCredentials
		}
		if err != nil {
			return "", fmt.Errorf("failed to load credential file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	email, err := keyring.Get(KeyringService, emailKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load from keyring: %w", err)
	}
	return email, nil
}

// DeleteEmail removes the stored e-mail. Deleting nothing is not an error.
func (s *CredentialStore) DeleteEmail() error {
	if s.useFile {
		path, err := s.path()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete credential file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, emailKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
