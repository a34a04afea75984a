// Package secrets stores provider tokens, preferring the OS credential
// store and falling back to an AES-256-GCM encrypted file when no keychain
// integration is available on the platform.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// service is the keychain service name all records are stored under.
const service = "lazyreview"

// Backend identifies which storage tier held or received a secret.
type Backend string

const (
	BackendKeychain Backend = "keychain"
	BackendFile     Backend = "file"
)

// Store persists secrets under account keys. Safe for a single process;
// the file tier rewrites its map wholesale on every mutation.
type Store struct {
	dir  string
	ring keyringClient
}

// keyringClient mirrors the go-keyring package functions so tests can
// substitute an unavailable or failing keychain.
type keyringClient interface {
	Set(service, account, secret string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

type systemKeyring struct{}

func (systemKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// NewStore creates a secret store. dir holds the file-tier key and data
// files and is created lazily on first fallback write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, ring: systemKeyring{}}
}

// Account derives the storage key for a provider/host pair.
func Account(provider model.ProviderType, host string) string {
	return string(provider) + ":" + host
}

// keychainUnavailable reports whether the error means the keychain
// integration itself cannot be used on this platform, as opposed to an
// operation that genuinely failed. Only the former triggers file fallback.
func keychainUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return true
	}
	// On Linux the Secret Service may simply not be running (headless
	// hosts, containers). go-keyring surfaces that as a D-Bus error.
	msg := err.Error()
	return strings.Contains(msg, "org.freedesktop.secrets") || strings.Contains(msg, "dbus")
}

// Set stores a secret and reports which backend received it. A keychain
// write error other than integration absence is surfaced, not masked by
// the fallback.
func (s *Store) Set(account, secret string) (Backend, error) {
	err := s.ring.Set(service, account, secret)
	if err == nil {
		return BackendKeychain, nil
	}
	if !keychainUnavailable(err) {
		return BackendKeychain, err
	}
	if err := s.fileSet(account, secret); err != nil {
		return BackendFile, err
	}
	return BackendFile, nil
}

// Get retrieves a secret. A missing account returns ("", nil) rather than
// an error; both backends are consulted so secrets written during a
// keychain outage are still found.
func (s *Store) Get(account string) (string, error) {
	secret, err := s.ring.Get(service, account)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) && !keychainUnavailable(err) {
		return "", err
	}
	return s.fileGet(account)
}

// Delete removes a secret from whichever backend holds it; deleting an
// account that was never stored is a no-op.
func (s *Store) Delete(account string) (Backend, error) {
	backend := BackendKeychain
	err := s.ring.Delete(service, account)
	switch {
	case err == nil:
	case errors.Is(err, keyring.ErrNotFound):
		backend = BackendFile
	case keychainUnavailable(err):
		backend = BackendFile
	default:
		return BackendKeychain, err
	}

	if err := s.fileDelete(account); err != nil {
		return backend, err
	}
	return backend, nil
}
