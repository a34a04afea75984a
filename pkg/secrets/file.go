package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	keyFileName  = "secrets.key"
	dataFileName = "secrets.json"

	// keySize is AES-256.
	keySize = 32
)

// ErrDecrypt is returned when a stored ciphertext or the key file is
// corrupted. The store never guesses at a secret's contents.
var ErrDecrypt = errors.New("cannot decrypt stored secret")

// loadOrCreateKey returns the file-tier symmetric key, generating it on
// first use. The key is never rotated; losing it invalidates all
// file-backed secrets.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	keyPath := filepath.Join(s.dir, keyFileName)

	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != keySize {
			return nil, fmt.Errorf("%w: key file %s has %d bytes, want %d", ErrDecrypt, keyPath, len(key), keySize)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create secrets directory: %w", err)
	}
	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

// readMap loads the account→ciphertext map; a missing data file is an
// empty map.
func (s *Store) readMap() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, dataFileName))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}
	return m, nil
}

// writeMap rewrites the whole map with owner-only permissions. The chmod
// re-asserts the mode for files created before the permission invariant.
func (s *Store) writeMap(m map[string]string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}

	dataPath := filepath.Join(s.dir, dataFileName)
	if err := os.WriteFile(dataPath, data, 0600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err := os.Chmod(dataPath, 0600); err != nil {
		return fmt.Errorf("chmod secrets file: %w", err)
	}
	return nil
}

func (s *Store) fileSet(account, secret string) error {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	m, err := s.readMap()
	if err != nil {
		return err
	}

	sealed, err := encrypt(key, secret)
	if err != nil {
		return err
	}
	m[account] = sealed
	return s.writeMap(m)
}

func (s *Store) fileGet(account string) (string, error) {
	m, err := s.readMap()
	if err != nil {
		return "", err
	}
	sealed, ok := m[account]
	if !ok {
		return "", nil
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return "", err
	}
	return decrypt(key, sealed)
}

func (s *Store) fileDelete(account string) error {
	m, err := s.readMap()
	if err != nil {
		return err
	}
	if _, ok := m[account]; !ok {
		return nil
	}
	delete(m, account)
	return s.writeMap(m)
}

// encrypt seals the secret with AES-256-GCM under a fresh random nonce and
// returns base64(nonce ‖ ciphertext‖tag).
func encrypt(key []byte, secret string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt reverses encrypt. Any corruption, including a flipped ciphertext
// byte caught by the auth tag, yields ErrDecrypt.
func decrypt(key []byte, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}

	if len(data) < gcm.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
