// Package credentials provides secure secret storage for the lumina CLI.
// It stores the SMTP password and the calendar OAuth token encrypted at rest
// in ~/.lumina/credentials.yaml.
//
// Encryption Key Storage:
// The encryption key lives in the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// For CI/testing environments, set LUMINA_ENCRYPTION_KEY to a 64-character
// hex string (32 bytes).
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential storage constants.
const (
	DefaultCredentialsDir  = ".lumina"
	DefaultCredentialsFile = "credentials.yaml"

	// SecretSMTPPassword is the SMTP account password.
	SecretSMTPPassword = "smtp_password"
	// SecretCalendarToken is the calendar API OAuth token (JSON blob).
	SecretCalendarToken = "calendar_token"
)

// Common errors.
var (
	// ErrNoCredentials is returned when no credentials are stored.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrSecretNotFound is returned when the named secret is not stored.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrEncryptionFailed is returned when encryption/decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// credentialsFile is the on-disk YAML layout. Values are AES-GCM encrypted
// and base64 encoded.
type credentialsFile struct {
	Secrets     map[string]string `yaml:"secrets"`
	LastUpdated time.Time         `yaml:"last_updated"`
}

// Store manages credential storage operations.
type Store struct {
	credentialsDir string
	encryptionKey  []byte
}

// NewStore creates a credential store using the default key provider.
func NewStore() (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}

	keyProvider, err := GetDefaultKeyProvider()
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}

	key, err := keyProvider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}

	return &Store{credentialsDir: dir, encryptionKey: key}, nil
}

// NewStoreWithKey creates a credential store with an explicit key and
// directory. Used by tests.
func NewStoreWithKey(dir string, key []byte) *Store {
	return &Store{credentialsDir: dir, encryptionKey: key}
}

// CredentialsDir returns the credentials directory path.
// Uses $LUMINA_CONFIG_DIR if set, otherwise ~/.lumina
func CredentialsDir() (string, error) {
	if dir := os.Getenv("LUMINA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultCredentialsDir), nil
}

func (s *Store) credentialsPath() string {
	return filepath.Join(s.credentialsDir, DefaultCredentialsFile)
}

// Set encrypts and stores a named secret.
func (s *Store) Set(name, value string) error {
	file, err := s.load()
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return err
	}
	if file == nil {
		file = &credentialsFile{Secrets: make(map[string]string)}
	}

	encrypted, err := s.encrypt(value)
	if err != nil {
		return err
	}

	file.Secrets[name] = encrypted
	file.LastUpdated = time.Now()
	return s.save(file)
}

// Get decrypts and returns a named secret.
func (s *Store) Get(name string) (string, error) {
	file, err := s.load()
	if err != nil {
		return "", err
	}

	encrypted, ok := file.Secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return s.decrypt(encrypted)
}

// Delete removes a named secret. Deleting an absent secret is not an error.
func (s *Store) Delete(name string) error {
	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil
		}
		return err
	}

	delete(file.Secrets, name)
	file.LastUpdated = time.Now()
	return s.save(file)
}

// List returns the names of stored secrets.
func (s *Store) List() ([]string, error) {
	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(file.Secrets))
	for name := range file.Secrets {
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) load() (*credentialsFile, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if file.Secrets == nil {
		file.Secrets = make(map[string]string)
	}
	return &file, nil
}

func (s *Store) save(file *credentialsFile) error {
	if err := os.MkdirAll(s.credentialsDir, 0o700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(s.credentialsPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// encrypt seals a plaintext value with AES-256-GCM and encodes it base64.
func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt reverses encrypt.
func (s *Store) decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}
