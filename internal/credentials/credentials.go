// Package credentials stores repository passwords in age files encrypted
// to a passphrase.
package credentials

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// DefaultWorkFactor is age's scrypt work factor (log2 N) for new files.
const DefaultWorkFactor = 18

// Store seals and opens password files.
type Store struct {
	workFactor int
}

type Option func(*Store)

// WithWorkFactor sets the scrypt work factor used by Seal. Tests use a
// small value.
func WithWorkFactor(logN int) Option {
	return func(s *Store) { s.workFactor = logN }
}

func NewStore(opts ...Option) *Store {
	s := &Store{workFactor: DefaultWorkFactor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seal encrypts secret with passphrase and writes it to path, replacing any
// existing file.
func (s *Store) Seal(path, passphrase, secret string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(s.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, secret); err != nil {
		return fmt.Errorf("writing encrypted secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cred-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting credentials permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming credentials file: %w", err)
	}
	return nil
}

// Open decrypts the secret stored at path.
func (s *Store) Open(path, passphrase string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credentials file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting credentials: %w", err)
	}
	secret, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted credentials: %w", err)
	}
	return strings.TrimRight(string(secret), "\n"), nil
}

// PassphraseFunc supplies the passphrase for a credentials file.
type PassphraseFunc func(prompt string) (string, error)

// EnvPassphrase returns a PassphraseFunc that reads the environment
// variable name and falls back to next when it is unset.
func EnvPassphrase(name string, next PassphraseFunc) PassphraseFunc {
	return func(prompt string) (string, error) {
		if v, ok := os.LookupEnv(name); ok {
			return v, nil
		}
		if next == nil {
			return "", fmt.Errorf("%s is not set", name)
		}
		return next(prompt)
	}
}
