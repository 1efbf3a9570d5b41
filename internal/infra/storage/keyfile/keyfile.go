// Package keyfile implements the wallet's encrypted storage tier: the wallet
// secret persisted as a single passphrase-encrypted file on local disk. Salt
// and nonce are regenerated on every write, and writes go through a temp
// file plus rename so a crash never leaves a half-written secret behind.
package keyfile

import (
	"context"
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

	"github.com/gabapcia/walletcore/internal/secretvault"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters sized for interactive unlock on mobile hardware. N=2^18
// needs roughly 256MB during derivation, which stays within per-app memory
// limits on Android while keeping brute force expensive.
const (
	defaultScryptN = 1 << 18
	defaultScryptR = 8
	defaultScryptP = 1

	keyLen   = 32
	saltLen  = 32
	nonceLen = 12
)

// envelope is the on-disk JSON structure wrapping the encrypted secret.
type envelope struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"ciphertext"`
}

// envelopeVersion is bumped whenever the on-disk format changes.
const envelopeVersion = 1

// Store persists the wallet secret to an encrypted file.
type Store struct {
	path       string
	passphrase []byte

	scryptN int
	scryptR int
	scryptP int
}

// Compile-time assertion to ensure *Store satisfies the secretvault.SecretStorage interface
var _ secretvault.SecretStorage = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithScryptParams overrides the key derivation cost parameters. Lowering
// them is only acceptable in tests.
func WithScryptParams(n, r, p int) Option {
	return func(s *Store) {
		s.scryptN = n
		s.scryptR = r
		s.scryptP = p
	}
}

// New creates a Store writing to path, encrypting with a key derived from
// passphrase. The file may not exist yet.
func New(path string, passphrase []byte, opts ...Option) *Store {
	s := &Store{
		path:       path,
		passphrase: passphrase,
		scryptN:    defaultScryptN,
		scryptR:    defaultScryptR,
		scryptP:    defaultScryptP,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) deriveKey(salt []byte) ([]byte, error) {
	return scrypt.Key(s.passphrase, salt, s.scryptN, s.scryptR, s.scryptP, keyLen)
}

// Load implements the secretvault.SecretStorage interface.
//
// A missing file maps to secretvault.ErrSecretNotFound. Any failure to
// decode or decrypt an existing file maps to secretvault.ErrSecretCorrupted:
// the file exists, so a wallet is present, but its contents are unreadable.
func (s *Store) Load(ctx context.Context) (*secretvault.WalletSecret, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, secretvault.ErrSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", secretvault.ErrSecretCorrupted, err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed salt: %v", secretvault.ErrSecretCorrupted, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed nonce: %v", secretvault.ErrSecretCorrupted, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext: %v", secretvault.ErrSecretCorrupted, err)
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed: %v", secretvault.ErrSecretCorrupted, err)
	}
	defer clear(plaintext)

	var secret secretvault.WalletSecret
	if err := json.Unmarshal(plaintext, &secret); err != nil {
		return nil, fmt.Errorf("%w: malformed secret: %v", secretvault.ErrSecretCorrupted, err)
	}

	return &secret, nil
}

// Save implements the secretvault.SecretStorage interface.
//
// The envelope is written to a temp file in the same directory and renamed
// into place, so readers only ever observe a complete file.
func (s *Store) Save(ctx context.Context, secret secretvault.WalletSecret) error {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := s.deriveKey(salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}
	defer clear(plaintext)

	data, err := json.Marshal(envelope{
		Version:    envelopeVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(aesGCM.Seal(nil, nonce, plaintext, nil)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return s.writeAtomically(data)
}

// Delete implements the secretvault.SecretStorage interface. Deleting an
// absent file is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete secret file: %w", err)
	}

	return nil
}

func (s *Store) writeAtomically(data []byte) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict temp file permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move secret file into place: %w", err)
	}

	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}
