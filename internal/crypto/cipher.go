package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// NonceSize is the GCM nonce length in bytes, prefixed to every ciphertext.
const NonceSize = 12

// ErrDecryptFailed is returned when a ciphertext cannot be authenticated or
// decrypted. Callers must not guess at the plaintext; the record is corrupt
// or was encrypted under a different key.
var ErrDecryptFailed = errors.New("decryption failed")

// Cipher provides AES-256-GCM authenticated encryption for question content.
// Every call uses a fresh random nonce, stored as the ciphertext prefix.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from the configured secret. If the secret is a base64
// encoding of exactly 32 bytes it is used as the key directly; any other
// string has a 256-bit key derived from it via HKDF-SHA256 so that
// operator-supplied passphrases of any length are usable.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}

	key := make([]byte, KeySize)
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == KeySize {
		copy(key, raw)
	} else {
		kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("proctorhub-question-store"))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// GenerateKey returns a fresh random 256-bit key, base64-encoded for
// storage in configuration.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens nonce||ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, ErrDecryptFailed
	}
	plaintext, err := c.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// EncryptString seals a UTF-8 string.
func (c *Cipher) EncryptString(s string) ([]byte, error) {
	return c.Encrypt([]byte(s))
}

// DecryptString opens a ciphertext and returns it as a string.
func (c *Cipher) DecryptString(data []byte) (string, error) {
	b, err := c.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
