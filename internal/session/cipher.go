package session

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrTampered is returned when a sealed value fails authentication.
var ErrTampered = errors.New("sealed value failed authentication")

// TokenCipher seals secrets kept in persisted session state with
// XChaCha20-Poly1305. Each value is bound to its session id.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a cipher from a 32 byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Seal encrypts plaintext for the session identified by ad. An empty
// plaintext seals to an empty string.
func (c *TokenCipher) Seal(plaintext string, ad []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), ad)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (c *TokenCipher) Open(sealed string, ad []byte) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTampered, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", ErrTampered
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], ad)
	if err != nil {
		return "", ErrTampered
	}
	return string(plain), nil
}
