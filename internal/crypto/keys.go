// Package crypto derives room keys from shared secrets and seals message
// payloads into transport-safe envelopes.
//
// The constants below are the room compatibility contract: two clients that
// share a secret interoperate only if they derive with the same salt,
// iteration count and key size. The salt is public and static, so the
// strength of a room key rests entirely on the entropy of the secret.
package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100000
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
)

// Salt is the fixed, non-secret PBKDF2 salt shared by all rooms.
var Salt = []byte("e2ee-chat-salt")

// Key is a derived room key. It is immutable and safe for concurrent use.
type Key struct {
	raw  []byte
	aead cipher.AEAD
}

// DeriveKey stretches secret with PBKDF2-HMAC-SHA256 into an AES-256-GCM key.
func DeriveKey(ctx context.Context, secret string) (*Key, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, ErrEmptySecret)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}

	raw := pbkdf2.Key([]byte(secret), Salt, Iterations, KeySize, sha256.New)

	key, err := newKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}
	return key, nil
}

func newKey(raw []byte) (*Key, error) {
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Key{raw: raw, aead: aead}, nil
}

// Equal reports whether both keys hold the same key material.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}
