package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// Encrypt seals plaintext under key with a fresh random nonce and returns the
// envelope string. Safe to call concurrently.
func Encrypt(key *Key, plaintext string) (string, error) {
	if key == nil {
		return "", ErrNilKey
	}
	env, err := sealAEAD([]byte(plaintext), key.aead)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	return env.String(), nil
}

// Decrypt opens an envelope string produced by Encrypt.
// It fails with ErrMalformedEnvelope on structural problems and with
// ErrAuthenticationFailure when the key is wrong or the data was altered.
func Decrypt(key *Key, envelope string) (string, error) {
	if key == nil {
		return "", ErrNilKey
	}
	env, err := ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}
	pt, err := openAEAD(env, key.aead)
	if err != nil {
		return "", ErrAuthenticationFailure
	}
	return string(pt), nil
}

func sealAEAD(data []byte, aead cipher.AEAD) (Envelope, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, err
	}
	return Envelope{Nonce: nonce, Ciphertext: aead.Seal(nil, nonce, data, nil)}, nil
}

func openAEAD(env Envelope, aead cipher.AEAD) ([]byte, error) {
	return aead.Open(nil, env.Nonce, env.Ciphertext, nil)
}
