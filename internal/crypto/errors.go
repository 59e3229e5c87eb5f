package crypto

import "errors"

var (
	// ErrKeyDerivation means the secret could not be turned into a room key.
	ErrKeyDerivation = errors.New("could not derive key, check your secret key")
	// ErrEmptySecret is wrapped by ErrKeyDerivation for an empty secret.
	ErrEmptySecret = errors.New("secret is empty")
	// ErrNilKey is returned when a cipher operation runs without a derived key.
	ErrNilKey = errors.New("key is not derived")
	// ErrEncryptionFailed is returned when sealing a payload fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrMalformedEnvelope is returned when an envelope string cannot be parsed.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrAuthenticationFailure is returned when the AEAD tag does not verify.
	ErrAuthenticationFailure = errors.New("message authentication failed")
)
