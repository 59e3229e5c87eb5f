package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Separator joins the nonce and ciphertext parts. It is outside the standard
// base64 alphabet, so it can never appear inside either part.
const Separator = ":"

// Envelope is one sealed message: a nonce and the ciphertext with its tag.
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte
}

// String renders the envelope as base64(nonce):base64(ciphertext).
func (e Envelope) String() string {
	return base64.StdEncoding.EncodeToString(e.Nonce) + Separator + base64.StdEncoding.EncodeToString(e.Ciphertext)
}

// ParseEnvelope parses the transport form produced by Envelope.String.
func ParseEnvelope(s string) (Envelope, error) {
	parts := strings.Split(s, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Envelope{}, fmt.Errorf("%w: expected nonce%sciphertext", ErrMalformedEnvelope, Separator)
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad nonce encoding: %w", ErrMalformedEnvelope, err)
	}
	if len(nonce) != NonceSize {
		return Envelope{}, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrMalformedEnvelope, len(nonce), NonceSize)
	}

	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad ciphertext encoding: %w", ErrMalformedEnvelope, err)
	}

	return Envelope{Nonce: nonce, Ciphertext: ct}, nil
}
