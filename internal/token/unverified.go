package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

// Unverified reads identity claims without checking the signature.
// Clients use it to learn who a relay-issued token belongs to; the relay
// remains the only party that verifies tokens.
type Unverified struct {
	parser *jwt.Parser
}

// NewUnverified creates a claims reader.
func NewUnverified() *Unverified {
	return &Unverified{parser: jwt.NewParser()}
}

// ParseIdentityToken extracts the identity claims from tokenString.
func (u *Unverified) ParseIdentityToken(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	if _, _, err := u.parser.ParseUnverified(tokenString, claims); err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.TokenType != typeIdentity {
		return model.Identity{}, fmt.Errorf("%w: token type mismatch: %s", ErrInvalidToken, claims.TokenType)
	}
	if claims.UserID == uuid.Nil {
		return model.Identity{}, fmt.Errorf("%w: user id is empty", ErrInvalidToken)
	}
	return model.Identity{ID: claims.UserID, DisplayID: claims.Display}, nil
}
