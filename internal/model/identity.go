package model

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated user as seen by the messaging core.
type Identity struct {
	ID        uuid.UUID
	DisplayID string
}

// IdentityProvider exposes the current signed-in user.
type IdentityProvider interface {
	// CurrentUser returns the signed-in user, or false when nobody is signed in.
	CurrentUser() (Identity, bool)
	// OnChange registers fn for sign-in/sign-out events and returns a func that removes it.
	OnChange(fn func(*Identity)) (cancel func())
}

// ContextManager moves the caller identity through request contexts.
type ContextManager interface {
	SetIdentityToContext(ctx context.Context, identity Identity) context.Context
	GetIdentityFromContext(ctx context.Context) (Identity, bool)
}

// TokenManager issues and validates identity tokens.
type TokenManager interface {
	GenerateIdentityToken(identity Identity) (string, error)
	ParseIdentityToken(token string) (Identity, error)
}
