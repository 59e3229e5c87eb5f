package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/cipherroom/internal/model"
)

// Metadata keys the caller identity is stored under after authentication.
const (
	userIDKey  string = "user_id"
	displayKey string = "display"
)

// Manager moves the authenticated caller identity through gRPC incoming metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

var _ model.ContextManager = (*Manager)(nil)

// SetIdentityToContext stores identity in the incoming metadata of ctx.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	md.Set(userIDKey, identity.ID.String())
	md.Set(displayKey, identity.DisplayID)

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityFromContext reads the identity set by SetIdentityToContext.
// It reports false when the user id is missing or malformed.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return model.Identity{}, false
	}

	userIDs := md.Get(userIDKey)
	if len(userIDs) == 0 {
		return model.Identity{}, false
	}

	userID, err := uuid.Parse(userIDs[0])
	if err != nil || userID == uuid.Nil {
		return model.Identity{}, false
	}

	identity := model.Identity{ID: userID}
	if displays := md.Get(displayKey); len(displays) > 0 {
		identity.DisplayID = displays[0]
	}

	return identity, true
}
