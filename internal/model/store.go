package model

import (
	"context"

	"github.com/google/uuid"
)

// SnapshotHandler receives full snapshots of a live collection.
// OnSnapshot is always called with the complete current document set.
type SnapshotHandler[T any] struct {
	OnSnapshot func(docs []T)
	OnError    func(err error)
}

// Subscription is a live collection subscription. Close is idempotent.
type Subscription interface {
	Close() error
}

// MessageStore is the messages collection of a realtime document store.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg NewMessage) (MessageDoc, error)
	DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error
	SubscribeMessages(ctx context.Context, roomID string, handler SnapshotHandler[MessageDoc]) (Subscription, error)
}

// ParticipantStore is the participants collection of a realtime document store.
type ParticipantStore interface {
	AddParticipant(ctx context.Context, participant ParticipantDoc) (ParticipantDoc, error)
	RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error
	SubscribeParticipants(ctx context.Context, roomID string, handler SnapshotHandler[ParticipantDoc]) (Subscription, error)
}

// DocumentStore is the realtime store the messaging core runs on.
type DocumentStore interface {
	MessageStore
	ParticipantStore
}

// SubscriptionFunc adapts a plain func to Subscription.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error {
	return f()
}
