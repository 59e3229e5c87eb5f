package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

var (
	_ model.DocumentStore = (*DocumentStore)(nil)
	_ model.InviteStore   = (*DocumentStore)(nil)
)

// DocumentStore is the postgres-backed realtime store. Live snapshots are
// refetched whenever the notifier reports a change to the room.
type DocumentStore struct {
	*InviteRepository

	messages     *MessageRepository
	participants *ParticipantRepository
	notifier     *Notifier
	logger       *logger.Logger
}

// NewDocumentStore combines the repositories. notifier must be started
// before the first Subscribe call.
func NewDocumentStore(db *Connection, notifier *Notifier, logger *logger.Logger) *DocumentStore {
	return &DocumentStore{
		InviteRepository: NewInviteRepository(db),
		messages:         NewMessageRepository(db),
		participants:     NewParticipantRepository(db),
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *DocumentStore) AppendMessage(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	return s.messages.Append(ctx, msg)
}

func (s *DocumentStore) DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error {
	return s.messages.Delete(ctx, roomID, id)
}

func (s *DocumentStore) SubscribeMessages(ctx context.Context, roomID string, handler model.SnapshotHandler[model.MessageDoc]) (model.Subscription, error) {
	fetch := func(ctx context.Context) ([]model.MessageDoc, error) {
		return s.messages.List(ctx, roomID)
	}
	return subscribe(ctx, s.notifier, topic(messagesTable, roomID), fetch, handler)
}

func (s *DocumentStore) AddParticipant(ctx context.Context, participant model.ParticipantDoc) (model.ParticipantDoc, error) {
	return s.participants.Add(ctx, participant)
}

func (s *DocumentStore) RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error {
	return s.participants.Remove(ctx, roomID, id)
}

func (s *DocumentStore) SubscribeParticipants(ctx context.Context, roomID string, handler model.SnapshotHandler[model.ParticipantDoc]) (model.Subscription, error) {
	fetch := func(ctx context.Context) ([]model.ParticipantDoc, error) {
		return s.participants.List(ctx, roomID)
	}
	return subscribe(ctx, s.notifier, topic(participantsTable, roomID), fetch, handler)
}

// subscribe registers before the initial fetch so no change between the two
// is lost.
func subscribe[T any](
	ctx context.Context,
	notifier *Notifier,
	topic string,
	fetch func(ctx context.Context) ([]T, error),
	handler model.SnapshotHandler[T],
) (model.Subscription, error) {
	q := newLiveQuery(fetch, handler)
	detach, err := notifier.register(topic, q)
	if err != nil {
		return nil, err
	}
	q.detach = detach

	initial, err := fetch(ctx)
	if err != nil {
		_ = q.Close()
		return nil, fmt.Errorf("%w: initial snapshot of %s: %w", model.ErrStreamSubscription, topic, err)
	}

	go q.run(initial)
	return q, nil
}
