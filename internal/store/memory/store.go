// Package memory is an in-process realtime document store. It backs tests
// and single-process deployments of the relay.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

var (
	_ model.DocumentStore = (*Store)(nil)
	_ model.InviteStore   = (*Store)(nil)
)

type room struct {
	messages     []model.MessageDoc
	participants []model.ParticipantDoc

	messageSubs     map[*mailbox[model.MessageDoc]]struct{}
	participantSubs map[*mailbox[model.ParticipantDoc]]struct{}
}

// Store keeps all rooms in memory. Documents are kept in insertion order.
type Store struct {
	clock func() time.Time

	mu      sync.Mutex
	rooms   map[string]*room
	invites map[string][]model.Invite
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:   time.Now,
		rooms:   make(map[string]*room),
		invites: make(map[string][]model.Invite),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// room returns the room, creating it if needed. Caller holds s.mu.
func (s *Store) room(roomID string) *room {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &room{
			messageSubs:     make(map[*mailbox[model.MessageDoc]]struct{}),
			participantSubs: make(map[*mailbox[model.ParticipantDoc]]struct{}),
		}
		s.rooms[roomID] = r
	}
	return r
}

// AppendMessage stores msg with a fresh id and server timestamp.
func (s *Store) AppendMessage(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	if err := ctx.Err(); err != nil {
		return model.MessageDoc{}, err
	}
	doc := model.MessageDoc{
		ID:              uuid.New(),
		RoomID:          msg.RoomID,
		Envelope:        msg.Envelope,
		SenderID:        msg.SenderID,
		SenderDisplay:   msg.SenderDisplay,
		ServerTimestamp: s.clock(),
	}
	if err := doc.Validate(); err != nil {
		return model.MessageDoc{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(msg.RoomID)
	r.messages = append(r.messages, doc)
	s.publishMessages(r)
	return doc, nil
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)
	idx := slices.IndexFunc(r.messages, func(d model.MessageDoc) bool { return d.ID == id })
	if idx < 0 {
		return model.ErrNotFound
	}
	r.messages = slices.Delete(r.messages, idx, idx+1)
	s.publishMessages(r)
	return nil
}

// SubscribeMessages delivers the current messages and every later change.
func (s *Store) SubscribeMessages(ctx context.Context, roomID string, handler model.SnapshotHandler[model.MessageDoc]) (model.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)

	var mb *mailbox[model.MessageDoc]
	mb = newMailbox(handler, func() {
		s.mu.Lock()
		delete(r.messageSubs, mb)
		s.mu.Unlock()
	})
	r.messageSubs[mb] = struct{}{}
	mb.post(slices.Clone(r.messages))
	return mb, nil
}

// AddParticipant stores a presence record with a fresh id and join time.
func (s *Store) AddParticipant(ctx context.Context, participant model.ParticipantDoc) (model.ParticipantDoc, error) {
	if err := ctx.Err(); err != nil {
		return model.ParticipantDoc{}, err
	}
	if err := participant.Validate(); err != nil {
		return model.ParticipantDoc{}, err
	}
	participant.ID = uuid.New()
	participant.JoinedAt = s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(participant.RoomID)
	r.participants = append(r.participants, participant)
	s.publishParticipants(r)
	return participant, nil
}

// RemoveParticipant deletes one presence record.
func (s *Store) RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)
	idx := slices.IndexFunc(r.participants, func(d model.ParticipantDoc) bool { return d.ID == id })
	if idx < 0 {
		return model.ErrNotFound
	}
	r.participants = slices.Delete(r.participants, idx, idx+1)
	s.publishParticipants(r)
	return nil
}

// SubscribeParticipants delivers the current participants and every later change.
func (s *Store) SubscribeParticipants(ctx context.Context, roomID string, handler model.SnapshotHandler[model.ParticipantDoc]) (model.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)

	var mb *mailbox[model.ParticipantDoc]
	mb = newMailbox(handler, func() {
		s.mu.Lock()
		delete(r.participantSubs, mb)
		s.mu.Unlock()
	})
	r.participantSubs[mb] = struct{}{}
	mb.post(slices.Clone(r.participants))
	return mb, nil
}

// publishMessages fans the current message set out. Caller holds s.mu.
func (s *Store) publishMessages(r *room) {
	for mb := range r.messageSubs {
		mb.post(slices.Clone(r.messages))
	}
}

// publishParticipants fans the current participant set out. Caller holds s.mu.
func (s *Store) publishParticipants(r *room) {
	for mb := range r.participantSubs {
		mb.post(slices.Clone(r.participants))
	}
}
