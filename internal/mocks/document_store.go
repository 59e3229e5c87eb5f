package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/cipherroom/internal/model"
)

// DocumentStore is a mock of model.DocumentStore and model.InviteStore.
type DocumentStore struct {
	mock.Mock
}

func (m *DocumentStore) AppendMessage(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(model.MessageDoc), args.Error(1)
}

func (m *DocumentStore) DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error {
	return m.Called(ctx, roomID, id).Error(0)
}

func (m *DocumentStore) SubscribeMessages(ctx context.Context, roomID string, handler model.SnapshotHandler[model.MessageDoc]) (model.Subscription, error) {
	args := m.Called(ctx, roomID, handler)
	var sub model.Subscription
	if v := args.Get(0); v != nil {
		sub = v.(model.Subscription)
	}
	return sub, args.Error(1)
}

func (m *DocumentStore) AddParticipant(ctx context.Context, participant model.ParticipantDoc) (model.ParticipantDoc, error) {
	args := m.Called(ctx, participant)
	return args.Get(0).(model.ParticipantDoc), args.Error(1)
}

func (m *DocumentStore) RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error {
	return m.Called(ctx, roomID, id).Error(0)
}

func (m *DocumentStore) SubscribeParticipants(ctx context.Context, roomID string, handler model.SnapshotHandler[model.ParticipantDoc]) (model.Subscription, error) {
	args := m.Called(ctx, roomID, handler)
	var sub model.Subscription
	if v := args.Get(0); v != nil {
		sub = v.(model.Subscription)
	}
	return sub, args.Error(1)
}

func (m *DocumentStore) CreateInvite(ctx context.Context, invite model.Invite) (model.Invite, error) {
	args := m.Called(ctx, invite)
	return args.Get(0).(model.Invite), args.Error(1)
}

func (m *DocumentStore) ListInvites(ctx context.Context, recipient string) ([]model.Invite, error) {
	args := m.Called(ctx, recipient)
	var out []model.Invite
	if v := args.Get(0); v != nil {
		out = v.([]model.Invite)
	}
	return out, args.Error(1)
}

func (m *DocumentStore) UpdateInviteStatus(ctx context.Context, recipient string, id uuid.UUID, status model.InviteStatus, read bool) (model.Invite, error) {
	args := m.Called(ctx, recipient, id, status, read)
	return args.Get(0).(model.Invite), args.Error(1)
}

func (m *DocumentStore) DeleteInvite(ctx context.Context, recipient string, id uuid.UUID) error {
	return m.Called(ctx, recipient, id).Error(0)
}

func NewDocumentStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *DocumentStore {
	m := &DocumentStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
