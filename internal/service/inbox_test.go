package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/auth"
	"github.com/dtroode/cipherroom/internal/mocks"
	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/store/memory"
	"github.com/dtroode/cipherroom/internal/testutil"
)

func TestInbox_Flow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	log := testutil.MakeNoopLogger()

	aliceAuth, _ := signedIn(t, "alice@example.com")
	bobAuth, _ := signedIn(t, "bob@example.com")
	alice := NewInbox(store, aliceAuth, log)
	bob := NewInbox(store, bobAuth, log)

	first, err := alice.Send(ctx, " bob@example.com ", "abc1234", "s1")
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, first.Status)
	assert.Equal(t, "alice@example.com", first.SenderDisplay)
	assert.Equal(t, "bob@example.com", first.Recipient)

	second, err := alice.Send(ctx, "bob@example.com", "xyz9876", "s2")
	require.NoError(t, err)

	invites, err := bob.List(ctx)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	assert.Equal(t, second.ID, invites[0].ID)

	unread, err := bob.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	creds, err := bob.Accept(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, RoomCredentials{RoomID: "abc1234", Secret: "s1"}, creds)

	require.NoError(t, bob.Dismiss(ctx, second.ID))
	unread, err = bob.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)

	invites, err = bob.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusDismissed, invites[0].Status)
	assert.Equal(t, model.InviteStatusAccepted, invites[1].Status)

	require.NoError(t, bob.Delete(ctx, first.ID))
	err = bob.Delete(ctx, first.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	mine, err := alice.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = alice.Accept(ctx, second.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInbox_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	store := memory.New()

	anonymous := NewInbox(store, auth.NewSession(issuer, log), log)
	_, err := anonymous.Send(ctx, "bob", "r", "s")
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	_, err = anonymous.List(ctx)
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	assert.ErrorIs(t, anonymous.Dismiss(ctx, uuid.New()), model.ErrNotAuthenticated)
	assert.ErrorIs(t, anonymous.Delete(ctx, uuid.New()), model.ErrNotAuthenticated)

	identity, _ := signedIn(t, "alice")
	inbox := NewInbox(store, identity, log)

	tests := []struct {
		name      string
		recipient string
		roomID    string
		secret    string
	}{
		{name: "blank recipient", recipient: "  ", roomID: "r", secret: "s"},
		{name: "missing room", recipient: "bob", secret: "s"},
		{name: "missing secret", recipient: "bob", roomID: "r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inbox.Send(ctx, tt.recipient, tt.roomID, tt.secret)
			assert.ErrorIs(t, err, model.ErrInvalidDocument)
		})
	}
}

func TestInbox_Subscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	log := testutil.MakeNoopLogger()

	aliceAuth, _ := signedIn(t, "alice")
	bobAuth, _ := signedIn(t, "bob")
	alice := NewInbox(store, aliceAuth, log)
	bob := NewInbox(store, bobAuth, log, WithPollInterval(10*time.Millisecond))

	snapshots := make(chan []model.Invite, 16)
	sub, err := bob.Subscribe(ctx, model.SnapshotHandler[model.Invite]{
		OnSnapshot: func(invites []model.Invite) { snapshots <- invites },
		OnError:    func(err error) { t.Errorf("unexpected inbox error: %v", err) },
	})
	require.NoError(t, err)

	next := func() []model.Invite {
		t.Helper()
		select {
		case invites := <-snapshots:
			return invites
		case <-time.After(3 * time.Second):
			t.Fatal("no inbox snapshot")
			return nil
		}
	}

	assert.Empty(t, next())

	sent, err := alice.Send(ctx, "bob", "room1", "s1")
	require.NoError(t, err)
	got := next()
	require.Len(t, got, 1)
	assert.Equal(t, sent.ID, got[0].ID)
	assert.False(t, got[0].Read)

	_, err = bob.Accept(ctx, sent.ID)
	require.NoError(t, err)
	got = next()
	require.Len(t, got, 1)
	assert.Equal(t, model.InviteStatusAccepted, got[0].Status)
	assert.True(t, got[0].Read)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, err = alice.Send(ctx, "bob", "room2", "s2")
	require.NoError(t, err)

	select {
	case invites := <-snapshots:
		t.Fatalf("snapshot after close: %v", invites)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInbox_SubscribeErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := testutil.MakeNoopLogger()

	t.Run("not authenticated", func(t *testing.T) {
		t.Parallel()

		inbox := NewInbox(memory.New(), auth.NewSession(issuer, log), log)
		_, err := inbox.Subscribe(ctx, model.SnapshotHandler[model.Invite]{})
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	})

	t.Run("initial read fails", func(t *testing.T) {
		t.Parallel()

		identity, _ := signedIn(t, "bob")
		store := mocks.NewDocumentStore(t)
		store.On("ListInvites", mock.Anything, "bob").Return(nil, errors.New("offline")).Once()

		inbox := NewInbox(store, identity, log)
		_, err := inbox.Subscribe(ctx, model.SnapshotHandler[model.Invite]{})
		assert.ErrorIs(t, err, model.ErrStreamSubscription)
	})

	t.Run("refresh failure is reported and polling continues", func(t *testing.T) {
		t.Parallel()

		identity, _ := signedIn(t, "bob")
		store := mocks.NewDocumentStore(t)
		invite := model.Invite{ID: uuid.New(), Recipient: "bob", Status: model.InviteStatusPending}
		store.On("ListInvites", mock.Anything, "bob").Return([]model.Invite{}, nil).Once()
		store.On("ListInvites", mock.Anything, "bob").Return(nil, errors.New("offline")).Once()
		store.On("ListInvites", mock.Anything, "bob").Return([]model.Invite{invite}, nil)

		snapshots := make(chan []model.Invite, 16)
		errs := make(chan error, 16)
		inbox := NewInbox(store, identity, log, WithPollInterval(5*time.Millisecond))
		sub, err := inbox.Subscribe(ctx, model.SnapshotHandler[model.Invite]{
			OnSnapshot: func(invites []model.Invite) { snapshots <- invites },
			OnError:    func(err error) { errs <- err },
		})
		require.NoError(t, err)
		defer sub.Close()

		assert.Empty(t, <-snapshots)
		select {
		case err := <-errs:
			assert.EqualError(t, err, "failed to list invites: offline")
		case <-time.After(3 * time.Second):
			t.Fatal("refresh error was not reported")
		}
		select {
		case invites := <-snapshots:
			assert.Equal(t, []model.Invite{invite}, invites)
		case <-time.After(3 * time.Second):
			t.Fatal("polling stopped after an error")
		}
	})
}
