package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/model"
)

type recorder[T any] struct {
	mu        sync.Mutex
	snapshots [][]T
}

func (r *recorder[T]) handler() model.SnapshotHandler[T] {
	return model.SnapshotHandler[T]{
		OnSnapshot: func(docs []T) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.snapshots = append(r.snapshots, docs)
		},
	}
}

func (r *recorder[T]) last() ([]T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func eventuallyLen[T any](t *testing.T, r *recorder[T], n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		docs, ok := r.last()
		return ok && len(docs) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStore_Messages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))

	sender := uuid.New()
	first, err := s.AppendMessage(ctx, model.NewMessage{RoomID: "r1", Envelope: "a:b", SenderID: sender, SenderDisplay: "alice"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, now, first.ServerTimestamp)

	rec := &recorder[model.MessageDoc]{}
	sub, err := s.SubscribeMessages(ctx, "r1", rec.handler())
	require.NoError(t, err)
	eventuallyLen(t, rec, 1)

	_, err = s.AppendMessage(ctx, model.NewMessage{RoomID: "r1", Envelope: "c:d", SenderID: sender})
	require.NoError(t, err)
	eventuallyLen(t, rec, 2)

	_, err = s.AppendMessage(ctx, model.NewMessage{RoomID: "other", Envelope: "e:f", SenderID: sender})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMessage(ctx, "r1", first.ID))
	eventuallyLen(t, rec, 1)
	require.ErrorIs(t, s.DeleteMessage(ctx, "r1", first.ID), model.ErrNotFound)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	seen := rec.count()

	_, err = s.AppendMessage(ctx, model.NewMessage{RoomID: "r1", Envelope: "g:h", SenderID: sender})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seen, rec.count())
}

func TestStore_AppendValidates(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.AppendMessage(context.Background(), model.NewMessage{RoomID: "r1", Envelope: "", SenderID: uuid.New()})
	require.ErrorIs(t, err, model.ErrInvalidDocument)

	_, err = s.AddParticipant(context.Background(), model.ParticipantDoc{RoomID: "r1"})
	require.ErrorIs(t, err, model.ErrInvalidDocument)
}

func TestStore_Participants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	rec := &recorder[model.ParticipantDoc]{}
	sub, err := s.SubscribeParticipants(ctx, "r1", rec.handler())
	require.NoError(t, err)
	defer sub.Close()
	eventuallyLen(t, rec, 0)

	a, err := s.AddParticipant(ctx, model.ParticipantDoc{RoomID: "r1", UserID: uuid.New(), DisplayID: "alice"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.JoinedAt.IsZero())

	_, err = s.AddParticipant(ctx, model.ParticipantDoc{RoomID: "r1", UserID: uuid.New(), DisplayID: "bob"})
	require.NoError(t, err)
	eventuallyLen(t, rec, 2)

	require.NoError(t, s.RemoveParticipant(ctx, "r1", a.ID))
	eventuallyLen(t, rec, 1)
	require.ErrorIs(t, s.RemoveParticipant(ctx, "r1", a.ID), model.ErrNotFound)
}

func TestStore_SubscribeCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().SubscribeMessages(ctx, "r1", model.SnapshotHandler[model.MessageDoc]{})
	require.ErrorIs(t, err, model.ErrStreamSubscription)
}

func TestStore_Invites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	first, err := s.CreateInvite(ctx, model.Invite{Recipient: "bob@example.com", RoomID: "abc1234", Secret: "s1"})
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, first.Status)
	second, err := s.CreateInvite(ctx, model.Invite{Recipient: "bob@example.com", RoomID: "def5678", Secret: "s2"})
	require.NoError(t, err)

	list, err := s.ListInvites(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	updated, err := s.UpdateInviteStatus(ctx, "bob@example.com", first.ID, model.InviteStatusAccepted, true)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusAccepted, updated.Status)
	assert.True(t, updated.Read)

	_, err = s.UpdateInviteStatus(ctx, "carol@example.com", first.ID, model.InviteStatusAccepted, true)
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.DeleteInvite(ctx, "bob@example.com", first.ID))
	require.ErrorIs(t, s.DeleteInvite(ctx, "bob@example.com", first.ID), model.ErrNotFound)

	list, err = s.ListInvites(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
