//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/store/redis"
	"github.com/dtroode/cipherroom/internal/testutil"
)

var addr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		panic(err)
	}
	addr = fmt.Sprintf("%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type latest[T any] struct {
	mu   sync.Mutex
	docs []T
	ok   bool
}

func (l *latest[T]) handler() model.SnapshotHandler[T] {
	return model.SnapshotHandler[T]{OnSnapshot: func(docs []T) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.docs, l.ok = docs, true
	}}
}

func (l *latest[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ok {
		return -1
	}
	return len(l.docs)
}

func newStore(t *testing.T) *redis.Store {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return redis.NewStore(rdb, testutil.MakeNoopLogger())
}

func TestStore_Live(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	roomID := uuid.NewString()[:7]

	messages := &latest[model.MessageDoc]{}
	msub, err := store.SubscribeMessages(ctx, roomID, messages.handler())
	require.NoError(t, err)
	defer msub.Close()

	participants := &latest[model.ParticipantDoc]{}
	psub, err := store.SubscribeParticipants(ctx, roomID, participants.handler())
	require.NoError(t, err)
	defer psub.Close()

	require.Eventually(t, func() bool { return messages.len() == 0 && participants.len() == 0 }, 5*time.Second, 10*time.Millisecond)

	sender := uuid.New()
	first, err := store.AppendMessage(ctx, model.NewMessage{RoomID: roomID, Envelope: "bg==:Yw==", SenderID: sender, SenderDisplay: "alice"})
	require.NoError(t, err)
	assert.False(t, first.ServerTimestamp.IsZero())
	second, err := store.AppendMessage(ctx, model.NewMessage{RoomID: roomID, Envelope: "bg==:ZA==", SenderID: sender})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return messages.len() == 2 }, 5*time.Second, 10*time.Millisecond)

	messages.mu.Lock()
	assert.Equal(t, first.ID, messages.docs[0].ID)
	assert.Equal(t, second.ID, messages.docs[1].ID)
	messages.mu.Unlock()

	require.NoError(t, store.DeleteMessage(ctx, roomID, first.ID))
	require.Eventually(t, func() bool { return messages.len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, store.DeleteMessage(ctx, roomID, first.ID), model.ErrNotFound)

	p, err := store.AddParticipant(ctx, model.ParticipantDoc{RoomID: roomID, UserID: uuid.New(), DisplayID: "alice"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return participants.len() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, store.RemoveParticipant(ctx, roomID, p.ID))
	require.Eventually(t, func() bool { return participants.len() == 0 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, msub.Close())
	require.NoError(t, msub.Close())
}

func TestStore_Invites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	recipient := uuid.NewString()

	inv, err := store.CreateInvite(ctx, model.Invite{Recipient: recipient, SenderDisplay: "alice", RoomID: "abc1234", Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, inv.Status)

	list, err := store.ListInvites(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := store.UpdateInviteStatus(ctx, recipient, inv.ID, model.InviteStatusAccepted, true)
	require.NoError(t, err)
	assert.True(t, updated.Read)

	_, err = store.UpdateInviteStatus(ctx, recipient, uuid.New(), model.InviteStatusAccepted, true)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, store.DeleteInvite(ctx, recipient, inv.ID))
	assert.ErrorIs(t, store.DeleteInvite(ctx, recipient, inv.ID), model.ErrNotFound)
}
