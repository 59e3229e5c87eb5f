package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/dtroode/cipherroom/internal/api/grpc/api"
	"github.com/dtroode/cipherroom/internal/model"
)

func (c *Client) SubscribeMessages(ctx context.Context, roomID string, handler model.SnapshotHandler[model.MessageDoc]) (model.Subscription, error) {
	return watch(ctx, c, api.StreamWatchMessages, api.MethodWatchMessages, roomID, handler, (*api.MessageSnapshot).Docs)
}

func (c *Client) SubscribeParticipants(ctx context.Context, roomID string, handler model.SnapshotHandler[model.ParticipantDoc]) (model.Subscription, error) {
	return watch(ctx, c, api.StreamWatchParticipants, api.MethodWatchParticipants, roomID, handler, (*api.ParticipantSnapshot).Docs)
}

// streamSubscription owns one watch stream. The stream outlives the
// Subscribe context and ends on Close.
type streamSubscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
}

func (s *streamSubscription) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
	return nil
}

// watch opens a server stream and waits for the first snapshot, so a
// rejected or broken watch fails Subscribe instead of arriving later.
func watch[T, S any](
	ctx context.Context,
	c *Client,
	streamIdx int,
	method string,
	roomID string,
	handler model.SnapshotHandler[T],
	docs func(*S) []T,
) (model.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &streamSubscription{cancel: cancel}

	stopOnCancel := context.AfterFunc(ctx, cancel)
	defer stopOnCancel()

	desc := &api.RelayServiceDesc.Streams[streamIdx]
	cs, err := c.conn.NewStream(streamCtx, desc, method, grpc.CallContentSubtype(api.CodecName))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, fromStatus(err))
	}
	stream := &grpc.GenericClientStream[api.WatchRequest, S]{ClientStream: cs}
	if err := stream.Send(&api.WatchRequest{RoomID: roomID}); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, fromStatus(err))
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, fromStatus(err))
	}

	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, fromStatus(err))
	}

	go func() {
		snap := first
		for {
			if sub.closed.Load() {
				return
			}
			handler.OnSnapshot(docs(snap))

			next, err := stream.Recv()
			if err != nil {
				if sub.closed.Load() {
					return
				}
				c.logger.Warn("Relay client: watch ended", "method", method, "room_id", roomID, "error", err)
				sub.Close()
				handler.OnError(fmt.Errorf("%w: %w", model.ErrStreamSubscription, fromStatus(err)))
				return
			}
			snap = next
		}
	}()

	return sub, nil
}
