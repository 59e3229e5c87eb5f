package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/cipherroom/internal/model"
)

// subscription follows one collection of one room.
type subscription struct {
	pubsub *goredis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

// Close stops delivery. Safe to call more than once.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}

// watch subscribes to the room channel before the initial read so no write
// in between is missed. A resubscription after a dropped connection triggers
// a refetch, since notifications may have been lost meanwhile.
func watch[T any](
	ctx context.Context,
	s *Store,
	roomID, collection string,
	fetch func(ctx context.Context) ([]T, error),
	handler model.SnapshotHandler[T],
) (model.Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, changesChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", model.ErrStreamSubscription, changesChannel(roomID), err)
	}

	initial, err := fetch(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: initial snapshot: %w", model.ErrStreamSubscription, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pubsub: pubsub, cancel: cancel}
	events := pubsub.ChannelWithSubscriptions()
	signal := make(chan struct{}, 1)

	// Drain pub/sub independently so slow fetches never back up the client.
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch msg := ev.(type) {
				case *goredis.Message:
					if msg.Payload != collection {
						continue
					}
				case *goredis.Subscription:
					if msg.Kind != "subscribe" {
						continue
					}
				default:
					continue
				}
				select {
				case signal <- struct{}{}:
				default:
				}
			}
		}
	}()

	go func() {
		deliver(runCtx, handler, initial)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-signal:
			}

			docs, err := fetch(runCtx)
			if err != nil {
				if runCtx.Err() != nil {
					return
				}
				s.logger.Error("failed to refresh room collection", "room_id", roomID, "collection", collection, "error", err)
				_ = sub.Close()
				if handler.OnError != nil {
					handler.OnError(fmt.Errorf("%w: %w", model.ErrStreamSubscription, err))
				}
				return
			}
			deliver(runCtx, handler, docs)
		}
	}()

	return sub, nil
}

func deliver[T any](ctx context.Context, handler model.SnapshotHandler[T], docs []T) {
	if ctx.Err() != nil || handler.OnSnapshot == nil {
		return
	}
	handler.OnSnapshot(docs)
}
