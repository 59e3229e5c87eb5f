package handler

import (
	"context"
	"sync"

	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/metrics"
	"github.com/dtroode/cipherroom/internal/model"
)

// forward pipes store snapshots to a client stream until the client leaves
// or the subscription breaks. A slow client only ever gets the newest snapshot.
func forward[T, S any](
	ctx context.Context,
	collection string,
	subscribe func(context.Context, string, model.SnapshotHandler[T]) (model.Subscription, error),
	roomID string,
	convert func([]T) *S,
	send func(*S) error,
) error {
	var mu sync.Mutex
	latest := make(chan []T, 1)
	failed := make(chan error, 1)

	handler := model.SnapshotHandler[T]{
		OnSnapshot: func(docs []T) {
			mu.Lock()
			defer mu.Unlock()
			select {
			case <-latest:
			default:
			}
			latest <- docs
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}

	sub, err := subscribe(ctx, roomID, handler)
	if err != nil {
		return handleError(err)
	}
	defer sub.Close()

	gauge := metrics.RelayWatches.WithLabelValues(collection)
	gauge.Inc()
	defer gauge.Dec()

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case err := <-failed:
			return handleError(err)
		case docs := <-latest:
			if err := send(convert(docs)); err != nil {
				return err
			}
		}
	}
}
