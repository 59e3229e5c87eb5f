package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtroode/cipherroom/internal/model"
)

// liveQuery re-runs fetch whenever its topic changes and delivers the result
// as a full snapshot. Notifications that arrive during a fetch collapse into
// one more fetch.
type liveQuery[T any] struct {
	fetch   func(ctx context.Context) ([]T, error)
	handler model.SnapshotHandler[T]

	ctx    context.Context
	cancel context.CancelFunc
	signal chan struct{}
	errs   chan error

	once   sync.Once
	detach func()
}

func newLiveQuery[T any](fetch func(ctx context.Context) ([]T, error), handler model.SnapshotHandler[T]) *liveQuery[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &liveQuery[T]{
		fetch:   fetch,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		signal:  make(chan struct{}, 1),
		errs:    make(chan error, 1),
	}
}

func (q *liveQuery[T]) changed() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *liveQuery[T]) failed(err error) {
	select {
	case q.errs <- err:
	default:
	}
}

// run delivers initial, then a fresh snapshot per change until closed.
func (q *liveQuery[T]) run(initial []T) {
	q.deliver(initial)
	for {
		select {
		case <-q.ctx.Done():
			return
		case err := <-q.errs:
			q.fail(err)
			return
		case <-q.signal:
		}

		docs, err := q.fetch(q.ctx)
		if err != nil {
			if q.ctx.Err() != nil {
				return
			}
			q.fail(fmt.Errorf("%w: %w", model.ErrStreamSubscription, err))
			return
		}
		q.deliver(docs)
	}
}

func (q *liveQuery[T]) deliver(docs []T) {
	if q.ctx.Err() != nil {
		return
	}
	if q.handler.OnSnapshot != nil {
		q.handler.OnSnapshot(docs)
	}
}

func (q *liveQuery[T]) fail(err error) {
	if q.ctx.Err() != nil {
		return
	}
	q.Close()
	if q.handler.OnError != nil {
		q.handler.OnError(err)
	}
}

// Close stops delivery. Safe to call more than once.
func (q *liveQuery[T]) Close() error {
	q.once.Do(func() {
		q.cancel()
		if q.detach != nil {
			q.detach()
		}
	})
	return nil
}
