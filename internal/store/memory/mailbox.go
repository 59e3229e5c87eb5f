package memory

import (
	"sync"

	"github.com/dtroode/cipherroom/internal/model"
)

// mailbox delivers snapshots to one subscriber on its own goroutine. Only the
// latest undelivered snapshot is kept, since each one is a full document set.
type mailbox[T any] struct {
	handler model.SnapshotHandler[T]

	mu      sync.Mutex
	latest  []T
	pending bool

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
	detach func()
}

func newMailbox[T any](handler model.SnapshotHandler[T], detach func()) *mailbox[T] {
	m := &mailbox[T]{
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		detach:  detach,
	}
	go m.run()
	return m
}

func (m *mailbox[T]) post(docs []T) {
	m.mu.Lock()
	m.latest = docs
	m.pending = true
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		m.mu.Lock()
		docs, ok := m.latest, m.pending
		m.latest, m.pending = nil, false
		m.mu.Unlock()

		if !ok {
			continue
		}
		select {
		case <-m.done:
			return
		default:
		}
		if m.handler.OnSnapshot != nil {
			m.handler.OnSnapshot(docs)
		}
	}
}

// Close stops delivery. Safe to call more than once.
func (m *mailbox[T]) Close() error {
	m.once.Do(func() {
		close(m.done)
		if m.detach != nil {
			m.detach()
		}
	})
	return nil
}
