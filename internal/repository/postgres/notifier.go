package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtroode/cipherroom/database"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// errNotifierStopped is reported to listeners once the LISTEN connection is gone.
var errNotifierStopped = errors.New("change notifier stopped")

// changeListener is told about changes to one topic.
type changeListener interface {
	changed()
	failed(err error)
}

// topic names a watched collection of one room, matching trigger payloads.
func topic(table, roomID string) string {
	return table + ":" + roomID
}

// Notifier holds one LISTEN connection and fans notifications out to
// listeners by topic.
type Notifier struct {
	pool   *pgxpool.Pool
	logger *logger.Logger

	mu        sync.Mutex
	listeners map[string]map[changeListener]struct{}
	err       error
	done      chan struct{}
}

func NewNotifier(db *Connection, logger *logger.Logger) *Notifier {
	return &Notifier{
		pool:      db.Pool,
		logger:    logger,
		listeners: make(map[string]map[changeListener]struct{}),
		done:      make(chan struct{}),
	}
}

// Start acquires a dedicated connection, issues LISTEN and dispatches
// notifications until ctx is cancelled or the connection fails.
func (n *Notifier) Start(ctx context.Context) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+database.NotifyChannel); err != nil {
		conn.Release()
		return fmt.Errorf("failed to listen on %s: %w", database.NotifyChannel, err)
	}

	go func() {
		defer close(n.done)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					n.stop(errNotifierStopped)
					return
				}
				n.logger.Error("change notifier connection failed", "error", err)
				n.stop(err)
				return
			}
			n.dispatch(notification.Payload)
		}
	}()

	n.logger.Info("change notifier started", "channel", database.NotifyChannel)
	return nil
}

// Done is closed when the notifier stops.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

func (n *Notifier) dispatch(payload string) {
	n.mu.Lock()
	targets := make([]changeListener, 0, len(n.listeners[payload]))
	for l := range n.listeners[payload] {
		targets = append(targets, l)
	}
	n.mu.Unlock()

	for _, l := range targets {
		l.changed()
	}
}

func (n *Notifier) stop(err error) {
	n.mu.Lock()
	if n.err != nil {
		n.mu.Unlock()
		return
	}
	n.err = err
	var targets []changeListener
	for _, set := range n.listeners {
		for l := range set {
			targets = append(targets, l)
		}
	}
	n.listeners = make(map[string]map[changeListener]struct{})
	n.mu.Unlock()

	for _, l := range targets {
		l.failed(fmt.Errorf("%w: %w", model.ErrStreamSubscription, err))
	}
}

// register adds l to topic and returns a func that removes it.
func (n *Notifier) register(topic string, l changeListener) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, n.err)
	}

	set, ok := n.listeners[topic]
	if !ok {
		set = make(map[changeListener]struct{})
		n.listeners[topic] = set
	}
	set[l] = struct{}{}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.listeners[topic]; ok {
			delete(set, l)
			if len(set) == 0 {
				delete(n.listeners, topic)
			}
		}
	}, nil
}
