// Package roomsync keeps a decrypted, classified, time-ordered view of one
// room in sync with the realtime document store.
package roomsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/crypto"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// ErrInvalidState is returned when Start is called on a started or torn down engine.
var ErrInvalidState = errors.New("engine is not awaiting a key")

// State is the engine lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateAwaitingKey
	StateSyncing
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingKey:
		return "awaiting_key"
	case StateSyncing:
		return "syncing"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// View is the renderable state of a room.
type View struct {
	RoomID           string
	Messages         []model.Message
	ParticipantCount int
}

// Config describes the room an engine syncs.
type Config struct {
	RoomID string
	Self   model.Identity
	// OnChange receives every new view. Calls are serialised.
	OnChange func(View)
	// OnError receives ErrStreamSubscription when a live subscription breaks.
	// The engine tears itself down afterwards.
	OnError     func(error)
	Parallelism int
}

// Engine owns the message and participant subscriptions of one room.
type Engine struct {
	store      model.DocumentStore
	classifier Classifier
	logger     *logger.Logger
	cfg        Config

	// lifecycle serialises Start and Close.
	lifecycle sync.Mutex

	mu            sync.Mutex
	state         State
	gen           uint64
	view          View
	participantID uuid.UUID
	subs          []model.Subscription
	cancel        context.CancelFunc
	stop          chan struct{}
	wake          chan struct{}

	pendingDocs  []model.MessageDoc
	hasDocs      bool
	pendingCount int
	hasCount     bool
}

// New creates an idle engine for cfg.RoomID.
func New(store model.DocumentStore, classifier Classifier, logger *logger.Logger, cfg Config) *Engine {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		logger:     logger.ForRoom(cfg.RoomID),
		cfg:        cfg,
		view:       View{RoomID: cfg.RoomID},
	}
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View returns the latest view.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// ParticipantID returns the id of the local presence record, or uuid.Nil.
func (e *Engine) ParticipantID() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.participantID
}

// AwaitKey marks the engine as waiting for key derivation.
func (e *Engine) AwaitKey() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		e.state = StateAwaitingKey
	}
}

// Start enters Syncing: it registers the local participant and attaches both
// live subscriptions. On failure everything acquired so far is released and
// the engine is torn down.
func (e *Engine) Start(ctx context.Context, key *crypto.Key) (err error) {
	if key == nil {
		return crypto.ErrNilKey
	}

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if e.state != StateIdle && e.state != StateAwaitingKey {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	e.state = StateSyncing
	e.gen++
	gen := e.gen
	workCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.stop = make(chan struct{})
	e.wake = make(chan struct{}, 1)
	stop, wake := e.stop, e.wake
	e.mu.Unlock()

	go e.run(workCtx, gen, key, stop, wake)

	defer func() {
		if err != nil {
			_ = e.teardown(ctx)
		}
	}()

	participant, addErr := e.store.AddParticipant(ctx, model.ParticipantDoc{
		RoomID:    e.cfg.RoomID,
		UserID:    e.cfg.Self.ID,
		DisplayID: e.cfg.Self.DisplayID,
	})
	if addErr != nil {
		e.logger.Error("failed to add participant record", "error", addErr)
	} else {
		e.mu.Lock()
		e.participantID = participant.ID
		e.mu.Unlock()
	}

	participantsSub, err := e.store.SubscribeParticipants(ctx, e.cfg.RoomID, model.SnapshotHandler[model.ParticipantDoc]{
		OnSnapshot: e.onParticipants(gen),
		OnError:    e.onStreamError(gen),
	})
	if err != nil {
		return subscriptionError("participants", err)
	}
	e.addSubscription(participantsSub)

	messagesSub, err := e.store.SubscribeMessages(ctx, e.cfg.RoomID, model.SnapshotHandler[model.MessageDoc]{
		OnSnapshot: e.onMessages(gen),
		OnError:    e.onStreamError(gen),
	})
	if err != nil {
		return subscriptionError("messages", err)
	}
	e.addSubscription(messagesSub)

	e.logger.Info("room sync started", "participant_id", participant.ID)
	return nil
}

func subscriptionError(collection string, err error) error {
	if errors.Is(err, model.ErrStreamSubscription) {
		return fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}
	return fmt.Errorf("failed to subscribe to %s: %w: %w", collection, model.ErrStreamSubscription, err)
}

func (e *Engine) addSubscription(sub model.Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, sub)
}

// Close tears the engine down: both subscriptions are closed and the local
// participant record is removed on a best-effort basis. A failed removal is
// logged and reported as model.ErrPresenceCleanup.
func (e *Engine) Close(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.teardown(ctx)
}

func (e *Engine) teardown(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateTornDown {
		e.mu.Unlock()
		return nil
	}
	e.state = StateTornDown
	e.gen++
	subs := e.subs
	e.subs = nil
	participantID := e.participantID
	e.participantID = uuid.Nil
	stop, cancel := e.stop, e.cancel
	e.hasDocs, e.hasCount, e.pendingDocs = false, false, nil
	e.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if cancel != nil {
		cancel()
	}

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			e.logger.Warn("failed to close subscription", "error", err)
		}
	}

	if participantID == uuid.Nil {
		return nil
	}
	if err := e.store.RemoveParticipant(ctx, e.cfg.RoomID, participantID); err != nil {
		e.logger.Warn("failed to remove participant record", "participant_id", participantID, "error", err)
		return fmt.Errorf("%w: %w", model.ErrPresenceCleanup, err)
	}
	e.logger.Info("room sync stopped", "participant_id", participantID)
	return nil
}

func (e *Engine) onMessages(gen uint64) func([]model.MessageDoc) {
	return func(docs []model.MessageDoc) {
		e.mu.Lock()
		if e.gen != gen || e.state != StateSyncing {
			e.mu.Unlock()
			return
		}
		e.pendingDocs, e.hasDocs = docs, true
		wake := e.wake
		e.mu.Unlock()
		notify(wake)
	}
}

func (e *Engine) onParticipants(gen uint64) func([]model.ParticipantDoc) {
	return func(docs []model.ParticipantDoc) {
		e.mu.Lock()
		if e.gen != gen || e.state != StateSyncing {
			e.mu.Unlock()
			return
		}
		e.pendingCount, e.hasCount = len(docs), true
		wake := e.wake
		e.mu.Unlock()
		notify(wake)
	}
}

func (e *Engine) onStreamError(gen uint64) func(error) {
	return func(err error) {
		e.mu.Lock()
		stale := e.gen != gen || e.state != StateSyncing
		e.mu.Unlock()
		if stale {
			return
		}

		e.logger.Error("room subscription failed", "error", err)
		if !errors.Is(err, model.ErrStreamSubscription) {
			err = fmt.Errorf("%w: %w", model.ErrStreamSubscription, err)
		}

		// Subscriptions may deliver errors from their own goroutine, which
		// Close waits on, so teardown runs separately.
		go func() {
			if closeErr := e.Close(context.Background()); closeErr != nil {
				e.logger.Warn("teardown after subscription failure was incomplete", "error", closeErr)
			}
		}()
		if e.cfg.OnError != nil {
			e.cfg.OnError(err)
		}
	}
}

func notify(wake chan struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

// run is the single worker of one generation. It rebuilds the message list
// from the latest full snapshot and publishes views in order.
func (e *Engine) run(ctx context.Context, gen uint64, key *crypto.Key, stop, wake <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-wake:
		}

		e.mu.Lock()
		docs, hasDocs := e.pendingDocs, e.hasDocs
		count, hasCount := e.pendingCount, e.hasCount
		e.pendingDocs, e.hasDocs, e.hasCount = nil, false, false
		e.mu.Unlock()

		var messages []model.Message
		if hasDocs {
			messages = BuildMessages(ctx, key, e.classifier, docs, e.cfg.Parallelism, e.logger)
		}

		e.mu.Lock()
		if e.gen != gen || e.state != StateSyncing {
			e.mu.Unlock()
			return
		}
		if hasDocs {
			e.view.Messages = messages
		}
		if hasCount {
			e.view.ParticipantCount = count
		}
		view := e.view
		e.mu.Unlock()

		if (hasDocs || hasCount) && e.cfg.OnChange != nil {
			e.cfg.OnChange(view)
		}
	}
}
