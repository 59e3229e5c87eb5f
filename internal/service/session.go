package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dtroode/cipherroom/internal/crypto"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/roomsync"
)

// RoomSession is the per-room controller a UI drives: it derives the room
// key, runs the sync engine and sends messages.
type RoomSession struct {
	store      model.DocumentStore
	classifier roomsync.Classifier
	identity   model.IdentityProvider
	logger     *logger.Logger

	onChange    func(model.SessionState)
	parallelism int

	// notifyMu guards the OnChange queue. Only one goroutine delivers at a
	// time and the lock is never held while the listener runs.
	notifyMu   sync.Mutex
	pending    []model.SessionState
	delivering bool

	mu     sync.Mutex
	token  uint64
	self   model.Identity
	key    *crypto.Key
	engine *roomsync.Engine
	state  model.SessionState
	draft  string

	unsubscribe func()
}

// SessionOption configures a RoomSession.
type SessionOption func(*RoomSession)

// WithStateListener sets the callback that receives every state change.
func WithStateListener(fn func(model.SessionState)) SessionOption {
	return func(s *RoomSession) {
		s.onChange = fn
	}
}

// WithParallelism bounds decrypt/classify concurrency per snapshot.
func WithParallelism(n int) SessionOption {
	return func(s *RoomSession) {
		s.parallelism = n
	}
}

// NewRoomSession creates a session that is not joined to any room. Signing
// out of identity leaves the current room.
func NewRoomSession(
	store model.DocumentStore,
	classifier roomsync.Classifier,
	identity model.IdentityProvider,
	logger *logger.Logger,
	opts ...SessionOption,
) *RoomSession {
	s := &RoomSession{
		store:      store,
		classifier: classifier,
		identity:   identity,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = identity.OnChange(func(user *model.Identity) {
		if user != nil {
			return
		}
		go func() {
			if err := s.Leave(context.Background()); err != nil {
				s.logger.Warn("RoomSession: failed to leave room after sign out", "error", err)
			}
		}()
	})
	return s
}

// Join derives the room key from secret and starts syncing roomID. A room
// that is already joined is left first.
func (s *RoomSession) Join(ctx context.Context, roomID, secret string) error {
	self, ok := s.identity.CurrentUser()
	if !ok {
		return model.ErrNotAuthenticated
	}
	if roomID == "" {
		return fmt.Errorf("%w: room id is empty", model.ErrInvalidDocument)
	}

	if err := s.Leave(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.token++
	token := s.token
	s.self = self
	s.key = nil
	s.engine = nil
	s.state = model.SessionState{Phase: model.SessionInitializing, RoomID: roomID}
	s.mu.Unlock()
	s.notify()

	engine := roomsync.New(s.store, s.classifier, s.logger, roomsync.Config{
		RoomID:      roomID,
		Self:        self,
		Parallelism: s.parallelism,
		OnChange:    func(v roomsync.View) { s.applyView(token, v) },
		OnError:     func(err error) { s.fail(token, err) },
	})
	engine.AwaitKey()

	s.logger.Debug("RoomSession: deriving room key", "room_id", roomID)
	key, err := crypto.DeriveKey(ctx, secret)
	if err != nil {
		s.logger.Info("RoomSession: key derivation failed", "room_id", roomID, "error", err.Error())
		s.fail(token, err)
		return err
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return nil
	}
	s.key = key
	s.engine = engine
	s.mu.Unlock()

	if err := engine.Start(ctx, key); err != nil {
		if errors.Is(err, roomsync.ErrInvalidState) && !s.current(token) {
			return nil
		}
		s.logger.Error("RoomSession: failed to start room sync", "room_id", roomID, "error", err.Error())
		s.fail(token, err)
		return fmt.Errorf("failed to join room: %w", err)
	}
	return nil
}

// Send encrypts text and appends it to the room. Blank text, or text sent
// before the room key exists, is ignored. The draft is cleared on send and
// restored if the append fails.
func (s *RoomSession) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	key, self, roomID := s.key, s.self, s.state.RoomID
	if key == nil || strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return nil
	}
	s.draft = ""
	s.mu.Unlock()

	envelope, err := crypto.Encrypt(key, text)
	if err == nil {
		_, err = s.store.AppendMessage(ctx, model.NewMessage{
			RoomID:        roomID,
			Envelope:      envelope,
			SenderID:      self.ID,
			SenderDisplay: self.DisplayID,
		})
	}
	if err != nil {
		s.mu.Lock()
		s.draft = text
		s.mu.Unlock()
		s.logger.Error("RoomSession: failed to send message", "room_id", roomID, "error", err.Error())
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Leave stops syncing the current room. Presence cleanup failures are
// logged only. Leaving when not joined is a no-op.
func (s *RoomSession) Leave(ctx context.Context) error {
	s.mu.Lock()
	engine := s.engine
	roomID := s.state.RoomID
	joined := roomID != ""
	s.token++
	s.key = nil
	s.engine = nil
	s.state = model.SessionState{}
	s.draft = ""
	s.mu.Unlock()

	if !joined {
		return nil
	}
	if engine != nil {
		if err := engine.Close(ctx); err != nil {
			if !errors.Is(err, model.ErrPresenceCleanup) {
				return fmt.Errorf("failed to leave room: %w", err)
			}
			s.logger.Warn("RoomSession: presence record left behind", "room_id", roomID, "error", err.Error())
		}
	}
	s.logger.Info("RoomSession: left room", "room_id", roomID)
	s.notify()
	return nil
}

// Close leaves the room and stops following sign-out events.
func (s *RoomSession) Close(ctx context.Context) error {
	s.unsubscribe()
	return s.Leave(ctx)
}

// State returns the current session state.
func (s *RoomSession) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the composition buffer.
func (s *RoomSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the composition buffer.
func (s *RoomSession) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

func (s *RoomSession) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == token
}

func (s *RoomSession) applyView(token uint64, v roomsync.View) {
	s.mu.Lock()
	if s.token != token || s.state.Phase == model.SessionFailed {
		s.mu.Unlock()
		return
	}
	s.state = model.SessionState{
		Phase:            model.SessionReady,
		RoomID:           v.RoomID,
		Messages:         v.Messages,
		ParticipantCount: v.ParticipantCount,
	}
	s.mu.Unlock()
	s.notify()
}

func (s *RoomSession) fail(token uint64, err error) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.key = nil
	s.engine = nil
	s.state = model.SessionState{
		Phase:  model.SessionFailed,
		RoomID: s.state.RoomID,
		Reason: err.Error(),
	}
	s.mu.Unlock()
	s.notify()
}

func (s *RoomSession) notify() {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	s.pending = append(s.pending, s.State())
	if s.delivering {
		s.notifyMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		st := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()
		s.onChange(st)
		s.notifyMu.Lock()
	}
	s.delivering = false
	s.notifyMu.Unlock()
}
