// Package auth keeps the signed-in identity of a client process.
package auth

import (
	"fmt"
	"sync"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// TokenParser turns an identity token into an identity.
type TokenParser interface {
	ParseIdentityToken(token string) (model.Identity, error)
}

var _ model.IdentityProvider = (*Session)(nil)

// Session is the client's auth state. Listeners are called synchronously
// on every sign-in and sign-out, in registration order.
type Session struct {
	parser TokenParser
	logger *logger.Logger

	mu        sync.Mutex
	token     string
	identity  *model.Identity
	listeners []*listener
}

type listener struct {
	fn func(*model.Identity)
}

// NewSession creates a signed-out session.
func NewSession(parser TokenParser, logger *logger.Logger) *Session {
	return &Session{parser: parser, logger: logger}
}

// SignIn replaces the current identity with the one carried by token.
func (s *Session) SignIn(token string) (model.Identity, error) {
	identity, err := s.parser.ParseIdentityToken(token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to sign in: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.identity = &identity
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Info("signed in", "user_id", identity.ID, "display", identity.DisplayID)
	notify(listeners, &identity)
	return identity, nil
}

// SignOut clears the identity. Signing out twice notifies once.
func (s *Session) SignOut() {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.identity = nil
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Info("signed out")
	notify(listeners, nil)
}

// CurrentUser returns the signed-in identity.
func (s *Session) CurrentUser() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Token returns the raw token of the signed-in user.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.identity != nil
}

// OnChange registers fn and returns a func that removes it.
func (s *Session) OnChange(fn func(*model.Identity)) func() {
	l := &listener{fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, existing := range s.listeners {
				if existing == l {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshotListeners copies the listener list. Caller holds s.mu.
func (s *Session) snapshotListeners() []*listener {
	out := make([]*listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []*listener, identity *model.Identity) {
	for _, l := range listeners {
		if identity == nil {
			l.fn(nil)
			continue
		}
		id := *identity
		l.fn(&id)
	}
}
