package model

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDocument is returned when a stored document is missing required fields.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrStreamSubscription is returned when a live subscription cannot be attached or breaks.
	ErrStreamSubscription = errors.New("stream subscription failed")
	// ErrPresenceCleanup is returned when a participant record could not be removed on teardown.
	ErrPresenceCleanup = errors.New("presence cleanup failed")
	// ErrClassifierUnavailable is returned when the content classifier could not be loaded.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrNotAuthenticated is returned when an operation needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when a caller changes a document it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrNotJoined is returned when a room operation runs outside a joined room.
	ErrNotJoined = errors.New("not joined to a room")
)
