package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageDoc is a stored message document as delivered by the realtime store.
// ServerTimestamp is zero until the store acknowledges the write.
type MessageDoc struct {
	ID              uuid.UUID
	RoomID          string
	Envelope        string
	SenderID        uuid.UUID
	SenderDisplay   string
	ServerTimestamp time.Time
}

// Validate checks the fields MessageCipher and the sync engine rely on.
func (d MessageDoc) Validate() error {
	switch {
	case d.ID == uuid.Nil:
		return fmt.Errorf("%w: message id is empty", ErrInvalidDocument)
	case d.RoomID == "":
		return fmt.Errorf("%w: message room id is empty", ErrInvalidDocument)
	case d.Envelope == "":
		return fmt.Errorf("%w: message envelope is empty", ErrInvalidDocument)
	case d.SenderID == uuid.Nil:
		return fmt.Errorf("%w: message sender id is empty", ErrInvalidDocument)
	}
	return nil
}

// NewMessage is the payload appended to a room's messages collection.
// The store assigns the id and the server timestamp.
type NewMessage struct {
	RoomID        string
	Envelope      string
	SenderID      uuid.UUID
	SenderDisplay string
}

// ParticipantDoc is one live presence record in a room.
type ParticipantDoc struct {
	ID        uuid.UUID
	RoomID    string
	UserID    uuid.UUID
	DisplayID string
	JoinedAt  time.Time
}

// Validate checks the required participant fields.
func (d ParticipantDoc) Validate() error {
	switch {
	case d.RoomID == "":
		return fmt.Errorf("%w: participant room id is empty", ErrInvalidDocument)
	case d.UserID == uuid.Nil:
		return fmt.Errorf("%w: participant user id is empty", ErrInvalidDocument)
	}
	return nil
}

// ThreatVerdict is the locally computed content-safety result for a message.
// An empty Label means no category matched.
type ThreatVerdict struct {
	Flagged bool
	Label   string
}

// Message is the decrypted, classified view of one MessageDoc.
// Failed messages carry no plaintext and are never flagged.
type Message struct {
	ID              uuid.UUID
	SenderID        uuid.UUID
	SenderDisplay   string
	Envelope        string
	ServerTimestamp time.Time
	Plaintext       string
	Failed          bool
	Verdict         ThreatVerdict
}

// SortKey orders messages by server time; unacknowledged messages sort as 0.
func (m Message) SortKey() int64 {
	if m.ServerTimestamp.IsZero() {
		return 0
	}
	return m.ServerTimestamp.UnixNano()
}
