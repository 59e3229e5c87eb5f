package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

// Empty is the response of calls that return nothing.
type Empty struct{}

type Message struct {
	ID              uuid.UUID `json:"id"`
	RoomID          string    `json:"room_id"`
	Envelope        string    `json:"envelope"`
	SenderID        uuid.UUID `json:"sender_id"`
	SenderDisplay   string    `json:"sender_display"`
	ServerTimestamp time.Time `json:"server_timestamp"`
}

type Participant struct {
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	DisplayID string    `json:"display_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

type Invite struct {
	ID            uuid.UUID `json:"id"`
	Recipient     string    `json:"recipient"`
	SenderDisplay string    `json:"sender_display"`
	RoomID        string    `json:"room_id"`
	Secret        string    `json:"secret"`
	Status        string    `json:"status"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// AppendMessageRequest carries an envelope; the relay fills in the sender.
type AppendMessageRequest struct {
	RoomID   string `json:"room_id"`
	Envelope string `json:"envelope"`
}

type DeleteMessageRequest struct {
	RoomID string    `json:"room_id"`
	ID     uuid.UUID `json:"id"`
}

// AddParticipantRequest registers the caller in a room.
type AddParticipantRequest struct {
	RoomID string `json:"room_id"`
}

type RemoveParticipantRequest struct {
	RoomID string    `json:"room_id"`
	ID     uuid.UUID `json:"id"`
}

type WatchRequest struct {
	RoomID string `json:"room_id"`
}

type MessageSnapshot struct {
	Messages []Message `json:"messages"`
}

type ParticipantSnapshot struct {
	Participants []Participant `json:"participants"`
}

// CreateInviteRequest sends room credentials to recipient from the caller.
type CreateInviteRequest struct {
	Recipient string `json:"recipient"`
	RoomID    string `json:"room_id"`
	Secret    string `json:"secret"`
}

// ListInvitesRequest lists the caller's inbox.
type ListInvitesRequest struct{}

type InviteList struct {
	Invites []Invite `json:"invites"`
}

type UpdateInviteRequest struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	Read   bool      `json:"read"`
}

type DeleteInviteRequest struct {
	ID uuid.UUID `json:"id"`
}

func FromMessageDoc(d model.MessageDoc) Message {
	return Message{
		ID:              d.ID,
		RoomID:          d.RoomID,
		Envelope:        d.Envelope,
		SenderID:        d.SenderID,
		SenderDisplay:   d.SenderDisplay,
		ServerTimestamp: d.ServerTimestamp,
	}
}

func (m Message) Doc() model.MessageDoc {
	return model.MessageDoc{
		ID:              m.ID,
		RoomID:          m.RoomID,
		Envelope:        m.Envelope,
		SenderID:        m.SenderID,
		SenderDisplay:   m.SenderDisplay,
		ServerTimestamp: m.ServerTimestamp,
	}
}

func FromParticipantDoc(d model.ParticipantDoc) Participant {
	return Participant{
		ID:        d.ID,
		RoomID:    d.RoomID,
		UserID:    d.UserID,
		DisplayID: d.DisplayID,
		JoinedAt:  d.JoinedAt,
	}
}

func (p Participant) Doc() model.ParticipantDoc {
	return model.ParticipantDoc{
		ID:        p.ID,
		RoomID:    p.RoomID,
		UserID:    p.UserID,
		DisplayID: p.DisplayID,
		JoinedAt:  p.JoinedAt,
	}
}

func FromInvite(i model.Invite) Invite {
	return Invite{
		ID:            i.ID,
		Recipient:     i.Recipient,
		SenderDisplay: i.SenderDisplay,
		RoomID:        i.RoomID,
		Secret:        i.Secret,
		Status:        string(i.Status),
		Read:          i.Read,
		CreatedAt:     i.CreatedAt,
	}
}

func (i Invite) Model() model.Invite {
	return model.Invite{
		ID:            i.ID,
		Recipient:     i.Recipient,
		SenderDisplay: i.SenderDisplay,
		RoomID:        i.RoomID,
		Secret:        i.Secret,
		Status:        model.InviteStatus(i.Status),
		Read:          i.Read,
		CreatedAt:     i.CreatedAt,
	}
}

// MessageSnapshotFrom converts a store snapshot for the wire.
func MessageSnapshotFrom(docs []model.MessageDoc) *MessageSnapshot {
	out := &MessageSnapshot{Messages: make([]Message, len(docs))}
	for i, d := range docs {
		out.Messages[i] = FromMessageDoc(d)
	}
	return out
}

// Docs converts a wire snapshot back into store documents.
func (s *MessageSnapshot) Docs() []model.MessageDoc {
	out := make([]model.MessageDoc, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.Doc()
	}
	return out
}

func ParticipantSnapshotFrom(docs []model.ParticipantDoc) *ParticipantSnapshot {
	out := &ParticipantSnapshot{Participants: make([]Participant, len(docs))}
	for i, d := range docs {
		out.Participants[i] = FromParticipantDoc(d)
	}
	return out
}

func (s *ParticipantSnapshot) Docs() []model.ParticipantDoc {
	out := make([]model.ParticipantDoc, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = p.Doc()
	}
	return out
}
