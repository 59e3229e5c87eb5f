package redis

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

type messageRecord struct {
	Seq           int64     `json:"seq"`
	ID            uuid.UUID `json:"id"`
	RoomID        string    `json:"room_id"`
	Envelope      string    `json:"envelope"`
	SenderID      uuid.UUID `json:"sender_id"`
	SenderDisplay string    `json:"sender_display"`
	ServerTS      time.Time `json:"server_ts"`
}

type participantRecord struct {
	Seq       int64     `json:"seq"`
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	DisplayID string    `json:"display_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

type inviteRecord struct {
	ID            uuid.UUID `json:"id"`
	Recipient     string    `json:"recipient"`
	SenderDisplay string    `json:"sender_display"`
	RoomID        string    `json:"room_id"`
	Secret        string    `json:"secret"`
	Status        string    `json:"status"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r messageRecord) doc() model.MessageDoc {
	return model.MessageDoc{
		ID:              r.ID,
		RoomID:          r.RoomID,
		Envelope:        r.Envelope,
		SenderID:        r.SenderID,
		SenderDisplay:   r.SenderDisplay,
		ServerTimestamp: r.ServerTS,
	}
}

func (r participantRecord) doc() model.ParticipantDoc {
	return model.ParticipantDoc{
		ID:        r.ID,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		DisplayID: r.DisplayID,
		JoinedAt:  r.JoinedAt,
	}
}

func (r inviteRecord) invite() model.Invite {
	return model.Invite{
		ID:            r.ID,
		Recipient:     r.Recipient,
		SenderDisplay: r.SenderDisplay,
		RoomID:        r.RoomID,
		Secret:        r.Secret,
		Status:        model.InviteStatus(r.Status),
		Read:          r.Read,
		CreatedAt:     r.CreatedAt,
	}
}

func newInviteRecord(inv model.Invite) inviteRecord {
	return inviteRecord{
		ID:            inv.ID,
		Recipient:     inv.Recipient,
		SenderDisplay: inv.SenderDisplay,
		RoomID:        inv.RoomID,
		Secret:        inv.Secret,
		Status:        string(inv.Status),
		Read:          inv.Read,
		CreatedAt:     inv.CreatedAt,
	}
}

// decodeMessages turns a collection hash into documents in append order.
// Entries that do not decode are kept as documents with only the id set, so
// readers see and redact them instead of silently losing them.
func decodeMessages(fields map[string]string) []model.MessageDoc {
	records := make([]messageRecord, 0, len(fields))
	for field, raw := range fields {
		var rec messageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			id, _ := uuid.Parse(field)
			rec = messageRecord{ID: id, Seq: -1}
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b messageRecord) int {
		if a.Seq != b.Seq {
			return cmp.Compare(a.Seq, b.Seq)
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	docs := make([]model.MessageDoc, len(records))
	for i, rec := range records {
		docs[i] = rec.doc()
	}
	return docs
}

// decodeParticipants turns a collection hash into documents in join order.
// Undecodable entries are dropped; they cannot be counted as presence.
func decodeParticipants(fields map[string]string) ([]model.ParticipantDoc, int) {
	records := make([]participantRecord, 0, len(fields))
	skipped := 0
	for _, raw := range fields {
		var rec participantRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b participantRecord) int {
		if a.Seq != b.Seq {
			return cmp.Compare(a.Seq, b.Seq)
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	docs := make([]model.ParticipantDoc, len(records))
	for i, rec := range records {
		docs[i] = rec.doc()
	}
	return docs, skipped
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(data), nil
}
