package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the recipient's decision on an invite.
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "pending"
	InviteStatusAccepted  InviteStatus = "accepted"
	InviteStatusDismissed InviteStatus = "dismissed"
)

// Invite carries room credentials from one registered user to another.
type Invite struct {
	ID            uuid.UUID
	Recipient     string
	SenderDisplay string
	RoomID        string
	Secret        string
	Status        InviteStatus
	Read          bool
	CreatedAt     time.Time
}

// InviteStore persists per-recipient invite inboxes.
type InviteStore interface {
	CreateInvite(ctx context.Context, invite Invite) (Invite, error)
	ListInvites(ctx context.Context, recipient string) ([]Invite, error)
	UpdateInviteStatus(ctx context.Context, recipient string, id uuid.UUID, status InviteStatus, read bool) (Invite, error)
	DeleteInvite(ctx context.Context, recipient string, id uuid.UUID) error
}
