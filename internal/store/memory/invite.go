package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

// CreateInvite adds an invite to the recipient's inbox.
func (s *Store) CreateInvite(ctx context.Context, invite model.Invite) (model.Invite, error) {
	if err := ctx.Err(); err != nil {
		return model.Invite{}, err
	}
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = model.InviteStatusPending
	}
	invite.CreatedAt = s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[invite.Recipient] = append(s.invites[invite.Recipient], invite)
	return invite, nil
}

// ListInvites returns the inbox newest first.
func (s *Store) ListInvites(ctx context.Context, recipient string) ([]model.Invite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.invites[recipient])
	slices.Reverse(out)
	return out, nil
}

// UpdateInviteStatus records the recipient's decision.
func (s *Store) UpdateInviteStatus(ctx context.Context, recipient string, id uuid.UUID, status model.InviteStatus, read bool) (model.Invite, error) {
	if err := ctx.Err(); err != nil {
		return model.Invite{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.invites[recipient]
	idx := slices.IndexFunc(inbox, func(i model.Invite) bool { return i.ID == id })
	if idx < 0 {
		return model.Invite{}, model.ErrNotFound
	}
	inbox[idx].Status = status
	inbox[idx].Read = read
	return inbox[idx], nil
}

// DeleteInvite removes an invite from the inbox.
func (s *Store) DeleteInvite(ctx context.Context, recipient string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.invites[recipient]
	idx := slices.IndexFunc(inbox, func(i model.Invite) bool { return i.ID == id })
	if idx < 0 {
		return model.ErrNotFound
	}
	s.invites[recipient] = slices.Delete(inbox, idx, idx+1)
	return nil
}
