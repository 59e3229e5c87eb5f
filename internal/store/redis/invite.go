package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

func (s *Store) CreateInvite(ctx context.Context, invite model.Invite) (model.Invite, error) {
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = model.InviteStatusPending
	}
	now, err := s.rdb.Time(ctx).Result()
	if err != nil {
		return model.Invite{}, fmt.Errorf("failed to read server time: %w", err)
	}
	invite.CreatedAt = now.UTC()

	if err := s.putInvite(ctx, invite); err != nil {
		return model.Invite{}, err
	}
	return invite, nil
}

// ListInvites returns the inbox newest first.
func (s *Store) ListInvites(ctx context.Context, recipient string) ([]model.Invite, error) {
	fields, err := s.rdb.HGetAll(ctx, inviteKey(recipient)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read invites: %w", err)
	}

	invites := make([]model.Invite, 0, len(fields))
	for _, raw := range fields {
		var rec inviteRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipped undecodable invite", "recipient", recipient, "error", err)
			continue
		}
		invites = append(invites, rec.invite())
	}
	slices.SortFunc(invites, func(a, b model.Invite) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return invites, nil
}

func (s *Store) UpdateInviteStatus(ctx context.Context, recipient string, id uuid.UUID, status model.InviteStatus, read bool) (model.Invite, error) {
	raw, err := s.rdb.HGet(ctx, inviteKey(recipient), id.String()).Result()
	if err != nil {
		if isNil(err) {
			return model.Invite{}, model.ErrNotFound
		}
		return model.Invite{}, fmt.Errorf("failed to read invite: %w", err)
	}

	var rec inviteRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return model.Invite{}, fmt.Errorf("%w: invite %s: %w", model.ErrInvalidDocument, id, err)
	}
	invite := rec.invite()
	invite.Status = status
	invite.Read = read

	if err := s.putInvite(ctx, invite); err != nil {
		return model.Invite{}, err
	}
	return invite, nil
}

func (s *Store) DeleteInvite(ctx context.Context, recipient string, id uuid.UUID) error {
	n, err := s.rdb.HDel(ctx, inviteKey(recipient), id.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) putInvite(ctx context.Context, invite model.Invite) error {
	data, err := encode(newInviteRecord(invite))
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, inviteKey(invite.Recipient), invite.ID.String(), data).Err(); err != nil {
		return fmt.Errorf("failed to store invite: %w", err)
	}
	return nil
}

