package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/cipherroom/internal/model"
)

var _ model.InviteStore = (*InviteRepository)(nil)

// InviteRepository stores invite inboxes.
type InviteRepository struct {
	db *Connection
}

func NewInviteRepository(db *Connection) *InviteRepository {
	return &InviteRepository{db: db}
}

const inviteColumns = `id, recipient, sender_display, room_id, secret, status, read, created_at`

func scanInvite(row pgx.Row) (model.Invite, error) {
	var inv model.Invite
	var status string
	err := row.Scan(&inv.ID, &inv.Recipient, &inv.SenderDisplay, &inv.RoomID, &inv.Secret, &status, &inv.Read, &inv.CreatedAt)
	inv.Status = model.InviteStatus(status)
	return inv, err
}

func (r *InviteRepository) CreateInvite(ctx context.Context, invite model.Invite) (model.Invite, error) {
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = model.InviteStatusPending
	}

	query := `
		INSERT INTO invites (id, recipient, sender_display, room_id, secret, status, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + inviteColumns

	saved, err := scanInvite(r.db.QueryRow(ctx, query,
		invite.ID, invite.Recipient, invite.SenderDisplay, invite.RoomID, invite.Secret, string(invite.Status), invite.Read,
	))
	if err != nil {
		return model.Invite{}, fmt.Errorf("failed to insert invite: %w", err)
	}
	return saved, nil
}

func (r *InviteRepository) ListInvites(ctx context.Context, recipient string) ([]model.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE recipient = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	invites, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Invite, error) {
		return scanInvite(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan invites: %w", err)
	}
	return invites, nil
}

func (r *InviteRepository) UpdateInviteStatus(ctx context.Context, recipient string, id uuid.UUID, status model.InviteStatus, read bool) (model.Invite, error) {
	query := `
		UPDATE invites SET status = $3, read = $4
		WHERE recipient = $1 AND id = $2
		RETURNING ` + inviteColumns

	inv, err := scanInvite(r.db.QueryRow(ctx, query, recipient, id, string(status), read))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Invite{}, model.ErrNotFound
		}
		return model.Invite{}, fmt.Errorf("failed to update invite: %w", err)
	}
	return inv, nil
}

func (r *InviteRepository) DeleteInvite(ctx context.Context, recipient string, id uuid.UUID) error {
	const query = `DELETE FROM invites WHERE recipient = $1 AND id = $2`
	cmd, err := r.db.Exec(ctx, query, recipient, id)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
