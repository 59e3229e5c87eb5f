package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/cipherroom/internal/model"
)

const participantsTable = "participants"

// ParticipantRepository stores presence records.
type ParticipantRepository struct {
	db *Connection
}

func NewParticipantRepository(db *Connection) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Add inserts a presence record with a fresh id.
func (r *ParticipantRepository) Add(ctx context.Context, p model.ParticipantDoc) (model.ParticipantDoc, error) {
	if err := p.Validate(); err != nil {
		return model.ParticipantDoc{}, err
	}
	p.ID = uuid.New()

	const query = `
		INSERT INTO participants (id, room_id, user_id, display_id)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`

	if err := r.db.QueryRow(ctx, query, p.ID, p.RoomID, p.UserID, p.DisplayID).Scan(&p.JoinedAt); err != nil {
		return model.ParticipantDoc{}, fmt.Errorf("failed to insert participant: %w", err)
	}
	return p, nil
}

func (r *ParticipantRepository) Remove(ctx context.Context, roomID string, id uuid.UUID) error {
	const query = `DELETE FROM participants WHERE room_id = $1 AND id = $2`
	cmd, err := r.db.Exec(ctx, query, roomID, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ParticipantRepository) List(ctx context.Context, roomID string) ([]model.ParticipantDoc, error) {
	const query = `
		SELECT id, room_id, user_id, display_id, joined_at
		FROM participants
		WHERE room_id = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ParticipantDoc, error) {
		var d model.ParticipantDoc
		err := row.Scan(&d.ID, &d.RoomID, &d.UserID, &d.DisplayID, &d.JoinedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan participants: %w", err)
	}
	return docs, nil
}
