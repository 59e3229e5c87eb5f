package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/cipherroom/internal/model"
)

const messagesTable = "messages"

// MessageRepository stores message envelopes. It never sees plaintext.
type MessageRepository struct {
	db *Connection
}

func NewMessageRepository(db *Connection) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts msg; the database assigns the server timestamp.
func (r *MessageRepository) Append(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	doc := model.MessageDoc{
		ID:            uuid.New(),
		RoomID:        msg.RoomID,
		Envelope:      msg.Envelope,
		SenderID:      msg.SenderID,
		SenderDisplay: msg.SenderDisplay,
	}
	if err := doc.Validate(); err != nil {
		return model.MessageDoc{}, err
	}

	const query = `
		INSERT INTO messages (id, room_id, envelope, sender_id, sender_display)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING server_ts`

	err := r.db.QueryRow(ctx, query,
		doc.ID, doc.RoomID, doc.Envelope, doc.SenderID, doc.SenderDisplay,
	).Scan(&doc.ServerTimestamp)
	if err != nil {
		return model.MessageDoc{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return doc, nil
}

func (r *MessageRepository) Delete(ctx context.Context, roomID string, id uuid.UUID) error {
	const query = `DELETE FROM messages WHERE room_id = $1 AND id = $2`
	cmd, err := r.db.Exec(ctx, query, roomID, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// List returns the room's messages in insertion order.
func (r *MessageRepository) List(ctx context.Context, roomID string) ([]model.MessageDoc, error) {
	const query = `
		SELECT id, room_id, envelope, sender_id, sender_display, server_ts
		FROM messages
		WHERE room_id = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MessageDoc, error) {
		var d model.MessageDoc
		err := row.Scan(&d.ID, &d.RoomID, &d.Envelope, &d.SenderID, &d.SenderDisplay, &d.ServerTimestamp)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return docs, nil
}
