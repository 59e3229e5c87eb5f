package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
)

// currentSnapshot reads one full snapshot of a room collection.
func currentSnapshot[T any](
	ctx context.Context,
	subscribe func(context.Context, string, model.SnapshotHandler[T]) (model.Subscription, error),
	roomID string,
) ([]T, error) {
	snapshots := make(chan []T, 1)
	errs := make(chan error, 1)

	sub, err := subscribe(ctx, roomID, model.SnapshotHandler[T]{
		OnSnapshot: func(docs []T) {
			select {
			case snapshots <- docs:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	})
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	select {
	case docs := <-snapshots:
		return docs, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkOwner finds the document id in the snapshot and makes sure the caller owns it.
func checkOwner[T any](docs []T, id uuid.UUID, caller uuid.UUID, keys func(T) (docID, ownerID uuid.UUID)) error {
	for _, doc := range docs {
		docID, ownerID := keys(doc)
		if docID != id {
			continue
		}
		if ownerID != caller {
			return fmt.Errorf("%w: document %s belongs to another user", model.ErrForbidden, id)
		}
		return nil
	}
	return model.ErrNotFound
}

func messageKeys(d model.MessageDoc) (uuid.UUID, uuid.UUID)         { return d.ID, d.SenderID }
func participantKeys(d model.ParticipantDoc) (uuid.UUID, uuid.UUID) { return d.ID, d.UserID }
