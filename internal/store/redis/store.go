// Package redis is a realtime document store on redis: one hash per room
// collection, and a pub/sub channel per room announcing which collection
// changed.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

var (
	_ model.DocumentStore = (*Store)(nil)
	_ model.InviteStore   = (*Store)(nil)
)

// Store implements the realtime store contract on a redis client.
type Store struct {
	rdb    goredis.UniversalClient
	logger *logger.Logger
}

func NewStore(rdb goredis.UniversalClient, logger *logger.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

// AppendMessage stores msg stamped with the redis server clock.
func (s *Store) AppendMessage(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	rec := messageRecord{
		ID:            uuid.New(),
		RoomID:        msg.RoomID,
		Envelope:      msg.Envelope,
		SenderID:      msg.SenderID,
		SenderDisplay: msg.SenderDisplay,
	}
	if err := rec.doc().Validate(); err != nil {
		return model.MessageDoc{}, err
	}

	seq, now, err := s.stamp(ctx, msg.RoomID)
	if err != nil {
		return model.MessageDoc{}, err
	}
	rec.Seq, rec.ServerTS = seq, now

	if err := s.write(ctx, msg.RoomID, collectionMessages, rec.ID, rec); err != nil {
		return model.MessageDoc{}, err
	}
	return rec.doc(), nil
}

func (s *Store) DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error {
	return s.remove(ctx, roomID, collectionMessages, id)
}

func (s *Store) AddParticipant(ctx context.Context, participant model.ParticipantDoc) (model.ParticipantDoc, error) {
	if err := participant.Validate(); err != nil {
		return model.ParticipantDoc{}, err
	}
	seq, now, err := s.stamp(ctx, participant.RoomID)
	if err != nil {
		return model.ParticipantDoc{}, err
	}

	rec := participantRecord{
		Seq:       seq,
		ID:        uuid.New(),
		RoomID:    participant.RoomID,
		UserID:    participant.UserID,
		DisplayID: participant.DisplayID,
		JoinedAt:  now,
	}
	if err := s.write(ctx, participant.RoomID, collectionParticipants, rec.ID, rec); err != nil {
		return model.ParticipantDoc{}, err
	}
	return rec.doc(), nil
}

func (s *Store) RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error {
	return s.remove(ctx, roomID, collectionParticipants, id)
}

func (s *Store) SubscribeMessages(ctx context.Context, roomID string, handler model.SnapshotHandler[model.MessageDoc]) (model.Subscription, error) {
	fetch := func(ctx context.Context) ([]model.MessageDoc, error) {
		fields, err := s.rdb.HGetAll(ctx, collectionKey(roomID, collectionMessages)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read messages: %w", err)
		}
		return decodeMessages(fields), nil
	}
	return watch(ctx, s, roomID, collectionMessages, fetch, handler)
}

func (s *Store) SubscribeParticipants(ctx context.Context, roomID string, handler model.SnapshotHandler[model.ParticipantDoc]) (model.Subscription, error) {
	fetch := func(ctx context.Context) ([]model.ParticipantDoc, error) {
		fields, err := s.rdb.HGetAll(ctx, collectionKey(roomID, collectionParticipants)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read participants: %w", err)
		}
		docs, skipped := decodeParticipants(fields)
		if skipped > 0 {
			s.logger.Warn("skipped undecodable participant records", "room_id", roomID, "count", skipped)
		}
		return docs, nil
	}
	return watch(ctx, s, roomID, collectionParticipants, fetch, handler)
}

// stamp returns the next room sequence number and the redis server time.
func (s *Store) stamp(ctx context.Context, roomID string) (int64, time.Time, error) {
	var seq *goredis.IntCmd
	var now *goredis.TimeCmd
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		seq = p.Incr(ctx, seqKey(roomID))
		now = p.Time(ctx)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to stamp document: %w", err)
	}
	return seq.Val(), now.Val().UTC(), nil
}

func (s *Store) write(ctx context.Context, roomID, collection string, id uuid.UUID, record any) error {
	data, err := encode(record)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, collectionKey(roomID, collection), id.String(), data)
		p.Publish(ctx, changesChannel(roomID), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s document: %w", collection, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, roomID, collection string, id uuid.UUID) error {
	var deleted *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		deleted = p.HDel(ctx, collectionKey(roomID, collection), id.String())
		p.Publish(ctx, changesChannel(roomID), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s document: %w", collection, err)
	}
	if deleted.Val() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func isNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}
