package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/api/grpc/api"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// Relay serves a realtime document store over gRPC.
// Sender and participant identity always come from the caller's token.
type Relay struct {
	docs           model.DocumentStore
	invites        model.InviteStore
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ api.RelayServer = (*Relay)(nil)

// NewRelay creates a new Relay handler.
func NewRelay(docs model.DocumentStore, invites model.InviteStore, contextManager model.ContextManager, logger *logger.Logger) *Relay {
	return &Relay{
		docs:           docs,
		invites:        invites,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Relay) AppendMessage(ctx context.Context, req *api.AppendMessageRequest) (*api.Message, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}
	if req.Envelope == "" {
		return nil, status.Error(codes.InvalidArgument, "envelope is required")
	}

	doc, err := h.docs.AppendMessage(ctx, model.NewMessage{
		RoomID:        req.RoomID,
		Envelope:      req.Envelope,
		SenderID:      identity.ID,
		SenderDisplay: identity.DisplayID,
	})
	if err != nil {
		h.logger.Error("Relay handler: append message failed",
			"room_id", req.RoomID,
			"user_id", identity.ID,
			"error", err.Error())
		return nil, handleError(err)
	}

	msg := api.FromMessageDoc(doc)
	return &msg, nil
}

func (h *Relay) DeleteMessage(ctx context.Context, req *api.DeleteMessageRequest) (*api.Empty, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireDocument(req.RoomID, req.ID); err != nil {
		return nil, err
	}

	docs, err := currentSnapshot(ctx, h.docs.SubscribeMessages, req.RoomID)
	if err != nil {
		h.logger.Error("Relay handler: read messages failed", "room_id", req.RoomID, "error", err.Error())
		return nil, handleError(err)
	}
	if err := checkOwner(docs, req.ID, identity.ID, messageKeys); err != nil {
		h.logger.Debug("Relay handler: delete message refused", "room_id", req.RoomID, "id", req.ID, "user_id", identity.ID, "error", err)
		return nil, handleError(err)
	}

	if err := h.docs.DeleteMessage(ctx, req.RoomID, req.ID); err != nil {
		h.logger.Debug("Relay handler: delete message failed", "room_id", req.RoomID, "id", req.ID, "error", err)
		return nil, handleError(err)
	}
	return &api.Empty{}, nil
}

func (h *Relay) AddParticipant(ctx context.Context, req *api.AddParticipantRequest) (*api.Participant, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}

	doc, err := h.docs.AddParticipant(ctx, model.ParticipantDoc{
		RoomID:    req.RoomID,
		UserID:    identity.ID,
		DisplayID: identity.DisplayID,
	})
	if err != nil {
		h.logger.Error("Relay handler: add participant failed",
			"room_id", req.RoomID,
			"user_id", identity.ID,
			"error", err.Error())
		return nil, handleError(err)
	}

	p := api.FromParticipantDoc(doc)
	return &p, nil
}

func (h *Relay) RemoveParticipant(ctx context.Context, req *api.RemoveParticipantRequest) (*api.Empty, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireDocument(req.RoomID, req.ID); err != nil {
		return nil, err
	}

	docs, err := currentSnapshot(ctx, h.docs.SubscribeParticipants, req.RoomID)
	if err != nil {
		h.logger.Error("Relay handler: read participants failed", "room_id", req.RoomID, "error", err.Error())
		return nil, handleError(err)
	}
	if err := checkOwner(docs, req.ID, identity.ID, participantKeys); err != nil {
		h.logger.Debug("Relay handler: remove participant refused", "room_id", req.RoomID, "id", req.ID, "user_id", identity.ID, "error", err)
		return nil, handleError(err)
	}

	if err := h.docs.RemoveParticipant(ctx, req.RoomID, req.ID); err != nil {
		h.logger.Debug("Relay handler: remove participant failed", "room_id", req.RoomID, "id", req.ID, "error", err)
		return nil, handleError(err)
	}
	return &api.Empty{}, nil
}

func (h *Relay) WatchMessages(req *api.WatchRequest, stream grpc.ServerStreamingServer[api.MessageSnapshot]) error {
	if _, err := h.identity(stream.Context()); err != nil {
		return err
	}
	if err := requireRoom(req.RoomID); err != nil {
		return err
	}
	h.logger.Debug("Relay handler: watching messages", "room_id", req.RoomID)

	return forward(stream.Context(), "messages", h.docs.SubscribeMessages, req.RoomID, api.MessageSnapshotFrom, stream.Send)
}

func (h *Relay) WatchParticipants(req *api.WatchRequest, stream grpc.ServerStreamingServer[api.ParticipantSnapshot]) error {
	if _, err := h.identity(stream.Context()); err != nil {
		return err
	}
	if err := requireRoom(req.RoomID); err != nil {
		return err
	}
	h.logger.Debug("Relay handler: watching participants", "room_id", req.RoomID)

	return forward(stream.Context(), "participants", h.docs.SubscribeParticipants, req.RoomID, api.ParticipantSnapshotFrom, stream.Send)
}

func (h *Relay) identity(ctx context.Context) (model.Identity, error) {
	identity, ok := h.contextManager.GetIdentityFromContext(ctx)
	if !ok {
		return model.Identity{}, status.Error(codes.Unauthenticated, model.ErrNotAuthenticated.Error())
	}
	return identity, nil
}

func requireRoom(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return status.Error(codes.InvalidArgument, "room id is required")
	}
	return nil
}

func requireDocument(roomID string, id uuid.UUID) error {
	if err := requireRoom(roomID); err != nil {
		return err
	}
	if id == uuid.Nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("document id is required in room %q", roomID))
	}
	return nil
}
