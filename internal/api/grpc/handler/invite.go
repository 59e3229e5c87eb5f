package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/api/grpc/api"
	"github.com/dtroode/cipherroom/internal/model"
)

// CreateInvite files an invite in the recipient's inbox, signed with the caller's display id.
func (h *Relay) CreateInvite(ctx context.Context, req *api.CreateInviteRequest) (*api.Invite, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return nil, status.Error(codes.InvalidArgument, "recipient is required")
	}
	if err := requireRoom(req.RoomID); err != nil {
		return nil, err
	}
	if req.Secret == "" {
		return nil, status.Error(codes.InvalidArgument, "secret is required")
	}

	invite, err := h.invites.CreateInvite(ctx, model.Invite{
		Recipient:     recipient,
		SenderDisplay: identity.DisplayID,
		RoomID:        req.RoomID,
		Secret:        req.Secret,
		Status:        model.InviteStatusPending,
	})
	if err != nil {
		h.logger.Error("Relay handler: create invite failed",
			"recipient", recipient,
			"error", err.Error())
		return nil, handleError(err)
	}

	out := api.FromInvite(invite)
	return &out, nil
}

// ListInvites returns the caller's inbox.
func (h *Relay) ListInvites(ctx context.Context, _ *api.ListInvitesRequest) (*api.InviteList, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}

	invites, err := h.invites.ListInvites(ctx, identity.DisplayID)
	if err != nil {
		h.logger.Error("Relay handler: list invites failed", "recipient", identity.DisplayID, "error", err.Error())
		return nil, handleError(err)
	}

	out := &api.InviteList{Invites: make([]api.Invite, len(invites))}
	for i, inv := range invites {
		out.Invites[i] = api.FromInvite(inv)
	}
	return out, nil
}

func (h *Relay) UpdateInvite(ctx context.Context, req *api.UpdateInviteRequest) (*api.Invite, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "invite id is required")
	}
	switch model.InviteStatus(req.Status) {
	case model.InviteStatusPending, model.InviteStatusAccepted, model.InviteStatusDismissed:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown invite status %q", req.Status)
	}

	invite, err := h.invites.UpdateInviteStatus(ctx, identity.DisplayID, req.ID, model.InviteStatus(req.Status), req.Read)
	if err != nil {
		return nil, handleError(err)
	}

	out := api.FromInvite(invite)
	return &out, nil
}

func (h *Relay) DeleteInvite(ctx context.Context, req *api.DeleteInviteRequest) (*api.Empty, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, status.Error(codes.InvalidArgument, "invite id is required")
	}

	if err := h.invites.DeleteInvite(ctx, identity.DisplayID, req.ID); err != nil {
		return nil, handleError(err)
	}
	return &api.Empty{}, nil
}
