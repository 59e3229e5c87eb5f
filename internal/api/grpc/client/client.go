// Package client talks to a cipherroom relay and exposes it as a realtime
// document store and invite store.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/api/grpc/api"
	"github.com/dtroode/cipherroom/internal/config"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// TokenSource yields the bearer token for the signed-in user.
type TokenSource interface {
	Token() (string, bool)
}

// Client is a model.DocumentStore and model.InviteStore backed by the relay.
type Client struct {
	conn   grpc.ClientConnInterface
	logger *logger.Logger
}

var (
	_ model.DocumentStore = (*Client)(nil)
	_ model.InviteStore   = (*Client)(nil)
)

// Dial opens a relay connection that authenticates every call with tokens.
func Dial(cfg config.Relay, tokens TokenSource) (*grpc.ClientConn, error) {
	transport := insecure.NewCredentials()
	if cfg.TLS {
		transport = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(transport),
		grpc.WithPerRPCCredentials(bearer{tokens: tokens, secure: cfg.TLS}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay client: %w", err)
	}
	return conn, nil
}

// New wraps an open connection.
func New(conn grpc.ClientConnInterface, logger *logger.Logger) *Client {
	return &Client{conn: conn, logger: logger}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(api.CodecName)); err != nil {
		return fromStatus(err)
	}
	return nil
}

func (c *Client) AppendMessage(ctx context.Context, msg model.NewMessage) (model.MessageDoc, error) {
	var resp api.Message
	err := c.invoke(ctx, api.MethodAppendMessage, &api.AppendMessageRequest{RoomID: msg.RoomID, Envelope: msg.Envelope}, &resp)
	if err != nil {
		return model.MessageDoc{}, fmt.Errorf("failed to append message: %w", err)
	}
	return resp.Doc(), nil
}

func (c *Client) DeleteMessage(ctx context.Context, roomID string, id uuid.UUID) error {
	if err := c.invoke(ctx, api.MethodDeleteMessage, &api.DeleteMessageRequest{RoomID: roomID, ID: id}, &api.Empty{}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddParticipant registers the caller; the relay fills the user from the token.
func (c *Client) AddParticipant(ctx context.Context, participant model.ParticipantDoc) (model.ParticipantDoc, error) {
	var resp api.Participant
	if err := c.invoke(ctx, api.MethodAddParticipant, &api.AddParticipantRequest{RoomID: participant.RoomID}, &resp); err != nil {
		return model.ParticipantDoc{}, fmt.Errorf("failed to add participant: %w", err)
	}
	return resp.Doc(), nil
}

func (c *Client) RemoveParticipant(ctx context.Context, roomID string, id uuid.UUID) error {
	if err := c.invoke(ctx, api.MethodRemoveParticipant, &api.RemoveParticipantRequest{RoomID: roomID, ID: id}, &api.Empty{}); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

func (c *Client) CreateInvite(ctx context.Context, invite model.Invite) (model.Invite, error) {
	var resp api.Invite
	req := &api.CreateInviteRequest{Recipient: invite.Recipient, RoomID: invite.RoomID, Secret: invite.Secret}
	if err := c.invoke(ctx, api.MethodCreateInvite, req, &resp); err != nil {
		return model.Invite{}, fmt.Errorf("failed to create invite: %w", err)
	}
	return resp.Model(), nil
}

// ListInvites returns the caller's inbox. The relay resolves the recipient
// from the token, so recipient is only used for logging.
func (c *Client) ListInvites(ctx context.Context, recipient string) ([]model.Invite, error) {
	var resp api.InviteList
	if err := c.invoke(ctx, api.MethodListInvites, &api.ListInvitesRequest{}, &resp); err != nil {
		c.logger.Debug("Relay client: list invites failed", "recipient", recipient, "error", err)
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	invites := make([]model.Invite, len(resp.Invites))
	for i, inv := range resp.Invites {
		invites[i] = inv.Model()
	}
	return invites, nil
}

func (c *Client) UpdateInviteStatus(ctx context.Context, _ string, id uuid.UUID, st model.InviteStatus, read bool) (model.Invite, error) {
	var resp api.Invite
	req := &api.UpdateInviteRequest{ID: id, Status: string(st), Read: read}
	if err := c.invoke(ctx, api.MethodUpdateInvite, req, &resp); err != nil {
		return model.Invite{}, fmt.Errorf("failed to update invite: %w", err)
	}
	return resp.Model(), nil
}

func (c *Client) DeleteInvite(ctx context.Context, _ string, id uuid.UUID) error {
	if err := c.invoke(ctx, api.MethodDeleteInvite, &api.DeleteInviteRequest{ID: id}, &api.Empty{}); err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}

// fromStatus maps relay status codes back to model errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return model.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", model.ErrInvalidDocument, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", model.ErrForbidden, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", model.ErrNotAuthenticated, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", model.ErrStreamSubscription, st.Message())
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return errors.New(st.Message())
	}
}
