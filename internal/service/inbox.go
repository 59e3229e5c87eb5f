package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
)

// Inbox sends room invites and manages the signed-in user's received ones.
// Recipients are addressed by display id.
type Inbox struct {
	store        model.InviteStore
	identity     model.IdentityProvider
	logger       *logger.Logger
	pollInterval time.Duration
}

const defaultInboxPollInterval = 2 * time.Second

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithPollInterval sets how often Subscribe re-reads the inbox.
func WithPollInterval(d time.Duration) InboxOption {
	return func(i *Inbox) {
		if d > 0 {
			i.pollInterval = d
		}
	}
}

func NewInbox(store model.InviteStore, identity model.IdentityProvider, logger *logger.Logger, opts ...InboxOption) *Inbox {
	i := &Inbox{store: store, identity: identity, logger: logger, pollInterval: defaultInboxPollInterval}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Send invites recipient to roomID.
func (i *Inbox) Send(ctx context.Context, recipient, roomID, secret string) (model.Invite, error) {
	self, ok := i.identity.CurrentUser()
	if !ok {
		return model.Invite{}, model.ErrNotAuthenticated
	}

	recipient = strings.TrimSpace(recipient)
	switch {
	case recipient == "":
		return model.Invite{}, fmt.Errorf("%w: recipient is empty", model.ErrInvalidDocument)
	case roomID == "" || secret == "":
		return model.Invite{}, fmt.Errorf("%w: room credentials are incomplete", model.ErrInvalidDocument)
	}

	invite, err := i.store.CreateInvite(ctx, model.Invite{
		Recipient:     recipient,
		SenderDisplay: self.DisplayID,
		RoomID:        roomID,
		Secret:        secret,
		Status:        model.InviteStatusPending,
	})
	if err != nil {
		i.logger.Error("Inbox: failed to create invite",
			"recipient", recipient,
			"room_id", roomID,
			"error", err.Error())
		return model.Invite{}, fmt.Errorf("failed to create invite: %w", err)
	}

	i.logger.Info("Inbox: invite sent", "recipient", recipient, "room_id", roomID)
	return invite, nil
}

// List returns the signed-in user's invites, newest first.
func (i *Inbox) List(ctx context.Context) ([]model.Invite, error) {
	self, ok := i.identity.CurrentUser()
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	invites, err := i.store.ListInvites(ctx, self.DisplayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// Subscribe delivers the signed-in user's inbox now and again whenever it changes.
// Read failures go to OnError and polling continues. Close may be called from a handler.
func (i *Inbox) Subscribe(ctx context.Context, handler model.SnapshotHandler[model.Invite]) (model.Subscription, error) {
	if _, ok := i.identity.CurrentUser(); !ok {
		return nil, model.ErrNotAuthenticated
	}

	invites, err := i.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStreamSubscription, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := model.SubscriptionFunc(func() error {
		cancel()
		return nil
	})

	handler.OnSnapshot(invites)

	go func() {
		ticker := time.NewTicker(i.pollInterval)
		defer ticker.Stop()

		last := invites
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := i.List(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				i.logger.Warn("Inbox: failed to refresh invites", "error", err.Error())
				if handler.OnError != nil {
					handler.OnError(err)
				}
				continue
			}
			if slices.EqualFunc(last, current, sameInvite) || ctx.Err() != nil {
				continue
			}
			last = current
			handler.OnSnapshot(current)
		}
	}()

	return sub, nil
}

func sameInvite(a, b model.Invite) bool {
	return a.ID == b.ID &&
		a.Recipient == b.Recipient &&
		a.SenderDisplay == b.SenderDisplay &&
		a.RoomID == b.RoomID &&
		a.Secret == b.Secret &&
		a.Status == b.Status &&
		a.Read == b.Read &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// UnreadCount returns how many invites have not been read.
func (i *Inbox) UnreadCount(ctx context.Context) (int, error) {
	invites, err := i.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, inv := range invites {
		if !inv.Read {
			n++
		}
	}
	return n, nil
}

// Accept marks an invite accepted and returns its room credentials.
func (i *Inbox) Accept(ctx context.Context, id uuid.UUID) (RoomCredentials, error) {
	invite, err := i.update(ctx, id, model.InviteStatusAccepted)
	if err != nil {
		return RoomCredentials{}, err
	}
	return RoomCredentials{RoomID: invite.RoomID, Secret: invite.Secret}, nil
}

// Dismiss marks an invite dismissed.
func (i *Inbox) Dismiss(ctx context.Context, id uuid.UUID) error {
	_, err := i.update(ctx, id, model.InviteStatusDismissed)
	return err
}

// Delete removes an invite.
func (i *Inbox) Delete(ctx context.Context, id uuid.UUID) error {
	self, ok := i.identity.CurrentUser()
	if !ok {
		return model.ErrNotAuthenticated
	}
	if err := i.store.DeleteInvite(ctx, self.DisplayID, id); err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}

func (i *Inbox) update(ctx context.Context, id uuid.UUID, status model.InviteStatus) (model.Invite, error) {
	self, ok := i.identity.CurrentUser()
	if !ok {
		return model.Invite{}, model.ErrNotAuthenticated
	}
	invite, err := i.store.UpdateInviteStatus(ctx, self.DisplayID, id, status, true)
	if err != nil {
		i.logger.Error("Inbox: failed to update invite",
			"invite_id", id,
			"status", status,
			"error", err.Error())
		return model.Invite{}, fmt.Errorf("failed to update invite: %w", err)
	}
	return invite, nil
}
