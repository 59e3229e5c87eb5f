package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/service"
)

var errNoRoom = errors.New("join a room first")

// roomSecrets remembers the secret of the room joined from this process,
// since RoomSession never exposes it.
var roomSecrets = map[string]string{}

func invite(ctx context.Context, room *service.RoomSession, inbox *service.Inbox, recipient string) error {
	roomID := room.State().RoomID
	secret, ok := roomSecrets[roomID]
	if roomID == "" || !ok {
		return errNoRoom
	}
	if _, err := inbox.Send(ctx, recipient, roomID, secret); err != nil {
		return err
	}
	fmt.Printf("invited %s to %s\n", recipient, roomID)
	return nil
}

func listInbox(ctx context.Context, inbox *service.Inbox) error {
	invites, err := inbox.List(ctx)
	if err != nil {
		return err
	}
	if len(invites) == 0 {
		fmt.Println("no invites")
		return nil
	}
	for _, inv := range invites {
		marker := " "
		if !inv.Read {
			marker = "*"
		}
		fmt.Printf("%s %s  from %s  room %s  [%s]\n", marker, inv.ID, inv.SenderDisplay, inv.RoomID, inv.Status)
	}
	return nil
}

func accept(ctx context.Context, room *service.RoomSession, inbox *service.Inbox, arg string) error {
	id, err := uuid.Parse(arg)
	if err != nil {
		return fmt.Errorf("%w: bad invite id", model.ErrInvalidDocument)
	}
	creds, err := inbox.Accept(ctx, id)
	if err != nil {
		return err
	}
	return join(ctx, room, creds.RoomID, creds.Secret)
}

func join(ctx context.Context, room *service.RoomSession, roomID, secret string) error {
	roomSecrets[roomID] = secret
	return room.Join(ctx, roomID, secret)
}
