package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	roomIDLength   = 7
	roomIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// RoomCredentials is what a user needs to join a room.
type RoomCredentials struct {
	RoomID string
	Secret string
}

// NewRoomCredentials generates a short room id and a high-entropy secret.
func NewRoomCredentials() (RoomCredentials, error) {
	id := make([]byte, roomIDLength)
	max := big.NewInt(int64(len(roomIDAlphabet)))
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return RoomCredentials{}, fmt.Errorf("failed to generate room id: %w", err)
		}
		id[i] = roomIDAlphabet[n.Int64()]
	}

	first, err := uuid.NewRandom()
	if err != nil {
		return RoomCredentials{}, fmt.Errorf("failed to generate room secret: %w", err)
	}
	second, err := uuid.NewRandom()
	if err != nil {
		return RoomCredentials{}, fmt.Errorf("failed to generate room secret: %w", err)
	}

	return RoomCredentials{
		RoomID: string(id),
		Secret: first.String() + second.String(),
	}, nil
}
