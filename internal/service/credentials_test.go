package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/crypto"
)

func TestNewRoomCredentials(t *testing.T) {
	t.Parallel()

	roomID := regexp.MustCompile(`^[0-9a-z]{7}$`)
	seen := make(map[string]struct{})
	for range 50 {
		creds, err := NewRoomCredentials()
		require.NoError(t, err)
		assert.Regexp(t, roomID, creds.RoomID)
		assert.Len(t, creds.Secret, 72)

		_, dup := seen[creds.Secret]
		assert.False(t, dup)
		seen[creds.Secret] = struct{}{}
	}

	creds, err := NewRoomCredentials()
	require.NoError(t, err)
	_, err = crypto.DeriveKey(context.Background(), creds.Secret)
	assert.NoError(t, err)
}
