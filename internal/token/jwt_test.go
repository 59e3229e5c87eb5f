package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/model"
)

func TestJWT_IdentityToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)
	id := model.Identity{ID: uuid.New(), DisplayID: "alice@example.com"}

	tok, err := j.GenerateIdentityToken(id)
	require.NoError(t, err)

	got, err := j.ParseIdentityToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWT_GenerateRejectsEmptyUser(t *testing.T) {
	j := NewJWT("secret", 0)
	_, err := j.GenerateIdentityToken(model.Identity{DisplayID: "x"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_ParseErrors(t *testing.T) {
	id := model.Identity{ID: uuid.New(), DisplayID: "bob"}

	expired := NewJWT("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.GenerateIdentityToken(id)
	require.NoError(t, err)

	otherKey, err := NewJWT("other", time.Hour).GenerateIdentityToken(id)
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           id.ID,
		TokenType:        "refresh",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneSigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:    id.ID,
		TokenType: typeIdentity,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expiredToken},
		{name: "signed with another key", token: otherKey},
		{name: "wrong token type", token: wrongType},
		{name: "none algorithm", token: noneSigned},
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
	}

	j := NewJWT("secret", time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.ParseIdentityToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWT_DefaultTTL(t *testing.T) {
	j := NewJWT("secret", -time.Second)
	assert.Equal(t, DefaultTTL, j.ttl)
}

func TestUnverified_ParseIdentityToken(t *testing.T) {
	id := model.Identity{ID: uuid.New(), DisplayID: "carol"}
	tok, err := NewJWT("relay-only-secret", time.Hour).GenerateIdentityToken(id)
	require.NoError(t, err)

	got, err := NewUnverified().ParseIdentityToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NewUnverified().ParseIdentityToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
