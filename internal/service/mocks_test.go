package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/auth"
	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/testutil"
	"github.com/dtroode/cipherroom/internal/token"
)

func noopSubscription() model.Subscription {
	return model.SubscriptionFunc(func() error { return nil })
}

type silentClassifier struct{}

func (silentClassifier) Classify(context.Context, string) model.ThreatVerdict {
	return model.ThreatVerdict{}
}

var issuer = token.NewJWT("test-secret", time.Hour)

func signedIn(t *testing.T, display string) (*auth.Session, model.Identity) {
	t.Helper()
	id := model.Identity{ID: uuid.New(), DisplayID: display}
	tok, err := issuer.GenerateIdentityToken(id)
	require.NoError(t, err)

	s := auth.NewSession(issuer, testutil.MakeNoopLogger())
	_, err = s.SignIn(tok)
	require.NoError(t, err)
	return s, id
}
