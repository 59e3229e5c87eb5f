package client

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bearer attaches the current identity token to every call.
type bearer struct {
	tokens TokenSource
	secure bool
}

func (b bearer) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	token, ok := b.tokens.Token()
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not signed in")
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (b bearer) RequireTransportSecurity() bool {
	return b.secure
}
