package router

import (
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/cipherroom/internal/api/grpc/api"
	"github.com/dtroode/cipherroom/internal/mocks"
	"github.com/dtroode/cipherroom/internal/testutil"
)

func TestRouter_Register(t *testing.T) {
	t.Parallel()

	store := mocks.NewDocumentStore(t)
	r := New(store, store, mocks.NewTokenParser(t), mocks.NewContextManager(t), testutil.MakeNoopLogger())
	s := r.Register()
	if s == nil {
		t.Fatalf("expected non-nil grpc server")
	}

	info := s.GetServiceInfo()
	assert.Contains(t, info, api.ServiceName)
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.Len(t, info[api.ServiceName].Methods, 10)
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   bool
	}{
		{method: api.MethodAppendMessage, want: true},
		{method: api.MethodWatchParticipants, want: true},
		{method: api.MethodListInvites, want: true},
		{method: "/grpc.health.v1.Health/Check", want: false},
	}
	for _, tt := range tests {
		got := authRequired(context.Background(), interceptors.NewServerCallMeta(tt.method, nil, nil))
		assert.Equal(t, tt.want, got, tt.method)
	}
}
