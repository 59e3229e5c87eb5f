package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/metrics"
	"github.com/dtroode/cipherroom/internal/testutil"
)

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	lg := NewLogging(testutil.MakeNoopLogger())

	tests := []struct {
		name     string
		method   string
		handler  grpc.UnaryHandler
		wantCode codes.Code
	}{
		{
			name:   "success path",
			method: "/svc/Ok",
			handler: func(ctx context.Context, req any) (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "ok", nil
			},
			wantCode: codes.OK,
		},
		{
			name:   "grpc error propagates",
			method: "/svc/Invalid",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, status.Error(codes.InvalidArgument, "bad input")
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:   "non-grpc error counted as Internal",
			method: "/svc/Boom",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, errors.New("boom")
			},
			wantCode: codes.Internal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := &grpc.UnaryServerInfo{FullMethod: tt.method}
			resp, err := lg.HandleGRPC(context.Background(), struct{}{}, info, tt.handler)

			if tt.wantCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "ok", resp)
			} else {
				assert.Error(t, err)
			}
			counter := metrics.RelayRequests.WithLabelValues(tt.method, tt.wantCode.String())
			assert.Equal(t, float64(1), promtest.ToFloat64(counter))
		})
	}
}

func TestLogging_HandleStream(t *testing.T) {
	lg := NewLogging(testutil.MakeNoopLogger())
	info := &grpc.StreamServerInfo{FullMethod: "/svc/Watch", IsServerStream: true}

	err := lg.HandleStream(nil, nil, info, func(any, grpc.ServerStream) error {
		return status.Error(codes.Canceled, "client went away")
	})

	assert.Equal(t, codes.Canceled, status.Code(err))
	counter := metrics.RelayRequests.WithLabelValues("/svc/Watch", codes.Canceled.String())
	assert.Equal(t, float64(1), promtest.ToFloat64(counter))
}
