package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/metrics"
)

// Logging logs relay calls and counts them by status code.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	l.logger.Info("gRPC request started", "method", info.FullMethod)

	resp, err := handler(ctx, req)
	l.finish(info.FullMethod, start, err)

	return resp, err
}

// HandleStream does the same for server streams; duration covers the whole stream.
func (l *Logging) HandleStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	l.logger.Info("gRPC stream started", "method", info.FullMethod)

	err := handler(srv, ss)
	l.finish(info.FullMethod, start, err)

	return err
}

func (l *Logging) finish(method string, start time.Time, err error) {
	code := statusCode(err)
	metrics.RelayRequests.WithLabelValues(method, code.String()).Inc()

	l.logger.Info("gRPC request completed",
		"method", method,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String())

	if err != nil && code != codes.Canceled {
		l.logger.Error("gRPC request failed",
			"method", method,
			"error", err.Error(),
			"status", code.String())
	}
}

func statusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}
