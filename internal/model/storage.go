package model

import (
	"context"
	"io"
)

// ObjectStorage holds binary artifacts such as classifier models.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
