package storage

import (
	"context"
	"io"
)

// Storage is where accepted upload bodies live. Metadata stays in postgres;
// this only deals in opaque keys like "42/1693468800123_<uuid>.png".
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
