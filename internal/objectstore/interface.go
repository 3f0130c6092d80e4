package objectstore

import "context"

// ObjectStore is the interface components depend on instead of *Store
// directly, so tests can substitute an in-memory fake.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Head(ctx context.Context, key string) (int64, error)
}

var _ ObjectStore = (*Store)(nil)
