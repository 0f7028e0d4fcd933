package db

import "context"

// Store is the key-value persistence contract shared by the snapshot
// repository and the embedding cache. Backends: bbolt (local file) and
// Redis via rueidis.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
