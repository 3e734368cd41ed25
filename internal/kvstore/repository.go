package kvstore

import "context"

// Repository is a flat key-value area. Get returns (nil, nil) for unset keys.
// Set overwrites; slots are never removed.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
