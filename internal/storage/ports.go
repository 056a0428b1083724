// Package storage defines the durable key/value port used to persist ledger
// snapshots, and its SQLite implementation.
package storage

import "context"

// KeyValueStore is a string-keyed, string-valued durable store. Get returns
// core.ErrNotFound when the key holds no value.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate keys by prefix.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}
