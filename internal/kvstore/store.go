// Package kvstore holds the key-value collaborator behind the event store.
package kvstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store
var ErrKeyNotFound = errors.New("key not found")

// Store defines the interface for key-value storage.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a value, overwriting any existing value for the key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns all keys in the store. Order is not guaranteed.
	List(ctx context.Context) ([]string, error)

	// Close releases underlying resources
	Close() error
}

// Open returns a SQLite-backed store for path, or an in-memory map store when path is empty
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}
