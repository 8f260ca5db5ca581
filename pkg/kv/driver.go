// Package kv defines the key-value persistence collaborator that backs
// per-conversation context state. Backends live in subdirectories (inmemory,
// sqlite, postgres, libsql) and are selected by configuration; the context
// store only ever sees this interface.
package kv

import "context"

// Driver is the persistence contract consumed by the context store.
// Keys are opaque strings, values opaque byte slices; the store layers its
// own namespacing and serialization on top.
type Driver interface {
	// Get retrieves the value stored under key.
	// Returns NotFoundError when no entry exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, overwriting any existing entry.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the entry under key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// ListKeys returns every stored key beginning with prefix, sorted
	// ascending. An empty prefix lists all keys.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}
