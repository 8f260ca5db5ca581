// Package inmemory provides a map-backed kv.Driver. It is the default
// backend for tests and for ephemeral tracking sessions, and doubles as the
// fallback store when a durable backend degrades.
package inmemory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/drift/pkg/kv"
)

// Driver implements kv.Driver using an in-memory map.
type Driver struct {
	// mu guards entries; reads outnumber writes once a conversation warms up
	mu sync.RWMutex

	entries map[string][]byte
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		entries: make(map[string][]byte),
	}
}

// Get retrieves the value stored under key. The returned slice is a copy so
// callers cannot mutate stored state.
func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.entries[key]
	if !ok {
		return nil, kv.NotFoundError{Key: key}
	}

	return bytes.Clone(value), nil
}

// Set writes value under key, overwriting any existing entry.
func (d *Driver) Set(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[key] = bytes.Clone(value)
	return nil
}

// Remove deletes the entry under key. Absent keys are a no-op.
func (d *Driver) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.entries, key)
	return nil
}

// ListKeys returns all keys beginning with prefix, sorted ascending.
func (d *Driver) ListKeys(_ context.Context, prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the in-memory backend.
func (d *Driver) Close() error {
	return nil
}

// Ensure Driver implements kv.Driver
var _ kv.Driver = (*Driver)(nil)
