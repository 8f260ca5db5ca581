package testutils

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/drift/pkg/kv"
)

// MockKVDriver is a test kv driver that stores entries in memory and can be
// told to fail specific operations.
type MockKVDriver struct {
	mu      sync.Mutex
	entries map[string][]byte

	// FailGet causes Get to return an error.
	FailGet bool

	// FailSet causes Set to return an error.
	FailSet bool

	// FailRemove causes Remove to return an error.
	FailRemove bool

	// FailList causes ListKeys to return an error.
	FailList bool

	// SetCalls counts Set invocations, including failed ones.
	SetCalls int
}

// NewMockKVDriver creates a new mock kv driver.
func NewMockKVDriver() *MockKVDriver {
	return &MockKVDriver{
		entries: make(map[string][]byte),
	}
}

func (m *MockKVDriver) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGet {
		return nil, fmt.Errorf("mock get failure")
	}

	value, ok := m.entries[key]
	if !ok {
		return nil, kv.NotFoundError{Key: key}
	}

	return bytes.Clone(value), nil
}

func (m *MockKVDriver) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++

	if m.FailSet {
		return fmt.Errorf("mock set failure")
	}

	m.entries[key] = bytes.Clone(value)
	return nil
}

func (m *MockKVDriver) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRemove {
		return fmt.Errorf("mock remove failure")
	}

	delete(m.entries, key)
	return nil
}

func (m *MockKVDriver) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailList {
		return nil, fmt.Errorf("mock list failure")
	}

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

func (m *MockKVDriver) Close() error {
	return nil
}

// Len reports the number of stored entries.
func (m *MockKVDriver) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Put seeds an entry directly, bypassing the failure flags.
func (m *MockKVDriver) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = bytes.Clone(value)
}

// Ensure MockKVDriver implements kv.Driver
var _ kv.Driver = (*MockKVDriver)(nil)
