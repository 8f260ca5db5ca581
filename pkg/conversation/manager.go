// Package conversation manages the lifecycle of the active conversation:
// starting fresh conversations, loading existing ones by id, and exposing
// readiness while a context (re)load is in flight.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/drift/pkg/contextstore"
	"github.com/papercomputeco/drift/pkg/logger"
)

// ErrNoConversation indicates no conversation has been started or loaded.
var ErrNoConversation = errors.New("no active conversation")

// Config is the configuration options for the lifecycle manager.
type Config struct {
	// Store is the context store backing conversation state.
	Store *contextstore.Store

	// PurgeOnStart sweeps all persisted contexts when a new conversation
	// starts, giving fresh-slate semantics.
	PurgeOnStart bool

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Manager is a state machine over a single active conversation identifier.
// It moves from NoConversation to Active via StartNew or Load and reports
// readiness while an identifier switch is still warming its context.
type Manager struct {
	store        *contextstore.Store
	purgeOnStart bool
	logger       *slog.Logger

	mu         sync.Mutex
	id         string
	ready      bool
	generation uint64
	notify     chan struct{}
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(c *Config) (*Manager, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("conversation manager requires a context store")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Manager{
		store:        c.Store,
		purgeOnStart: c.PurgeOnStart,
		logger:       log,
		notify:       make(chan struct{}),
	}, nil
}

// StartNew purges prior persisted state (subject to the purge-on-start
// policy), mints a fresh identifier, and transitions to Active. The empty
// context is constructed lazily on first access.
func (m *Manager) StartNew(ctx context.Context) (string, error) {
	if m.purgeOnStart {
		if err := m.store.PurgeAll(ctx); err != nil {
			return "", fmt.Errorf("failed to purge conversations: %w", err)
		}
	}

	id := uuid.NewString()

	m.mu.Lock()
	m.id = id
	m.ready = true
	m.generation++
	m.signal()
	m.mu.Unlock()

	m.logger.Info("conversation started",
		"conversation_id", id,
		"purged", m.purgeOnStart,
	)

	return id, nil
}

// Load binds the manager to an existing conversation id. The context is
// warmed on a background goroutine; callers observe the not-ready window
// via Ready and WaitReady. Other conversations' stored state is untouched.
func (m *Manager) Load(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}

	m.mu.Lock()
	m.id = id
	m.ready = false
	m.generation++
	gen := m.generation
	m.signal()
	m.mu.Unlock()

	m.logger.Info("conversation loading", "conversation_id", id)

	// The warm-up must survive the caller's request lifetime.
	warmCtx := context.WithoutCancel(ctx)

	go func() {
		if _, err := m.store.GetOrCreate(warmCtx, id); err != nil {
			m.logger.Warn("conversation load failed",
				"conversation_id", id,
				"error", err,
			)
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		// A newer StartNew or Load superseded this warm-up.
		if m.generation != gen {
			return
		}

		m.ready = true
		m.signal()
	}()

	return nil
}

// Active reports the current conversation identifier.
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != ""
}

// Ready reports whether the active conversation's context is available.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id != "" && m.ready
}

// WaitReady blocks until the active conversation's context is available or
// ctx is done. It returns ErrNoConversation when nothing has been started.
func (m *Manager) WaitReady(ctx context.Context) error {
	for {
		m.mu.Lock()
		if m.id == "" {
			m.mu.Unlock()
			return ErrNoConversation
		}
		if m.ready {
			m.mu.Unlock()
			return nil
		}
		ch := m.notify
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// signal wakes all waiters so they re-evaluate manager state.
// Callers must hold mu.
func (m *Manager) signal() {
	close(m.notify)
	m.notify = make(chan struct{})
}
