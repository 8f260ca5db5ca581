// Package contextstore persists per-conversation topic state over an
// injected kv.Driver and runs the tracking pipeline against it. Entries are
// namespaced under "<namespace>/<id>". When the driver fails, the store
// switches to in-memory operation for the remainder of the session and
// reports the degradation instead of surfacing persistence errors to the
// tracking pipeline.
package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/drift/pkg/eventstream"
	"github.com/papercomputeco/drift/pkg/kv"
	"github.com/papercomputeco/drift/pkg/logger"
	"github.com/papercomputeco/drift/pkg/topic"
	"github.com/papercomputeco/drift/pkg/workers"
)

// DefaultNamespace prefixes conversation keys in the kv backend.
const DefaultNamespace = "conversation"

// Config is the configuration options for the context store.
type Config struct {
	// Driver is the persistence backend for conversation contexts.
	Driver kv.Driver

	// Engine runs the inference and tracking pipeline.
	Engine *topic.Engine

	// Pool publishes events asynchronously. Optional.
	Pool *workers.Pool

	// Namespace prefixes every key written to the driver (defaults to
	// "conversation"). Distinct namespaces let deployments share a backend.
	Namespace string

	// TopN bounds the topics returned by Snapshot (defaults to 5).
	TopN int

	// RecentK bounds the transitions returned by Snapshot (defaults to 10).
	RecentK int

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Store is the durable context store keyed by conversation identifier.
type Store struct {
	driver  kv.Driver
	engine  *topic.Engine
	pool    *workers.Pool
	logger  *slog.Logger
	prefix  string
	topN    int
	recentK int

	mu       sync.RWMutex
	degraded bool
	mem      map[string]*topic.ConversationContext
}

// NewStore creates a context store over the given driver and engine.
func NewStore(c *Config) (*Store, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("context store requires a kv driver")
	}

	if c.Engine == nil {
		return nil, fmt.Errorf("context store requires an engine")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	namespace := strings.Trim(c.Namespace, "/")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	topN := c.TopN
	if topN <= 0 {
		topN = topic.DefaultTopN
	}

	recentK := c.RecentK
	if recentK <= 0 {
		recentK = topic.DefaultRecentK
	}

	return &Store{
		driver:  c.Driver,
		engine:  c.Engine,
		pool:    c.Pool,
		logger:  log,
		prefix:  namespace + "/",
		topN:    topN,
		recentK: recentK,
		mem:     make(map[string]*topic.ConversationContext),
	}, nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Engine exposes the store's tracking engine, used by callers that need to
// swap the taxonomy at runtime.
func (s *Store) Engine() *topic.Engine {
	return s.engine
}

// Degraded reports whether the store has lost its persistence backend and
// is operating in-memory only.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// GetOrCreate fetches the context for id, creating and persisting an empty
// one when absent. It always returns a valid context.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*topic.ConversationContext, error) {
	if id == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	return s.load(ctx, id), nil
}

// Update runs the full tracking pipeline for one message against the
// context for id and persists the result. It returns the updated context
// and the transition, if the message produced one.
func (s *Store) Update(ctx context.Context, id, message string, role topic.Role) (*topic.ConversationContext, *topic.Transition, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("conversation id is required")
	}

	c := s.load(ctx, id)
	now := time.Now().UTC()

	transition, decision, decided := s.engine.Track(c, message, role, now)

	if err := s.persist(ctx, c); err != nil {
		return nil, nil, err
	}

	if decided {
		s.logger.Debug("message tracked",
			"conversation_id", id,
			"topic", decision.TopicID,
			"confidence", decision.Confidence,
		)
	}

	if transition != nil {
		s.publishTransition(id, transition)
	}

	return c, transition, nil
}

// Reset clears topical state for id. A full reset erases the context
// entirely; a soft reset keeps the transition history and accumulated
// metadata but clears the current topic and all active confidences.
func (s *Store) Reset(ctx context.Context, id string, full bool) error {
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}

	if full {
		if s.Degraded() {
			s.memRemove(id)
			return nil
		}

		if err := s.driver.Remove(ctx, s.key(id)); err != nil {
			s.degrade(id, "reset", err)
			s.memRemove(id)
		}

		return nil
	}

	c := s.load(ctx, id)
	c.Current = ""
	c.Topics = make(map[string]topic.Topic)
	c.UpdatedAt = time.Now().UTC()

	return s.persist(ctx, c)
}

// Snapshot returns the read-only projection for id: current topic, the
// strongest active topics, and the most recent transitions. Non-positive
// bounds fall back to the configured defaults.
func (s *Store) Snapshot(ctx context.Context, id string, topN, recentK int) (topic.Snapshot, error) {
	if id == "" {
		return topic.Snapshot{}, fmt.Errorf("conversation id is required")
	}

	if topN <= 0 {
		topN = s.topN
	}

	if recentK <= 0 {
		recentK = s.recentK
	}

	c := s.load(ctx, id)
	snap := c.Snapshot(topN, recentK)
	snap.Degraded = s.Degraded()

	return snap, nil
}

// List returns the ids of every persisted conversation, sorted ascending.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.Degraded() {
		return s.memIDs(), nil
	}

	keys, err := s.driver.ListKeys(ctx, s.prefix)
	if err != nil {
		s.degrade("", "list", err)
		return s.memIDs(), nil
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, s.prefix))
	}

	return ids, nil
}

// PurgeAll sweep-removes every persisted entry under the conversation
// namespace.
func (s *Store) PurgeAll(ctx context.Context) error {
	s.memPurge()

	if s.Degraded() {
		return nil
	}

	keys, err := s.driver.ListKeys(ctx, s.prefix)
	if err != nil {
		s.degrade("", "purge", err)
		return nil
	}

	for _, k := range keys {
		if err := s.driver.Remove(ctx, k); err != nil {
			s.degrade("", "purge", err)
			return nil
		}
	}

	s.logger.Debug("conversation namespace purged", "entries", len(keys))

	return nil
}

// load fetches the context for id, creating and persisting an empty one
// when absent. Corrupt entries are replaced with a fresh context. The
// returned context is the caller's to mutate.
func (s *Store) load(ctx context.Context, id string) *topic.ConversationContext {
	if s.Degraded() {
		return s.memLoad(id)
	}

	raw, err := s.driver.Get(ctx, s.key(id))
	switch {
	case err == nil:
		c := &topic.ConversationContext{}
		if jsonErr := json.Unmarshal(raw, c); jsonErr != nil {
			s.logger.Warn("corrupt context replaced",
				"conversation_id", id,
				"error", jsonErr,
			)

			c = topic.NewContext(id, time.Now().UTC())
			_ = s.persist(ctx, c)
			return c
		}

		if c.Topics == nil {
			c.Topics = make(map[string]topic.Topic)
		}

		return c
	case kv.IsNotFound(err):
		c := topic.NewContext(id, time.Now().UTC())
		_ = s.persist(ctx, c)
		return c
	default:
		s.degrade(id, "get", err)
		return s.memLoad(id)
	}
}

// persist writes c through the driver, falling back to the in-memory map
// when the driver fails.
func (s *Store) persist(ctx context.Context, c *topic.ConversationContext) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	if s.Degraded() {
		s.memPut(c)
		return nil
	}

	if err := s.driver.Set(ctx, s.key(c.ID), raw); err != nil {
		s.degrade(c.ID, "set", err)
		s.memPut(c)
	}

	return nil
}

// degrade switches the store to in-memory operation and reports the
// failure once via log and event.
func (s *Store) degrade(id, operation string, err error) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()

	if already {
		return
	}

	s.logger.Warn("persistence unavailable, continuing in-memory",
		"operation", operation,
		"error", err,
	)

	if s.pool == nil {
		return
	}

	event := &eventstream.DegradedEvent{
		Envelope:       eventstream.NewEnvelope(eventstream.EventTypeContextDegraded),
		ConversationID: id,
		Operation:      operation,
		Reason:         err.Error(),
	}

	s.pool.Enqueue(workers.Job{Degraded: event})
}

func (s *Store) publishTransition(id string, t *topic.Transition) {
	if s.pool == nil {
		return
	}

	event := &eventstream.TransitionEvent{
		Envelope:        eventstream.NewEnvelope(eventstream.EventTypeTransitionRecorded),
		ConversationID:  id,
		From:            t.From,
		To:              t.To,
		Explicit:        t.Explicit,
		ConfidenceDelta: t.ConfidenceDelta,
		At:              t.At,
	}

	s.pool.Enqueue(workers.Job{Transition: event})
}

func (s *Store) memLoad(id string) *topic.ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.mem[id]; ok {
		return c.Clone()
	}

	c := topic.NewContext(id, time.Now().UTC())
	s.mem[id] = c.Clone()

	return c
}

func (s *Store) memPut(c *topic.ConversationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[c.ID] = c.Clone()
}

func (s *Store) memRemove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mem, id)
}

func (s *Store) memPurge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = make(map[string]*topic.ConversationContext)
}

func (s *Store) memIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.mem))
	for id := range s.mem {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
