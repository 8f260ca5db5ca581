package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/drift/pkg/eventstream"
)

// MockPublisher is a test publisher that records every event it receives
// and can be told to fail.
type MockPublisher struct {
	mu sync.Mutex

	// Transitions accumulates all published transition events.
	Transitions []*eventstream.TransitionEvent

	// Degraded accumulates all published degradation events.
	Degraded []*eventstream.DegradedEvent

	// FailPublish causes both publish methods to return an error.
	FailPublish bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTransition(_ context.Context, event *eventstream.TransitionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return fmt.Errorf("mock publish failure")
	}

	m.Transitions = append(m.Transitions, event)
	return nil
}

func (m *MockPublisher) PublishDegraded(_ context.Context, event *eventstream.DegradedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublish {
		return fmt.Errorf("mock publish failure")
	}

	m.Degraded = append(m.Degraded, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// TransitionCount reports the number of recorded transition events.
func (m *MockPublisher) TransitionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Transitions)
}

// DegradedCount reports the number of recorded degradation events.
func (m *MockPublisher) DegradedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Degraded)
}

// Ensure MockPublisher implements eventstream.Publisher
var _ eventstream.Publisher = (*MockPublisher)(nil)
