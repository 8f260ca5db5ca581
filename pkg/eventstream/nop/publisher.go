// Package nop provides a no-op eventstream publisher used for tests and
// for deployments with event publishing disabled.
package nop

import (
	"context"

	"github.com/papercomputeco/drift/pkg/eventstream"
)

// Publisher validates input and discards every event.
type Publisher struct{}

// NewPublisher creates a new no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTransition validates input and otherwise does nothing.
func (p *Publisher) PublishTransition(_ context.Context, event *eventstream.TransitionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishDegraded validates input and otherwise does nothing.
func (p *Publisher) PublishDegraded(_ context.Context, event *eventstream.DegradedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

// Ensure Publisher implements eventstream.Publisher
var _ eventstream.Publisher = (*Publisher)(nil)
