package eventstream

import "context"

// Publisher delivers drift events to an event stream backend.
type Publisher interface {
	PublishTransition(ctx context.Context, event *TransitionEvent) error
	PublishDegraded(ctx context.Context, event *DegradedEvent) error
	Close() error
}
