// Package eventstream defines transport-neutral events emitted by the
// context store and the Publisher contract for delivering them. Backends
// live in subdirectories (nop, kafka) and are selected by configuration.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTransitionRecorded is emitted after a topic transition is
	// persisted to a conversation's context.
	EventTypeTransitionRecorded = "drift.transition.recorded"

	// EventTypeContextDegraded is emitted when the context store loses its
	// persistence backend and falls back to in-memory operation.
	EventTypeContextDegraded = "drift.context.degraded"
)

// Envelope is the common header carried by every drift event.
type Envelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Source        string    `json:"source"`
}

// NewEnvelope stamps a fresh envelope for the given event type.
func NewEnvelope(eventType string) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        "drift",
	}
}

// TransitionEvent is the payload for a recorded topic transition.
type TransitionEvent struct {
	Envelope
	ConversationID  string    `json:"conversation_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Explicit        bool      `json:"explicit"`
	ConfidenceDelta float64   `json:"confidence_delta"`
	At              time.Time `json:"at"`
}

// DegradedEvent is the payload for a persistence degradation.
type DegradedEvent struct {
	Envelope
	ConversationID string `json:"conversation_id"`
	Operation      string `json:"operation"`
	Reason         string `json:"reason"`
}
