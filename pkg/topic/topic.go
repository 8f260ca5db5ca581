// Package topic implements the conversation topic-tracking core: a scoring
// engine that infers the current topic of a message against a fixed
// taxonomy, a confidence tracker that boosts re-mentioned topics and decays
// idle ones, and a transition detector that records explicit and implicit
// subject changes.
package topic

import (
	"time"
)

// Role identifies the author of a tracked message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Topic is one actively tracked subject with a decaying confidence score.
type Topic struct {
	ID            string    `json:"id"`
	Confidence    float64   `json:"confidence"`
	LastDiscussed time.Time `json:"last_discussed"`
}

// Transition records a switch of the current topic. Explicit means the
// user's message carried a deliberate topic-change marker; implicit means
// the switch was inferred from keyword drift alone.
type Transition struct {
	From            string    `json:"from"`
	To              string    `json:"to"`
	At              time.Time `json:"at"`
	Explicit        bool      `json:"explicit"`
	ConfidenceDelta float64   `json:"confidence_delta"`
}

// TopicDecision is the outcome of scoring one message: the winning topic,
// the engine's confidence in it, and the signals that evidenced it.
type TopicDecision struct {
	TopicID        string   `json:"topic_id"`
	Confidence     float64  `json:"confidence"`
	MatchedSignals []string `json:"matched_signals"`
}

// Metadata carries derived response-shaping state accumulated across
// updates: recently seen entities and rolling one-line message summaries.
type Metadata struct {
	Entities  []string `json:"entities,omitempty"`
	Summaries []string `json:"summaries,omitempty"`
}

// ConversationContext is the full tracked state for one conversation.
// It is mutated only through the engine and the context store; everything
// handed to consumers goes through Snapshot.
type ConversationContext struct {
	ID          string           `json:"id"`
	Current     string           `json:"current,omitempty"`
	Topics      map[string]Topic `json:"topics"`
	Transitions []Transition     `json:"transitions"`
	Metadata    Metadata         `json:"metadata"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewContext constructs an empty context for a conversation id: no current
// topic, no active topics, no transition history.
func NewContext(id string, now time.Time) *ConversationContext {
	return &ConversationContext{
		ID:          id,
		Topics:      make(map[string]Topic),
		Transitions: []Transition{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy. The store hands clones to callers so internal
// state is never aliased.
func (c *ConversationContext) Clone() *ConversationContext {
	if c == nil {
		return nil
	}

	out := *c

	out.Topics = make(map[string]Topic, len(c.Topics))
	for id, t := range c.Topics {
		out.Topics[id] = t
	}

	out.Transitions = make([]Transition, len(c.Transitions))
	copy(out.Transitions, c.Transitions)

	out.Metadata.Entities = append([]string(nil), c.Metadata.Entities...)
	out.Metadata.Summaries = append([]string(nil), c.Metadata.Summaries...)

	return &out
}

// CurrentConfidence returns the active confidence of the current topic,
// zero when there is no current topic or it has been garbage-collected.
func (c *ConversationContext) CurrentConfidence() float64 {
	if c.Current == "" {
		return 0
	}
	return c.Topics[c.Current].Confidence
}
