package topic

import (
	"sort"
	"time"
)

// Snapshot defaults used when a caller passes non-positive bounds.
const (
	DefaultTopN    = 5
	DefaultRecentK = 10
)

// Snapshot is the read-only projection handed to response generators:
// the current topic, the strongest active topics, and the most recent
// transitions. It never exposes the raw internal log structure.
type Snapshot struct {
	ConversationID string       `json:"conversation_id"`
	Current        string       `json:"current,omitempty"`
	Topics         []Topic      `json:"topics"`
	Transitions    []Transition `json:"transitions"`
	Degraded       bool         `json:"degraded,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Snapshot projects the context into at most topN active topics ranked by
// confidence (ties broken by topic id for determinism) and the recentK most
// recent transitions in chronological order.
func (c *ConversationContext) Snapshot(topN, recentK int) Snapshot {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if recentK <= 0 {
		recentK = DefaultRecentK
	}

	topics := make([]Topic, 0, len(c.Topics))
	for _, t := range c.Topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Confidence != topics[j].Confidence {
			return topics[i].Confidence > topics[j].Confidence
		}
		return topics[i].ID < topics[j].ID
	})
	if len(topics) > topN {
		topics = topics[:topN]
	}

	transitions := c.Transitions
	if len(transitions) > recentK {
		transitions = transitions[len(transitions)-recentK:]
	}
	recent := make([]Transition, len(transitions))
	copy(recent, transitions)

	return Snapshot{
		ConversationID: c.ID,
		Current:        c.Current,
		Topics:         topics,
		Transitions:    recent,
		UpdatedAt:      c.UpdatedAt,
	}
}
