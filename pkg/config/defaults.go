package config

import "github.com/papercomputeco/drift/pkg/topic"

const (
	defaultStoreBackend  = "sqlite"
	defaultNamespace     = "conversation"
	defaultDecay         = "exponential"
	defaultDecayHalfLife = "30m"

	defaultAPIHost = "localhost"
	defaultAPIPort = 8081

	defaultEventsBackend = "nop"
	defaultEventsTopic   = "drift.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values; engine knobs come
// from the topic package so the two never drift apart.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Engine: EngineConfig{
			Boost:              topic.DefaultBoost,
			ScoreThreshold:     topic.DefaultScoreThreshold,
			ContinuityBonus:    topic.DefaultContinuityBonus,
			RetentionThreshold: topic.DefaultRetentionThreshold,
			Decay:              defaultDecay,
			DecayHalfLife:      defaultDecayHalfLife,
			TopN:               topic.DefaultTopN,
			RecentK:            topic.DefaultRecentK,
		},
		Store: StoreConfig{
			Backend:   defaultStoreBackend,
			Namespace: defaultNamespace,
		},
		Conversation: ConversationConfig{
			PurgeOnStart: true,
		},
		API: APIConfig{
			Host: defaultAPIHost,
			Port: defaultAPIPort,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			Backend: defaultEventsBackend,
			Topic:   defaultEventsTopic,
		},
	}
}
