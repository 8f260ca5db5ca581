package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/drift/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the DRIFT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DRIFT_API_PORT, DRIFT_STORE_BACKEND, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: DRIFT_API_PORT, DRIFT_STORE_DSN, etc.
	v.SetEnvPrefix("DRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Engine
	v.SetDefault("engine.boost", d.Engine.Boost)
	v.SetDefault("engine.score_threshold", d.Engine.ScoreThreshold)
	v.SetDefault("engine.continuity_bonus", d.Engine.ContinuityBonus)
	v.SetDefault("engine.retention_threshold", d.Engine.RetentionThreshold)
	v.SetDefault("engine.decay", d.Engine.Decay)
	v.SetDefault("engine.decay_half_life", d.Engine.DecayHalfLife)
	v.SetDefault("engine.top_n", d.Engine.TopN)
	v.SetDefault("engine.recent_k", d.Engine.RecentK)
	v.SetDefault("engine.markers", d.Engine.Markers)

	// Taxonomy
	v.SetDefault("taxonomy.path", d.Taxonomy.Path)
	v.SetDefault("taxonomy.watch", d.Taxonomy.Watch)

	// Store
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.namespace", d.Store.Namespace)

	// Conversation
	v.SetDefault("conversation.purge_on_start", d.Conversation.PurgeOnStart)

	// API
	v.SetDefault("api.host", d.API.Host)
	v.SetDefault("api.port", d.API.Port)

	// MCP
	v.SetDefault("mcp.enabled", d.MCP.Enabled)

	// Events
	v.SetDefault("events.backend", d.Events.Backend)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Log
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
}
