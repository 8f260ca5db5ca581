package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent drift configuration stored as config.toml
// in the .drift/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	Engine       EngineConfig       `toml:"engine"`
	Taxonomy     TaxonomyConfig     `toml:"taxonomy"`
	Store        StoreConfig        `toml:"store"`
	Conversation ConversationConfig `toml:"conversation"`
	API          APIConfig          `toml:"api"`
	MCP          MCPConfig          `toml:"mcp"`
	Events       EventsConfig       `toml:"events"`
	Log          LogConfig          `toml:"log"`
}

// EngineConfig holds inference engine tuning knobs.
type EngineConfig struct {
	Boost              float64  `toml:"boost,omitempty"`
	ScoreThreshold     float64  `toml:"score_threshold,omitempty"`
	ContinuityBonus    float64  `toml:"continuity_bonus,omitempty"`
	RetentionThreshold float64  `toml:"retention_threshold,omitempty"`
	Decay              string   `toml:"decay,omitempty"`
	DecayHalfLife      string   `toml:"decay_half_life,omitempty"`
	TopN               int      `toml:"top_n,omitempty"`
	RecentK            int      `toml:"recent_k,omitempty"`
	Markers            []string `toml:"markers,omitempty"`
}

// TaxonomyConfig holds topic taxonomy settings. An empty path means the
// built-in university taxonomy is used.
type TaxonomyConfig struct {
	Path  string `toml:"path,omitempty"`
	Watch bool   `toml:"watch,omitempty"`
}

// StoreConfig holds persistence backend settings.
type StoreConfig struct {
	Backend   string `toml:"backend,omitempty"`
	DSN       string `toml:"dsn,omitempty"`
	Namespace string `toml:"namespace,omitempty"`
}

// ConversationConfig holds lifecycle manager settings.
type ConversationConfig struct {
	PurgeOnStart bool `toml:"purge_on_start"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Host string `toml:"host,omitempty"`
	Port uint   `toml:"port,omitempty"`
}

// MCPConfig holds MCP tool surface settings.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Backend string   `toml:"backend,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool `toml:"debug,omitempty"`
	JSON  bool `toml:"json,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"engine.boost": {
		get: func(c *Config) string { return formatFloat(c.Engine.Boost) },
		set: func(c *Config, v string) error {
			f, err := parseFloat("engine.boost", v)
			if err != nil {
				return err
			}
			c.Engine.Boost = f
			return nil
		},
	},
	"engine.score_threshold": {
		get: func(c *Config) string { return formatFloat(c.Engine.ScoreThreshold) },
		set: func(c *Config, v string) error {
			f, err := parseFloat("engine.score_threshold", v)
			if err != nil {
				return err
			}
			c.Engine.ScoreThreshold = f
			return nil
		},
	},
	"engine.continuity_bonus": {
		get: func(c *Config) string { return formatFloat(c.Engine.ContinuityBonus) },
		set: func(c *Config, v string) error {
			f, err := parseFloat("engine.continuity_bonus", v)
			if err != nil {
				return err
			}
			c.Engine.ContinuityBonus = f
			return nil
		},
	},
	"engine.retention_threshold": {
		get: func(c *Config) string { return formatFloat(c.Engine.RetentionThreshold) },
		set: func(c *Config, v string) error {
			f, err := parseFloat("engine.retention_threshold", v)
			if err != nil {
				return err
			}
			c.Engine.RetentionThreshold = f
			return nil
		},
	},
	"engine.decay": {
		get: func(c *Config) string { return c.Engine.Decay },
		set: func(c *Config, v string) error {
			if v != "exponential" && v != "linear" {
				return fmt.Errorf("invalid value for engine.decay: %q (available: exponential, linear)", v)
			}
			c.Engine.Decay = v
			return nil
		},
	},
	"engine.decay_half_life": {
		get: func(c *Config) string { return c.Engine.DecayHalfLife },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for engine.decay_half_life: %w", err)
			}
			c.Engine.DecayHalfLife = v
			return nil
		},
	},
	"engine.top_n": {
		get: func(c *Config) string { return formatInt(c.Engine.TopN) },
		set: func(c *Config, v string) error {
			n, err := parseInt("engine.top_n", v)
			if err != nil {
				return err
			}
			c.Engine.TopN = n
			return nil
		},
	},
	"engine.recent_k": {
		get: func(c *Config) string { return formatInt(c.Engine.RecentK) },
		set: func(c *Config, v string) error {
			n, err := parseInt("engine.recent_k", v)
			if err != nil {
				return err
			}
			c.Engine.RecentK = n
			return nil
		},
	},
	"engine.markers": {
		get: func(c *Config) string { return strings.Join(c.Engine.Markers, ",") },
		set: func(c *Config, v string) error {
			c.Engine.Markers = splitList(v)
			return nil
		},
	},
	"taxonomy.path": {
		get: func(c *Config) string { return c.Taxonomy.Path },
		set: func(c *Config, v string) error { c.Taxonomy.Path = v; return nil },
	},
	"taxonomy.watch": {
		get: func(c *Config) string { return strconv.FormatBool(c.Taxonomy.Watch) },
		set: func(c *Config, v string) error {
			b, err := parseBool("taxonomy.watch", v)
			if err != nil {
				return err
			}
			c.Taxonomy.Watch = b
			return nil
		},
	},
	"store.backend": {
		get: func(c *Config) string { return c.Store.Backend },
		set: func(c *Config, v string) error {
			switch v {
			case "inmemory", "sqlite", "postgres", "libsql":
				c.Store.Backend = v
				return nil
			default:
				return fmt.Errorf("invalid value for store.backend: %q (available: inmemory, sqlite, postgres, libsql)", v)
			}
		},
	},
	"store.dsn": {
		get: func(c *Config) string { return c.Store.DSN },
		set: func(c *Config, v string) error { c.Store.DSN = v; return nil },
	},
	"store.namespace": {
		get: func(c *Config) string { return c.Store.Namespace },
		set: func(c *Config, v string) error { c.Store.Namespace = v; return nil },
	},
	"conversation.purge_on_start": {
		get: func(c *Config) string { return strconv.FormatBool(c.Conversation.PurgeOnStart) },
		set: func(c *Config, v string) error {
			b, err := parseBool("conversation.purge_on_start", v)
			if err != nil {
				return err
			}
			c.Conversation.PurgeOnStart = b
			return nil
		},
	},
	"api.host": {
		get: func(c *Config) string { return c.API.Host },
		set: func(c *Config, v string) error { c.API.Host = v; return nil },
	},
	"api.port": {
		get: func(c *Config) string {
			if c.API.Port == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.API.Port), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for api.port: %w", err)
			}
			c.API.Port = uint(n)
			return nil
		},
	},
	"mcp.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.MCP.Enabled) },
		set: func(c *Config, v string) error {
			b, err := parseBool("mcp.enabled", v)
			if err != nil {
				return err
			}
			c.MCP.Enabled = b
			return nil
		},
	},
	"events.backend": {
		get: func(c *Config) string { return c.Events.Backend },
		set: func(c *Config, v string) error {
			switch v {
			case "nop", "kafka":
				c.Events.Backend = v
				return nil
			default:
				return fmt.Errorf("invalid value for events.backend: %q (available: nop, kafka)", v)
			}
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitList(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := parseBool("log.debug", v)
			if err != nil {
				return err
			}
			c.Log.Debug = b
			return nil
		},
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := parseBool("log.json", v)
			if err != nil {
				return err
			}
			c.Log.JSON = b
			return nil
		},
	},
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return f, nil
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b, nil
}

// splitList turns a comma-separated value into a trimmed string slice.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
