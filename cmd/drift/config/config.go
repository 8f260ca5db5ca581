// Package configcmder provides the config command for managing persistent
// drift configuration stored in the .drift/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent drift configuration.

Configuration is stored as config.toml in the .drift/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  engine.boost, engine.score_threshold, engine.continuity_bonus,
  engine.retention_threshold, engine.decay, engine.decay_half_life,
  engine.top_n, engine.recent_k, engine.markers,
  taxonomy.path, taxonomy.watch,
  store.backend, store.dsn, store.namespace,
  conversation.purge_on_start,
  api.host, api.port, mcp.enabled,
  events.backend, events.brokers, events.topic,
  log.debug, log.json

Use subcommands to get, set, or list configuration values:
  drift config set <key> <value>    Set a configuration value
  drift config get <key>            Get a configuration value
  drift config list                 List all configuration values

Examples:
  drift config set store.backend postgres
  drift config set engine.decay_half_life 45m
  drift config get store.backend
  drift config list`

const configShortDesc string = "Manage persistent drift configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
