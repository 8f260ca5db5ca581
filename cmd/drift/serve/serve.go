// Package servecmder provides the serve command for running the drift
// tracking server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/drift/api"
	"github.com/papercomputeco/drift/api/mcp"
	"github.com/papercomputeco/drift/pkg/config"
	"github.com/papercomputeco/drift/pkg/contextstore"
	"github.com/papercomputeco/drift/pkg/conversation"
	"github.com/papercomputeco/drift/pkg/dotdir"
	"github.com/papercomputeco/drift/pkg/eventstream"
	"github.com/papercomputeco/drift/pkg/eventstream/kafka"
	"github.com/papercomputeco/drift/pkg/eventstream/nop"
	"github.com/papercomputeco/drift/pkg/kv"
	"github.com/papercomputeco/drift/pkg/kv/inmemory"
	kvlibsql "github.com/papercomputeco/drift/pkg/kv/libsql"
	kvpostgres "github.com/papercomputeco/drift/pkg/kv/postgres"
	kvsqlite "github.com/papercomputeco/drift/pkg/kv/sqlite"
	"github.com/papercomputeco/drift/pkg/logger"
	"github.com/papercomputeco/drift/pkg/taxonomy"
	"github.com/papercomputeco/drift/pkg/topic"
	"github.com/papercomputeco/drift/pkg/workers"
)

type serveCommander struct {
	debug     bool
	configDir string

	host          string
	port          uint
	backend       string
	dsn           string
	taxonomyPath  string
	taxonomyWatch bool
	purgeOnStart  bool
	mcpEnabled    bool
	eventsBackend string
	eventsBrokers []string
	eventsTopic   string

	v      *viper.Viper
	logger *slog.Logger
}

// serveFlags maps every serve flag onto the viper key it overrides.
var serveFlags = config.FlagSet{
	config.FlagAPIHost:       {Name: "host", ViperKey: "api.host", Description: "Host for the API server to bind"},
	config.FlagAPIPort:       {Name: "port", Shorthand: "p", ViperKey: "api.port", Description: "Port for the API server to listen on"},
	config.FlagStoreBackend:  {Name: "backend", Shorthand: "b", ViperKey: "store.backend", Description: "Context store backend (inmemory, sqlite, postgres, libsql)"},
	config.FlagStoreDSN:      {Name: "dsn", ViperKey: "store.dsn", Description: "Context store DSN (file path for sqlite, URL for postgres/libsql)"},
	config.FlagTaxonomyPath:  {Name: "taxonomy", Shorthand: "t", ViperKey: "taxonomy.path", Description: "Path to a taxonomy TOML file (default: built-in taxonomy)"},
	config.FlagTaxonomyWatch: {Name: "watch", ViperKey: "taxonomy.watch", Description: "Reload the taxonomy file when it changes on disk"},
	config.FlagPurgeOnStart:  {Name: "purge", ViperKey: "conversation.purge_on_start", Description: "Purge stored conversations when the server starts"},
	config.FlagMCPEnabled:    {Name: "mcp", ViperKey: "mcp.enabled", Description: "Expose the MCP tool surface on /mcp"},
	config.FlagEventsBackend: {Name: "events-backend", ViperKey: "events.backend", Description: "Event stream backend (nop, kafka)"},
	config.FlagEventsBrokers: {Name: "events-brokers", ViperKey: "events.brokers", Description: "Kafka bootstrap broker addresses"},
	config.FlagEventsTopic:   {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic that receives drift events"},
}

// serveFlagKeys lists the registry keys bound to viper in PreRunE.
var serveFlagKeys = []string{
	config.FlagAPIHost,
	config.FlagAPIPort,
	config.FlagStoreBackend,
	config.FlagStoreDSN,
	config.FlagTaxonomyPath,
	config.FlagTaxonomyWatch,
	config.FlagPurgeOnStart,
	config.FlagMCPEnabled,
	config.FlagEventsBackend,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the drift tracking server.

Serves the conversation-tracking REST API and, unless disabled, the MCP
tool surface on /mcp. Settings resolve from flags, DRIFT_* environment
variables, and config.toml in the .drift/ directory, in that order.

Examples:
  drift serve
  drift serve --backend postgres --dsn postgres://localhost:5432/drift
  drift serve --taxonomy topics.toml --watch
  drift serve --events-backend kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the drift tracking server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			cmder.v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(cmder.v, cmd, serveFlags, serveFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIHost, &cmder.host)
	config.AddUintFlag(cmd, serveFlags, config.FlagAPIPort, &cmder.port)
	config.AddStringFlag(cmd, serveFlags, config.FlagStoreBackend, &cmder.backend)
	config.AddStringFlag(cmd, serveFlags, config.FlagStoreDSN, &cmder.dsn)
	config.AddStringFlag(cmd, serveFlags, config.FlagTaxonomyPath, &cmder.taxonomyPath)
	config.AddBoolFlag(cmd, serveFlags, config.FlagTaxonomyWatch, &cmder.taxonomyWatch)
	config.AddBoolFlag(cmd, serveFlags, config.FlagPurgeOnStart, &cmder.purgeOnStart)
	config.AddBoolFlag(cmd, serveFlags, config.FlagMCPEnabled, &cmder.mcpEnabled)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBackend, &cmder.eventsBackend)
	config.AddStringSliceFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug || c.v.GetBool("log.debug")),
		logger.WithJSON(c.v.GetBool("log.json")),
	)

	def, err := c.loadTaxonomy()
	if err != nil {
		return err
	}

	engine := topic.NewEngine(def, c.engineConfig(), c.logger)

	if path := c.v.GetString("taxonomy.path"); path != "" && c.v.GetBool("taxonomy.watch") {
		watcher, err := taxonomy.NewWatcher(path, c.logger, engine.SetTaxonomy)
		if err != nil {
			return fmt.Errorf("creating taxonomy watcher: %w", err)
		}
		defer watcher.Close()
	}

	driver, err := c.newKVDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, closePublisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	pool, err := workers.NewPool(&workers.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	store, err := contextstore.NewStore(&contextstore.Config{
		Driver:    driver,
		Engine:    engine,
		Pool:      pool,
		Namespace: c.v.GetString("store.namespace"),
		TopN:      c.v.GetInt("engine.top_n"),
		RecentK:   c.v.GetInt("engine.recent_k"),
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating context store: %w", err)
	}

	lifecycle, err := conversation.NewManager(&conversation.Config{
		Store:        store,
		PurgeOnStart: c.v.GetBool("conversation.purge_on_start"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating conversation manager: %w", err)
	}

	id, err := lifecycle.StartNew(ctx)
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}
	c.logger.Info("active conversation ready", "conversation_id", id)

	mcpHandler, err := c.newMCPHandler(store)
	if err != nil {
		return err
	}

	apiConfig := api.Config{
		Host:       c.v.GetString("api.host"),
		Port:       c.v.GetUint("api.port"),
		MCPHandler: mcpHandler,
	}
	apiServer, err := api.NewServer(apiConfig, store, lifecycle, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	defer func() { _ = apiServer.Shutdown() }()

	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("api error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

// loadTaxonomy resolves the taxonomy definition from the configured path,
// falling back to the built-in vocabulary.
func (c *serveCommander) loadTaxonomy() (*taxonomy.Definition, error) {
	path := c.v.GetString("taxonomy.path")
	if path == "" {
		c.logger.Info("using built-in taxonomy")
		return taxonomy.Default(), nil
	}

	def, err := taxonomy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	c.logger.Info("taxonomy loaded", "path", path, "topics", len(def.Topics))
	return def, nil
}

// engineConfig assembles the engine tuning from resolved settings.
func (c *serveCommander) engineConfig() topic.Config {
	cfg := topic.Config{
		Boost:              c.v.GetFloat64("engine.boost"),
		ScoreThreshold:     c.v.GetFloat64("engine.score_threshold"),
		ContinuityBonus:    c.v.GetFloat64("engine.continuity_bonus"),
		RetentionThreshold: c.v.GetFloat64("engine.retention_threshold"),
		Decay:              newDecay(c.v.GetString("engine.decay"), c.v.GetString("engine.decay_half_life")),
	}

	if markers := c.v.GetStringSlice("engine.markers"); len(markers) > 0 {
		cfg.IsExplicitSwitch = topic.Markers(markers)
	}

	return cfg
}

// newDecay maps a decay name and window onto a DecayFunc. Bad durations
// fall back to the default half-life; unknown names decay exponentially.
func newDecay(name, halfLife string) topic.DecayFunc {
	window, err := time.ParseDuration(halfLife)
	if err != nil || window <= 0 {
		window = topic.DefaultHalfLife
	}

	if name == "linear" {
		return topic.LinearDecay(window)
	}

	return topic.ExponentialDecay(window)
}

func (c *serveCommander) newKVDriver(ctx context.Context) (kv.Driver, error) {
	backend := c.v.GetString("store.backend")
	dsn := c.v.GetString("store.dsn")

	switch backend {
	case "inmemory":
		c.logger.Info("using in-memory store")
		return inmemory.NewDriver(), nil

	case "", "sqlite":
		if dsn == "" {
			var err error
			dsn, err = defaultSQLitePath(c.configDir)
			if err != nil {
				return nil, err
			}
		}
		driver, err := kvsqlite.NewDriver(dsn)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		c.logger.Info("using sqlite store", "path", dsn)
		return driver, nil

	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend requires store.dsn")
		}
		driver, err := kvpostgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		c.logger.Info("using postgres store")
		return driver, nil

	case "libsql":
		if dsn == "" {
			return nil, fmt.Errorf("libsql backend requires store.dsn")
		}
		driver, err := kvlibsql.NewDriver(dsn)
		if err != nil {
			return nil, fmt.Errorf("creating libsql store: %w", err)
		}
		c.logger.Info("using libsql store")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q (available: inmemory, sqlite, postgres, libsql)", backend)
	}
}

// defaultSQLitePath places the database in the resolved .drift/ directory
// when no DSN is configured.
func defaultSQLitePath(configDir string) (string, error) {
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving drift directory: %w", err)
	}

	return filepath.Join(dir, "drift.db"), nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, func(), error) {
	backend := c.v.GetString("events.backend")

	switch backend {
	case "", "nop":
		return nop.NewPublisher(), func() {}, nil

	case "kafka":
		brokers := c.v.GetStringSlice("events.brokers")
		topicName := c.v.GetString("events.topic")

		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   topicName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		c.logger.Info("publishing events to kafka", "brokers", brokers, "topic", topicName)

		closer := func() {
			if err := publisher.Close(); err != nil {
				c.logger.Warn("closing kafka publisher", "error", err)
			}
		}
		return publisher, closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown events backend: %q (available: nop, kafka)", backend)
	}
}

// newMCPHandler builds the MCP tool surface, or nil when disabled.
func (c *serveCommander) newMCPHandler(store *contextstore.Store) (http.Handler, error) {
	if !c.v.GetBool("mcp.enabled") {
		c.logger.Info("MCP tools disabled")
		return nil, nil
	}

	server, err := mcp.NewServer(mcp.Config{
		Store:  store,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mcp server: %w", err)
	}

	return server.Handler(), nil
}
