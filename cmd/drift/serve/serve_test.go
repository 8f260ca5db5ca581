package servecmder

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/papercomputeco/drift/pkg/logger"
	"github.com/papercomputeco/drift/pkg/topic"
)

// newTestCommander builds a commander over a bare viper seeded with the
// given settings.
func newTestCommander(settings map[string]any) *serveCommander {
	GinkgoHelper()

	v := viper.New()
	for key, value := range settings {
		v.Set(key, value)
	}

	return &serveCommander{v: v, logger: logger.Nop()}
}

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the backend flag with its config default", func() {
		cmd := NewServeCmd()
		f := cmd.Flags().Lookup("backend")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("b"))
		Expect(f.DefValue).To(Equal("sqlite"))
	})

	It("registers the port flag with its config default", func() {
		cmd := NewServeCmd()
		f := cmd.Flags().Lookup("port")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("p"))
		Expect(f.DefValue).To(Equal("8081"))
	})

	It("enables the MCP surface by default", func() {
		cmd := NewServeCmd()
		f := cmd.Flags().Lookup("mcp")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("true"))
	})

	It("registers the event stream flags", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("events-backend")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("events-brokers")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("events-topic")).NotTo(BeNil())
	})
})

var _ = Describe("newKVDriver", func() {
	It("selects the in-memory backend", func() {
		cmder := newTestCommander(map[string]any{"store.backend": "inmemory"})

		driver, err := cmder.newKVDriver(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).NotTo(BeNil())
		Expect(driver.Close()).To(Succeed())
	})

	It("opens a sqlite database at the configured DSN", func() {
		tmpDir, err := os.MkdirTemp("", "drift-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		dbPath := filepath.Join(tmpDir, "drift.db")
		cmder := newTestCommander(map[string]any{
			"store.backend": "sqlite",
			"store.dsn":     dbPath,
		})

		driver, err := cmder.newKVDriver(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Close()).To(Succeed())

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a DSN for postgres", func() {
		cmder := newTestCommander(map[string]any{"store.backend": "postgres"})

		_, err := cmder.newKVDriver(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("postgres backend requires store.dsn"))
	})

	It("requires a DSN for libsql", func() {
		cmder := newTestCommander(map[string]any{"store.backend": "libsql"})

		_, err := cmder.newKVDriver(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("libsql backend requires store.dsn"))
	})

	It("rejects unknown backends", func() {
		cmder := newTestCommander(map[string]any{"store.backend": "etcd"})

		_, err := cmder.newKVDriver(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown store backend"))
	})
})

var _ = Describe("newPublisher", func() {
	It("defaults to the nop backend", func() {
		cmder := newTestCommander(nil)

		publisher, closer, err := cmder.newPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher).NotTo(BeNil())
		closer()
	})

	It("requires brokers for kafka", func() {
		cmder := newTestCommander(map[string]any{"events.backend": "kafka"})

		_, _, err := cmder.newPublisher()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("creating kafka publisher"))
	})

	It("rejects unknown backends", func() {
		cmder := newTestCommander(map[string]any{"events.backend": "rabbitmq"})

		_, _, err := cmder.newPublisher()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown events backend"))
	})
})

var _ = Describe("newDecay", func() {
	It("halves confidence after one half-life", func() {
		decay := newDecay("exponential", "10m")
		Expect(decay(0.8, 10*time.Minute)).To(BeNumerically("~", 0.4, 0.001))
	})

	It("reaches zero at the end of a linear window", func() {
		decay := newDecay("linear", "10m")
		Expect(decay(0.8, 10*time.Minute)).To(BeZero())
	})

	It("falls back to the default half-life on a bad duration", func() {
		decay := newDecay("exponential", "not-a-duration")
		Expect(decay(1.0, topic.DefaultHalfLife)).To(BeNumerically("~", 0.5, 0.001))
	})
})

var _ = Describe("engineConfig", func() {
	It("carries tuning values through to the engine config", func() {
		cmder := newTestCommander(map[string]any{
			"engine.boost":           0.45,
			"engine.score_threshold": 2.0,
			"engine.decay":           "exponential",
			"engine.decay_half_life": "15m",
		})

		cfg := cmder.engineConfig()
		Expect(cfg.Boost).To(Equal(0.45))
		Expect(cfg.ScoreThreshold).To(Equal(2.0))
		Expect(cfg.Decay).NotTo(BeNil())
	})

	It("builds the explicit-switch predicate from configured markers", func() {
		cmder := newTestCommander(map[string]any{
			"engine.markers": []string{"pivot to"},
		})

		cfg := cmder.engineConfig()
		Expect(cfg.IsExplicitSwitch).NotTo(BeNil())
		Expect(cfg.IsExplicitSwitch("let's pivot to housing")).To(BeTrue())
		Expect(cfg.IsExplicitSwitch("what about housing")).To(BeFalse())
	})
})

var _ = Describe("loadTaxonomy", func() {
	It("falls back to the built-in taxonomy when no path is configured", func() {
		cmder := newTestCommander(nil)

		def, err := cmder.loadTaxonomy()
		Expect(err).NotTo(HaveOccurred())
		Expect(def.Topics).NotTo(BeEmpty())
	})

	It("loads a taxonomy file from the configured path", func() {
		tmpDir, err := os.MkdirTemp("", "drift-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		path := filepath.Join(tmpDir, "topics.toml")
		contents := `[[topics]]
id = "billing"
signals = ["invoice", "payment"]
`
		Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())

		cmder := newTestCommander(map[string]any{"taxonomy.path": path})

		def, err := cmder.loadTaxonomy()
		Expect(err).NotTo(HaveOccurred())
		Expect(def.IDs()).To(ConsistOf("billing"))
	})

	It("surfaces load errors for missing files", func() {
		cmder := newTestCommander(map[string]any{"taxonomy.path": "/nonexistent/topics.toml"})

		_, err := cmder.loadTaxonomy()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("loading taxonomy"))
	})
})

var _ = Describe("defaultSQLitePath", func() {
	It("places the database inside the resolved drift directory", func() {
		tmpDir, err := os.MkdirTemp("", "drift-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		path, err := defaultSQLitePath(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(tmpDir, "drift.db")))
	})
})
