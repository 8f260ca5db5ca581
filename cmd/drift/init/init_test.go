package initcmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/drift/cmd/drift/init"
	"github.com/papercomputeco/drift/pkg/config"
	"github.com/papercomputeco/drift/pkg/taxonomy"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "drift-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("creates a .drift directory in the current directory", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".drift"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Store.Backend).To(Equal("sqlite"))
		Expect(cfg.Store.Namespace).To(Equal("conversation"))
		Expect(cfg.API.Host).To(Equal("localhost"))
		Expect(cfg.API.Port).To(Equal(uint(8081)))
		Expect(cfg.MCP.Enabled).To(BeTrue())
		Expect(cfg.Events.Backend).To(Equal("nop"))
	})

	It("writes a starter taxonomy.toml", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(filepath.Join(tmpDir, ".drift", "taxonomy.toml"))
		Expect(err).NotTo(HaveOccurred())

		def := &taxonomy.Definition{}
		Expect(toml.Unmarshal(data, def)).To(Succeed())
		Expect(def.Validate()).To(Succeed())
		Expect(def.IDs()).To(Equal(taxonomy.Default().IDs()))
	})

	It("succeeds when .drift directory already exists", func() {
		err := os.MkdirAll(filepath.Join(tmpDir, ".drift"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".drift"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("does not overwrite unrelated contents when already initialized", func() {
		driftDir := filepath.Join(tmpDir, ".drift")
		err := os.MkdirAll(driftDir, 0o755)
		Expect(err).NotTo(HaveOccurred())

		// Write a file into the existing .drift dir
		testFile := filepath.Join(driftDir, "active.json")
		err = os.WriteFile(testFile, []byte(`{"conversation_id":"c1"}`), 0o644)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		// Verify the existing file is still there
		data, err := os.ReadFile(testFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"conversation_id":"c1"}`))
	})

	It("leaves an existing taxonomy.toml untouched", func() {
		driftDir := filepath.Join(tmpDir, ".drift")
		err := os.MkdirAll(driftDir, 0o755)
		Expect(err).NotTo(HaveOccurred())

		custom := `[[topics]]
id = "billing"
signals = ["invoice"]
`
		taxonomyPath := filepath.Join(driftDir, "taxonomy.toml")
		err = os.WriteFile(taxonomyPath, []byte(custom), 0o644)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(taxonomyPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(custom))
	})

	Describe("--preset with backend presets", func() {
		It("creates config.toml with the postgres preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "postgres"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Version).To(Equal(config.CurrentV))
			Expect(cfg.Store.Backend).To(Equal("postgres"))
			Expect(cfg.Store.DSN).NotTo(BeEmpty())
		})

		It("creates config.toml with the turso preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "turso"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Store.Backend).To(Equal("libsql"))
		})

		It("creates config.toml with the kafka preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "kafka"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Events.Backend).To(Equal("kafka"))
			Expect(cfg.Events.Brokers).To(ContainElement("localhost:9092"))
			Expect(cfg.Events.Topic).To(Equal("drift.events"))
		})

		It("rejects unknown preset names", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "invalid-backend"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[store]
backend = "postgres"
dsn = "postgres://db.internal:5432/drift"

[api]
host = "0.0.0.0"
port = 9090
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Store.Backend).To(Equal("postgres"))
			Expect(cfg.Store.DSN).To(Equal("postgres://db.internal:5432/drift"))
			Expect(cfg.API.Host).To(Equal("0.0.0.0"))
			Expect(cfg.API.Port).To(Equal(uint(9090)))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "http://127.0.0.1:1"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})

	Describe("--preset overwrites config on re-init", func() {
		It("overwrites existing config.toml when re-running with a different preset", func() {
			// First init with postgres
			cmd1 := initcmder.NewInitCmd()
			cmd1.SetArgs([]string{"--preset", "postgres"})
			err := cmd1.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Store.Backend).To(Equal("postgres"))

			// Re-init with turso
			cmd2 := initcmder.NewInitCmd()
			cmd2.SetArgs([]string{"--preset", "turso"})
			err = cmd2.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg = loadConfig(tmpDir)
			Expect(cfg.Store.Backend).To(Equal("libsql"))
		})
	})
})

// loadConfig is a test helper that reads and parses the config.toml from the
// .drift directory within the given base directory.
func loadConfig(baseDir string) *config.Config {
	configPath := filepath.Join(baseDir, ".drift", "config.toml")
	data, err := os.ReadFile(configPath)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
