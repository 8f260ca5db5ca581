// Package initcmder provides the init command for initializing a local
// .drift directory in the current working directory.
package initcmder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/pkg/config"
	"github.com/papercomputeco/drift/pkg/taxonomy"
)

const (
	dirName      = ".drift"
	taxonomyFile = "taxonomy.toml"
)

const initLongDesc string = `Initialize a new .drift/ directory in the current working directory.

Creates a local .drift/ directory that takes precedence over the default
~/.drift/ directory for configuration, active-conversation state, and
storage. A config.toml with defaults and a starter taxonomy.toml are
written alongside; edit the taxonomy and set taxonomy.path to use it.

Presets seed config.toml for a target deployment. A preset is either a
named backend or a URL serving a config.toml to copy.

Examples:
  drift init
  drift init --preset postgres
  drift init --preset https://configs.internal/drift/config.toml`

const initShortDesc string = "Initialize a local .drift/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Config preset: a name ("+strings.Join(config.ValidPresetNames(), ", ")+") or a URL")

	return cmd
}

func runInit(ctx context.Context, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	alreadyInitialized := err == nil && info.IsDir()

	if !alreadyInitialized {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .drift directory: %w", err)
		}
	}

	cfg, err := resolveConfig(ctx, preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := writeStarterTaxonomy(dir); err != nil {
		return err
	}

	if alreadyInitialized {
		fmt.Printf("Already initialized: %s (config.toml rewritten)\n", dir)
		return nil
	}

	fmt.Printf("Initialized .drift directory: %s\n", dir)
	return nil
}

// resolveConfig picks the config to write: defaults, a named preset, or a
// remote config.toml fetched from a URL.
func resolveConfig(ctx context.Context, preset string) (*config.Config, error) {
	switch {
	case preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		return fetchRemoteConfig(ctx, preset)

	default:
		return config.PresetConfig(preset)
	}
}

// fetchRemoteConfig downloads and parses a config.toml from the given URL.
func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}

// writeStarterTaxonomy writes the built-in taxonomy next to config.toml as
// a customization starting point. An existing file is left untouched.
func writeStarterTaxonomy(dir string) error {
	path := filepath.Join(dir, taxonomyFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(taxonomy.Default()); err != nil {
		return fmt.Errorf("encoding taxonomy: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing taxonomy: %w", err)
	}

	return nil
}
