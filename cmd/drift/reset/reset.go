// Package resetcmder provides the reset command for clearing a
// conversation's topic state.
package resetcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/api"
	conversationscmder "github.com/papercomputeco/drift/cmd/drift/conversations"
	"github.com/papercomputeco/drift/pkg/cliui"
	"github.com/papercomputeco/drift/pkg/config"
	"github.com/papercomputeco/drift/pkg/dotdir"
)

type resetCommander struct {
	api       string
	configDir string
	full      bool
}

const resetLongDesc string = `Reset a conversation's topic state.

Clears the current topic and all active topic confidences while keeping
the transition history, so the next tracked message starts inference from
a clean slate. With --full the transition history is cleared as well.

Defaults to the active conversation when no id is given.

Examples:
  drift reset
  drift reset --full
  drift reset 4f8d3c2a-91b7-4f60-a1f3-0c9e2d8b7a65`

const resetShortDesc string = "Reset a conversation's topic state"

func NewResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset [conversation-id]",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			if cmd.Flags().Changed("api") {
				return nil
			}
			return cmder.resolveAPITarget()
		},
		RunE: func(_ *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return cmder.runReset(id)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.api, "api", "a", conversationscmder.APITarget(defaults), "Drift API server address")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Also clear the transition history")

	return cmd
}

func (c *resetCommander) resolveAPITarget() error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c.api = conversationscmder.APITarget(cfg)
	return nil
}

func (c *resetCommander) runReset(id string) error {
	if id == "" {
		state, err := dotdir.NewManager().LoadActiveState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading active conversation: %w", err)
		}
		if state == nil {
			return fmt.Errorf("no active conversation; pass a conversation id")
		}
		id = state.ConversationID
	}

	if err := resetAPI(c.api, id, c.full); err != nil {
		return fmt.Errorf("resetting conversation: %w", err)
	}

	scope := "topics"
	if c.full {
		scope = "topics and transitions"
	}
	fmt.Printf("  %s Reset %s for %s\n", cliui.SuccessMark, scope, cliui.IDStyle.Render(id))

	return nil
}

// resetAPI asks the server to clear a conversation's topic state.
func resetAPI(apiTarget, id string, full bool) error {
	url := fmt.Sprintf("%s/v1/conversations/%s/reset", strings.TrimRight(apiTarget, "/"), id)

	payload, err := json.Marshal(api.ResetRequest{Full: full})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting drift API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
