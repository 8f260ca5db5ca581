// Package conversationscmder provides the conversations command with
// subcommands for starting, loading, and listing tracked conversations.
package conversationscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/api"
	"github.com/papercomputeco/drift/pkg/config"
)

type conversationsCommander struct {
	api       string
	configDir string
}

const conversationsLongDesc string = `Manage tracked conversations on a running drift server.

The active conversation is remembered in the .drift/ directory so that
consecutive drift invocations address the same conversation.

Use subcommands to start, load, or list conversations:
  drift conversations new          Start a fresh conversation
  drift conversations load <id>    Switch to an existing conversation
  drift conversations list         List stored conversations

Examples:
  drift conversations new
  drift conversations load 4f8d3c2a-91b7-4f60-a1f3-0c9e2d8b7a65
  drift conversations list`

const conversationsShortDesc string = "Manage tracked conversations"

func NewConversationsCmd() *cobra.Command {
	cmder := &conversationsCommander{}

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: conversationsShortDesc,
		Long:  conversationsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			if cmd.Flags().Changed("api") {
				return nil
			}
			return cmder.resolveAPITarget()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.PersistentFlags().StringVarP(&cmder.api, "api", "a", APITarget(defaults), "Drift API server address")

	cmd.AddCommand(newNewCmd(cmder))
	cmd.AddCommand(newLoadCmd(cmder))
	cmd.AddCommand(newListCmd(cmder))

	return cmd
}

// resolveAPITarget fills the API target from config.toml when the flag was
// not set on the command line.
func (c *conversationsCommander) resolveAPITarget() error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c.api = APITarget(cfg)
	return nil
}

// APITarget derives the client-side server URL from the API listen settings.
func APITarget(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
}

// listResponse mirrors the API's conversation listing payload.
type listResponse struct {
	Count         int      `json:"count"`
	Conversations []string `json:"conversations"`
}

// StartAPI asks the drift server to start a new conversation and returns
// its id. Exported so other commands (e.g. drift track) can reuse it.
func StartAPI(apiTarget string) (string, error) {
	url := strings.TrimRight(apiTarget, "/") + "/v1/conversations"

	body, err := doRequest(http.MethodPost, url, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var start api.StartResponse
	if err := json.Unmarshal(body, &start); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	return start.ConversationID, nil
}

// LoadAPI binds the drift server to an existing conversation. The returned
// status is "ready" or "loading".
func LoadAPI(apiTarget, id string) (string, error) {
	url := fmt.Sprintf("%s/v1/conversations/%s/load", strings.TrimRight(apiTarget, "/"), id)

	body, err := doRequest(http.MethodPost, url, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return "", err
	}

	var load api.LoadResponse
	if err := json.Unmarshal(body, &load); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	return load.Status, nil
}

// ListAPI returns the ids of every conversation the server has stored.
func ListAPI(apiTarget string) ([]string, error) {
	url := strings.TrimRight(apiTarget, "/") + "/v1/conversations"

	body, err := doRequest(http.MethodGet, url, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}

	return list.Conversations, nil
}

// doRequest performs a bodyless request against the drift API and returns
// the response body when the status is one of the accepted codes.
func doRequest(method, url string, acceptStatus ...int) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting drift API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading API response: %w", err)
	}

	for _, status := range acceptStatus {
		if resp.StatusCode == status {
			return body, nil
		}
	}

	return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
}
