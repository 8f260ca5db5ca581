// Package trackcmder provides the track command, which sends a message to
// the drift server and reports the inferred topic state.
package trackcmder

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
	"github.com/papercomputeco/drift/pkg/topic"
)

type trackCommander struct {
	api       string
	configDir string
	role      string
}

const trackLongDesc string = `Track a message in the active conversation.

The message is scored against the topic taxonomy on the drift server. The
command prints the current topic with its confidence and, when the message
changed the subject, the recorded transition.

If no conversation is active, one is started automatically.

Examples:
  drift track "the invoice from last month is wrong"
  drift track --role assistant "I have refunded the charge"
  drift track "let's switch to the deploy pipeline" --api http://localhost:9090`

const trackShortDesc string = "Track a message and report the inferred topic"

func NewTrackCmd() *cobra.Command {
	cmder := &trackCommander{}

	cmd := &cobra.Command{
		Use:   "track <message>",
		Short: trackShortDesc,
		Long:  trackLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			if cmd.Flags().Changed("api") {
				return nil
			}
			return cmder.resolveAPITarget()
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runTrack(args[0])
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.api, "api", "a", conversationscmder.APITarget(defaults), "Drift API server address")
	cmd.Flags().StringVarP(&cmder.role, "role", "r", string(topic.RoleUser), "Message role (user, assistant, system)")

	return cmd
}

func (c *trackCommander) resolveAPITarget() error {
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

func (c *trackCommander) runTrack(message string) error {
	switch topic.Role(c.role) {
	case topic.RoleUser, topic.RoleAssistant, topic.RoleSystem:
	default:
		return fmt.Errorf("invalid role %q (valid: user, assistant, system)", c.role)
	}

	id, err := c.activeConversation()
	if err != nil {
		return err
	}

	resp, err := TrackAPI(c.api, id, message, c.role)
	if err != nil {
		return fmt.Errorf("tracking message: %w", err)
	}

	renderTrack(resp)

	return nil
}

// activeConversation returns the active conversation id, starting a new
// conversation when none is active yet.
func (c *trackCommander) activeConversation() (string, error) {
	ddm := dotdir.NewManager()

	state, err := ddm.LoadActiveState(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading active conversation: %w", err)
	}
	if state != nil {
		return state.ConversationID, nil
	}

	id, err := conversationscmder.StartAPI(c.api)
	if err != nil {
		return "", fmt.Errorf("starting conversation: %w", err)
	}

	newState := &dotdir.ActiveState{
		ConversationID: id,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := ddm.SaveActive(newState, c.configDir); err != nil {
		return "", fmt.Errorf("saving active conversation: %w", err)
	}

	fmt.Printf("  %s Started conversation %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))

	return id, nil
}

// TrackAPI posts one message to a conversation and returns the updated
// topic state.
func TrackAPI(apiTarget, id, text, role string) (*api.TrackResponse, error) {
	url := fmt.Sprintf("%s/v1/conversations/%s/messages", strings.TrimRight(apiTarget, "/"), id)

	payload, err := json.Marshal(api.TrackRequest{Text: text, Role: role})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting drift API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var track api.TrackResponse
	if err := json.Unmarshal(body, &track); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}

	return &track, nil
}

func renderTrack(resp *api.TrackResponse) {
	snap := resp.Snapshot

	if snap.Current == "" {
		fmt.Printf("  %s %s\n", cliui.SuccessMark, cliui.DimStyle.Render("Tracked. No topic inferred yet."))
		return
	}

	fmt.Printf("  %s %s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("Current topic:"),
		cliui.NameStyle.Render(snap.Current),
		cliui.DimStyle.Render("("+cliui.FormatConfidence(currentConfidence(snap))+")"),
	)

	if resp.Transition != nil {
		kind := "implicit"
		if resp.Transition.Explicit {
			kind = "explicit"
		}
		fmt.Printf("  %s %s %s %s %s\n",
			cliui.KeyStyle.Render("Transition:"),
			cliui.ValueStyle.Render(resp.Transition.From),
			cliui.DimStyle.Render("→"),
			cliui.ValueStyle.Render(resp.Transition.To),
			cliui.DimStyle.Render("["+kind+"]"),
		)
	}

	if snap.Degraded {
		fmt.Printf("  %s\n", cliui.WarnStyle.Render("Context is degraded; topic state may be stale."))
	}
}

// currentConfidence looks up the confidence of the snapshot's current topic.
func currentConfidence(snap topic.Snapshot) float64 {
	for _, t := range snap.Topics {
		if t.ID == snap.Current {
			return t.Confidence
		}
	}
	return 0
}
