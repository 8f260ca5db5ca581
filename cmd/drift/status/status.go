// Package statuscmder provides the status command for displaying the topic
// state of the active conversation.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	conversationscmder "github.com/papercomputeco/drift/cmd/drift/conversations"
	"github.com/papercomputeco/drift/pkg/cliui"
	"github.com/papercomputeco/drift/pkg/config"
	"github.com/papercomputeco/drift/pkg/dotdir"
	"github.com/papercomputeco/drift/pkg/topic"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type statusCommander struct {
	api       string
	configDir string
	topN      int
	recentK   int
}

const statusLongDesc string = `Show the topic state of the active conversation.

Reads the local .drift/ directory (or ~/.drift/) to find the active
conversation, then asks the drift server for its context: the current
topic, the ranked active topics with confidence, and the most recent
transitions.

If no conversation is active, indicates that the next drift track will
start a new one.

Examples:
  drift status
  drift status --top 3 --recent 10
  drift status --api http://localhost:9090`

const statusShortDesc string = "Show the active conversation's topic state"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			if cmd.Flags().Changed("api") {
				return nil
			}
			return cmder.resolveAPITarget()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.runStatus()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.api, "api", "a", conversationscmder.APITarget(defaults), "Drift API server address")
	cmd.Flags().IntVarP(&cmder.topN, "top", "n", 0, "Number of ranked topics to show (0 = server default)")
	cmd.Flags().IntVarP(&cmder.recentK, "recent", "k", 0, "Number of recent transitions to show (0 = server default)")

	return cmd
}

func (c *statusCommander) resolveAPITarget() error {
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

func (c *statusCommander) runStatus() error {
	state, err := dotdir.NewManager().LoadActiveState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading active conversation: %w", err)
	}

	if state == nil {
		fmt.Printf("  %s No active conversation. Next drift track will start a new one.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	snap, err := fetchContext(c.api, state.ConversationID, c.topN, c.recentK)
	if err != nil {
		return fmt.Errorf("fetching context: %w", err)
	}

	renderSnapshot(snap)

	return nil
}

// fetchContext retrieves the snapshot projection for a conversation.
func fetchContext(apiTarget, id string, topN, recentK int) (*topic.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/conversations/%s/context", strings.TrimRight(apiTarget, "/"), id)

	query := url.Values{}
	if topN > 0 {
		query.Set("top_n", strconv.Itoa(topN))
	}
	if recentK > 0 {
		query.Set("recent_k", strconv.Itoa(recentK))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, endpoint, nil)
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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var snap topic.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}

	return &snap, nil
}

func renderSnapshot(snap *topic.Snapshot) {
	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.IDStyle.Render(snap.ConversationID))

	current := snap.Current
	if current == "" {
		current = cliui.DimStyle.Render("(none)")
	} else {
		current = cliui.NameStyle.Render(current)
	}
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Current topic:"), current)

	if snap.Degraded {
		fmt.Printf("  %s\n", cliui.WarnStyle.Render("Context is degraded; topic state may be stale."))
	}

	fmt.Println()

	if len(snap.Topics) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No active topics yet."))
		return
	}

	fmt.Printf("  %s\n", cliui.KeyStyle.Render("Active topics:"))
	for i, t := range snap.Topics {
		fmt.Printf("  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.NameStyle.Render(t.ID),
			cliui.ValueStyle.Render(cliui.FormatConfidence(t.Confidence)),
		)
	}

	if len(snap.Transitions) > 0 {
		fmt.Printf("\n  %s\n", cliui.KeyStyle.Render("Recent transitions:"))
		for i, tr := range snap.Transitions {
			kind := "implicit"
			if tr.Explicit {
				kind = "explicit"
			}
			fmt.Printf("  %s %s %s %s %s\n",
				cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
				cliui.PreviewStyle.Render(tr.From+" → "+tr.To),
				cliui.RoleStyle.Render("["+kind+"]"),
				cliui.DimStyle.Render(tr.At.Local().Format("15:04:05")),
				cliui.DimStyle.Render(fmt.Sprintf("Δ%+.2f", tr.ConfidenceDelta)),
			)
		}
	}

	fmt.Println()
}
