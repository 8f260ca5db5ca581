package conversationscmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/pkg/cliui"
	"github.com/papercomputeco/drift/pkg/dotdir"
	"github.com/papercomputeco/drift/pkg/utils"
)

const loadLongDesc string = `Load an existing conversation and make it the active one.

The server rebuilds the conversation's topic context in the background.
Tracking requests sent while the context is still warming are accepted
and applied once the load completes.

Examples:
  drift conversations load 4f8d3c2a-91b7-4f60-a1f3-0c9e2d8b7a65
  drift conversations load 4f8d3c2a-91b7-4f60-a1f3-0c9e2d8b7a65 --api http://localhost:9090`

func newLoadCmd(cmder *conversationsCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "load <conversation-id>",
		Short: "Load an existing conversation",
		Long:  loadLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runLoad(args[0])
		},
	}
}

func (c *conversationsCommander) runLoad(id string) error {
	var status string

	err := cliui.Step(os.Stdout, fmt.Sprintf("Loading %s", utils.Truncate(id, 16)), func() error {
		var stepErr error
		status, stepErr = LoadAPI(c.api, id)
		return stepErr
	})
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}

	state := &dotdir.ActiveState{
		ConversationID: id,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveActive(state, c.configDir); err != nil {
		return fmt.Errorf("saving active conversation: %w", err)
	}

	if status == "loading" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("Context is warming in the background; tracking will wait for it."))
	}

	fmt.Printf("  %s Active conversation is now %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))

	return nil
}
