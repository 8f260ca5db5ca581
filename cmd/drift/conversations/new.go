package conversationscmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/pkg/cliui"
	"github.com/papercomputeco/drift/pkg/dotdir"
)

const newLongDesc string = `Start a new conversation on the drift server.

The new conversation becomes the active one: subsequent drift track and
drift status invocations address it until another conversation is loaded.

Examples:
  drift conversations new
  drift conversations new --api http://localhost:9090`

func newNewCmd(cmder *conversationsCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation",
		Long:  newLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.runNew()
		},
	}
}

func (c *conversationsCommander) runNew() error {
	id, err := StartAPI(c.api)
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}

	state := &dotdir.ActiveState{
		ConversationID: id,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveActive(state, c.configDir); err != nil {
		return fmt.Errorf("saving active conversation: %w", err)
	}

	fmt.Printf("  %s Started conversation %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))

	return nil
}
