package conversationscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/drift/pkg/cliui"
	"github.com/papercomputeco/drift/pkg/dotdir"
)

const listLongDesc string = `List the conversations stored on the drift server.

The active conversation, if any, is marked in the listing.

Examples:
  drift conversations list
  drift conversations list --api http://localhost:9090`

func newListCmd(cmder *conversationsCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.runList()
		},
	}
}

func (c *conversationsCommander) runList() error {
	ids, err := ListAPI(c.api)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if len(ids) == 0 {
		fmt.Println(cliui.DimStyle.Render("No conversations stored."))
		return nil
	}

	activeID := ""
	if state, err := dotdir.NewManager().LoadActiveState(c.configDir); err == nil && state != nil {
		activeID = state.ConversationID
	}

	fmt.Printf("%s %d\n", cliui.KeyStyle.Render("Conversations:"), len(ids))
	for _, id := range ids {
		marker := ""
		if id == activeID {
			marker = " " + cliui.NameStyle.Render("(active)")
		}
		fmt.Printf("  %s%s\n", cliui.IDStyle.Render(id), marker)
	}

	return nil
}
