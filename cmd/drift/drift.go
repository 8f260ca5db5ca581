// Package driftcmder
package driftcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/drift/cmd/drift/config"
	conversationscmder "github.com/papercomputeco/drift/cmd/drift/conversations"
	initcmder "github.com/papercomputeco/drift/cmd/drift/init"
	resetcmder "github.com/papercomputeco/drift/cmd/drift/reset"
	servecmder "github.com/papercomputeco/drift/cmd/drift/serve"
	statuscmder "github.com/papercomputeco/drift/cmd/drift/status"
	trackcmder "github.com/papercomputeco/drift/cmd/drift/track"
	versioncmder "github.com/papercomputeco/drift/cmd/version"
)

const driftLongDesc string = `Drift tracks what a conversation is about.

Run the server using:
  drift serve          Run the tracking API server

Track and inspect conversations:
  drift track "What about tuition fees?"
  drift status
  drift conversations list`

const driftShortDesc string = "Drift - Conversation Topic Tracking"

func NewDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: driftShortDesc,
		Long:  driftLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .drift directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(trackcmder.NewTrackCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(resetcmder.NewResetCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
