package root

import (
	"fmt"
	"os"

	"github.com/0xPolygon/proof-relay/command/anchor"
	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/proof"
	"github.com/0xPolygon/proof-relay/command/relayer"
	"github.com/0xPolygon/proof-relay/command/status"
	"github.com/0xPolygon/proof-relay/command/verify"
	"github.com/0xPolygon/proof-relay/command/version"
	"github.com/spf13/cobra"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:   "proof-relay",
			Short: "proof-relay relays proven source chain events to a destination chain",
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		relayer.GetCommand(),
		proof.GetCommand(),
		verify.GetCommand(),
		status.GetCommand(),
		anchor.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
