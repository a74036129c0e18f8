package version

import (
	"runtime"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/version"
	"github.com/spf13/cobra"
)

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Returns the proof-relay version and the contract interface it targets",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	outputter.SetCommandResult(newVersionResult())
}

func newVersionResult() *VersionResult {
	commit := version.Commit
	if commit == "" {
		commit = "unknown"
	}

	return &VersionResult{
		Version:          version.Version,
		Commit:           commit,
		BuildTime:        version.BuildTime,
		GoVersion:        runtime.Version(),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		ReceivePing:      hex.EncodeToHex(new(contractsapi.ReceivePingFn).Sig()),
		GetTrustedHash:   hex.EncodeToHex(new(contractsapi.GetTrustedHashFn).Sig()),
		StoreBlockHeader: hex.EncodeToHex(new(contractsapi.StoreBlockHeaderFn).Sig()),
		PingTopic:        contractsapi.PingEventType.ID().String(),
		HashStoredTopic:  contractsapi.HashStoredEventType.ID().String(),
	}
}
