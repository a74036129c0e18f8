package status

import (
	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/spf13/cobra"
)

var params statusParams

func GetCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Reports whether an event was processed by the local verifier",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(statusCmd)

	return statusCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawEventID,
		eventIDFlag,
		"",
		"the event id to look up",
	)

	cmd.Flags().Uint64Var(
		&params.chainID,
		chainIDFlag,
		0,
		"the source chain id of the ping",
	)

	cmd.Flags().StringVar(
		&params.rawSender,
		senderFlag,
		"",
		"the sender of the ping",
	)

	cmd.Flags().Uint64Var(
		&params.blockNumber,
		blockNumberFlag,
		0,
		"the block number argument of the ping",
	)

	cmd.Flags().StringVar(
		&params.dbBackend,
		command.DBBackendFlag,
		config.DBBackendBolt,
		"the processed set backend",
	)

	cmd.Flags().StringVar(
		&params.dataDir,
		command.DataDirFlag,
		"./relayer-data",
		"the data directory of the processed set",
	)

	cmd.MarkFlagsMutuallyExclusive(eventIDFlag, senderFlag)
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	result, err := status(&params)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func status(p *statusParams) (*StatusResult, error) {
	processed, err := helper.OpenProcessedSet(p.dbBackend, p.dataDir)
	if err != nil {
		return nil, err
	}
	defer processed.Close()

	rec, err := processed.Get(p.eventID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{EventID: p.eventID}

	if rec != nil {
		result.Received = rec.Received
		result.Sender = rec.Sender
		result.SourceBlockNumber = rec.SourceBlockNumber
	}

	return result, nil
}
