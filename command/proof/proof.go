package proof

import (
	"context"
	"fmt"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/rpcclient"
	"github.com/spf13/cobra"
)

var params proofParams

func GetCommand() *cobra.Command {
	proofCmd := &cobra.Command{
		Use:     "proof",
		Short:   "Generates the proof of a log emitted on the source chain",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(proofCmd)

	return proofCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rpcURL,
		rpcFlag,
		"http://127.0.0.1:8545",
		"the json rpc endpoint of the source chain",
	)

	cmd.Flags().StringVar(
		&params.rawTxHash,
		txFlag,
		"",
		"the hash of the transaction that emitted the log",
	)

	cmd.Flags().Uint64Var(
		&params.logIndex,
		logIndexFlag,
		0,
		"the index of the log within the transaction receipt",
	)

	cmd.Flags().BoolVar(
		&params.blockLogIndex,
		blockLogIndexFlag,
		false,
		"interpret --log-index as the block wide index eth_getLogs reports",
	)

	cmd.Flags().Uint64Var(
		&params.chainID,
		chainIDFlag,
		0,
		"the source chain id, queried through eth_chainId when omitted",
	)
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := rpcclient.NewClient(params.rpcURL)
	if err != nil {
		outputter.SetError(err)

		return
	}
	defer client.Close()

	p, err := generate(ctx, client, params)
	if err != nil {
		outputter.SetError(err)

		return
	}

	result, err := newProofResult(p)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

// chainIDSource is the part of the rpc client generate needs on top of the
// block source
type chainIDSource interface {
	proof.BlockSource
	ChainID(ctx context.Context) (uint64, error)
}

func generate(ctx context.Context, source chainIDSource, p proofParams) (*proof.Proof, error) {
	chainID := p.chainID
	if chainID == 0 {
		var err error

		if chainID, err = source.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("failed to resolve chain id: %w", err)
		}
	}

	generator := proof.NewGenerator(source, chainID)

	if p.blockLogIndex {
		return generator.GenerateForBlockLog(ctx, p.txHash, p.logIndex)
	}

	return generator.Generate(ctx, p.txHash, p.logIndex)
}
