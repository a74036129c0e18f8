package verify

import (
	"fmt"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/command/helper"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var params verifyParams

func GetCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:     "verify",
		Short:   "Verifies a proof offline against a trusted block hash",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(verifyCmd)

	return verifyCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rawProof,
		proofFlag,
		"",
		"the hex encoded proof, either its wire encoding or receivePing calldata",
	)

	cmd.Flags().StringVar(
		&params.rawTrustedHash,
		trustedHashFlag,
		"",
		"the trusted hash of the anchoring block",
	)

	cmd.Flags().StringVar(
		&params.rawEmitter,
		emitterFlag,
		"",
		"only accept pings emitted by this address",
	)

	cmd.Flags().StringVar(
		&params.dbBackend,
		command.DBBackendFlag,
		config.DBBackendMemory,
		"the processed set backend, a persistent one records the event",
	)

	cmd.Flags().StringVar(
		&params.dataDir,
		command.DataDirFlag,
		"./relayer-data",
		"the data directory of a persistent processed set",
	)

	_ = cmd.MarkFlagRequired(proofFlag)
	_ = cmd.MarkFlagRequired(trustedHashFlag)
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	result, err := verify(&params)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func verify(p *verifyParams) (*VerifyResult, error) {
	processed, err := helper.OpenProcessedSet(p.dbBackend, p.dataDir)
	if err != nil {
		return nil, err
	}
	defer processed.Close()

	var opts []verifier.Option
	if p.emitter != types.ZeroAddress {
		opts = append(opts, verifier.WithEmitter(p.emitter))
	}

	opts = append(opts, verifier.WithLogger(hclog.NewNullLogger()))

	// Verify is given the trusted hash directly, the oracle is never asked
	v := verifier.NewVerifier(verifier.NewMemoryOracle(), processed, opts...)

	log, id, err := v.Verify(p.proof, p.trustedHash)
	if err != nil {
		return nil, fmt.Errorf("proof rejected: %w", err)
	}

	rec, err := processed.Get(id)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		EventID:           id,
		ChainID:           p.proof.ChainID,
		Emitter:           log.Address,
		Sender:            rec.Sender,
		SourceBlockNumber: rec.SourceBlockNumber,
	}, nil
}
