package anchor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/helper/keystore"
	"github.com/0xPolygon/proof-relay/rpcclient"
	"github.com/0xPolygon/proof-relay/txrelayer"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/spf13/cobra"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/wallet"
)

var (
	params anchorParams

	errAnchorFailed = errors.New("storeBlockHeader transaction failed")
)

// GetCommand returns the anchor command. It stores a source header hash on a
// trust adapter that accepts a single signer, which is how local and test
// networks are anchored without an oracle.
func GetCommand() *cobra.Command {
	anchorCmd := &cobra.Command{
		Use:     "anchor",
		Short:   "Stores the hash of a source chain header on the trust adapter",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(anchorCmd)

	return anchorCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.sourceRPC,
		sourceRPCFlag,
		"http://127.0.0.1:8545",
		"the json rpc endpoint of the source chain",
	)

	cmd.Flags().StringVar(
		&params.destinationRPC,
		destinationRPCFlag,
		"http://127.0.0.1:8546",
		"the json rpc endpoint of the destination chain",
	)

	cmd.Flags().StringVar(
		&params.rawTrustAdapter,
		trustAdapterFlag,
		"",
		"the address of the trust adapter",
	)

	cmd.Flags().Uint64Var(
		&params.blockNumber,
		blockNumberFlag,
		0,
		"the source block whose header hash is stored",
	)

	cmd.Flags().Uint64Var(
		&params.chainID,
		chainIDFlag,
		0,
		"the source chain id, queried through eth_chainId when omitted",
	)

	cmd.Flags().StringVar(
		&params.privateKey,
		privateKeyFlag,
		"",
		"the hex encoded key of the adapter signer",
	)

	cmd.Flags().StringVar(
		&params.privateKeyFile,
		privateKeyFileFlag,
		"",
		"the file holding the hex encoded key of the adapter signer",
	)

	cmd.MarkFlagsMutuallyExclusive(privateKeyFlag, privateKeyFileFlag)
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

	key, err := loadKey(params)
	if err != nil {
		outputter.SetError(err)

		return
	}

	source, err := rpcclient.NewClient(params.sourceRPC)
	if err != nil {
		outputter.SetError(err)

		return
	}
	defer source.Close()

	sender, err := txrelayer.NewTxRelayer(txrelayer.WithIPAddress(params.destinationRPC))
	if err != nil {
		outputter.SetError(err)

		return
	}

	result, err := anchor(ctx, source, sender, key, params)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func loadKey(p anchorParams) (*wallet.Key, error) {
	if p.privateKey != "" {
		return keystore.ParseKey(p.privateKey)
	}

	return keystore.ReadKey(p.privateKeyFile)
}

// headerSource is the source chain access anchor needs
type headerSource interface {
	ChainID(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

func anchor(
	ctx context.Context,
	source headerSource,
	sender txrelayer.TxRelayer,
	key ethgo.Key,
	p anchorParams,
) (*AnchorResult, error) {
	chainID := p.chainID
	if chainID == 0 {
		var err error

		if chainID, err = source.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("failed to resolve chain id: %w", err)
		}
	}

	header, err := source.HeaderByNumber(ctx, p.blockNumber)
	if err != nil {
		return nil, fmt.Errorf("get header %d: %w", p.blockNumber, err)
	}

	store := &contractsapi.StoreBlockHeaderFn{
		ChainID:     new(big.Int).SetUint64(chainID),
		BlockNumber: new(big.Int).SetUint64(header.Number),
		BlockHash:   header.Hash(),
	}

	input, err := store.EncodeAbi()
	if err != nil {
		return nil, err
	}

	adapter := p.trustAdapter.ToEthgo()
	txn := &ethgo.Transaction{
		From:  key.Address(),
		To:    &adapter,
		Input: input,
	}

	receipt, err := sender.SendTransaction(ctx, txn, key)
	if err != nil {
		return nil, err
	}

	if receipt.Status != uint64(types.ReceiptSuccess) {
		return nil, fmt.Errorf("%w: %s", errAnchorFailed, receipt.TransactionHash)
	}

	return &AnchorResult{
		ChainID:     chainID,
		BlockNumber: header.Number,
		BlockHash:   store.BlockHash.String(),
		TxHash:      receipt.TransactionHash.String(),
	}, nil
}
