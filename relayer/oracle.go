package relayer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
)

// Caller executes read only contract calls. Both *rpcclient.Client and
// *txrelayer.TxRelayerImpl implement it.
type Caller interface {
	Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error)
}

var _ verifier.TrustOracle = (*ChainOracle)(nil)

// ChainOracle reads anchored block hashes from the trust adapter contract
type ChainOracle struct {
	caller  Caller
	adapter types.Address
}

func NewChainOracle(caller Caller, adapter types.Address) *ChainOracle {
	return &ChainOracle{caller: caller, adapter: adapter}
}

// TrustedHash calls getTrustedHash(chainId, blockNumber). A zero hash or a
// revert means the block is not anchored yet.
func (o *ChainOracle) TrustedHash(ctx context.Context, chainID, blockNumber uint64) (types.Hash, error) {
	fn := &contractsapi.GetTrustedHashFn{
		ChainID:     new(big.Int).SetUint64(chainID),
		BlockNumber: new(big.Int).SetUint64(blockNumber),
	}

	input, err := fn.EncodeAbi()
	if err != nil {
		return types.ZeroHash, err
	}

	out, err := o.caller.Call(ctx, types.ZeroAddress, o.adapter, input)
	if err != nil {
		if isRevert(err) {
			return types.ZeroHash, fmt.Errorf("%w: chain %d block %d: %w",
				verifier.ErrTrustedHashUnavailable, chainID, blockNumber, err)
		}

		return types.ZeroHash, err
	}

	hash, err := fn.DecodeOutput(out)
	if err != nil {
		return types.ZeroHash, err
	}

	if hash == types.ZeroHash {
		return types.ZeroHash, fmt.Errorf("%w: chain %d block %d",
			verifier.ErrTrustedHashUnavailable, chainID, blockNumber)
	}

	return hash, nil
}
