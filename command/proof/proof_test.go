package proof

import (
	"context"
	"testing"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/helper/tests"
	"github.com/0xPolygon/proof-relay/proof"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSource struct {
	*tests.Chain
}

func (s testSource) ChainID(context.Context) (uint64, error) {
	return s.Chain.ChainID(), nil
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	emitter := types.StringToAddress("0x1000000000000000000000000000000000000001")
	sender := types.StringToAddress("0x2000000000000000000000000000000000000002")

	chain := tests.NewChain(100)
	receipts := []*types.Receipt{
		tests.NewReceipt(types.LegacyTx, &types.Log{Address: emitter, Data: []byte{0x01}}),
		tests.NewReceipt(types.DynamicFeeTx,
			&types.Log{Address: emitter, Data: []byte{0x02}},
			tests.PingLog(emitter, sender, 1)),
	}
	chain.AddBlock(receipts...)

	source := testSource{chain}

	byReceipt, err := generate(context.Background(), source, proofParams{
		txHash:   receipts[1].TxHash,
		logIndex: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), byReceipt.ChainID)
	assert.Equal(t, uint64(1), byReceipt.LogIndex)

	// the ping is the third log of the block
	byBlock, err := generate(context.Background(), source, proofParams{
		txHash:        receipts[1].TxHash,
		logIndex:      2,
		blockLogIndex: true,
		chainID:       5,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), byBlock.ChainID)
	assert.Equal(t, byReceipt.ReceiptProof, byBlock.ReceiptProof)
	assert.Equal(t, byReceipt.LogIndex, byBlock.LogIndex)

	result, err := newProofResult(byReceipt)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.TxIndex)
	assert.Contains(t, result.GetOutput(), "Block number")

	decoded, err := proof.Unpack(hex.MustDecodeHex(result.Encoded))
	require.NoError(t, err)
	assert.Equal(t, byReceipt, decoded)
}

func TestValidateFlags(t *testing.T) {
	t.Parallel()

	p := proofParams{}
	require.ErrorIs(t, p.validateFlags(), errTxRequired)

	p.rawTxHash = "0x1234"
	require.Error(t, p.validateFlags())

	p.rawTxHash = "0x" + "ab"
	for i := 0; i < 31; i++ {
		p.rawTxHash += "ab"
	}

	require.NoError(t, p.validateFlags())
	assert.Equal(t, byte(0xab), p.txHash[31])
}
