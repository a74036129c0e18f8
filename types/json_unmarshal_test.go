package types

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zeroBloomHex = "0x" + strings.Repeat("00", BloomByteLength)

func TestHeader_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	raw := fmt.Sprintf(`{
		"hash": "0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3",
		"parentHash": "0x0000000000000000000000000000000000000000000000000000000000000000",
		"sha3Uncles": "0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		"miner": "0x0000000000000000000000000000000000000000",
		"stateRoot": "0xd7f8974fb5ac78d9ac099b9ad5018bedc2ce0a72dad1827a1709da30580f0544",
		"transactionsRoot": "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421",
		"receiptsRoot": "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421",
		"logsBloom": "%s",
		"difficulty": "0x400000000",
		"number": "0x0",
		"gasLimit": "0x1388",
		"gasUsed": "0x0",
		"timestamp": "0x0",
		"extraData": "0x11bbe8db4e347b4e8c937c1c8370e4b5ed33adb3db69cbdb7a38e1e50b1b82fa",
		"mixHash": "0x0000000000000000000000000000000000000000000000000000000000000000",
		"nonce": "0x0000000000000042",
		"transactions": []
	}`, zeroBloomHex)

	h := new(Header)
	require.NoError(t, h.UnmarshalJSON([]byte(raw)))
	require.Equal(t, mainnetGenesisHeader(), h)
	require.Equal(t, StringToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"), h.Hash())
}

func TestHeader_UnmarshalJSON_ForkFields(t *testing.T) {
	t.Parallel()

	raw := fmt.Sprintf(`{
		"parentHash": "0x0000000000000000000000000000000000000000000000000000000000000001",
		"sha3Uncles": "0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		"miner": "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
		"stateRoot": "0x0000000000000000000000000000000000000000000000000000000000000002",
		"transactionsRoot": "0x0000000000000000000000000000000000000000000000000000000000000003",
		"receiptsRoot": "0x0000000000000000000000000000000000000000000000000000000000000004",
		"logsBloom": "%s",
		"difficulty": "0x0",
		"number": "0x1312d00",
		"gasLimit": "0x1c9c380",
		"gasUsed": "0x1",
		"timestamp": "0x65a0f9c3",
		"extraData": "0x",
		"mixHash": "0x0000000000000000000000000000000000000000000000000000000000000005",
		"nonce": "0x0000000000000000",
		"baseFeePerGas": "0x5f5e100",
		"withdrawalsRoot": "0x0000000000000000000000000000000000000000000000000000000000000006",
		"blobGasUsed": "0x20000",
		"excessBlobGas": "0x0",
		"parentBeaconBlockRoot": "0x0000000000000000000000000000000000000000000000000000000000000007",
		"requestsHash": null
	}`, zeroBloomHex)

	h := new(Header)
	require.NoError(t, h.UnmarshalJSON([]byte(raw)))

	assert.Equal(t, uint64(20_000_000), h.Number)
	assert.Nil(t, h.ExtraData)
	assert.Equal(t, int64(100_000_000), h.BaseFee.Int64())
	require.NotNil(t, h.WithdrawalsRoot)
	assert.Equal(t, StringToHash("0x06"), *h.WithdrawalsRoot)
	assert.Equal(t, uint64(0x20000), *h.BlobGasUsed)
	assert.Equal(t, uint64(0), *h.ExcessBlobGas)
	assert.Equal(t, StringToHash("0x07"), *h.ParentBeaconBlockRoot)
	assert.Nil(t, h.RequestsHash)

	decoded := new(Header)
	require.NoError(t, decoded.UnmarshalRLP(h.MarshalRLP()))
	assert.Equal(t, h.Hash(), decoded.Hash())
}

func TestReceipt_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	raw := fmt.Sprintf(`{
		"type": "0x2",
		"status": "0x1",
		"cumulativeGasUsed": "0xa410",
		"logsBloom": "%s",
		"transactionHash": "0x00000000000000000000000000000000000000000000000000000000000000aa",
		"transactionIndex": "0x1",
		"blockHash": "0x00000000000000000000000000000000000000000000000000000000000000bb",
		"blockNumber": "0x10",
		"gasUsed": "0x5208",
		"contractAddress": null,
		"logs": [{
			"address": "0x5fbdb2315678afecb367f032d93f642f64180aa3",
			"topics": [
				"0x0000000000000000000000000000000000000000000000000000000000000001",
				"0x000000000000000000000000f39fd6e51aad88f6f4ce6ab8827279cfffb92266"
			],
			"data": "0x"
		}]
	}`, zeroBloomHex)

	r := new(Receipt)
	require.NoError(t, r.UnmarshalJSON([]byte(raw)))

	assert.Equal(t, DynamicFeeTx, r.Type)
	assert.True(t, r.Succeeded())
	assert.Equal(t, uint64(0xa410), r.CumulativeGasUsed)
	assert.Equal(t, uint64(1), r.TransactionIndex)
	assert.Equal(t, uint64(16), r.BlockNumber)
	assert.Nil(t, r.ContractAddress)
	require.Len(t, r.Logs, 1)
	assert.Len(t, r.Logs[0].Topics, 2)
	assert.Empty(t, r.Logs[0].Data)

	receipts, err := UnmarshalReceiptsJSON([]byte("[" + raw + "]"))
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, r.MarshalRLP(), receipts[0].MarshalRLP())
}

func TestReceipt_UnmarshalJSON_Errors(t *testing.T) {
	t.Parallel()

	require.Error(t, new(Receipt).UnmarshalJSON([]byte(`{"type": "0x7f"}`)))
	require.Error(t, new(Receipt).UnmarshalJSON([]byte(`not json`)))
	require.Error(t, new(Log).UnmarshalJSON([]byte(`{"address": "0x01", "data": "0x"}`)))
}
