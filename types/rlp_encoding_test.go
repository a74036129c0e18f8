package types

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeTxIndex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		index    uint64
		expected string
	}{
		{0, "0x80"},
		{1, "0x01"},
		{127, "0x7f"},
		{128, "0x8180"},
		{255, "0x81ff"},
		{256, "0x820100"},
	}

	for _, c := range cases {
		key := EncodeTxIndex(c.index)
		assert.Equal(t, c.expected, hex.EncodeToHex(key), "index %d", c.index)

		decoded, err := DecodeTxIndex(key)
		require.NoError(t, err)
		assert.Equal(t, c.index, decoded)
	}
}

func TestReceipt_EncodingLayout(t *testing.T) {
	t.Parallel()

	receipt := &Receipt{CumulativeGasUsed: 21000}
	receipt.SetStatus(ReceiptSuccess)

	legacy := receipt.MarshalRLP()
	// list header: 1 (status) + 3 (gas) + 259 (bloom) + 1 (empty logs) = 264 bytes
	require.Equal(t, []byte{0xf9, 0x01, 0x08, 0x01, 0x82, 0x52, 0x08, 0xb9, 0x01, 0x00}, legacy[:10])
	require.Equal(t, byte(0xc0), legacy[len(legacy)-1])
	require.Len(t, legacy, 267)

	receipt.Type = DynamicFeeTx
	typed := receipt.MarshalRLP()
	require.Equal(t, byte(0x02), typed[0])
	require.Equal(t, legacy, typed[1:])

	failed := &Receipt{}
	failed.SetStatus(ReceiptFailed)
	// failed status is encoded as the empty string
	require.Equal(t, byte(0x80), failed.MarshalRLP()[3])
}

func TestReceipt_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, txType := range []TxType{LegacyTx, AccessListTx, DynamicFeeTx, BlobTx} {
		receipt := &Receipt{
			Type:              txType,
			CumulativeGasUsed: 125000,
			Logs: []*Log{
				{
					Address: StringToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
					Topics: []Hash{
						StringToHash("0x01"),
						StringToHash("0x02"),
					},
					Data: []byte{0xde, 0xad},
				},
				{
					Address: StringToAddress("0x01"),
				},
			},
		}
		receipt.SetStatus(ReceiptSuccess)
		receipt.LogsBloom = CreateBloom([]*Receipt{receipt})

		decoded := new(Receipt)
		require.NoError(t, decoded.UnmarshalRLP(receipt.MarshalRLP()))
		require.Equal(t, receipt.Type, decoded.Type)
		require.Equal(t, receipt.MarshalRLP(), decoded.MarshalRLP())
		require.Len(t, decoded.Logs, 2)
		require.Equal(t, receipt.Logs[0], decoded.Logs[0])
		require.True(t, decoded.LogsBloom.IsLogInBloom(receipt.Logs[0]))
	}
}

func TestReceipt_PreByzantiumRoot(t *testing.T) {
	t.Parallel()

	receipt := &Receipt{
		Root:              StringToHash("0xabcdef"),
		CumulativeGasUsed: 1,
	}

	decoded := new(Receipt)
	require.NoError(t, decoded.UnmarshalRLP(receipt.MarshalRLP()))
	require.Nil(t, decoded.Status)
	require.Equal(t, receipt.Root, decoded.Root)
}

func TestReceipt_Malformed(t *testing.T) {
	t.Parallel()

	valid := &Receipt{CumulativeGasUsed: 7}
	valid.SetStatus(ReceiptSuccess)
	encoded := valid.MarshalRLP()

	cases := map[string][]byte{
		"empty":            {},
		"not a list":       {0x82, 0x01, 0x02},
		"unknown type":     append([]byte{0x09}, encoded...),
		"legacy prefix":    append([]byte{0x00}, encoded...),
		"trailing bytes":   append(append([]byte{}, encoded...), 0x00),
		"truncated":        encoded[:len(encoded)-1],
		"three elements":   {0xc3, 0x01, 0x01, 0xc0},
		"bad status width": mustReplaceFirst(t, encoded, []byte{0x01, 0x07}, []byte{0x02, 0x07}),
	}

	for name, input := range cases {
		err := new(Receipt).UnmarshalRLP(input)
		require.ErrorIs(t, err, ErrMalformedEncoding, name)
	}
}

func mustReplaceFirst(t *testing.T, input, old, new []byte) []byte {
	t.Helper()

	idx := bytes.Index(input, old)
	require.GreaterOrEqual(t, idx, 0)

	out := append([]byte{}, input...)
	copy(out[idx:], new)

	return out
}

func TestReceipt_RoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		receipt := &Receipt{
			Type:              TxType(rapid.SampledFrom([]byte{0, 1, 2, 3, 4}).Draw(t, "type")),
			CumulativeGasUsed: rapid.Uint64().Draw(t, "gas"),
		}
		receipt.SetStatus(ReceiptStatus(rapid.IntRange(0, 1).Draw(t, "status")))

		numLogs := rapid.IntRange(0, 4).Draw(t, "logs")
		for i := 0; i < numLogs; i++ {
			log := &Log{
				Address: BytesToAddress(rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "addr")),
			}

			numTopics := rapid.IntRange(0, 4).Draw(t, "topics")
			for j := 0; j < numTopics; j++ {
				log.Topics = append(log.Topics, BytesToHash(rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "topic")))
			}

			if data := rapid.SliceOfN(rapid.Byte(), 0, 96).Draw(t, "data"); len(data) > 0 {
				log.Data = data
			}

			receipt.Logs = append(receipt.Logs, log)
		}

		receipt.LogsBloom = CreateBloom([]*Receipt{receipt})

		encoded := receipt.MarshalRLP()

		decoded := new(Receipt)
		if err := decoded.UnmarshalRLP(encoded); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if !bytes.Equal(encoded, decoded.MarshalRLP()) {
			t.Fatalf("re-encoding differs")
		}

		if decoded.Type != receipt.Type || *decoded.Status != *receipt.Status {
			t.Fatalf("type or status changed")
		}
	})
}

// mainnet genesis header, hash 0xd4e567...8fa3
func mainnetGenesisHeader() *Header {
	h := &Header{
		Sha3Uncles:   EmptyUncleHash,
		StateRoot:    StringToHash("0xd7f8974fb5ac78d9ac099b9ad5018bedc2ce0a72dad1827a1709da30580f0544"),
		TxRoot:       EmptyRootHash,
		ReceiptsRoot: EmptyRootHash,
		Difficulty:   0x400000000,
		GasLimit:     5000,
		ExtraData:    hex.MustDecodeHex("0x11bbe8db4e347b4e8c937c1c8370e4b5ed33adb3db69cbdb7a38e1e50b1b82fa"),
	}
	h.SetNonce(0x42)

	return h
}

func TestHeader_MainnetGenesisHash(t *testing.T) {
	t.Parallel()

	h := mainnetGenesisHeader()
	require.Equal(t,
		StringToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"),
		h.Hash())

	decoded := new(Header)
	require.NoError(t, decoded.UnmarshalRLP(h.MarshalRLP()))
	require.Equal(t, h, decoded)
	require.Equal(t, h.Hash(), decoded.Hash())
}

func TestHeader_ForkFields(t *testing.T) {
	t.Parallel()

	blobGas := uint64(131072)
	beaconRoot := StringToHash("0xbeac0")

	h := mainnetGenesisHeader()
	h.Number = 19_000_000
	h.BaseFee = big.NewInt(7)
	h.BlobGasUsed = &blobGas
	h.ParentBeaconBlockRoot = &beaconRoot

	decoded := new(Header)
	require.NoError(t, decoded.UnmarshalRLP(h.MarshalRLP()))

	// withdrawals root and excess blob gas sit before a set field so they come back as zero values
	require.NotNil(t, decoded.WithdrawalsRoot)
	require.Equal(t, ZeroHash, *decoded.WithdrawalsRoot)
	require.NotNil(t, decoded.ExcessBlobGas)
	require.Equal(t, uint64(0), *decoded.ExcessBlobGas)
	require.Nil(t, decoded.RequestsHash)

	require.Equal(t, blobGas, *decoded.BlobGasUsed)
	require.Equal(t, beaconRoot, *decoded.ParentBeaconBlockRoot)
	require.Equal(t, 0, h.BaseFee.Cmp(decoded.BaseFee))
	require.Equal(t, h.Hash(), decoded.Hash())

	// a different position of the same field changes the hash
	moved := h.Copy()
	moved.ParentBeaconBlockRoot = nil
	moved.RequestsHash = &beaconRoot
	require.NotEqual(t, h.Hash(), moved.Hash())
}

func TestHeader_Malformed(t *testing.T) {
	t.Parallel()

	h := mainnetGenesisHeader()
	encoded := h.MarshalRLP()

	// drop the nonce (last field): 14 elements
	short := &Header{}
	require.ErrorIs(t, UnmarshalRlp(short.UnmarshalRLPFrom, encodeListWithout(t, encoded, 14)), ErrMalformedEncoding)

	// 22 elements
	tooLong := new(Header)
	longHeader := h.Copy()
	rh := ZeroHash
	longHeader.RequestsHash = &rh
	longEncoded := appendToList(t, longHeader.MarshalRLP(), []byte{0x80})
	require.ErrorIs(t, tooLong.UnmarshalRLP(longEncoded), ErrMalformedEncoding)

	// a 31 byte parent hash
	bad := append([]byte{}, encoded...)
	idx := bytes.Index(bad, append([]byte{0xa0}, make([]byte, 32)...))
	require.GreaterOrEqual(t, idx, 0)
	bad[idx] = 0x9f
	require.ErrorIs(t, new(Header).UnmarshalRLP(bad), ErrMalformedEncoding)
}

// encodeListWithout re-encodes the rlp list without its element at index skip
func encodeListWithout(t *testing.T, list []byte, skip int) []byte {
	t.Helper()

	items := splitList(t, list)
	items = append(items[:skip], items[skip+1:]...)

	return joinList(items)
}

func appendToList(t *testing.T, list []byte, item []byte) []byte {
	t.Helper()

	return joinList(append(splitList(t, list), item))
}

func splitList(t *testing.T, list []byte) [][]byte {
	t.Helper()

	require.GreaterOrEqual(t, list[0], byte(0xf8))

	lenOfLen := int(list[0] - 0xf7)
	payload := list[1+lenOfLen:]

	var items [][]byte

	for len(payload) > 0 {
		size, err := rlpItemSize(payload)
		require.NoError(t, err)

		items = append(items, payload[:size])
		payload = payload[size:]
	}

	return items
}

func joinList(items [][]byte) []byte {
	payload := bytes.Join(items, nil)

	size := len(payload)
	if size < 56 {
		return append([]byte{0xc0 + byte(size)}, payload...)
	}

	var sizeBytes []byte
	for s := size; s > 0; s >>= 8 {
		sizeBytes = append([]byte{byte(s)}, sizeBytes...)
	}

	out := append([]byte{0xf7 + byte(len(sizeBytes))}, sizeBytes...)

	return append(out, payload...)
}
