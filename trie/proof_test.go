package trie

import (
	"testing"

	"github.com/0xPolygon/proof-relay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProof_ReceiptsRoundTrip(t *testing.T) {
	t.Parallel()

	// 130 receipts cover one, two and three byte index keys
	receipts := testReceipts(130)

	rt, err := BuildReceiptTrie(receipts)
	require.NoError(t, err)

	for _, index := range []uint64{0, 1, 5, 127, 128, 129} {
		proof, err := rt.ProveIndex(index)
		require.NoError(t, err, "index %d", index)
		require.NotEmpty(t, proof)

		value, err := VerifyReceiptProof(rt.Root(), index, proof)
		require.NoError(t, err, "index %d", index)
		assert.Equal(t, receipts[index].MarshalRLP(), value)
	}
}

func TestProof_IndexZeroKey(t *testing.T) {
	t.Parallel()

	receipts := testReceipts(3)

	rt, err := BuildReceiptTrie(receipts)
	require.NoError(t, err)

	proof, err := rt.ProveIndex(0)
	require.NoError(t, err)

	// index 0 is keyed by 0x80, never by 0x00
	value, err := VerifyProof(rt.Root(), []byte{0x80}, proof)
	require.NoError(t, err)
	assert.Equal(t, receipts[0].MarshalRLP(), value)

	_, err = VerifyProof(rt.Root(), []byte{0x00}, proof)
	require.Error(t, err)
}

func TestProof_SmallRootNode(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	txn := NewTrie().Txn(storage)
	require.NoError(t, txn.Insert([]byte{0x80}, []byte{0x01}))

	batch := storage.Batch()
	txn.SetBatch(batch)

	root, err := txn.Hash()
	require.NoError(t, err)
	require.NoError(t, batch.Write())

	proof, err := Prove(types.BytesToHash(root), []byte{0x80}, storage)
	require.NoError(t, err)
	require.Len(t, proof, 1)
	assert.Less(t, len(proof[0]), 32)

	value, err := VerifyProof(types.BytesToHash(root), []byte{0x80}, proof)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, value)
}

func TestProof_EmbeddedNodes(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	txn := NewTrie().Txn(storage)

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, txn.Insert(types.EncodeTxIndex(i), []byte{byte(i + 1)}))
	}

	batch := storage.Batch()
	txn.SetBatch(batch)

	root, err := txn.Hash()
	require.NoError(t, err)
	require.NoError(t, batch.Write())

	for i := uint64(0); i < 3; i++ {
		proof, err := Prove(types.BytesToHash(root), types.EncodeTxIndex(i), storage)
		require.NoError(t, err)

		// the whole trie fits in the root node
		require.Len(t, proof, 1)

		value, err := VerifyProof(types.BytesToHash(root), types.EncodeTxIndex(i), proof)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i + 1)}, value)
	}
}

func TestProof_Tampering(t *testing.T) {
	t.Parallel()

	receipts := testReceipts(20)

	rt, err := BuildReceiptTrie(receipts)
	require.NoError(t, err)

	proof, err := rt.ProveIndex(7)
	require.NoError(t, err)
	require.Greater(t, len(proof), 1)

	cases := map[string]func() ([][]byte, types.Hash, uint64){
		"flipped byte in root node": func() ([][]byte, types.Hash, uint64) {
			p := copyProof(proof)
			p[0][len(p[0])/2] ^= 0xff

			return p, rt.Root(), 7
		},
		"flipped byte in leaf node": func() ([][]byte, types.Hash, uint64) {
			p := copyProof(proof)
			last := p[len(p)-1]
			last[len(last)-1] ^= 0x01

			return p, rt.Root(), 7
		},
		"truncated": func() ([][]byte, types.Hash, uint64) {
			return copyProof(proof)[:len(proof)-1], rt.Root(), 7
		},
		"trailing node": func() ([][]byte, types.Hash, uint64) {
			return append(copyProof(proof), proof[0]), rt.Root(), 7
		},
		"wrong root": func() ([][]byte, types.Hash, uint64) {
			return copyProof(proof), types.StringToHash("0x01"), 7
		},
		"wrong index": func() ([][]byte, types.Hash, uint64) {
			return copyProof(proof), rt.Root(), 8
		},
		"empty": func() ([][]byte, types.Hash, uint64) {
			return nil, rt.Root(), 7
		},
	}

	for name, build := range cases {
		p, root, index := build()
		_, err := VerifyReceiptProof(root, index, p)
		require.Error(t, err, name)
	}
}

func TestProof_EmptyTrie(t *testing.T) {
	t.Parallel()

	rt, err := BuildReceiptTrie(nil)
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, rt.Root())

	_, err = rt.ProveIndex(0)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestProof_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 300).Draw(t, "receipts")

		values := make([][]byte, n)
		storage := NewMemoryStorage()
		txn := NewTrie().Txn(storage)

		for i := range values {
			values[i] = rapid.SliceOfN(rapid.Byte(), 1, 120).Draw(t, "value")
			if err := txn.Insert(types.EncodeTxIndex(uint64(i)), values[i]); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}

		batch := storage.Batch()
		txn.SetBatch(batch)

		rootBytes, err := txn.Hash()
		if err != nil {
			t.Fatalf("hash: %v", err)
		}

		if err := batch.Write(); err != nil {
			t.Fatalf("write: %v", err)
		}

		root := types.BytesToHash(rootBytes)
		index := rapid.IntRange(0, n-1).Draw(t, "index")
		key := types.EncodeTxIndex(uint64(index))

		proof, err := Prove(root, key, storage)
		if err != nil {
			t.Fatalf("prove: %v", err)
		}

		value, err := VerifyProof(root, key, proof)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}

		if string(value) != string(values[index]) {
			t.Fatalf("value mismatch")
		}

		node := rapid.IntRange(0, len(proof)-1).Draw(t, "node")
		pos := rapid.IntRange(0, len(proof[node])-1).Draw(t, "pos")

		tampered := copyProof(proof)
		tampered[node][pos] ^= 0x01

		if _, err := VerifyProof(root, key, tampered); err == nil {
			t.Fatalf("tampered proof accepted")
		}
	})
}

func copyProof(proof [][]byte) [][]byte {
	out := make([][]byte, len(proof))
	for i, node := range proof {
		out[i] = append([]byte{}, node...)
	}

	return out
}
