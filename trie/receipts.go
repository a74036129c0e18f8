package trie

import (
	"fmt"

	"github.com/0xPolygon/proof-relay/types"
)

// ReceiptTrie is the trie of a block's receipts, keyed by the rlp encoding of
// the transaction index. Its root is the header's receiptsRoot.
type ReceiptTrie struct {
	root    types.Hash
	storage Storage
}

// BuildReceiptTrie builds the receipt trie with its nodes kept in memory
func BuildReceiptTrie(receipts []*types.Receipt) (*ReceiptTrie, error) {
	return BuildReceiptTrieWithStorage(receipts, NewMemoryStorage())
}

// BuildReceiptTrieWithStorage inserts the receipts in block order and writes
// every hashed node to storage
func BuildReceiptTrieWithStorage(receipts []*types.Receipt, storage Storage) (*ReceiptTrie, error) {
	txn := NewTrie().Txn(storage)

	for indx, receipt := range receipts {
		if err := txn.Insert(types.EncodeTxIndex(uint64(indx)), receipt.MarshalRLP()); err != nil {
			return nil, fmt.Errorf("insert receipt %d: %w", indx, err)
		}
	}

	batch := storage.Batch()
	txn.SetBatch(batch)

	root, err := txn.Hash()
	if err != nil {
		return nil, err
	}

	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("write receipt trie: %w", err)
	}

	return &ReceiptTrie{root: types.BytesToHash(root), storage: storage}, nil
}

// OpenReceiptTrie returns the receipt trie with the given root from storage
func OpenReceiptTrie(root types.Hash, storage Storage) *ReceiptTrie {
	return &ReceiptTrie{root: root, storage: storage}
}

// CalcReceiptRoot returns the receipts root without keeping the nodes
func CalcReceiptRoot(receipts []*types.Receipt) (types.Hash, error) {
	t, err := BuildReceiptTrie(receipts)
	if err != nil {
		return types.ZeroHash, err
	}

	return t.Root(), nil
}

func (r *ReceiptTrie) Root() types.Hash {
	return r.root
}

// Prove returns the inclusion proof for key, the encoded transaction index
func (r *ReceiptTrie) Prove(key []byte) ([][]byte, error) {
	if r.root == types.EmptyRootHash {
		return nil, ErrKeyNotFound
	}

	return Prove(r.root, key, r.storage)
}

// ProveIndex returns the inclusion proof of the receipt at txIndex
func (r *ReceiptTrie) ProveIndex(txIndex uint64) ([][]byte, error) {
	return r.Prove(types.EncodeTxIndex(txIndex))
}

// Get returns the encoded receipt at txIndex
func (r *ReceiptTrie) Get(txIndex uint64) ([]byte, error) {
	value, ok, err := NewTrieAt(r.root).Get(types.EncodeTxIndex(txIndex), r.storage)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrKeyNotFound
	}

	return value, nil
}

// VerifyReceiptProof checks a receipt inclusion proof against receiptsRoot
// and returns the encoded receipt
func VerifyReceiptProof(receiptsRoot types.Hash, txIndex uint64, proof [][]byte) ([]byte, error) {
	return VerifyProof(receiptsRoot, types.EncodeTxIndex(txIndex), proof)
}
