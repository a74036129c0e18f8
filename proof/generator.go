package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPolygon/proof-relay/trie"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrTrieRootMismatch is returned when the receipts fetched for a block do
	// not rebuild the root committed to by its header
	ErrTrieRootMismatch = errors.New("trie root mismatch")
	// ErrHeaderHashMismatch is returned when the encoded header does not hash to
	// the block hash reported by the source chain
	ErrHeaderHashMismatch = errors.New("header hash mismatch")
	// ErrLogNotFound is returned when the requested log is not in the receipt
	ErrLogNotFound = errors.New("log not found in receipt")
)

const defaultTrieCacheSize = 128

// BlockSource is the read access to the source chain a Generator needs
type BlockSource interface {
	// TransactionReceipt returns the receipt of a mined transaction
	TransactionReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error)
	// HeaderByNumber returns the header of a block
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
	// BlockReceipts returns every receipt of a block in transaction order
	BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error)
}

type blockTrie struct {
	header  *types.Header
	encoded []byte
	// receipts is nil when the trie was opened from storage, receipts are
	// then read back from the trie
	receipts []*types.Receipt
	trie     *trie.ReceiptTrie
}

// Generator builds receipt proofs from a BlockSource. Tries are cached per
// block hash so several events of one block share a single build.
type Generator struct {
	source  BlockSource
	chainID uint64
	logger  hclog.Logger

	tries   *lru.Cache
	group   singleflight.Group
	storage trie.Storage
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithTrieCacheSize sets how many block tries are kept
func WithTrieCacheSize(size int) GeneratorOption {
	return func(g *Generator) {
		if size > 0 {
			g.tries, _ = lru.New(size)
		}
	}
}

// WithTrieStorage writes the nodes of every built trie to storage. Blocks
// evicted from the cache are then proven again without refetching receipts.
func WithTrieStorage(storage trie.Storage) GeneratorOption {
	return func(g *Generator) {
		g.storage = storage
	}
}

// WithLogger sets the logger used by the generator
func WithLogger(logger hclog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger.Named("generator")
	}
}

func NewGenerator(source BlockSource, chainID uint64, opts ...GeneratorOption) *Generator {
	tries, _ := lru.New(defaultTrieCacheSize)

	g := &Generator{
		source:  source,
		chainID: chainID,
		logger:  hclog.NewNullLogger(),
		tries:   tries,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate builds the proof for the log at logIndex (position within the
// transaction's receipt) of the transaction txHash
func (g *Generator) Generate(ctx context.Context, txHash types.Hash, logIndex uint64) (*Proof, error) {
	receipt, err := g.source.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", txHash, err)
	}

	bt, err := g.blockTrie(ctx, receipt.BlockNumber, receipt.BlockHash)
	if err != nil {
		return nil, err
	}

	return g.pack(bt, receipt.TransactionIndex, logIndex)
}

// GenerateForBlockLog builds the proof for a log identified the way
// eth_getLogs reports it: by transaction and block wide log index
func (g *Generator) GenerateForBlockLog(ctx context.Context, txHash types.Hash, blockLogIndex uint64) (*Proof, error) {
	receipt, err := g.source.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", txHash, err)
	}

	bt, err := g.blockTrie(ctx, receipt.BlockNumber, receipt.BlockHash)
	if err != nil {
		return nil, err
	}

	logIndex, err := bt.receiptLogIndex(receipt.TransactionIndex, blockLogIndex)
	if err != nil {
		return nil, err
	}

	return g.pack(bt, receipt.TransactionIndex, logIndex)
}

func (g *Generator) pack(bt *blockTrie, txIndex, logIndex uint64) (*Proof, error) {
	receipt, err := bt.receipt(txIndex)
	if err != nil {
		return nil, err
	}

	if logIndex >= uint64(len(receipt.Logs)) {
		return nil, fmt.Errorf("%w: index %d of %d logs", ErrLogNotFound, logIndex, len(receipt.Logs))
	}

	nodes, err := bt.trie.ProveIndex(txIndex)
	if err != nil {
		return nil, fmt.Errorf("prove receipt %d: %w", txIndex, err)
	}

	g.logger.Debug("proof generated", "block", bt.header.Number, "tx", txIndex, "log", logIndex, "nodes", len(nodes))

	return Pack(g.chainID, bt.header.Number, bt.encoded, nodes, txIndex, logIndex), nil
}

// receiptLogIndex converts a block wide log index into the index within the receipt at txIndex
func (bt *blockTrie) receiptLogIndex(txIndex, blockLogIndex uint64) (uint64, error) {
	var first uint64

	for i := uint64(0); i < txIndex; i++ {
		receipt, err := bt.receipt(i)
		if err != nil {
			return 0, err
		}

		first += uint64(len(receipt.Logs))
	}

	if blockLogIndex < first {
		return 0, fmt.Errorf("%w: block log index %d precedes transaction %d", ErrLogNotFound, blockLogIndex, txIndex)
	}

	return blockLogIndex - first, nil
}

// receipt returns the receipt at txIndex
func (bt *blockTrie) receipt(txIndex uint64) (*types.Receipt, error) {
	if bt.receipts != nil {
		if txIndex >= uint64(len(bt.receipts)) {
			return nil, fmt.Errorf("transaction index %d out of range for block %d with %d receipts",
				txIndex, bt.header.Number, len(bt.receipts))
		}

		return bt.receipts[txIndex], nil
	}

	raw, err := bt.trie.Get(txIndex)
	if err != nil {
		return nil, fmt.Errorf("transaction index %d of block %d: %w", txIndex, bt.header.Number, err)
	}

	receipt := new(types.Receipt)
	if err := receipt.UnmarshalRLP(raw); err != nil {
		return nil, fmt.Errorf("stored receipt %d of block %d: %w", txIndex, bt.header.Number, err)
	}

	return receipt, nil
}

func (g *Generator) blockTrie(ctx context.Context, number uint64, blockHash types.Hash) (*blockTrie, error) {
	if bt, ok := g.cachedTrie(blockHash); ok {
		return bt, nil
	}

	v, err, _ := g.group.Do(blockHash.String(), func() (interface{}, error) {
		// a build for the same block may have finished since the lookup above
		if bt, ok := g.cachedTrie(blockHash); ok {
			return bt, nil
		}

		bt, err := g.buildBlockTrie(ctx, number, blockHash)
		if err != nil {
			return nil, err
		}

		g.tries.Add(blockHash, bt)

		return bt, nil
	})
	if err != nil {
		return nil, err
	}

	bt, ok := v.(*blockTrie)
	if !ok {
		return nil, errors.New("invalid type assertion")
	}

	return bt, nil
}

func (g *Generator) cachedTrie(blockHash types.Hash) (*blockTrie, bool) {
	v, ok := g.tries.Get(blockHash)
	if !ok {
		return nil, false
	}

	bt, ok := v.(*blockTrie)

	return bt, ok
}

func (g *Generator) buildBlockTrie(ctx context.Context, number uint64, blockHash types.Hash) (*blockTrie, error) {
	header, err := g.source.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get header %d: %w", number, err)
	}

	if hash := header.Hash(); blockHash != types.ZeroHash && hash != blockHash {
		return nil, fmt.Errorf("%w: block %d encodes to %s, chain reports %s", ErrHeaderHashMismatch, number, hash, blockHash)
	}

	if bt, ok, err := g.storedBlockTrie(header); err != nil || ok {
		return bt, err
	}

	receipts, err := g.source.BlockReceipts(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get receipts of block %d: %w", number, err)
	}

	storage := g.storage
	if storage == nil {
		storage = trie.NewMemoryStorage()
	}

	rt, err := trie.BuildReceiptTrieWithStorage(receipts, storage)
	if err != nil {
		return nil, err
	}

	if rt.Root() != header.ReceiptsRoot {
		return nil, fmt.Errorf("%w: block %d calculated %s, header %s",
			ErrTrieRootMismatch, number, rt.Root(), header.ReceiptsRoot)
	}

	g.logger.Debug("receipt trie built", "block", number, "receipts", len(receipts), "root", rt.Root())

	return &blockTrie{
		header:   header,
		encoded:  header.MarshalRLP(),
		receipts: receipts,
		trie:     rt,
	}, nil
}

// storedBlockTrie opens the receipt trie of header when its root node is
// already in storage
func (g *Generator) storedBlockTrie(header *types.Header) (*blockTrie, bool, error) {
	if g.storage == nil || header.ReceiptsRoot == types.EmptyRootHash {
		return nil, false, nil
	}

	_, ok, err := g.storage.Get(header.ReceiptsRoot.Bytes())
	if err != nil {
		return nil, false, fmt.Errorf("read receipt trie of block %d: %w", header.Number, err)
	}

	if !ok {
		return nil, false, nil
	}

	g.logger.Debug("receipt trie loaded from storage", "block", header.Number, "root", header.ReceiptsRoot)

	return &blockTrie{
		header:  header,
		encoded: header.MarshalRLP(),
		trie:    trie.OpenReceiptTrie(header.ReceiptsRoot, g.storage),
	}, true, nil
}
