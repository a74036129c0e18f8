package tests

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/helper/keccak"
	"github.com/0xPolygon/proof-relay/trie"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/umbracle/ethgo"
)

// ErrNotFound is returned by Chain for unknown blocks and transactions
var ErrNotFound = errors.New("not found")

// Chain is an in-memory source chain. Blocks are appended with AddBlock and
// served through the same read methods the rpc client offers.
type Chain struct {
	lock sync.RWMutex

	chainID  uint64
	headers  []*types.Header
	receipts [][]*types.Receipt
	byTx     map[types.Hash]*types.Receipt

	calls map[string]int
}

// NewChain returns a chain holding only an empty genesis block
func NewChain(chainID uint64) *Chain {
	c := &Chain{
		chainID: chainID,
		byTx:    map[types.Hash]*types.Receipt{},
		calls:   map[string]int{},
	}

	c.AddBlock()

	return c
}

// AddBlock seals a block with the given receipts. Receipt metadata (hashes,
// indexes, cumulative gas when unset) is filled in.
func (c *Chain) AddBlock(receipts ...*types.Receipt) *types.Header {
	c.lock.Lock()
	defer c.lock.Unlock()

	number := uint64(len(c.headers))

	var cumulative uint64

	for i, r := range receipts {
		if r.CumulativeGasUsed == 0 {
			cumulative += 21000
			r.CumulativeGasUsed = cumulative
		} else {
			cumulative = r.CumulativeGasUsed
		}

		if r.Status == nil && r.Root == types.ZeroHash {
			r.SetStatus(types.ReceiptSuccess)
		}

		r.LogsBloom = types.CreateBloom([]*types.Receipt{r})
		r.TransactionIndex = uint64(i)
		r.BlockNumber = number

		if r.TxHash == types.ZeroHash {
			r.TxHash = types.BytesToHash(keccak.Keccak256(nil, []byte(fmt.Sprintf("tx-%d-%d", number, i))))
		}
	}

	root, err := trie.CalcReceiptRoot(receipts)
	if err != nil {
		panic(err) //nolint:gocritic
	}

	header := &types.Header{
		Sha3Uncles:   types.EmptyUncleHash,
		Miner:        types.StringToAddress("0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5"),
		StateRoot:    types.BytesToHash(keccak.Keccak256(nil, []byte(fmt.Sprintf("state-%d", number)))),
		TxRoot:       types.EmptyRootHash,
		ReceiptsRoot: root,
		LogsBloom:    types.CreateBloom(receipts),
		Number:       number,
		GasLimit:     30_000_000,
		GasUsed:      cumulative,
		Timestamp:    1_700_000_000 + number*12,
		BaseFee:      big.NewInt(7),
	}

	if number > 0 {
		header.ParentHash = c.headers[number-1].Hash()
	}

	hash := header.Hash()

	for _, r := range receipts {
		r.BlockHash = hash
		c.byTx[r.TxHash] = r
	}

	c.headers = append(c.headers, header)
	c.receipts = append(c.receipts, receipts)

	return header
}

// AddEmptyBlocks appends n blocks without transactions
func (c *Chain) AddEmptyBlocks(n int) {
	for i := 0; i < n; i++ {
		c.AddBlock()
	}
}

func (c *Chain) ChainID() uint64 {
	return c.chainID
}

// Header returns the header of block number or nil
func (c *Chain) Header(number uint64) *types.Header {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if number >= uint64(len(c.headers)) {
		return nil
	}

	return c.headers[number].Copy()
}

// Calls returns how many times method was invoked
func (c *Chain) Calls(method string) int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.calls[method]
}

func (c *Chain) record(method string) {
	c.calls[method]++
}

func (c *Chain) HeadNumber(ctx context.Context) (uint64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.record("HeadNumber")

	return uint64(len(c.headers) - 1), nil
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.record("TransactionReceipt")

	r, ok := c.byTx[txHash]
	if !ok {
		return nil, fmt.Errorf("receipt %s: %w", txHash, ErrNotFound)
	}

	return r, nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.record("HeaderByNumber")

	if number >= uint64(len(c.headers)) {
		return nil, fmt.Errorf("header %d: %w", number, ErrNotFound)
	}

	return c.headers[number].Copy(), nil
}

func (c *Chain) BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.record("BlockReceipts")

	if number >= uint64(len(c.receipts)) {
		return nil, fmt.Errorf("receipts %d: %w", number, ErrNotFound)
	}

	return c.receipts[number], nil
}

// GetLogs returns the logs of [From, To] matching the filter addresses and topics
func (c *Chain) GetLogs(ctx context.Context, filter *ethgo.LogFilter) ([]*ethgo.Log, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.record("GetLogs")

	if filter.From == nil || filter.To == nil {
		return nil, errors.New("block range required")
	}

	from, to := uint64(*filter.From), uint64(*filter.To)
	if to >= uint64(len(c.headers)) {
		return nil, fmt.Errorf("block %d: %w", to, ErrNotFound)
	}

	var res []*ethgo.Log

	for number := from; number <= to; number++ {
		var logIndex uint64

		for _, r := range c.receipts[number] {
			for _, l := range r.Logs {
				if matchLog(filter, l) {
					res = append(res, &ethgo.Log{
						Removed:          false,
						LogIndex:         logIndex,
						TransactionIndex: r.TransactionIndex,
						TransactionHash:  r.TxHash.ToEthgo(),
						BlockHash:        r.BlockHash.ToEthgo(),
						BlockNumber:      number,
						Address:          l.Address.ToEthgo(),
						Topics:           toEthgoTopics(l.Topics),
						Data:             l.Data,
					})
				}

				logIndex++
			}
		}
	}

	return res, nil
}

func matchLog(filter *ethgo.LogFilter, l *types.Log) bool {
	if len(filter.Address) > 0 {
		found := false

		for _, addr := range filter.Address {
			if addr == l.Address.ToEthgo() {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	for i, options := range filter.Topics {
		if len(options) == 0 {
			continue
		}

		if i >= len(l.Topics) {
			return false
		}

		found := false

		for _, topic := range options {
			if topic != nil && *topic == l.Topics[i].ToEthgo() {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

func toEthgoTopics(topics []types.Hash) []ethgo.Hash {
	res := make([]ethgo.Hash, len(topics))
	for i, t := range topics {
		res[i] = t.ToEthgo()
	}

	return res
}

// PingLog returns the Ping(sender, blockNumber) log an emitter at address produces
func PingLog(emitter, sender types.Address, blockNumber uint64) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics: []types.Hash{
			types.Hash(contractsapi.PingEventType.ID()),
			types.BytesToHash(sender.Bytes()),
			types.BytesToHash(new(big.Int).SetUint64(blockNumber).Bytes()),
		},
	}
}

// HashStoredLog returns the HashStored(id, hash) log of a trust adapter at address
func HashStoredLog(adapter types.Address, blockNumber uint64, hash types.Hash) *types.Log {
	return &types.Log{
		Address: adapter,
		Topics: []types.Hash{
			types.Hash(contractsapi.HashStoredEventType.ID()),
			types.BytesToHash(new(big.Int).SetUint64(blockNumber).Bytes()),
		},
		Data: hash.Bytes(),
	}
}

// NewReceipt returns a successful receipt of the given type holding logs
func NewReceipt(txType types.TxType, logs ...*types.Log) *types.Receipt {
	r := &types.Receipt{Type: txType, Logs: logs}
	r.SetStatus(types.ReceiptSuccess)

	return r
}
