package verifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xPolygon/proof-relay/types"
)

// TrustOracle returns block hashes anchored on the destination chain
type TrustOracle interface {
	// TrustedHash returns the anchored hash of a source chain block, or
	// ErrTrustedHashUnavailable while the block is not anchored
	TrustedHash(ctx context.Context, chainID, blockNumber uint64) (types.Hash, error)
}

type anchorKey struct {
	chainID     uint64
	blockNumber uint64
}

var _ TrustOracle = (*MemoryOracle)(nil)

// MemoryOracle is a TrustOracle backed by a map. Store plays the role of the
// storeBlockHeader call of an on-chain adapter.
type MemoryOracle struct {
	lock    sync.RWMutex
	anchors map[anchorKey]types.Hash
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{anchors: map[anchorKey]types.Hash{}}
}

// Store anchors hash as the trusted hash of blockNumber on chainID
func (o *MemoryOracle) Store(chainID, blockNumber uint64, hash types.Hash) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.anchors[anchorKey{chainID, blockNumber}] = hash
}

func (o *MemoryOracle) TrustedHash(_ context.Context, chainID, blockNumber uint64) (types.Hash, error) {
	o.lock.RLock()
	defer o.lock.RUnlock()

	hash, ok := o.anchors[anchorKey{chainID, blockNumber}]
	if !ok || hash == types.ZeroHash {
		return types.ZeroHash, fmt.Errorf("%w: chain %d block %d", ErrTrustedHashUnavailable, chainID, blockNumber)
	}

	return hash, nil
}
