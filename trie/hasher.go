package trie

import (
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/0xPolygon/proof-relay/types"
	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"
)

var arenaPool fastrlp.ArenaPool

var hasherPool = sync.Pool{
	New: func() interface{} {
		impl, ok := sha3.NewLegacyKeccak256().(hashImpl)
		if !ok {
			return nil
		}

		return &hasher{
			hash: impl,
		}
	},
}

type hashImpl interface {
	hash.Hash
	Read([]byte) (int, error)
}

type hasher struct {
	buf  []byte
	hash hashImpl
	tmp  [32]byte
}

func (h *hasher) Reset() {
	h.buf = h.buf[:0]
	h.hash.Reset()
	h.tmp = [32]byte{}
}

func (h *hasher) Hash(data []byte) []byte {
	h.hash.Reset()
	h.hash.Write(data)
	n, err := h.hash.Read(h.tmp[:])

	if err != nil {
		panic(err)
	}

	if n != 32 {
		panic("incorrect length")
	}

	return h.tmp[:]
}

// Hash computes the root hash. Every node whose encoding is at least
// 32 bytes, and the root node regardless of size, is written to the batch.
func (t *Txn) Hash() ([]byte, error) {
	if t.root == nil {
		return types.EmptyRootHash.Bytes(), nil
	}

	h, ok := hasherPool.Get().(*hasher)
	if !ok {
		return nil, errors.New("invalid type assertion")
	}

	defer func() {
		h.Reset()
		hasherPool.Put(h)
	}()

	arena := arenaPool.Get()
	defer arenaPool.Put(arena)

	val := t.hash(t.root, h, arena)

	root := make([]byte, 32)

	if val.Type() == fastrlp.TypeBytes {
		// the root node was already hashed and stored
		copy(root, val.Raw())

		return root, nil
	}

	// root nodes are referenced by hash even when they are small
	h.buf = val.MarshalTo(h.buf[:0])
	copy(root, h.Hash(h.buf))

	if t.batch != nil {
		t.batch.Put(root, h.buf)
	}

	return root, nil
}

func (t *Txn) hash(node Node, h *hasher, a *fastrlp.Arena) *fastrlp.Value {
	if hh, ok := node.Hash(); ok {
		return a.NewCopyBytes(hh)
	}

	var val *fastrlp.Value

	switch n := node.(type) {
	case *ValueNode:
		return a.NewCopyBytes(n.buf)

	case *ShortNode:
		child := t.hash(n.child, h, a)

		val = a.NewArray()
		val.Set(a.NewCopyBytes(hexToCompact(n.key)))
		val.Set(child)

	case *FullNode:
		val = a.NewArray()

		for _, i := range n.children {
			if i == nil {
				val.Set(a.NewNull())
			} else {
				val.Set(t.hash(i, h, a))
			}
		}

		// Add the value
		if n.value == nil {
			val.Set(a.NewNull())
		} else {
			val.Set(t.hash(n.value, h, a))
		}

	default:
		panic(fmt.Sprintf("unknown node type %v", n))
	}

	h.buf = val.MarshalTo(h.buf[:0])

	// nodes smaller than a hash are embedded in their parent
	if len(h.buf) < 32 {
		return val
	}

	tmp := h.Hash(h.buf)
	hh := node.SetHash(tmp)

	// Write data
	if t.batch != nil {
		t.batch.Put(tmp, h.buf)
	}

	return a.NewCopyBytes(hh)
}
