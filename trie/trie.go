package trie

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/proof-relay/types"
)

// Trie is an immutable merkle-patricia trie. Changes go through a Txn.
type Trie struct {
	root Node
}

func NewTrie() *Trie {
	return &Trie{}
}

// NewTrieAt opens a trie whose nodes live in storage
func NewTrieAt(root types.Hash) *Trie {
	if root == types.EmptyRootHash {
		return NewTrie()
	}

	return &Trie{root: &ValueNode{hash: true, buf: root.Bytes()}}
}

func (t *Trie) Get(k []byte, storage Storage) ([]byte, bool, error) {
	txn := t.Txn(storage)

	res, err := txn.Lookup(k)
	if err != nil {
		return nil, false, err
	}

	return res, res != nil, nil
}

// Hash returns the root hash of the trie. It does not write to the
// database and can be used even if the trie doesn't have one.
func (t *Trie) Hash() types.Hash {
	if t.root == nil {
		return types.EmptyRootHash
	}

	hash, err := t.Txn(nil).Hash()
	if err != nil {
		return types.ZeroHash
	}

	return types.BytesToHash(hash)
}

func (t *Trie) Txn(storage Storage) *Txn {
	return &Txn{root: t.root, storage: storage}
}

type Putter interface {
	Put(k, v []byte)
}

type Txn struct {
	root    Node
	storage Storage
	batch   Putter
}

// SetBatch makes Hash write every hashed node into the batch
func (t *Txn) SetBatch(batch Putter) {
	t.batch = batch
}

func (t *Txn) Commit() *Trie {
	return &Trie{root: t.root}
}

func (t *Txn) Lookup(key []byte) ([]byte, error) {
	_, res, err := t.lookup(t.root, keybytesToHex(key))

	return res, err
}

func (t *Txn) lookup(node interface{}, key []byte) (Node, []byte, error) {
	switch n := node.(type) {
	case nil:
		return nil, nil, nil

	case *ValueNode:
		if n.hash {
			nc, ok, err := GetNode(n.buf, t.storage)
			if err != nil {
				return nil, nil, err
			}

			if !ok {
				return nil, nil, fmt.Errorf("%w: %x", ErrMissingNode, n.buf)
			}

			_, res, err := t.lookup(nc, key)

			return nc, res, err
		}

		if len(key) == 0 {
			return nil, n.buf, nil
		}

		return nil, nil, nil

	case *ShortNode:
		plen := len(n.key)
		if plen > len(key) || !bytes.Equal(key[:plen], n.key) {
			return nil, nil, nil
		}

		child, res, err := t.lookup(n.child, key[plen:])

		if child != nil {
			n.child = child
		}

		return nil, res, err

	case *FullNode:
		if len(key) == 0 {
			return nil, nil, nil
		}

		child, res, err := t.lookup(n.getEdge(key[0]), key[1:])

		if child != nil {
			n.setEdge(key[0], child)
		}

		return nil, res, err

	default:
		panic(fmt.Sprintf("unknown node type %v", n)) //nolint:gocritic
	}
}

// Insert sets the value for key. Nodes on the path are copied, so
// tries committed earlier are not modified.
func (t *Txn) Insert(key, value []byte) error {
	root, err := t.insert(t.root, keybytesToHex(key), value)
	if err != nil {
		return err
	}

	t.root = root

	return nil
}

func (t *Txn) insert(node Node, search, value []byte) (Node, error) {
	switch n := node.(type) {
	case nil:
		if len(search) == 0 {
			v := &ValueNode{}
			v.buf = make([]byte, len(value))
			copy(v.buf, value)

			return v, nil
		}

		child, err := t.insert(nil, nil, value)
		if err != nil {
			return nil, err
		}

		return &ShortNode{key: search, child: child}, nil

	case *ValueNode:
		if n.hash {
			nc, ok, err := GetNode(n.buf, t.storage)
			if err != nil {
				return nil, err
			}

			if !ok {
				return nil, fmt.Errorf("%w: %x", ErrMissingNode, n.buf)
			}

			return t.insert(nc, search, value)
		}

		if len(search) != 0 {
			// terminated keys never continue past a value
			return nil, fmt.Errorf("key extends beyond a value node")
		}

		return t.insert(nil, nil, value)

	case *ShortNode:
		plen := prefixLen(search, n.key)
		if plen == len(n.key) {
			// Keep this node as is and insert to child
			child, err := t.insert(n.child, search[plen:], value)
			if err != nil {
				return nil, err
			}

			return &ShortNode{key: n.key, child: child}, nil
		}

		// Introduce a new branch
		b := &FullNode{}
		if len(n.key) > plen+1 {
			b.setEdge(n.key[plen], &ShortNode{key: n.key[plen+1:], child: n.child})
		} else {
			b.setEdge(n.key[plen], n.child)
		}

		child, err := t.insert(b, search[plen:], value)
		if err != nil {
			return nil, err
		}

		if plen == 0 {
			return child, nil
		}

		return &ShortNode{key: search[:plen], child: child}, nil

	case *FullNode:
		b := n.copy()

		if len(search) == 0 {
			return nil, fmt.Errorf("key ends at a branch node")
		}

		k := search[0]

		newChild, err := t.insert(n.getEdge(k), search[1:], value)
		if err != nil {
			return nil, err
		}

		b.setEdge(k, newChild)

		return b, nil

	default:
		panic(fmt.Sprintf("unknown node type %v", n)) //nolint:gocritic
	}
}

func prefixLen(k1, k2 []byte) int {
	max := len(k1)
	if l := len(k2); l < max {
		max = l
	}

	var i int

	for i = 0; i < max; i++ {
		if k1[i] != k2[i] {
			break
		}
	}

	return i
}
