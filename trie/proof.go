package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xPolygon/proof-relay/helper/keccak"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/umbracle/fastrlp"
)

var (
	// ErrKeyNotFound is returned when the path for a key ends before reaching a value
	ErrKeyNotFound = errors.New("key not found in trie")
	// ErrInvalidProofNode is returned when a proof node is malformed or does not
	// match the reference held by its parent
	ErrInvalidProofNode = errors.New("invalid proof node")
	// ErrMissingNode is returned when a referenced node is not in storage
	ErrMissingNode = errors.New("trie node missing from storage")
)

// Prove returns the encodings of the hashed nodes on the path from root to key,
// root first. Nodes embedded in their parent are not listed separately.
func Prove(root types.Hash, key []byte, storage Storage) ([][]byte, error) {
	var (
		proof [][]byte
		path  = keybytesToHex(key)
		ref   = root.Bytes()
	)

	for {
		enc, ok, err := storage.Get(ref)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, fmt.Errorf("%w: %x", ErrMissingNode, ref)
		}

		proof = append(proof, append([]byte{}, enc...))

		next, value, rest, err := walkEncodedNode(enc, path)
		if err != nil {
			return nil, err
		}

		if value != nil {
			return proof, nil
		}

		ref, path = next, rest
	}
}

// VerifyProof checks that proof is a valid path from root to key and
// returns the value stored under key. Every node must hash to the
// reference held by the node before it and no node may be left unused.
func VerifyProof(root types.Hash, key []byte, proof [][]byte) ([]byte, error) {
	path := keybytesToHex(key)
	want := root.Bytes()

	for i, enc := range proof {
		if got := keccak.Keccak256(nil, enc); !bytes.Equal(got, want) {
			return nil, fmt.Errorf("%w: node %d hash mismatch, expected %x got %x", ErrInvalidProofNode, i, want, got)
		}

		next, value, rest, err := walkEncodedNode(enc, path)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}

		if value != nil {
			if i != len(proof)-1 {
				return nil, fmt.Errorf("%w: %d unused trailing nodes", ErrInvalidProofNode, len(proof)-1-i)
			}

			return value, nil
		}

		want, path = next, rest
	}

	return nil, fmt.Errorf("%w: proof ends before reaching the value", ErrInvalidProofNode)
}

func walkEncodedNode(enc, path []byte) (next, value, rest []byte, err error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(enc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidProofNode, err)
	}

	return walkNode(v, path)
}

// walkNode follows path through v and any nodes embedded in it. It stops either
// at the value (copied out) or at the hash reference of the next stored node.
func walkNode(v *fastrlp.Value, path []byte) (next, value, rest []byte, err error) {
	for {
		if v.Type() != fastrlp.TypeArray {
			return nil, nil, nil, fmt.Errorf("%w: node is not a list", ErrInvalidProofNode)
		}

		var child *fastrlp.Value

		switch v.Elems() {
		case 17:
			if len(path) == 0 {
				return nil, nil, nil, fmt.Errorf("%w: path exhausted at branch", ErrInvalidProofNode)
			}

			if path[0] == terminator {
				val := v.Get(16)
				if val.Type() != fastrlp.TypeBytes {
					return nil, nil, nil, fmt.Errorf("%w: branch value is not bytes", ErrInvalidProofNode)
				}

				if len(val.Raw()) == 0 {
					return nil, nil, nil, ErrKeyNotFound
				}

				return nil, append([]byte{}, val.Raw()...), nil, nil
			}

			child = v.Get(int(path[0]))
			path = path[1:]

		case 2:
			key := v.Get(0)
			if key.Type() != fastrlp.TypeBytes {
				return nil, nil, nil, fmt.Errorf("%w: short node key is not bytes", ErrInvalidProofNode)
			}

			nibbles, err := decodeCompact(key.Raw())
			if err != nil {
				return nil, nil, nil, err
			}

			if !bytes.HasPrefix(path, nibbles) {
				return nil, nil, nil, ErrKeyNotFound
			}

			path = path[len(nibbles):]

			if hasTerm(nibbles) {
				val := v.Get(1)
				if val.Type() != fastrlp.TypeBytes || len(val.Raw()) == 0 {
					return nil, nil, nil, fmt.Errorf("%w: leaf value is not a non-empty string", ErrInvalidProofNode)
				}

				return nil, append([]byte{}, val.Raw()...), nil, nil
			}

			child = v.Get(1)

		default:
			return nil, nil, nil, fmt.Errorf("%w: node has %d items", ErrInvalidProofNode, v.Elems())
		}

		if child.Type() == fastrlp.TypeArray {
			// embedded node, only legal when its encoding is shorter than a hash
			if encodedSize(child) >= types.HashLength {
				return nil, nil, nil, fmt.Errorf("%w: oversized embedded node", ErrInvalidProofNode)
			}

			v = child

			continue
		}

		switch len(child.Raw()) {
		case 0:
			return nil, nil, nil, ErrKeyNotFound
		case types.HashLength:
			return append([]byte{}, child.Raw()...), nil, path, nil
		default:
			return nil, nil, nil, fmt.Errorf("%w: child reference of %d bytes", ErrInvalidProofNode, len(child.Raw()))
		}
	}
}

// encodedSize returns the length of the canonical encoding of a parsed value
func encodedSize(v *fastrlp.Value) int {
	if v.Type() != fastrlp.TypeArray {
		raw := v.Raw()
		if len(raw) == 1 && raw[0] < 0x80 {
			return 1
		}

		return headerSize(len(raw)) + len(raw)
	}

	payload := 0
	for i := 0; i < v.Elems(); i++ {
		payload += encodedSize(v.Get(i))
	}

	return headerSize(payload) + payload
}

func headerSize(payload int) int {
	if payload < 56 {
		return 1
	}

	size := 1
	for ; payload > 0; payload >>= 8 {
		size++
	}

	return size
}
