package types

import (
	"github.com/0xPolygon/proof-relay/helper/keccak"
)

// Hash returns keccak256 of the canonical header encoding
func (h *Header) Hash() (hash Hash) {
	ar := headerArenaPool.Get()
	hasher := keccak.DefaultKeccakPool.Get()

	v := h.MarshalRLPWith(ar)
	hasher.WriteRlp(hash[:0], v)

	headerArenaPool.Put(ar)
	keccak.DefaultKeccakPool.Put(hasher)

	return
}
