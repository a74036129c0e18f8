package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/0xPolygon/proof-relay/contractsapi"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/umbracle/fastrlp"
)

var (
	// ErrInvalidProofShape is returned when a packed proof does not have the
	// eight field layout
	ErrInvalidProofShape = errors.New("invalid proof shape")

	proofArenaPool fastrlp.ArenaPool
)

// proofFields is the number of items in a packed proof
const proofFields = 8

// Proof is everything a verifier needs to check that a log was emitted in a
// source chain block, given that block's trusted hash
type Proof struct {
	ChainID               uint64
	BlockNumber           uint64
	BlockHeader           []byte
	AncestralBlockNumber  uint64
	AncestralBlockHeaders [][]byte
	ReceiptProof          [][]byte
	TxIndex               []byte
	LogIndex              uint64
}

// Pack assembles a proof for the log at logIndex of the receipt at txIndex.
// No ancestral headers are attached.
func Pack(chainID, blockNumber uint64, header []byte, proofNodes [][]byte, txIndex uint64, logIndex uint64) *Proof {
	return &Proof{
		ChainID:      chainID,
		BlockNumber:  blockNumber,
		BlockHeader:  header,
		ReceiptProof: proofNodes,
		TxIndex:      types.EncodeTxIndex(txIndex),
		LogIndex:     logIndex,
	}
}

// Copy returns a deep copy of the proof
func (p *Proof) Copy() *Proof {
	pp := *p
	pp.BlockHeader = append([]byte(nil), p.BlockHeader...)
	pp.TxIndex = append([]byte(nil), p.TxIndex...)
	pp.AncestralBlockHeaders = copyNodes(p.AncestralBlockHeaders)
	pp.ReceiptProof = copyNodes(p.ReceiptProof)

	return &pp
}

func copyNodes(nodes [][]byte) [][]byte {
	if nodes == nil {
		return nil
	}

	res := make([][]byte, len(nodes))
	for i, n := range nodes {
		res[i] = append([]byte(nil), n...)
	}

	return res
}

// MarshalRLP returns the wire encoding
// [chainId, blockNumber, header, ancestralBlockNumber, [headers], [nodes], txIndex, logIndex]
func (p *Proof) MarshalRLP() []byte {
	ar := proofArenaPool.Get()
	defer proofArenaPool.Put(ar)

	return p.MarshalRLPWith(ar).MarshalTo(nil)
}

func (p *Proof) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()

	vv.Set(ar.NewUint(p.ChainID))
	vv.Set(ar.NewUint(p.BlockNumber))
	vv.Set(ar.NewCopyBytes(p.BlockHeader))
	vv.Set(ar.NewUint(p.AncestralBlockNumber))
	vv.Set(marshalNodes(ar, p.AncestralBlockHeaders))
	vv.Set(marshalNodes(ar, p.ReceiptProof))
	vv.Set(ar.NewCopyBytes(p.TxIndex))
	vv.Set(ar.NewUint(p.LogIndex))

	return vv
}

func marshalNodes(ar *fastrlp.Arena, nodes [][]byte) *fastrlp.Value {
	if len(nodes) == 0 {
		return ar.NewNullArray()
	}

	v := ar.NewArray()
	for _, n := range nodes {
		v.Set(ar.NewCopyBytes(n))
	}

	return v
}

// Unpack decodes a wire encoded proof
func Unpack(b []byte) (*Proof, error) {
	p := new(Proof)
	if err := p.UnmarshalRLP(b); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Proof) UnmarshalRLP(input []byte) error {
	if err := types.UnmarshalRlp(p.unmarshalRLPFrom, input); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProofShape, err)
	}

	return nil
}

func (p *Proof) unmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != proofFields {
		return fmt.Errorf("incorrect number of elements to decode proof, expected %d but found %d",
			proofFields, len(elems))
	}

	if p.ChainID, err = types.RLPUint64(elems[0]); err != nil {
		return fmt.Errorf("chainId: %w", err)
	}

	if p.BlockNumber, err = types.RLPUint64(elems[1]); err != nil {
		return fmt.Errorf("blockNumber: %w", err)
	}

	if p.BlockHeader, err = types.RLPBytes(elems[2], "blockHeader"); err != nil {
		return err
	}

	if p.AncestralBlockNumber, err = types.RLPUint64(elems[3]); err != nil {
		return fmt.Errorf("ancestralBlockNumber: %w", err)
	}

	if p.AncestralBlockHeaders, err = unmarshalNodes(elems[4], "ancestralBlockHeaders"); err != nil {
		return err
	}

	if p.ReceiptProof, err = unmarshalNodes(elems[5], "receiptProof"); err != nil {
		return err
	}

	if p.TxIndex, err = types.RLPBytes(elems[6], "transactionIndex"); err != nil {
		return err
	}

	if p.LogIndex, err = types.RLPUint64(elems[7]); err != nil {
		return fmt.Errorf("logIndex: %w", err)
	}

	return nil
}

func unmarshalNodes(v *fastrlp.Value, field string) ([][]byte, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	if len(elems) == 0 {
		return nil, nil
	}

	nodes := make([][]byte, len(elems))

	for i, elem := range elems {
		if elem.Type() != fastrlp.TypeBytes {
			return nil, fmt.Errorf("%s: item %d is not a byte string", field, i)
		}

		if nodes[i], err = types.RLPBytes(elem, field); err != nil {
			return nil, err
		}
	}

	return nodes, nil
}

// ToAbi converts the proof into the receivePing tuple
func (p *Proof) ToAbi() *contractsapi.ProofTuple {
	return &contractsapi.ProofTuple{
		ChainID:               new(big.Int).SetUint64(p.ChainID),
		BlockNumber:           new(big.Int).SetUint64(p.BlockNumber),
		BlockHeader:           p.BlockHeader,
		AncestralBlockNumber:  new(big.Int).SetUint64(p.AncestralBlockNumber),
		AncestralBlockHeaders: nonNilNodes(p.AncestralBlockHeaders),
		ReceiptProof:          nonNilNodes(p.ReceiptProof),
		TransactionIndex:      p.TxIndex,
		LogIndex:              new(big.Int).SetUint64(p.LogIndex),
	}
}

func nonNilNodes(nodes [][]byte) [][]byte {
	if nodes == nil {
		return [][]byte{}
	}

	return nodes
}

// FromAbi fills the proof from a receivePing tuple. Numbers above 64 bits are rejected.
func (p *Proof) FromAbi(t *contractsapi.ProofTuple) error {
	numbers := []struct {
		name string
		src  *big.Int
		dst  *uint64
	}{
		{"chainId", t.ChainID, &p.ChainID},
		{"blockNumber", t.BlockNumber, &p.BlockNumber},
		{"ancestralBlockNumber", t.AncestralBlockNumber, &p.AncestralBlockNumber},
		{"logIndex", t.LogIndex, &p.LogIndex},
	}

	for _, n := range numbers {
		if n.src == nil || !n.src.IsUint64() {
			return fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidProofShape, n.name)
		}

		*n.dst = n.src.Uint64()
	}

	p.BlockHeader = t.BlockHeader
	p.AncestralBlockHeaders = nilIfEmpty(t.AncestralBlockHeaders)
	p.ReceiptProof = nilIfEmpty(t.ReceiptProof)
	p.TxIndex = t.TransactionIndex

	return nil
}

func nilIfEmpty(nodes [][]byte) [][]byte {
	if len(nodes) == 0 {
		return nil
	}

	return nodes
}

// EncodeAbi returns the receivePing calldata for the proof
func (p *Proof) EncodeAbi() ([]byte, error) {
	return (&contractsapi.ReceivePingFn{Proof: p.ToAbi()}).EncodeAbi()
}

// DecodeAbi decodes receivePing calldata
func (p *Proof) DecodeAbi(buf []byte) error {
	fn := new(contractsapi.ReceivePingFn)
	if err := fn.DecodeAbi(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProofShape, err)
	}

	if fn.Proof == nil {
		return fmt.Errorf("%w: missing proof tuple", ErrInvalidProofShape)
	}

	return p.FromAbi(fn.Proof)
}

// TransactionIndex decodes the trie key back into the transaction index
func (p *Proof) TransactionIndex() (uint64, error) {
	return types.DecodeTxIndex(p.TxIndex)
}
