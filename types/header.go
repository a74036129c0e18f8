package types

import (
	"encoding/binary"
	"math/big"

	"github.com/0xPolygon/proof-relay/helper/hex"
)

// Header represents a block header in the Ethereum blockchain.
//
// The first fifteen fields are always encoded. The remaining pointer fields
// were introduced by later forks and are appended in declaration order only
// when set (an unset field followed by a set one is encoded as its zero value).
type Header struct {
	ParentHash   Hash     `json:"parentHash"`
	Sha3Uncles   Hash     `json:"sha3Uncles"`
	Miner        Address  `json:"miner"`
	StateRoot    Hash     `json:"stateRoot"`
	TxRoot       Hash     `json:"transactionsRoot"`
	ReceiptsRoot Hash     `json:"receiptsRoot"`
	LogsBloom    Bloom    `json:"logsBloom"`
	Difficulty   uint64   `json:"difficulty"`
	Number       uint64   `json:"number"`
	GasLimit     uint64   `json:"gasLimit"`
	GasUsed      uint64   `json:"gasUsed"`
	Timestamp    uint64   `json:"timestamp"`
	ExtraData    HexBytes `json:"extraData"`
	MixHash      Hash     `json:"mixHash"`
	Nonce        Nonce    `json:"nonce"`

	BaseFee               *big.Int `json:"baseFeePerGas,omitempty"`
	WithdrawalsRoot       *Hash    `json:"withdrawalsRoot,omitempty"`
	BlobGasUsed           *uint64  `json:"blobGasUsed,omitempty"`
	ExcessBlobGas         *uint64  `json:"excessBlobGas,omitempty"`
	ParentBeaconBlockRoot *Hash    `json:"parentBeaconBlockRoot,omitempty"`
	RequestsHash          *Hash    `json:"requestsHash,omitempty"`
}

const (
	// headerBaseFields is the number of fields every header encodes
	headerBaseFields = 15
	// headerForkFields is the number of optional trailing fields
	headerForkFields = 6
)

// Copy returns a deep copy of the header
func (h *Header) Copy() *Header {
	hh := *h

	if h.ExtraData != nil {
		hh.ExtraData = append(HexBytes{}, h.ExtraData...)
	}

	if h.BaseFee != nil {
		hh.BaseFee = new(big.Int).Set(h.BaseFee)
	}

	if h.WithdrawalsRoot != nil {
		root := *h.WithdrawalsRoot
		hh.WithdrawalsRoot = &root
	}

	if h.BlobGasUsed != nil {
		used := *h.BlobGasUsed
		hh.BlobGasUsed = &used
	}

	if h.ExcessBlobGas != nil {
		excess := *h.ExcessBlobGas
		hh.ExcessBlobGas = &excess
	}

	if h.ParentBeaconBlockRoot != nil {
		root := *h.ParentBeaconBlockRoot
		hh.ParentBeaconBlockRoot = &root
	}

	if h.RequestsHash != nil {
		hash := *h.RequestsHash
		hh.RequestsHash = &hash
	}

	return &hh
}

// HasReceipts returns true if the block holds at least one receipt
func (h *Header) HasReceipts() bool {
	return h.ReceiptsRoot != EmptyRootHash
}

func (h *Header) SetNonce(i uint64) {
	binary.BigEndian.PutUint64(h.Nonce[:], i)
}

type Nonce [8]byte

func (n Nonce) String() string {
	return hex.EncodeToHex(n[:])
}

// MarshalText implements encoding.TextMarshaler
func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (n *Nonce) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexFixed(string(input), len(n))
	if err != nil {
		return err
	}

	copy(n[:], buf)

	return nil
}
