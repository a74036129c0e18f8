package types

import (
	"fmt"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/0xPolygon/proof-relay/helper/keccak"
)

// TxType is the envelope type of the transaction a receipt belongs to
type TxType byte

const (
	LegacyTx     TxType = 0x00
	AccessListTx TxType = 0x01
	DynamicFeeTx TxType = 0x02
	BlobTx       TxType = 0x03
	SetCodeTx    TxType = 0x04
)

func txTypeFromByte(b byte) (TxType, error) {
	tt := TxType(b)

	switch tt {
	case LegacyTx, AccessListTx, DynamicFeeTx, BlobTx, SetCodeTx:
		return tt, nil
	default:
		return tt, fmt.Errorf("unknown transaction type: %d", b)
	}
}

func (t TxType) String() string {
	switch t {
	case LegacyTx:
		return "Legacy"
	case AccessListTx:
		return "AccessList"
	case DynamicFeeTx:
		return "DynamicFee"
	case BlobTx:
		return "Blob"
	case SetCodeTx:
		return "SetCode"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

type ReceiptStatus uint64

const (
	ReceiptFailed ReceiptStatus = iota
	ReceiptSuccess
)

type Receipts []*Receipt

// Receipt is the consensus representation of a transaction outcome.
// TxHash, TransactionIndex, BlockHash, BlockNumber, GasUsed and ContractAddress
// are rpc metadata and are never part of the canonical encoding.
type Receipt struct {
	Type              TxType
	Root              Hash
	Status            *ReceiptStatus
	CumulativeGasUsed uint64
	LogsBloom         Bloom
	Logs              []*Log

	TxHash           Hash
	TransactionIndex uint64
	BlockHash        Hash
	BlockNumber      uint64
	GasUsed          uint64
	ContractAddress  *Address
}

func (r *Receipt) SetStatus(s ReceiptStatus) {
	r.Status = &s
}

// Succeeded returns true for post byzantium receipts with a success status
func (r *Receipt) Succeeded() bool {
	return r.Status != nil && *r.Status == ReceiptSuccess
}

// IsLegacyTx returns true if the receipt belongs to an untyped transaction
func (r *Receipt) IsLegacyTx() bool {
	return r.Type == LegacyTx
}

type Log struct {
	Address Address  `json:"address"`
	Topics  []Hash   `json:"topics"`
	Data    HexBytes `json:"data"`
}

const (
	BloomByteLength = 256
	BloomBitLength  = 8 * BloomByteLength
)

type Bloom [BloomByteLength]byte

func (b Bloom) String() string {
	return hex.EncodeToHex(b[:])
}

func (b Bloom) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bloom) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexFixed(string(input), BloomByteLength)
	if err != nil {
		return err
	}

	copy(b[:], buf)

	return nil
}

// CreateBloom creates a new bloom filter from a set of receipts
func CreateBloom(receipts []*Receipt) (b Bloom) {
	h := keccak.DefaultKeccakPool.Get()

	for _, receipt := range receipts {
		for _, log := range receipt.Logs {
			b.setEncode(h, log.Address[:])

			for _, topic := range log.Topics {
				b.setEncode(h, topic[:])
			}
		}
	}

	keccak.DefaultKeccakPool.Put(h)

	return
}

func (b *Bloom) setEncode(hasher *keccak.Keccak, h []byte) {
	hasher.Reset()
	hasher.Write(h) //nolint:errcheck
	buf := hasher.Read()

	for i := 0; i < 6; i += 2 {
		// Find the global bit location
		bit := (uint(buf[i+1]) + (uint(buf[i]) << 8)) & (BloomBitLength - 1)

		// Find where the bit maps in the [0..255] byte array
		byteLocation := BloomByteLength - 1 - bit/8
		bitLocation := bit % 8
		b[byteLocation] |= 1 << bitLocation
	}
}

// IsLogInBloom checks if the log has a possible presence in the bloom filter
func (b *Bloom) IsLogInBloom(log *Log) bool {
	hasher := keccak.DefaultKeccakPool.Get()
	defer keccak.DefaultKeccakPool.Put(hasher)

	if !b.isByteArrPresent(hasher, log.Address.Bytes()) {
		return false
	}

	for _, topic := range log.Topics {
		if !b.isByteArrPresent(hasher, topic.Bytes()) {
			return false
		}
	}

	return true
}

func (b *Bloom) isByteArrPresent(hasher *keccak.Keccak, data []byte) bool {
	hasher.Reset()
	hasher.Write(data) //nolint:errcheck
	buf := hasher.Read()

	for i := 0; i < 6; i += 2 {
		bit := (uint(buf[i+1]) + (uint(buf[i]) << 8)) & (BloomBitLength - 1)

		byteLocation := BloomByteLength - 1 - bit/8
		bitLocation := bit % 8

		if b[byteLocation]&(1<<bitLocation) == 0 {
			return false
		}
	}

	return true
}
