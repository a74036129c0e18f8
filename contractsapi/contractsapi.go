package contractsapi

import (
	"math/big"

	"github.com/0xPolygon/proof-relay/types"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

var (
	// PingEventType is emitted by the source chain emitter
	PingEventType = abi.MustNewEvent("event Ping(address indexed sender,uint256 indexed blockNumber)") //nolint:all
	// HashStoredEventType is emitted by the trust adapter once a block hash is anchored
	HashStoredEventType = abi.MustNewEvent("event HashStored(uint256 indexed id,bytes32 hash)") //nolint:all
)

// PingEvent is the decoded Ping(address indexed sender, uint256 indexed blockNumber) log
type PingEvent struct {
	Sender      types.Address `abi:"sender"`
	BlockNumber *big.Int      `abi:"blockNumber"`
}

func (*PingEvent) Sig() ethgo.Hash {
	return PingEventType.ID()
}

func (p *PingEvent) Encode() ([]byte, error) {
	return PingEventType.Inputs.Encode(p)
}

func (p *PingEvent) ParseLog(log *ethgo.Log) (bool, error) {
	if !PingEventType.Match(log) {
		return false, nil
	}

	return true, decodeEvent(PingEventType, log, p)
}

// HashStoredEvent is the decoded HashStored(uint256 indexed id, bytes32 hash) log,
// id being the anchored block number
type HashStoredEvent struct {
	ID   *big.Int   `abi:"id"`
	Hash types.Hash `abi:"hash"`
}

func (*HashStoredEvent) Sig() ethgo.Hash {
	return HashStoredEventType.ID()
}

func (h *HashStoredEvent) Encode() ([]byte, error) {
	return HashStoredEventType.Inputs.Encode(h)
}

func (h *HashStoredEvent) ParseLog(log *ethgo.Log) (bool, error) {
	if !HashStoredEventType.Match(log) {
		return false, nil
	}

	return true, decodeEvent(HashStoredEventType, log, h)
}

var (
	receivePingMethodType = abi.MustNewMethod("function receivePing(tuple(uint256 chainId,uint256 blockNumber,bytes blockHeader,uint256 ancestralBlockNumber,bytes[] ancestralBlockHeaders,bytes[] receiptProof,bytes transactionIndex,uint256 logIndex) proof)") //nolint:all
)

// ProofTuple is the abi form of a packed proof
type ProofTuple struct {
	ChainID               *big.Int `abi:"chainId"`
	BlockNumber           *big.Int `abi:"blockNumber"`
	BlockHeader           []byte   `abi:"blockHeader"`
	AncestralBlockNumber  *big.Int `abi:"ancestralBlockNumber"`
	AncestralBlockHeaders [][]byte `abi:"ancestralBlockHeaders"`
	ReceiptProof          [][]byte `abi:"receiptProof"`
	TransactionIndex      []byte   `abi:"transactionIndex"`
	LogIndex              *big.Int `abi:"logIndex"`
}

type ReceivePingFn struct {
	Proof *ProofTuple `abi:"proof"`
}

func (r *ReceivePingFn) Sig() []byte {
	return receivePingMethodType.ID()
}

func (r *ReceivePingFn) EncodeAbi() ([]byte, error) {
	return receivePingMethodType.Encode(r)
}

func (r *ReceivePingFn) DecodeAbi(buf []byte) error {
	return decodeMethod(receivePingMethodType, buf, r)
}

var (
	getTrustedHashMethodType   = abi.MustNewMethod("function getTrustedHash(uint256 chainId,uint256 blockNumber) returns (bytes32)")   //nolint:all
	storeBlockHeaderMethodType = abi.MustNewMethod("function storeBlockHeader(uint256 chainId,uint256 blockNumber,bytes32 blockHash)") //nolint:all
)

type GetTrustedHashFn struct {
	ChainID     *big.Int `abi:"chainId"`
	BlockNumber *big.Int `abi:"blockNumber"`
}

func (g *GetTrustedHashFn) Sig() []byte {
	return getTrustedHashMethodType.ID()
}

func (g *GetTrustedHashFn) EncodeAbi() ([]byte, error) {
	return getTrustedHashMethodType.Encode(g)
}

func (g *GetTrustedHashFn) DecodeAbi(buf []byte) error {
	return decodeMethod(getTrustedHashMethodType, buf, g)
}

// DecodeOutput decodes the bytes32 returned by getTrustedHash
func (g *GetTrustedHashFn) DecodeOutput(buf []byte) (types.Hash, error) {
	return decodeHashOutput(getTrustedHashMethodType, buf)
}

type StoreBlockHeaderFn struct {
	ChainID     *big.Int   `abi:"chainId"`
	BlockNumber *big.Int   `abi:"blockNumber"`
	BlockHash   types.Hash `abi:"blockHash"`
}

func (s *StoreBlockHeaderFn) Sig() []byte {
	return storeBlockHeaderMethodType.ID()
}

func (s *StoreBlockHeaderFn) EncodeAbi() ([]byte, error) {
	return storeBlockHeaderMethodType.Encode(s)
}

func (s *StoreBlockHeaderFn) DecodeAbi(buf []byte) error {
	return decodeMethod(storeBlockHeaderMethodType, buf, s)
}
