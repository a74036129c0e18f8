package contractsapi

import (
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

// StateTransactionInput is an abstraction for contract call inputs
type StateTransactionInput interface {
	// EncodeAbi contains logic for encoding arbitrary data into ABI format
	EncodeAbi() ([]byte, error)
	// DecodeAbi contains logic for decoding given ABI data
	DecodeAbi(b []byte) error
}

// EventAbi is an interface representing an event generated in contractsapi
type EventAbi interface {
	// Sig returns the event ABI signature or ID (which is unique for all event types)
	Sig() ethgo.Hash
	// Encode does abi encoding of given event
	Encode() ([]byte, error)
	// ParseLog parses the provided receipt log to given event type
	ParseLog(log *ethgo.Log) (bool, error)
}

var (
	_ StateTransactionInput = &ReceivePingFn{}
	_ StateTransactionInput = &GetTrustedHashFn{}
	_ StateTransactionInput = &StoreBlockHeaderFn{}

	_ EventAbi = &PingEvent{}
	_ EventAbi = &HashStoredEvent{}
)

var (
	// eventIDABIType is the abi.encode layout hashed into an event id
	eventIDABIType = abi.MustNewType("tuple(uint256 chainId,address sender,uint256 blockNumber)")
)
