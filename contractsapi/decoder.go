package contractsapi

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/0xPolygon/proof-relay/helper/keccak"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/mitchellh/mapstructure"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

func decodeEvent(event *abi.Event, log *ethgo.Log, out interface{}) error {
	val, err := event.ParseLog(log)
	if err != nil {
		return err
	}

	return decodeImpl(val, out)
}

func decodeMethod(method *abi.Method, input []byte, out interface{}) error {
	if len(input) < 4 {
		return fmt.Errorf("invalid method data, len = %d", len(input))
	}

	sig := method.ID()
	if !bytes.HasPrefix(input, sig) {
		return fmt.Errorf("prefix is not correct")
	}

	val, err := abi.Decode(method.Inputs, input[4:])
	if err != nil {
		return err
	}

	return decodeImpl(val, out)
}

func decodeHashOutput(method *abi.Method, output []byte) (types.Hash, error) {
	val, err := method.Outputs.Decode(output)
	if err != nil {
		return types.ZeroHash, err
	}

	res, ok := val.(map[string]interface{})
	if !ok {
		return types.ZeroHash, fmt.Errorf("unexpected output %T", val)
	}

	switch hash := res["0"].(type) {
	case [32]byte:
		return types.Hash(hash), nil
	case ethgo.Hash:
		return types.Hash(hash), nil
	default:
		return types.ZeroHash, fmt.Errorf("unexpected bytes32 output %T", res["0"])
	}
}

func decodeImpl(input interface{}, out interface{}) error {
	metadata := &mapstructure.Metadata{}
	dc := &mapstructure.DecoderConfig{
		Result:   out,
		TagName:  "abi",
		Metadata: metadata,
	}

	ms, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return err
	}

	if err = ms.Decode(input); err != nil {
		return err
	}

	if len(metadata.Unused) != 0 {
		return fmt.Errorf("some keys not used: %v", metadata.Unused)
	}

	return nil
}

// EventID returns keccak256(abi.encode(chainId, sender, blockNumber)),
// the identifier under which a ping is recorded as processed
func EventID(chainID uint64, sender types.Address, blockNumber uint64) (types.Hash, error) {
	input := map[string]interface{}{
		"chainId":     new(big.Int).SetUint64(chainID),
		"sender":      ethgo.Address(sender),
		"blockNumber": new(big.Int).SetUint64(blockNumber),
	}

	encoded, err := eventIDABIType.Encode(input)
	if err != nil {
		return types.ZeroHash, err
	}

	return types.BytesToHash(keccak.Keccak256(nil, encoded)), nil
}
