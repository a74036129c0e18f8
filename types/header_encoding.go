package types

import (
	"fmt"
	"math/big"

	"github.com/umbracle/fastrlp"
)

var headerArenaPool fastrlp.ArenaPool

// MarshalRLP returns the canonical encoding of the header
func (h *Header) MarshalRLP() []byte {
	return h.MarshalRLPTo(nil)
}

func (h *Header) MarshalRLPTo(dst []byte) []byte {
	ar := headerArenaPool.Get()
	defer headerArenaPool.Put(ar)

	return h.MarshalRLPWith(ar).MarshalTo(dst)
}

// MarshalRLPWith marshals the header to RLP with a specific fastrlp.Arena
func (h *Header) MarshalRLPWith(arena *fastrlp.Arena) *fastrlp.Value {
	vv := arena.NewArray()

	vv.Set(arena.NewCopyBytes(h.ParentHash.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Sha3Uncles.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Miner[:]))
	vv.Set(arena.NewCopyBytes(h.StateRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.TxRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.ReceiptsRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.LogsBloom[:]))

	vv.Set(arena.NewUint(h.Difficulty))
	vv.Set(arena.NewUint(h.Number))
	vv.Set(arena.NewUint(h.GasLimit))
	vv.Set(arena.NewUint(h.GasUsed))
	vv.Set(arena.NewUint(h.Timestamp))

	vv.Set(arena.NewCopyBytes(h.ExtraData))
	vv.Set(arena.NewCopyBytes(h.MixHash.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Nonce[:]))

	for _, field := range h.forkFieldsWith(arena) {
		vv.Set(field)
	}

	return vv
}

// forkFieldsWith returns the optional trailing fields up to the last one that is set
func (h *Header) forkFieldsWith(arena *fastrlp.Arena) []*fastrlp.Value {
	fields := make([]*fastrlp.Value, headerForkFields)

	if h.BaseFee != nil {
		fields[0] = arena.NewBigInt(h.BaseFee)
	}

	if h.WithdrawalsRoot != nil {
		fields[1] = arena.NewCopyBytes(h.WithdrawalsRoot.Bytes())
	}

	if h.BlobGasUsed != nil {
		fields[2] = arena.NewUint(*h.BlobGasUsed)
	}

	if h.ExcessBlobGas != nil {
		fields[3] = arena.NewUint(*h.ExcessBlobGas)
	}

	if h.ParentBeaconBlockRoot != nil {
		fields[4] = arena.NewCopyBytes(h.ParentBeaconBlockRoot.Bytes())
	}

	if h.RequestsHash != nil {
		fields[5] = arena.NewCopyBytes(h.RequestsHash.Bytes())
	}

	last := -1

	for i, f := range fields {
		if f != nil {
			last = i
		}
	}

	fields = fields[:last+1]

	for i, f := range fields {
		if f != nil {
			continue
		}

		switch i {
		case 0, 2, 3:
			fields[i] = arena.NewUint(0)
		default:
			fields[i] = arena.NewCopyBytes(ZeroHash.Bytes())
		}
	}

	return fields
}

func (h *Header) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(h.UnmarshalRLPFrom, input)
}

func (h *Header) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) < headerBaseFields || len(elems) > headerBaseFields+headerForkFields {
		return fmt.Errorf("incorrect number of elements to decode header, expected %d to %d but found %d",
			headerBaseFields, headerBaseFields+headerForkFields, len(elems))
	}

	if err = getFixedBytes(elems[0], h.ParentHash[:], "parent hash"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[1], h.Sha3Uncles[:], "sha3 uncles"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[2], h.Miner[:], "miner"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[3], h.StateRoot[:], "state root"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[4], h.TxRoot[:], "transactions root"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[5], h.ReceiptsRoot[:], "receipts root"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[6], h.LogsBloom[:], "logs bloom"); err != nil {
		return err
	}

	if h.Difficulty, err = getUint64(elems[7]); err != nil {
		return fmt.Errorf("difficulty: %w", err)
	}

	if h.Number, err = getUint64(elems[8]); err != nil {
		return fmt.Errorf("number: %w", err)
	}

	if h.GasLimit, err = getUint64(elems[9]); err != nil {
		return fmt.Errorf("gas limit: %w", err)
	}

	if h.GasUsed, err = getUint64(elems[10]); err != nil {
		return fmt.Errorf("gas used: %w", err)
	}

	if h.Timestamp, err = getUint64(elems[11]); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}

	if h.ExtraData, err = getBytes(elems[12], "extra data"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[13], h.MixHash[:], "mix hash"); err != nil {
		return err
	}

	if err = getFixedBytes(elems[14], h.Nonce[:], "nonce"); err != nil {
		return err
	}

	return h.unmarshalForkFields(elems[headerBaseFields:])
}

func (h *Header) unmarshalForkFields(elems []*fastrlp.Value) (err error) {
	h.BaseFee, h.WithdrawalsRoot, h.BlobGasUsed = nil, nil, nil
	h.ExcessBlobGas, h.ParentBeaconBlockRoot, h.RequestsHash = nil, nil, nil

	getHash := func(v *fastrlp.Value, field string) (*Hash, error) {
		hash := new(Hash)
		if err := getFixedBytes(v, hash[:], field); err != nil {
			return nil, err
		}

		return hash, nil
	}

	getUint := func(v *fastrlp.Value, field string) (*uint64, error) {
		n, err := getUint64(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}

		return &n, nil
	}

	for i, elem := range elems {
		switch i {
		case 0:
			var baseFee *big.Int
			if baseFee, err = getBigInt(elem); err != nil {
				return fmt.Errorf("base fee: %w", err)
			}

			h.BaseFee = baseFee
		case 1:
			h.WithdrawalsRoot, err = getHash(elem, "withdrawals root")
		case 2:
			h.BlobGasUsed, err = getUint(elem, "blob gas used")
		case 3:
			h.ExcessBlobGas, err = getUint(elem, "excess blob gas")
		case 4:
			h.ParentBeaconBlockRoot, err = getHash(elem, "parent beacon block root")
		case 5:
			h.RequestsHash, err = getHash(elem, "requests hash")
		}

		if err != nil {
			return err
		}
	}

	return nil
}
