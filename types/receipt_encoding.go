package types

import (
	"fmt"

	"github.com/umbracle/fastrlp"
)

var receiptArenaPool fastrlp.ArenaPool

// EncodeTxIndex returns the receipt trie key of a transaction index, rlp(index).
// Index zero encodes as the empty byte string (0x80).
func EncodeTxIndex(index uint64) []byte {
	ar := receiptArenaPool.Get()
	defer receiptArenaPool.Put(ar)

	return ar.NewUint(index).MarshalTo(nil)
}

// DecodeTxIndex is the inverse of EncodeTxIndex
func DecodeTxIndex(key []byte) (uint64, error) {
	var index uint64

	err := UnmarshalRlp(func(_ *fastrlp.Parser, v *fastrlp.Value) (err error) {
		index, err = getUint64(v)

		return err
	}, key)

	return index, err
}

// MarshalRLP returns the canonical encoding of the receipt
func (r *Receipt) MarshalRLP() []byte {
	return r.MarshalRLPTo(nil)
}

// MarshalRLPTo appends the canonical encoding of the receipt to dst.
// Typed receipts are prefixed by their type byte.
func (r *Receipt) MarshalRLPTo(dst []byte) []byte {
	ar := receiptArenaPool.Get()
	defer receiptArenaPool.Put(ar)

	if !r.IsLegacyTx() {
		dst = append(dst, byte(r.Type))
	}

	return r.MarshalRLPWith(ar).MarshalTo(dst)
}

// MarshalRLPWith marshals the receipt payload (without type byte) with a specific fastrlp.Arena
func (r *Receipt) MarshalRLPWith(a *fastrlp.Arena) *fastrlp.Value {
	vv := a.NewArray()

	if r.Status != nil {
		vv.Set(a.NewUint(uint64(*r.Status)))
	} else {
		vv.Set(a.NewCopyBytes(r.Root[:]))
	}

	vv.Set(a.NewUint(r.CumulativeGasUsed))
	vv.Set(a.NewCopyBytes(r.LogsBloom[:]))
	vv.Set(r.MarshalLogsWith(a))

	return vv
}

// MarshalLogsWith marshals the logs of the receipt to RLP with a specific fastrlp.Arena
func (r *Receipt) MarshalLogsWith(a *fastrlp.Arena) *fastrlp.Value {
	if len(r.Logs) == 0 {
		// There are no receipts, write the RLP null array entry
		return a.NewNullArray()
	}

	logs := a.NewArray()
	for _, l := range r.Logs {
		logs.Set(l.MarshalRLPWith(a))
	}

	return logs
}

func (l *Log) MarshalRLPWith(a *fastrlp.Arena) *fastrlp.Value {
	v := a.NewArray()
	v.Set(a.NewCopyBytes(l.Address.Bytes()))

	if len(l.Topics) == 0 {
		v.Set(a.NewNullArray())
	} else {
		topics := a.NewArray()
		for _, t := range l.Topics {
			topics.Set(a.NewCopyBytes(t.Bytes()))
		}

		v.Set(topics)
	}

	v.Set(a.NewCopyBytes(l.Data))

	return v
}

// UnmarshalRLP decodes a canonical receipt, stripping the type byte of typed receipts
func (r *Receipt) UnmarshalRLP(input []byte) error {
	if len(input) == 0 {
		return fmt.Errorf("%w: empty receipt", ErrMalformedEncoding)
	}

	r.Type = LegacyTx

	if input[0] < 0x80 {
		tt, err := txTypeFromByte(input[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
		}

		if tt == LegacyTx {
			return fmt.Errorf("%w: legacy receipt with type prefix", ErrMalformedEncoding)
		}

		r.Type = tt
		input = input[1:]
	}

	return UnmarshalRlp(r.UnmarshalRLPFrom, input)
}

// UnmarshalRLPFrom decodes the receipt payload list
func (r *Receipt) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 4 {
		return fmt.Errorf("incorrect number of elements to decode receipt, expected 4 but found %d", len(elems))
	}

	// root or status
	buf, err := elems[0].Bytes()
	if err != nil {
		return err
	}

	r.Status = nil
	r.Root = ZeroHash

	switch size := len(buf); {
	case size == HashLength:
		copy(r.Root[:], buf)
	case size == 0:
		r.SetStatus(ReceiptFailed)
	case size == 1 && buf[0] == 1:
		r.SetStatus(ReceiptSuccess)
	default:
		return fmt.Errorf("bad root/status %x", buf)
	}

	if r.CumulativeGasUsed, err = getUint64(elems[1]); err != nil {
		return fmt.Errorf("cumulative gas used: %w", err)
	}

	if err = getFixedBytes(elems[2], r.LogsBloom[:], "logs bloom"); err != nil {
		return err
	}

	logsElems, err := elems[3].GetElems()
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}

	r.Logs = make([]*Log, 0, len(logsElems))

	for _, elem := range logsElems {
		log := &Log{}
		if err := log.UnmarshalRLPFrom(p, elem); err != nil {
			return err
		}

		r.Logs = append(r.Logs, log)
	}

	return nil
}

func (l *Log) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if len(elems) != 3 {
		return fmt.Errorf("incorrect number of elements to decode log, expected 3 but found %d", len(elems))
	}

	if err := getFixedBytes(elems[0], l.Address[:], "log address"); err != nil {
		return err
	}

	topicElems, err := elems[1].GetElems()
	if err != nil {
		return fmt.Errorf("log topics: %w", err)
	}

	l.Topics = make([]Hash, len(topicElems))
	for i, topic := range topicElems {
		if err := getFixedBytes(topic, l.Topics[i][:], "log topic"); err != nil {
			return err
		}
	}

	if l.Data, err = getBytes(elems[2], "log data"); err != nil {
		return err
	}

	return nil
}
