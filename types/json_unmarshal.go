package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/0xPolygon/proof-relay/helper/common"
	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/valyala/fastjson"
)

var defaultPool fastjson.ParserPool

// UnmarshalJSON decodes an eth_getBlockBy* response (transactions are ignored)
func (h *Header) UnmarshalJSON(buf []byte) error {
	p := defaultPool.Get()
	defer defaultPool.Put(p)

	v, err := p.Parse(string(buf))
	if err != nil {
		return err
	}

	return h.unmarshalJSON(v)
}

func (h *Header) unmarshalJSON(v *fastjson.Value) error {
	var err error

	if h.ParentHash, err = unmarshalJSONHash(v, "parentHash"); err != nil {
		return err
	}

	if h.Sha3Uncles, err = unmarshalJSONHash(v, "sha3Uncles"); err != nil {
		return err
	}

	if h.Miner, err = unmarshalJSONAddr(v, "miner"); err != nil {
		return err
	}

	if h.StateRoot, err = unmarshalJSONHash(v, "stateRoot"); err != nil {
		return err
	}

	if h.TxRoot, err = unmarshalJSONHash(v, "transactionsRoot"); err != nil {
		return err
	}

	if h.ReceiptsRoot, err = unmarshalJSONHash(v, "receiptsRoot"); err != nil {
		return err
	}

	if err = unmarshalJSONBloom(&h.LogsBloom, v, "logsBloom"); err != nil {
		return err
	}

	if h.Difficulty, err = unmarshalJSONUint64(v, "difficulty"); err != nil {
		return err
	}

	if h.Number, err = unmarshalJSONUint64(v, "number"); err != nil {
		return err
	}

	if h.GasLimit, err = unmarshalJSONUint64(v, "gasLimit"); err != nil {
		return err
	}

	if h.GasUsed, err = unmarshalJSONUint64(v, "gasUsed"); err != nil {
		return err
	}

	if h.Timestamp, err = unmarshalJSONUint64(v, "timestamp"); err != nil {
		return err
	}

	if h.ExtraData, err = unmarshalJSONBytes(v, "extraData"); err != nil {
		return err
	}

	if h.MixHash, err = unmarshalJSONHash(v, "mixHash"); err != nil {
		return err
	}

	if err = unmarshalJSONNonce(&h.Nonce, v, "nonce"); err != nil {
		return err
	}

	// fork fields, appended in fork order when the node reports them
	h.BaseFee, h.WithdrawalsRoot, h.BlobGasUsed = nil, nil, nil
	h.ExcessBlobGas, h.ParentBeaconBlockRoot, h.RequestsHash = nil, nil, nil

	if hasKey(v, "baseFeePerGas") {
		if h.BaseFee, err = unmarshalJSONBigInt(v, "baseFeePerGas"); err != nil {
			return err
		}
	}

	if h.WithdrawalsRoot, err = unmarshalOptionalJSONHash(v, "withdrawalsRoot"); err != nil {
		return err
	}

	if h.BlobGasUsed, err = unmarshalOptionalJSONUint64(v, "blobGasUsed"); err != nil {
		return err
	}

	if h.ExcessBlobGas, err = unmarshalOptionalJSONUint64(v, "excessBlobGas"); err != nil {
		return err
	}

	if h.ParentBeaconBlockRoot, err = unmarshalOptionalJSONHash(v, "parentBeaconBlockRoot"); err != nil {
		return err
	}

	if h.RequestsHash, err = unmarshalOptionalJSONHash(v, "requestsHash"); err != nil {
		return err
	}

	return nil
}

// UnmarshalJSON decodes an eth_getTransactionReceipt response
func (r *Receipt) UnmarshalJSON(buf []byte) error {
	p := defaultPool.Get()
	defer defaultPool.Put(p)

	v, err := p.Parse(string(buf))
	if err != nil {
		return err
	}

	return r.unmarshalJSON(v)
}

// UnmarshalReceiptsJSON decodes an eth_getBlockReceipts response
func UnmarshalReceiptsJSON(buf []byte) ([]*Receipt, error) {
	p := defaultPool.Get()
	defer defaultPool.Put(p)

	v, err := p.Parse(string(buf))
	if err != nil {
		return nil, err
	}

	elems, err := v.Array()
	if err != nil {
		return nil, err
	}

	receipts := make([]*Receipt, len(elems))

	for i, elem := range elems {
		receipts[i] = new(Receipt)
		if err := receipts[i].unmarshalJSON(elem); err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i, err)
		}
	}

	return receipts, nil
}

func (r *Receipt) unmarshalJSON(v *fastjson.Value) error {
	var err error

	r.Type = LegacyTx

	if hasKey(v, "type") {
		typ, err := unmarshalJSONUint64(v, "type")
		if err != nil {
			return err
		}

		if typ > 0xff {
			return fmt.Errorf("field 'type' out of range: %d", typ)
		}

		if r.Type, err = txTypeFromByte(byte(typ)); err != nil {
			return err
		}
	}

	if hasKey(v, "contractAddress") {
		contractAddr, err := unmarshalJSONAddr(v, "contractAddress")
		if err != nil {
			return err
		}

		r.ContractAddress = &contractAddr
	}

	if r.TxHash, err = unmarshalJSONHash(v, "transactionHash"); err != nil {
		return err
	}

	if r.TransactionIndex, err = unmarshalJSONUint64(v, "transactionIndex"); err != nil {
		return err
	}

	if r.BlockHash, err = unmarshalJSONHash(v, "blockHash"); err != nil {
		return err
	}

	if r.BlockNumber, err = unmarshalJSONUint64(v, "blockNumber"); err != nil {
		return err
	}

	if r.GasUsed, err = unmarshalJSONUint64(v, "gasUsed"); err != nil {
		return err
	}

	if r.CumulativeGasUsed, err = unmarshalJSONUint64(v, "cumulativeGasUsed"); err != nil {
		return err
	}

	if err = unmarshalJSONBloom(&r.LogsBloom, v, "logsBloom"); err != nil {
		return err
	}

	r.Status = nil
	r.Root = ZeroHash

	if hasKey(v, "status") {
		// post-byzantium fork
		status, err := unmarshalJSONUint64(v, "status")
		if err != nil {
			return err
		}

		if status > uint64(ReceiptSuccess) {
			return fmt.Errorf("field 'status' out of range: %d", status)
		}

		r.SetStatus(ReceiptStatus(status))
	} else if r.Root, err = unmarshalJSONHash(v, "root"); err != nil {
		return err
	}

	r.Logs = r.Logs[:0]

	for _, elem := range v.GetArray("logs") {
		log := new(Log)
		if err := log.unmarshalJSON(elem); err != nil {
			return err
		}

		r.Logs = append(r.Logs, log)
	}

	return nil
}

// UnmarshalJSON implements the unmarshal interface
func (l *Log) UnmarshalJSON(buf []byte) error {
	p := defaultPool.Get()
	defer defaultPool.Put(p)

	v, err := p.Parse(string(buf))
	if err != nil {
		return err
	}

	return l.unmarshalJSON(v)
}

func (l *Log) unmarshalJSON(v *fastjson.Value) error {
	var err error

	if l.Address, err = unmarshalJSONAddr(v, "address"); err != nil {
		return err
	}

	if l.Data, err = unmarshalJSONBytes(v, "data"); err != nil {
		return err
	}

	l.Topics = l.Topics[:0]

	for _, topic := range v.GetArray("topics") {
		b, err := topic.StringBytes()
		if err != nil {
			return err
		}

		var t Hash
		if err := t.UnmarshalText(b); err != nil {
			return err
		}

		l.Topics = append(l.Topics, t)
	}

	return nil
}

func unmarshalJSONHash(v *fastjson.Value, key string) (Hash, error) {
	hash := Hash{}

	b := v.GetStringBytes(key)
	if len(b) == 0 {
		return ZeroHash, fmt.Errorf("field '%s' not found", key)
	}

	err := hash.UnmarshalText(b)

	return hash, err
}

func unmarshalOptionalJSONHash(v *fastjson.Value, key string) (*Hash, error) {
	if !hasKey(v, key) {
		return nil, nil
	}

	hash, err := unmarshalJSONHash(v, key)
	if err != nil {
		return nil, err
	}

	return &hash, nil
}

func unmarshalJSONAddr(v *fastjson.Value, key string) (Address, error) {
	b := v.GetStringBytes(key)
	if len(b) == 0 {
		return ZeroAddress, fmt.Errorf("field '%s' not found", key)
	}

	a := Address{}
	err := a.UnmarshalText(b)

	return a, err
}

func unmarshalJSONBytes(v *fastjson.Value, key string) ([]byte, error) {
	vv := v.Get(key)
	if vv == nil {
		return nil, fmt.Errorf("field '%s' not found", key)
	}

	str := strings.Trim(vv.String(), "\"")

	if !strings.HasPrefix(str, "0x") {
		return nil, fmt.Errorf("field '%s' does not have 0x prefix: '%s'", key, str)
	}

	buf, err := hex.DecodeHex(str)
	if err != nil {
		return nil, err
	}

	if len(buf) == 0 {
		return nil, nil
	}

	return buf, nil
}

func unmarshalJSONUint64(v *fastjson.Value, key string) (uint64, error) {
	vv := v.Get(key)
	if vv == nil {
		return 0, fmt.Errorf("field '%s' not found", key)
	}

	str := strings.Trim(vv.String(), "\"")

	return common.ParseUint64orHex(&str)
}

func unmarshalOptionalJSONUint64(v *fastjson.Value, key string) (*uint64, error) {
	if !hasKey(v, key) {
		return nil, nil
	}

	n, err := unmarshalJSONUint64(v, key)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func unmarshalJSONBigInt(v *fastjson.Value, key string) (*big.Int, error) {
	vv := v.Get(key)
	if vv == nil {
		return nil, fmt.Errorf("field '%s' not found", key)
	}

	str := strings.Trim(vv.String(), "\"")

	return common.ParseUint256orHex(&str)
}

func unmarshalJSONNonce(n *Nonce, v *fastjson.Value, key string) error {
	b := v.GetStringBytes(key)
	if len(b) == 0 {
		return fmt.Errorf("field '%s' not found", key)
	}

	return n.UnmarshalText(b)
}

func unmarshalJSONBloom(bloom *Bloom, v *fastjson.Value, key string) error {
	b := v.GetStringBytes(key)
	if len(b) == 0 {
		return fmt.Errorf("field '%s' not found", key)
	}

	return bloom.UnmarshalText(b)
}

// hasKey is a helper function for checking if given key exists in json
func hasKey(v *fastjson.Value, key string) bool {
	value := v.Get(key)

	return value != nil && value.Type() != fastjson.TypeNull
}
