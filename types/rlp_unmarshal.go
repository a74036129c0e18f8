package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/umbracle/fastrlp"
)

// ErrMalformedEncoding is returned whenever a canonical encoding can not be decoded
// into the expected shape. It is never retried.
var ErrMalformedEncoding = errors.New("malformed encoding")

type RLPUnmarshaler interface {
	UnmarshalRLP(input []byte) error
}

type unmarshalRLPFunc func(p *fastrlp.Parser, v *fastrlp.Value) error

// UnmarshalRlp parses input as exactly one rlp item and hands it to obj.
// Every failure is reported as ErrMalformedEncoding.
func UnmarshalRlp(obj unmarshalRLPFunc, input []byte) error {
	size, err := rlpItemSize(input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	if size != uint64(len(input)) {
		return fmt.Errorf("%w: item size %d does not match input size %d", ErrMalformedEncoding, size, len(input))
	}

	pr := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(pr)

	v, err := pr.Parse(input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	if err := obj(pr, v); err != nil {
		if errors.Is(err, ErrMalformedEncoding) {
			return err
		}

		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	return nil
}

// rlpItemSize returns the full size (prefix included) of the rlp item at the start of b
func rlpItemSize(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty input")
	}

	prefix := b[0]

	switch {
	case prefix < 0x80:
		return 1, nil
	case prefix <= 0xb7:
		return 1 + uint64(prefix-0x80), nil
	case prefix < 0xc0:
		return longItemSize(b, int(prefix-0xb7))
	case prefix <= 0xf7:
		return 1 + uint64(prefix-0xc0), nil
	default:
		return longItemSize(b, int(prefix-0xf7))
	}
}

func longItemSize(b []byte, lenOfLen int) (uint64, error) {
	if len(b) < 1+lenOfLen {
		return 0, errors.New("input too short for length prefix")
	}

	if b[1] == 0 {
		return 0, errors.New("length prefix with leading zero")
	}

	var size uint64
	for _, c := range b[1 : 1+lenOfLen] {
		size = size<<8 | uint64(c)
	}

	if size < 56 {
		return 0, errors.New("non canonical long size")
	}

	return 1 + uint64(lenOfLen) + size, nil
}

// getUint64 reads a canonical big endian integer of at most 8 bytes
func getUint64(v *fastrlp.Value) (uint64, error) {
	buf, err := v.Bytes()
	if err != nil {
		return 0, err
	}

	if len(buf) > 8 {
		return 0, fmt.Errorf("integer of %d bytes overflows uint64", len(buf))
	}

	if len(buf) > 0 && buf[0] == 0 {
		return 0, errors.New("integer with leading zero bytes")
	}

	var res uint64
	for _, c := range buf {
		res = res<<8 | uint64(c)
	}

	return res, nil
}

// getBigInt reads a canonical big endian integer of at most 32 bytes
func getBigInt(v *fastrlp.Value) (*big.Int, error) {
	buf, err := v.Bytes()
	if err != nil {
		return nil, err
	}

	if len(buf) > 32 {
		return nil, fmt.Errorf("integer of %d bytes overflows uint256", len(buf))
	}

	if len(buf) > 0 && buf[0] == 0 {
		return nil, errors.New("integer with leading zero bytes")
	}

	return new(big.Int).SetBytes(buf), nil
}

// getFixedBytes copies a byte string of exactly len(dst) bytes into dst
func getFixedBytes(v *fastrlp.Value, dst []byte, field string) error {
	buf, err := v.Bytes()
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}

	if len(buf) != len(dst) {
		return fmt.Errorf("%s: expected %d bytes but found %d", field, len(dst), len(buf))
	}

	copy(dst, buf)

	return nil
}

func getBytes(v *fastrlp.Value, field string) ([]byte, error) {
	buf, err := v.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	if len(buf) == 0 {
		return nil, nil
	}

	return append([]byte{}, buf...), nil
}

// RLPUint64 reads a canonical rlp integer that fits in 64 bits
func RLPUint64(v *fastrlp.Value) (uint64, error) {
	return getUint64(v)
}

// RLPBytes copies an rlp byte string, returning nil when it is empty
func RLPBytes(v *fastrlp.Value, field string) ([]byte, error) {
	return getBytes(v, field)
}
