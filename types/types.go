package types

import (
	"fmt"
	"strings"

	"github.com/0xPolygon/proof-relay/helper/hex"
	"github.com/umbracle/ethgo"
)

const (
	HashLength    = 32
	AddressLength = 20
)

var (
	// ZeroAddress is the default zero address
	ZeroAddress = Address{}

	// ZeroHash is the default zero hash
	ZeroHash = Hash{}

	// EmptyRootHash is the root when there are no transactions
	EmptyRootHash = StringToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyUncleHash is the root when there are no uncles
	EmptyUncleHash = StringToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
)

type Hash [HashLength]byte

type Address [AddressLength]byte

func min(i, j int) int {
	if i < j {
		return i
	}

	return j
}

// BytesToHash right aligns b into a hash, dropping leading bytes when b is longer
func BytesToHash(b []byte) Hash {
	var h Hash

	size := len(b)
	min := min(size, HashLength)

	copy(h[HashLength-min:], b[len(b)-min:])

	return h
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToHex(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexFixed(strings.Trim(string(input), "\""), HashLength)
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", input, err)
	}

	copy(h[:], buf)

	return nil
}

// ToEthgo converts the hash to the representation used by the rpc and abi layers
func (h Hash) ToEthgo() ethgo.Hash {
	return ethgo.Hash(h)
}

// BytesToAddress right aligns b into an address, dropping leading bytes when b is longer
func BytesToAddress(b []byte) Address {
	var a Address

	size := len(b)
	min := min(size, AddressLength)

	copy(a[AddressLength-min:], b[len(b)-min:])

	return a
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return hex.EncodeToHex(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHexFixed(strings.Trim(string(input), "\""), AddressLength)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", input, err)
	}

	copy(a[:], buf)

	return nil
}

// ToEthgo converts the address to the representation used by the rpc and abi layers
func (a Address) ToEthgo() ethgo.Address {
	return ethgo.Address(a)
}

// StringToHash converts a hex string (0x prefix optional) to a hash
func StringToHash(str string) Hash {
	return BytesToHash(stringToBytes(str))
}

// StringToAddress converts a hex string (0x prefix optional) to an address
func StringToAddress(str string) Address {
	return BytesToAddress(stringToBytes(str))
}

func stringToBytes(str string) []byte {
	b, _ := hex.DecodeHex(str)

	return b
}

// HexBytes is a byte slice rendered as 0x prefixed hex in text encodings
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToHex(h)
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HexBytes) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return err
	}

	*h = buf

	return nil
}
