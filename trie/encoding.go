package trie

import (
	"fmt"
)

// terminator is the nibble appended to every key so that no key is a prefix of another
const terminator = 16

func hexToCompact(hex []byte) []byte {
	term := byte(0)
	if hasTerm(hex) {
		term = 1
		hex = hex[:len(hex)-1]
	}

	buf := make([]byte, len(hex)/2+1)
	buf[0] = term << 5 // the flag byte

	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4 // odd flag
		buf[0] |= hex[0] // first nibble is contained in the first byte
		hex = hex[1:]
	}

	decodeNibbles(hex, buf[1:])

	return buf
}

func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// hasTerm returns whether a hex key has the terminator flag.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminator
}

func keybytesToHex(str []byte) []byte {
	l := len(str)*2 + 1

	var nibbles = make([]byte, l)

	for i, b := range str {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}

	nibbles[l-1] = terminator

	return nibbles
}

func compactToHex(compact []byte) []byte {
	base := keybytesToHex(compact)
	// delete terminator flag
	if base[0] < 2 {
		base = base[:len(base)-1]
	}
	// apply odd flag
	chop := 2 - base[0]&1

	return base[chop:]
}

// decodeCompact is compactToHex for untrusted input. It rejects unknown
// flags, a non-zero padding nibble and empty extension paths.
func decodeCompact(compact []byte) ([]byte, error) {
	if len(compact) == 0 {
		return nil, fmt.Errorf("%w: empty compact path", ErrInvalidProofNode)
	}

	flag := compact[0] >> 4
	if flag > 3 {
		return nil, fmt.Errorf("%w: unknown path flag %d", ErrInvalidProofNode, flag)
	}

	if flag&1 == 0 && compact[0]&0x0f != 0 {
		return nil, fmt.Errorf("%w: non-zero path padding", ErrInvalidProofNode)
	}

	nibbles := compactToHex(compact)
	if len(nibbles) == 0 {
		return nil, fmt.Errorf("%w: empty extension path", ErrInvalidProofNode)
	}

	return nibbles, nil
}
