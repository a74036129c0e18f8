package hex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeUint64 verifies that uint64 values
// are properly decoded from hex
func TestDecodeUint64(t *testing.T) {
	t.Parallel()

	uint64Array := []uint64{
		0,
		1,
		11,
		67312,
		80604,
		^uint64(0), // max uint64
	}

	toHexArr := func(nums []uint64) []string {
		numbers := make([]string, len(nums))

		for index, num := range nums {
			numbers[index] = fmt.Sprintf("0x%x", num)
		}

		return numbers
	}

	for index, value := range toHexArr(uint64Array) {
		decodedValue, err := DecodeUint64(value)
		assert.NoError(t, err)

		assert.Equal(t, uint64Array[index], decodedValue)
	}
}

func TestDecodeHex_OddLengthAndFixed(t *testing.T) {
	t.Parallel()

	buf, err := DecodeHex("0xabc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, buf)

	buf, err = DecodeHex("ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, buf)

	_, err = DecodeHexFixed("0x0102", 3)
	require.Error(t, err)

	buf, err = DecodeHexFixed("0x010203", 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf)

	assert.Equal(t, "0x1f", EncodeUint64(31))
	assert.Equal(t, "0x0102", EncodeToHex([]byte{1, 2}))
}
