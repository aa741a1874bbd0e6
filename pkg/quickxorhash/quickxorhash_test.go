package quickxorhash

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		expect string
	}{
		{"empty", []byte(""), "AAAAAAAAAAAAAAAAAAAAAAAAAAA="},
		{"hello", []byte("hello"), "aCgDG9jwBgAAAAAABQAAAAAAAAA="},
		{"hello world", []byte("hello world"), "aCgDG9jwBhDc4Q1yawMZAAAAAAA="},
		{"1000 zero bytes", make([]byte, 1000), "AAAAAAAAAAAAAAAA6AMAAAAAAAA="},
		{"1000 0xFF bytes", bytes.Repeat([]byte{0xFF}, 1000), "Yxvb2MY2trGNbWxj89jYOc5xjnM="},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New()
			n, err := h.Write(tc.input)
			require.NoError(t, err)
			assert.Equal(t, len(tc.input), n)

			assert.Equal(t, tc.expect, base64.StdEncoding.EncodeToString(h.Sum(nil)))
			assert.Equal(t, tc.expect, Base64(tc.input))
		})
	}
}

func TestIncrementalWriteMatchesSingleWrite(t *testing.T) {
	input := make([]byte, 1024)
	for i := range input {
		input[i] = byte(i * 7)
	}

	want := Sum(input)

	for _, chunk := range []int{1, 3, 11, 64, 159, 160, 161, 500} {
		h := New()
		for i := 0; i < len(input); i += chunk {
			end := min(i+chunk, len(input))
			_, err := h.Write(input[i:end])
			require.NoError(t, err)
		}

		assert.Equal(t, want[:], h.Sum(nil), "chunk size %d", chunk)
	}
}

func TestSumDoesNotMutateState(t *testing.T) {
	h := New()
	_, err := h.Write([]byte("hello "))
	require.NoError(t, err)

	first := h.Sum(nil)
	assert.Equal(t, first, h.Sum(nil))

	_, err = h.Write([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, "aCgDG9jwBhDc4Q1yawMZAAAAAAA=", base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

func TestSumAppendsToPrefix(t *testing.T) {
	h := New()
	out := h.Sum([]byte{0xAA})

	require.Len(t, out, Size+1)
	assert.Equal(t, byte(0xAA), out[0])
}

func TestReset(t *testing.T) {
	h := New()
	_, err := h.Write([]byte("junk"))
	require.NoError(t, err)

	h.Reset()
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAA=", base64.StdEncoding.EncodeToString(h.Sum(nil)))
	assert.Equal(t, Size, h.Size())
	assert.Equal(t, BlockSize, h.BlockSize())
}
