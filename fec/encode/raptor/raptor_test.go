package raptor

import (
	"math/rand"
	"testing"

	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/encode/lt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBlock(rng *rand.Rand, n, width int) []bitstr.BitString {
	block := make([]bitstr.BitString, n)
	for i := range block {
		parts := make([]bitstr.BitString, 0, width/64+1)
		for w := width; w > 0; w -= 64 {
			chunk := 64
			if w < chunk {
				chunk = w
			}
			parts = append(parts, bitstr.FromUint(rng.Uint64(), chunk))
		}
		block[i] = bitstr.Concat(parts...)
	}
	return block
}

func newCodec(t *testing.T, symbolSize int) *Codec {
	t.Helper()
	c, err := New(&Config{SymbolSize: symbolSize})
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := newCodec(t, 16)
	source := randomBlock(rng, 12, 100) // 150 bytes, 10 RaptorQ symbols

	encoded, err := c.Encode(source, 20, nil)
	require.NoError(t, err)
	require.Len(t, encoded, 20)
	for _, s := range encoded {
		assert.Equal(t, c.SymbolWidth(), s.Len())
	}

	res, err := c.Decode(encoded)
	require.NoError(t, err)
	require.True(t, res.Complete)
	assert.Equal(t, 12, res.N)
	for i := range source {
		assert.True(t, source[i].Equal(res.Symbols[i]), "symbol %d", i)
	}
}

func TestRepairSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	c := newCodec(t, 16)
	source := randomBlock(rng, 12, 100)

	encoded, err := c.Encode(source, 30, nil)
	require.NoError(t, err)

	// lose the first half of the systematic symbols
	res, err := c.Decode(encoded[5:])
	require.NoError(t, err)
	require.True(t, res.Complete)
	for i := range source {
		assert.True(t, source[i].Equal(res.Symbols[i]), "symbol %d", i)
	}
}

func TestNotEnoughSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	c := newCodec(t, 16)
	source := randomBlock(rng, 12, 100)

	encoded, err := c.Encode(source, 20, nil)
	require.NoError(t, err)

	// 3 symbols of 128 bits cannot carry 1200 source bits
	_, err = c.Decode(encoded[:3])
	assert.ErrorIs(t, err, lt.ErrHeaderUnrecoverable)
}

func TestInflatedHeader(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c := newCodec(t, 16)
	source := randomBlock(rng, 2, 8)

	encoded, err := c.Encode(source, 1, nil)
	require.NoError(t, err)

	// a lone symbol whose count field claims 2^32-1 source symbols
	ones := bitstr.FromUint(^uint64(0)>>32, 32)
	inflated := bitstr.Concat(ones, encoded[0].Slice(32, encoded[0].Len()))
	_, err = c.Decode([]bitstr.BitString{inflated})
	assert.ErrorIs(t, err, lt.ErrHeaderUnrecoverable)
}

func TestDropsMalformedSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	c := newCodec(t, 16)
	source := randomBlock(rng, 12, 100)

	encoded, err := c.Encode(source, 24, nil)
	require.NoError(t, err)
	encoded[0] = encoded[0].Slice(0, 40)
	encoded[1] = encoded[1].Flip(3)

	res, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	for _, e := range res.Errors {
		assert.ErrorIs(t, e, lt.ErrCorruptedIndex)
	}
	require.True(t, res.Complete)
}

func TestErrors(t *testing.T) {
	c := newCodec(t, 16)

	_, err := c.Encode(nil, 4, nil)
	assert.ErrorIs(t, err, lt.ErrEmptySourceBlock)

	_, err = c.Encode([]bitstr.BitString{bitstr.New(8), bitstr.New(4)}, 4, nil)
	assert.ErrorIs(t, err, lt.ErrInconsistentWidth)

	_, err = c.Decode(nil)
	assert.ErrorIs(t, err, lt.ErrHeaderUnrecoverable)

	_, err = New(&Config{SymbolSize: 0})
	assert.ErrorIs(t, err, ErrSymbolSize)
}
