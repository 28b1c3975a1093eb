package fec

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/encode/lt"
	"github.com/ppopth/dna-fec/fec/encode/rs"
	"github.com/ppopth/dna-fec/fec/field"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundRobin draws degree one and walks the rows in order
type roundRobin struct {
	next int
}

func (r *roundRobin) Float64() float64 { return 0 }

func (r *roundRobin) Intn(n int) int {
	v := r.next % n
	r.next++
	return v
}

func testConfig(inner Inner) *Config {
	config := DefaultConfig()
	config.Inner = inner
	config.Redundancy = 10
	config.Workers = 4
	return config
}

func newCodec(t *testing.T, config *Config) *Codec {
	t.Helper()
	c, err := NewCodec(config)
	require.NoError(t, err)
	return c
}

func randomData(rng *rand.Rand, n int) []byte {
	data := make([]byte, n)
	rng.Read(data)
	return data
}

// corruptSymbols replaces the symbols at the given positions of a row with
// different field elements
func corruptSymbols(f *field.GF, row bitstr.BitString, positions []int) bitstr.BitString {
	symbols := field.SymbolsFromBits(row, f.SymbolBits())
	for _, pos := range positions {
		symbols[pos] = field.Symbol((int(symbols[pos]) + 1) % f.Order())
	}
	return field.SymbolsToBits(symbols, f.SymbolBits())
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := randomData(rng, 1000)

	for _, inner := range []Inner{InnerLT, InnerRaptorQ, InnerNone} {
		t.Run(inner.String(), func(t *testing.T) {
			c := newCodec(t, testConfig(inner))
			symbols, err := c.Encode(data, rand.New(rand.NewSource(2)))
			require.NoError(t, err)

			got, report, err := c.Decode(symbols)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Equal(t, c.Rows(len(data)), report.Rows)
			assert.Zero(t, report.Corrected)
			assert.Zero(t, report.Missing)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	c := newCodec(t, nil)
	assert.Equal(t, 255, c.Config().N)
	assert.Equal(t, 223, c.Config().K)
	assert.Equal(t, InnerLT, c.Config().Inner)
	assert.Equal(t, 255*8, c.RowWidth())
	// 4-byte header plus 1000 bytes over 223-byte messages
	assert.Equal(t, 5, c.Rows(1000))
}

func TestEmptyUnit(t *testing.T) {
	c := newCodec(t, testConfig(InnerNone))
	symbols, err := c.Encode(nil, nil)
	require.NoError(t, err)
	require.Len(t, symbols, 1)

	got, _, err := c.Decode(symbols)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorrectsSymbolErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randomData(rng, 800)
	c := newCodec(t, testConfig(InnerNone))
	f := c.Config().Field

	rows, err := c.Encode(data, nil)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	total := 0
	for i := range rows {
		positions := rng.Perm(255)[:16]
		rows[i] = corruptSymbols(f, rows[i], positions)
		total += len(positions)
	}

	got, report, err := c.Decode(rows)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, total, report.Corrected)
}

func TestLTWithErrorsAndLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	data := randomData(rng, 600)
	config := testConfig(InnerLT)
	config.Redundancy = 1
	c := newCodec(t, config)

	symbols, err := c.Encode(data, &roundRobin{})
	require.NoError(t, err)
	require.Len(t, symbols, 6)

	// the first copy of every row carries ten symbol errors in its payload
	for i := 0; i < 3; i++ {
		header := symbols[i].Slice(0, config.CountFieldWidth)
		payload := symbols[i].Slice(config.CountFieldWidth, config.CountFieldWidth+c.RowWidth())
		index := symbols[i].Slice(config.CountFieldWidth+c.RowWidth(), symbols[i].Len())
		payload = corruptSymbols(config.Field, payload, rng.Perm(255)[:10])
		symbols[i] = bitstr.Concat(header, payload, index)
	}

	got, report, err := c.Decode(symbols)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 30, report.Corrected)
	assert.Equal(t, 3, report.Conflicts)

	// losing the corrupted copies leaves clean duplicates
	got, report, err = c.Decode(symbols[3:])
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Zero(t, report.Corrected)
}

func TestIncomplete(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := randomData(rng, 1000)
	config := testConfig(InnerLT)
	config.Redundancy = 1
	c := newCodec(t, config)

	symbols, err := c.Encode(data, &roundRobin{})
	require.NoError(t, err)

	got, report, err := c.Decode(symbols[:2])
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Nil(t, got)
	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 3, report.Missing)
}

func TestUncorrectable(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	data := randomData(rng, 500)
	c := newCodec(t, testConfig(InnerNone))

	rows, err := c.Encode(data, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	positions := make([]int, 40)
	for i := range positions {
		positions[i] = i
	}
	rows[1] = corruptSymbols(c.Config().Field, rows[1], positions)

	got, report, err := c.Decode(rows)
	assert.ErrorIs(t, err, rs.ErrUncorrectableLikely)
	assert.Equal(t, 1, report.Uncorrectable)
	require.Len(t, got, len(data))
	assert.Equal(t, data[:219], got[:219])
	assert.NotEqual(t, data, got)
}

func TestNonBinaryField(t *testing.T) {
	f, err := field.NewField(3, 2)
	require.NoError(t, err)
	config := testConfig(InnerNone)
	config.Field = f
	config.N = 8
	config.K = 4
	c := newCodec(t, config)

	data := []byte("GF(9) carries three data bits per symbol")
	rows, err := c.Encode(data, nil)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, 32, row.Len())
	}

	rng := rand.New(rand.NewSource(7))
	for i := range rows {
		rows[i] = corruptSymbols(f, rows[i], rng.Perm(8)[:2])
	}

	got, report, err := c.Decode(rows)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 2*len(rows), report.Corrected)
}

func TestWithoutOuterCode(t *testing.T) {
	config := testConfig(InnerLT)
	config.K = 0
	config.N = 32
	c := newCodec(t, config)

	data := []byte("rows carry raw data symbols")
	symbols, err := c.Encode(data, rand.New(rand.NewSource(8)))
	require.NoError(t, err)

	got, report, err := c.Decode(symbols)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Zero(t, report.Corrected)
}

func TestBadLength(t *testing.T) {
	c := newCodec(t, testConfig(InnerNone))
	rows, err := c.Encode([]byte("abc"), nil)
	require.NoError(t, err)

	_, _, err = c.Decode([]bitstr.BitString{rows[0].Slice(0, 100)})
	assert.ErrorIs(t, err, ErrBadLength)

	// a header claiming more bytes than were recovered
	lying := append([]byte{0xff, 0xff, 0xff, 0xff}, make([]byte, 219)...)
	symbols := field.SplitBitsToSymbols(lying, 8)
	outer, err := rs.New(nil)
	require.NoError(t, err)
	codeword, err := outer.Generate(symbols)
	require.NoError(t, err)
	_, _, err = c.Decode([]bitstr.BitString{field.SymbolsToBits(codeword, 8)})
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestNewCodecErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing field", func(c *Config) { c.Field = nil }},
		{"negative redundancy", func(c *Config) { c.Redundancy = -1 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"codeword too long", func(c *Config) { c.N = 256 }},
		{"k not below n", func(c *Config) { c.K = 255 }},
		{"unknown inner", func(c *Config) { c.Inner = Inner(7) }},
		{"zero count field", func(c *Config) { c.CountFieldWidth = 0 }},
		{"raptorq symbol size", func(c *Config) { c.Inner = InnerRaptorQ; c.SymbolSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			_, err := NewCodec(config)
			assert.Error(t, err)
		})
	}
}

func TestParseInner(t *testing.T) {
	for _, inner := range []Inner{InnerLT, InnerRaptorQ, InnerNone} {
		got, err := ParseInner(inner.String())
		require.NoError(t, err)
		assert.Equal(t, inner, got)
	}
	_, err := ParseInner("turbo")
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	config := testConfig(InnerNone)
	config.Metrics = NewMetrics(reg)
	c := newCodec(t, config)

	rows, err := c.Encode([]byte("counted"), nil)
	require.NoError(t, err)
	rows[0] = corruptSymbols(config.Field, rows[0], []int{1, 2, 3})

	_, _, err = c.Decode(rows)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(config.Metrics.EncodedUnits))
	assert.Equal(t, 1.0, testutil.ToFloat64(config.Metrics.DecodedUnits))
	assert.Equal(t, 3.0, testutil.ToFloat64(config.Metrics.CorrectedSymbols))
	assert.Zero(t, testutil.ToFloat64(config.Metrics.UncorrectableCodewords))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	units := make([][]byte, 8)
	for i := range units {
		units[i] = randomData(rng, 100+50*i)
	}
	c := newCodec(t, testConfig(InnerLT))

	encoded, err := c.EncodeBatch(context.Background(), units)
	require.NoError(t, err)
	require.Len(t, encoded, len(units))

	again, err := c.EncodeBatch(context.Background(), units)
	require.NoError(t, err)
	for i := range encoded {
		require.Len(t, again[i], len(encoded[i]))
		for j := range encoded[i] {
			assert.True(t, encoded[i][j].Equal(again[i][j]), "unit %d symbol %d differs between runs", i, j)
		}
	}

	results, err := c.DecodeBatch(context.Background(), encoded)
	require.NoError(t, err)
	for i, res := range results {
		require.NoError(t, res.Err, "unit %d", i)
		assert.Equal(t, units[i], res.Data)
	}
}

func TestBatchCancelled(t *testing.T) {
	c := newCodec(t, testConfig(InnerNone))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.EncodeBatch(ctx, [][]byte{[]byte("a"), []byte("b")})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.DecodeBatch(ctx, [][]bitstr.BitString{nil})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchEncodeError(t *testing.T) {
	config := testConfig(InnerLT)
	config.CountFieldWidth = 2
	c := newCodec(t, config)

	// 4 rows do not fit a 2-bit count field
	_, err := c.EncodeBatch(context.Background(), [][]byte{make([]byte, 800)})
	assert.ErrorIs(t, err, lt.ErrSourceBlockTooLarge)
}

func TestElimination(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	data := randomData(rng, 3000)

	config := testConfig(InnerLT)
	config.Elimination = true
	c := newCodec(t, config)
	symbols, err := c.Encode(data, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	got, report, err := c.Decode(symbols)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Zero(t, report.Missing)
}
