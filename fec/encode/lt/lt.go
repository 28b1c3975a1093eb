// Package lt implements an LT fountain code over fixed-width bit strings.
//
// Every encoded symbol is self-describing:
//
//	[count field: N, big-endian][payload: XOR of chosen source symbols][index field]
//
// The index field starts with the degree minus one in a fixed number of bits,
// followed by the chosen source indices in descending order, each
// bitsPerIndex wide. Unused trailing bits are zero.
package lt

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ppopth/dna-fec/fec/bitstr"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("lt")

// MaxCountFieldWidth bounds the header that carries the source block size.
const MaxCountFieldWidth = 32

var (
	// ErrSourceBlockTooLarge is returned when N does not fit the count field.
	ErrSourceBlockTooLarge = errors.New("lt: source block too large for count field")
	// ErrHeaderUnrecoverable is returned when no source block size can be
	// recovered from the encoded symbols.
	ErrHeaderUnrecoverable = errors.New("lt: header unrecoverable")
	// ErrCorruptedIndex marks an encoded symbol dropped by the decoder.
	ErrCorruptedIndex = errors.New("lt: corrupted index")
	// ErrEmptySourceBlock is returned when encoding an empty source block.
	ErrEmptySourceBlock = errors.New("lt: empty source block")
	// ErrInconsistentWidth is returned when source symbols differ in width.
	ErrInconsistentWidth = errors.New("lt: source symbols differ in width")
	// ErrIndexFieldTooSmall is returned when a single index does not fit.
	ErrIndexFieldTooSmall = errors.New("lt: index field too small")
)

// Source is the randomness consumed by the encoder. *math/rand.Rand
// satisfies it.
type Source interface {
	// Float64 returns a number in [0, 1)
	Float64() float64
	// Intn returns a number in [0, n)
	Intn(n int) int
}

// Config contains configuration for the LT encoder and decoder
type Config struct {
	// Width in bits of the trailing index field
	IndexFieldWidth int
	// Width in bits of the leading header carrying N
	CountFieldWidth int
	// Robust soliton spread parameter
	C float64
	// Robust soliton failure probability
	Delta float64
	// Solve what peeling leaves with Gaussian elimination over GF(2)
	Elimination bool
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		IndexFieldWidth: 64,
		CountFieldWidth: 16,
		C:               0.1,
		Delta:           0.05,
	}
}

func (c *Config) validate() error {
	if c.IndexFieldWidth <= 0 {
		return fmt.Errorf("index field width must be positive")
	}
	if c.CountFieldWidth <= 0 || c.CountFieldWidth > MaxCountFieldWidth {
		return fmt.Errorf("count field width must be in [1, %d]", MaxCountFieldWidth)
	}
	if c.C <= 0 {
		return fmt.Errorf("c must be positive")
	}
	if c.Delta <= 0 || c.Delta >= 1 {
		return fmt.Errorf("delta must be in (0, 1)")
	}
	return nil
}

// SymbolWidth returns the width of an encoded symbol carrying a payload of
// payloadWidth bits.
func (c *Config) SymbolWidth(payloadWidth int) int {
	return c.CountFieldWidth + payloadWidth + c.IndexFieldWidth
}

// layout describes how indices are packed for a source block of n symbols
type layout struct {
	n            int
	bitsPerIndex int
	prefixBits   int
	maxDegree    int
}

// BitsPerIndex returns max(1, ceil(log2 n)).
func BitsPerIndex(n int) int {
	if n <= 2 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// newLayout picks the largest degree d <= n such that the degree prefix and
// d indices fit into indexFieldWidth bits.
func newLayout(n, indexFieldWidth int) (layout, error) {
	b := BitsPerIndex(n)
	if b > indexFieldWidth {
		return layout{}, fmt.Errorf("%d bits per index, field has %d: %w", b, indexFieldWidth, ErrIndexFieldTooSmall)
	}
	d := 1
	for d < n && bits.Len(uint(d))+(d+1)*b <= indexFieldWidth {
		d++
	}
	return layout{
		n:            n,
		bitsPerIndex: b,
		prefixBits:   bits.Len(uint(d - 1)),
		maxDegree:    d,
	}, nil
}

// MaxDegree returns the largest degree an encoded symbol can carry for a
// source block of n symbols.
func MaxDegree(n, indexFieldWidth int) (int, error) {
	l, err := newLayout(n, indexFieldWidth)
	if err != nil {
		return 0, err
	}
	return l.maxDegree, nil
}

// packIndices builds the index field for indices sorted in descending order.
func (l layout) packIndices(indices []int, width int) bitstr.BitString {
	parts := make([]bitstr.BitString, 0, len(indices)+2)
	parts = append(parts, bitstr.FromUint(uint64(len(indices)-1), l.prefixBits))
	used := l.prefixBits
	for _, idx := range indices {
		parts = append(parts, bitstr.FromUint(uint64(idx), l.bitsPerIndex))
		used += l.bitsPerIndex
	}
	parts = append(parts, bitstr.New(width-used))
	return bitstr.Concat(parts...)
}

// unpackIndices parses an index field, rejecting any field the encoder could
// not have produced.
func (l layout) unpackIndices(field bitstr.BitString) ([]int, error) {
	degree := int(field.Slice(0, l.prefixBits).Uint()) + 1
	if degree > l.maxDegree {
		return nil, fmt.Errorf("degree %d exceeds %d", degree, l.maxDegree)
	}
	pos := l.prefixBits
	indices := make([]int, degree)
	for i := range indices {
		idx := int(field.Slice(pos, pos+l.bitsPerIndex).Uint())
		pos += l.bitsPerIndex
		if idx >= l.n {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, l.n)
		}
		if i > 0 && idx >= indices[i-1] {
			return nil, fmt.Errorf("indices not strictly descending")
		}
		indices[i] = idx
	}
	if !field.Slice(pos, field.Len()).IsZero() {
		return nil, fmt.Errorf("nonzero padding")
	}
	return indices, nil
}

// Encode encodes a source block with the default soliton parameters
func Encode(source []bitstr.BitString, numSymbols, indexFieldWidth, countFieldWidth int, rng Source) ([]bitstr.BitString, error) {
	config := DefaultConfig()
	config.IndexFieldWidth = indexFieldWidth
	config.CountFieldWidth = countFieldWidth
	enc, err := NewEncoder(config)
	if err != nil {
		return nil, err
	}
	return enc.Encode(source, numSymbols, rng)
}

// Decode runs the peeling decoder with the given field widths
func Decode(symbols []bitstr.BitString, indexFieldWidth, countFieldWidth int) (*Result, error) {
	config := DefaultConfig()
	config.IndexFieldWidth = indexFieldWidth
	config.CountFieldWidth = countFieldWidth
	dec, err := NewDecoder(config)
	if err != nil {
		return nil, err
	}
	return dec.Decode(symbols)
}

// Codec pairs an Encoder and a Decoder sharing one configuration
type Codec struct {
	*Encoder
	*Decoder
}

// New creates an LT encoder and decoder pair
func New(config *Config) (*Codec, error) {
	enc, err := NewEncoder(config)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(config)
	if err != nil {
		return nil, err
	}
	return &Codec{Encoder: enc, Decoder: dec}, nil
}
