package lt

import (
	"fmt"
	"sort"

	"github.com/ppopth/dna-fec/fec/bitstr"
)

// Encoder produces LT encoded symbols. It holds only configuration and is
// safe for concurrent use as long as each caller passes its own Source.
type Encoder struct {
	config *Config
}

// NewEncoder creates a new LT encoder
func NewEncoder(config *Config) (*Encoder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Encoder{config: config}, nil
}

// Encode emits numSymbols encoded symbols for the source block. Every source
// symbol must have the same width.
func (e *Encoder) Encode(source []bitstr.BitString, numSymbols int, rng Source) ([]bitstr.BitString, error) {
	n := len(source)
	if n == 0 {
		return nil, ErrEmptySourceBlock
	}
	if uint64(n) >= uint64(1)<<uint(e.config.CountFieldWidth) {
		return nil, fmt.Errorf("%d source symbols with a %d-bit count field: %w", n, e.config.CountFieldWidth, ErrSourceBlockTooLarge)
	}
	if numSymbols < 0 {
		return nil, fmt.Errorf("number of symbols must not be negative")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source must be provided")
	}
	width := source[0].Len()
	for i, s := range source {
		if s.Len() != width {
			return nil, fmt.Errorf("symbol %d has %d bits, want %d: %w", i, s.Len(), width, ErrInconsistentWidth)
		}
	}

	l, err := newLayout(n, e.config.IndexFieldWidth)
	if err != nil {
		return nil, err
	}
	dist, err := NewDistribution(n, l.maxDegree, e.config.C, e.config.Delta)
	if err != nil {
		return nil, err
	}

	header := bitstr.FromUint(uint64(n), e.config.CountFieldWidth)
	out := make([]bitstr.BitString, numSymbols)
	for i := range out {
		indices := sampleIndices(rng, n, dist.Sample(rng))
		sort.Sort(sort.Reverse(sort.IntSlice(indices)))

		payload := source[indices[0]]
		for _, idx := range indices[1:] {
			payload = payload.Xor(source[idx])
		}
		out[i] = bitstr.Concat(header, payload, l.packIndices(indices, e.config.IndexFieldWidth))
	}

	log.Debugf("encoded %d symbols from a block of %d (mean degree %.2f)", numSymbols, n, dist.Mean())
	return out, nil
}

// sampleIndices picks d distinct indices from [0, n) with a partial
// Fisher-Yates shuffle over a sparse permutation.
func sampleIndices(rng Source, n, d int) []int {
	swapped := make(map[int]int, d)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}

	out := make([]int, d)
	for i := 0; i < d; i++ {
		j := i + rng.Intn(n-i)
		out[i] = at(j)
		swapped[j] = at(i)
	}
	return out
}
