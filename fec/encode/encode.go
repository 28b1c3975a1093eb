package encode

import (
	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/encode/lt"
	"github.com/ppopth/dna-fec/fec/field"
)

// BlockCode is an outer code that corrects symbol errors inside fixed-length
// codewords
type BlockCode interface {
	// Generate appends parity to a message of at most K symbols
	Generate(message []field.Symbol) ([]field.Symbol, error)
	// Verify reports whether a codeword has no detectable errors
	Verify(codeword []field.Symbol) bool
	// Correct repairs a codeword and returns its message part
	Correct(codeword []field.Symbol) ([]field.Symbol, int, error)

	N() int
	K() int
}

// ErasureCode is an inner code that turns a block of equal-width bit strings
// into any number of encoded symbols and recovers the block from a subset
type ErasureCode interface {
	// Encode emits numSymbols encoded symbols for the source block
	Encode(source []bitstr.BitString, numSymbols int, rng lt.Source) ([]bitstr.BitString, error)
	// Decode recovers as much of the source block as the symbols allow
	Decode(symbols []bitstr.BitString) (*lt.Result, error)
}
