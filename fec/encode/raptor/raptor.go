// Package raptor adapts RaptorQ to the inner erasure code contract used by
// the lt package. A source block of N equal-width bit strings is packed into
// bytes and split into RaptorQ symbols of SymbolSize bytes. Every encoded
// symbol carries its own header:
//
//	[32 bits N][32 bits source symbol width][32 bits symbol id][SymbolSize*8 bits]
package raptor

import (
	"errors"
	"fmt"

	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/encode/lt"

	logging "github.com/ipfs/go-log/v2"
	rqq "github.com/xssnick/raptorq"
)

var log = logging.Logger("raptor")

const headerBits = 96

// ErrSymbolSize is returned when an encoded symbol cannot carry a whole
// number of bytes.
var ErrSymbolSize = errors.New("raptor: bad symbol size")

// Config contains configuration for the RaptorQ inner code
type Config struct {
	// RaptorQ symbol size in bytes
	SymbolSize int
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		SymbolSize: 64,
	}
}

// Codec is a RaptorQ inner code. It keeps no per-block state and is safe for
// concurrent use.
type Codec struct {
	config *Config
}

// New creates a RaptorQ inner code
func New(config *Config) (*Codec, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SymbolSize <= 0 {
		return nil, fmt.Errorf("symbol size must be positive: %w", ErrSymbolSize)
	}
	return &Codec{config: config}, nil
}

// SymbolWidth returns the width in bits of every encoded symbol.
func (c *Codec) SymbolWidth() int {
	return headerBits + 8*c.config.SymbolSize
}

// Encode emits numSymbols RaptorQ symbols with ids 0..numSymbols-1. The first
// ids are the systematic source symbols. rng is unused.
func (c *Codec) Encode(source []bitstr.BitString, numSymbols int, _ lt.Source) ([]bitstr.BitString, error) {
	if len(source) == 0 {
		return nil, lt.ErrEmptySourceBlock
	}
	if numSymbols < 0 {
		return nil, fmt.Errorf("number of symbols must not be negative")
	}
	width := source[0].Len()
	for i, s := range source {
		if s.Len() != width {
			return nil, fmt.Errorf("symbol %d has %d bits, want %d: %w", i, s.Len(), width, lt.ErrInconsistentWidth)
		}
	}
	data := bitstr.Concat(source...).Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("source block has no payload bits: %w", ErrSymbolSize)
	}

	rq := rqq.NewRaptorQ(uint32(c.config.SymbolSize))
	enc, err := rq.CreateEncoder(data)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}

	header := bitstr.Concat(
		bitstr.FromUint(uint64(len(source)), 32),
		bitstr.FromUint(uint64(width), 32),
	)
	out := make([]bitstr.BitString, numSymbols)
	for i := range out {
		symbol := enc.GenSymbol(uint32(i))
		out[i] = bitstr.Concat(header, bitstr.FromUint(uint64(i), 32), bitstr.FromBytes(symbol, 8*c.config.SymbolSize))
	}

	log.Debugf("encoded %d symbols for %d bytes (%d source symbols)", numSymbols, len(data), enc.BaseSymbolsNum())
	return out, nil
}

type blockHeader struct {
	n     int
	width int
}

// Decode reconstructs the source block. RaptorQ recovers all symbols or none,
// so the result is either complete or has every symbol missing.
func (c *Codec) Decode(symbols []bitstr.BitString) (*lt.Result, error) {
	symbolWidth := c.SymbolWidth()

	var headers []blockHeader
	counts := make(map[blockHeader]int)
	var best blockHeader
	for _, s := range symbols {
		if s.Len() != symbolWidth {
			continue
		}
		h := blockHeader{n: int(s.Slice(0, 32).Uint()), width: int(s.Slice(32, 64).Uint())}
		headers = append(headers, h)
		counts[h]++
		if counts[h] > counts[best] {
			best = h
		}
	}
	if len(headers) == 0 || best.n == 0 || best.width == 0 {
		return nil, fmt.Errorf("no usable symbol header: %w", lt.ErrHeaderUnrecoverable)
	}
	// the agreeing symbols must carry at least the claimed source bits
	if uint64(best.n)*uint64(best.width) > uint64(counts[best])*uint64(8*c.config.SymbolSize) {
		return nil, fmt.Errorf("%d symbols of %d bits exceed what %d encoded symbols carry: %w",
			best.n, best.width, counts[best], lt.ErrHeaderUnrecoverable)
	}

	res := &lt.Result{
		N:       best.n,
		Symbols: make([]bitstr.BitString, best.n),
		Known:   make([]bool, best.n),
	}
	for i := range res.Symbols {
		res.Symbols[i] = bitstr.New(best.width)
	}

	dataSize := (best.n*best.width + 7) / 8
	rq := rqq.NewRaptorQ(uint32(c.config.SymbolSize))
	dec, err := rq.CreateDecoder(uint32(dataSize))
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	ready := false
	for i, s := range symbols {
		if s.Len() != symbolWidth {
			res.Dropped++
			res.Errors = append(res.Errors, fmt.Errorf("symbol %d has %d bits, want %d: %w", i, s.Len(), symbolWidth, lt.ErrCorruptedIndex))
			continue
		}
		h := blockHeader{n: int(s.Slice(0, 32).Uint()), width: int(s.Slice(32, 64).Uint())}
		if h != best {
			res.Dropped++
			res.Errors = append(res.Errors, fmt.Errorf("symbol %d has a mismatched header: %w", i, lt.ErrCorruptedIndex))
			continue
		}
		id := uint32(s.Slice(64, 96).Uint())
		ok, err := dec.AddSymbol(id, s.Slice(headerBits, symbolWidth).Bytes())
		if err != nil {
			res.Dropped++
			res.Errors = append(res.Errors, fmt.Errorf("symbol %d: %v: %w", i, err, lt.ErrCorruptedIndex))
			continue
		}
		ready = ready || ok
	}

	if res.Dropped > 0 {
		log.Warnf("dropped %d of %d encoded symbols", res.Dropped, len(symbols))
	}
	if !ready {
		log.Debugf("not enough symbols to decode %d bytes", dataSize)
		return res, nil
	}

	ok, data, err := dec.Decode()
	if err != nil || !ok {
		log.Debugf("decode of %d bytes failed: %v", dataSize, err)
		return res, nil
	}

	block := bitstr.FromBytes(data, best.n*best.width)
	for i := range res.Symbols {
		res.Symbols[i] = block.Slice(i*best.width, (i+1)*best.width)
		res.Known[i] = true
	}
	res.Complete = true
	return res, nil
}
