// Package fec chains an outer Reed-Solomon code with an inner erasure code.
//
// A data unit is prefixed with its 32-bit big-endian length, split into
// field symbols, grouped into K-symbol messages and encoded into RS
// codewords. Each codeword becomes one row of the inner source block, which is
// then expanded into self-describing inner symbols by LT or RaptorQ.
package fec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/encode"
	"github.com/ppopth/dna-fec/fec/encode/lt"
	"github.com/ppopth/dna-fec/fec/encode/raptor"
	"github.com/ppopth/dna-fec/fec/encode/rs"
	"github.com/ppopth/dna-fec/fec/field"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("fec")

const lengthHeaderBytes = 4

var (
	// ErrIncomplete is returned when the inner code leaves rows unresolved.
	ErrIncomplete = errors.New("fec: inner code left rows unresolved")
	// ErrBadLength is returned when a length header or a row width is invalid.
	ErrBadLength = errors.New("fec: bad length")
)

var (
	_ encode.BlockCode   = (*rs.Codec)(nil)
	_ encode.ErasureCode = (*lt.Codec)(nil)
	_ encode.ErasureCode = (*raptor.Codec)(nil)
)

// Report describes what a Decode call had to repair
type Report struct {
	// Rows in the inner source block
	Rows int
	// Rows the inner code could not resolve
	Missing int
	// Outer symbols repaired
	Corrected int
	// Outer codewords that failed correction
	Uncorrectable int
	// Malformed inner symbols discarded
	Dropped int
	// Inner equations that disagreed with resolved rows
	Conflicts int
	// Row symbols outside the field, zeroed before correction
	Invalid int
}

// Codec is the concatenated encoder and decoder. It is immutable and safe for
// concurrent use.
type Codec struct {
	config *Config
	field  *field.GF
	outer  encode.BlockCode
	inner  encode.ErasureCode
}

// NewCodec creates a concatenated codec
func NewCodec(config *Config) (*Codec, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		config: config,
		field:  config.Field,
	}

	if config.K > 0 {
		outer, err := rs.New(&rs.Config{Field: config.Field, N: config.N, K: config.K})
		if err != nil {
			return nil, fmt.Errorf("outer code: %w", err)
		}
		c.outer = outer
	}

	switch config.Inner {
	case InnerLT:
		ltConfig := lt.DefaultConfig()
		ltConfig.IndexFieldWidth = config.IndexFieldWidth
		ltConfig.CountFieldWidth = config.CountFieldWidth
		ltConfig.Elimination = config.Elimination
		inner, err := lt.New(ltConfig)
		if err != nil {
			return nil, fmt.Errorf("inner code: %w", err)
		}
		c.inner = inner
	case InnerRaptorQ:
		inner, err := raptor.New(&raptor.Config{SymbolSize: config.SymbolSize})
		if err != nil {
			return nil, fmt.Errorf("inner code: %w", err)
		}
		c.inner = inner
	case InnerNone:
	default:
		return nil, fmt.Errorf("unknown inner code %s", config.Inner)
	}

	log.Debugf("created codec over %s: n=%d k=%d inner=%s", c.field, config.N, config.K, config.Inner)
	return c, nil
}

// Config returns the codec configuration
func (c *Codec) Config() *Config { return c.config }

// RowWidth returns the width in bits of one row of the inner source block
func (c *Codec) RowWidth() int {
	return c.config.N * c.field.SymbolBits()
}

// rowData returns the number of data symbols carried by a row
func (c *Codec) rowData() int {
	if c.outer != nil {
		return c.outer.K()
	}
	return c.config.N
}

// Rows returns the number of rows needed for a data unit of dataLen bytes
func (c *Codec) Rows(dataLen int) int {
	bits := 8 * (lengthHeaderBytes + dataLen)
	symbols := (bits + c.field.DataBits() - 1) / c.field.DataBits()
	return (symbols + c.rowData() - 1) / c.rowData()
}

// Encode encodes one data unit into inner symbols. rng drives the LT degree
// and index choices and is ignored by the other inner codes.
func (c *Codec) Encode(data []byte, rng lt.Source) ([]bitstr.BitString, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("data unit of %d bytes: %w", len(data), ErrBadLength)
	}
	framed := make([]byte, lengthHeaderBytes+len(data))
	binary.BigEndian.PutUint32(framed, uint32(len(data)))
	copy(framed[lengthHeaderBytes:], data)

	symbols := field.SplitBitsToSymbols(framed, c.field.DataBits())
	per := c.rowData()
	rows := make([]bitstr.BitString, 0, (len(symbols)+per-1)/per)
	for off := 0; off < len(symbols); off += per {
		row := make([]field.Symbol, per)
		copy(row, symbols[off:min(off+per, len(symbols))])
		if c.outer != nil {
			var err error
			if row, err = c.outer.Generate(row); err != nil {
				return nil, err
			}
		}
		rows = append(rows, field.SymbolsToBits(row, c.field.SymbolBits()))
	}

	out := rows
	if c.inner != nil {
		numSymbols := int(math.Ceil(float64(len(rows)) * (1 + c.config.Redundancy)))
		var err error
		if out, err = c.inner.Encode(rows, numSymbols, rng); err != nil {
			return nil, err
		}
	}

	if c.config.Metrics != nil {
		c.config.Metrics.EncodedUnits.Inc()
	}
	log.Debugf("encoded %d bytes into %d rows and %d symbols", len(data), len(rows), len(out))
	return out, nil
}

// Decode recovers a data unit from inner symbols.
//
// ErrIncomplete is returned when rows are missing. When some outer codewords
// fail correction the best-effort data is returned together with an error
// wrapping rs.ErrUncorrectableLikely. The report is always non-nil.
func (c *Codec) Decode(symbols []bitstr.BitString) ([]byte, *Report, error) {
	report := &Report{}
	data, err := c.decode(symbols, report)
	c.config.Metrics.observeDecode(report, err == nil)
	return data, report, err
}

func (c *Codec) decode(symbols []bitstr.BitString, report *Report) ([]byte, error) {
	rows := symbols
	var known []bool
	if c.inner != nil {
		res, err := c.inner.Decode(symbols)
		if err != nil {
			return nil, err
		}
		rows, known = res.Symbols, res.Known
		report.Dropped = res.Dropped
		report.Conflicts = res.Conflicts
	}
	report.Rows = len(rows)

	bitsPerSymbol := c.field.SymbolBits()
	message := make([]field.Symbol, 0, len(rows)*c.rowData())
	for i, row := range rows {
		if known != nil && !known[i] {
			report.Missing++
			continue
		}
		if row.Len() != c.RowWidth() {
			return nil, fmt.Errorf("row %d has %d bits, want %d: %w", i, row.Len(), c.RowWidth(), ErrBadLength)
		}

		codeword := field.SymbolsFromBits(row, bitsPerSymbol)
		for j, s := range codeword {
			if !c.field.Contains(s) {
				codeword[j] = 0
				report.Invalid++
			}
		}
		if c.outer == nil {
			message = append(message, codeword...)
			continue
		}

		msg, corrected, err := c.outer.Correct(codeword)
		switch {
		case errors.Is(err, rs.ErrUncorrectableLikely):
			log.Warnf("row %d: %s", i, err)
			report.Uncorrectable++
		case err != nil:
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		report.Corrected += corrected
		message = append(message, msg...)
	}

	if report.Missing > 0 {
		return nil, fmt.Errorf("%d of %d rows unresolved: %w", report.Missing, report.Rows, ErrIncomplete)
	}

	framed := field.SymbolsToBytes(message, c.field.DataBits())
	if len(framed) < lengthHeaderBytes {
		return nil, fmt.Errorf("%d bytes cannot hold the length header: %w", len(framed), ErrBadLength)
	}
	length := binary.BigEndian.Uint32(framed)
	if uint64(length) > uint64(len(framed)-lengthHeaderBytes) {
		return nil, fmt.Errorf("length header %d exceeds %d recovered bytes: %w", length, len(framed)-lengthHeaderBytes, ErrBadLength)
	}
	data := framed[lengthHeaderBytes : lengthHeaderBytes+int(length)]

	if report.Uncorrectable > 0 {
		return data, fmt.Errorf("%d of %d codewords: %w", report.Uncorrectable, report.Rows, rs.ErrUncorrectableLikely)
	}
	log.Debugf("decoded %d bytes from %d rows, corrected %d symbols", length, report.Rows, report.Corrected)
	return data, nil
}
