package fec

import (
	"fmt"

	"github.com/ppopth/dna-fec/fec/bitstr"

	"github.com/gogo/protobuf/proto"
)

// MarshalSymbols serializes equal-width symbols as a varint count, a varint
// width and one length-delimited byte string per symbol.
func MarshalSymbols(symbols []bitstr.BitString) ([]byte, error) {
	width := 0
	if len(symbols) > 0 {
		width = symbols[0].Len()
	}

	buf := proto.NewBuffer(nil)
	if err := buf.EncodeVarint(uint64(len(symbols))); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(uint64(width)); err != nil {
		return nil, err
	}
	for i, s := range symbols {
		if s.Len() != width {
			return nil, fmt.Errorf("symbol %d has %d bits, want %d: %w", i, s.Len(), width, ErrBadLength)
		}
		if err := buf.EncodeRawBytes(s.Bytes()); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalSymbols parses the output of MarshalSymbols
func UnmarshalSymbols(data []byte) ([]bitstr.BitString, error) {
	buf := proto.NewBuffer(data)
	count, err := buf.DecodeVarint()
	if err != nil {
		return nil, fmt.Errorf("symbol count: %w", err)
	}
	width, err := buf.DecodeVarint()
	if err != nil {
		return nil, fmt.Errorf("symbol width: %w", err)
	}
	// every symbol takes at least one length byte
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%d symbols in %d bytes: %w", count, len(data), ErrBadLength)
	}
	if width > 8*uint64(len(data)) {
		return nil, fmt.Errorf("%d-bit symbols in %d bytes: %w", width, len(data), ErrBadLength)
	}
	size := (width + 7) / 8

	out := make([]bitstr.BitString, count)
	for i := range out {
		raw, err := buf.DecodeRawBytes(false)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		if uint64(len(raw)) != size {
			return nil, fmt.Errorf("symbol %d has %d bytes, want %d: %w", i, len(raw), size, ErrBadLength)
		}
		out[i] = bitstr.FromBytes(raw, int(width))
	}
	return out, nil
}
