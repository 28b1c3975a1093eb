package fec

import (
	"fmt"
	"runtime"

	"github.com/ppopth/dna-fec/fec/field"
)

// Inner selects the inner erasure code
type Inner int

const (
	// InnerLT uses the LT fountain code with self-describing symbols
	InnerLT Inner = iota
	// InnerRaptorQ uses RaptorQ
	InnerRaptorQ
	// InnerNone emits the outer codewords directly
	InnerNone
)

func (i Inner) String() string {
	switch i {
	case InnerLT:
		return "lt"
	case InnerRaptorQ:
		return "raptorq"
	case InnerNone:
		return "none"
	default:
		return fmt.Sprintf("inner(%d)", int(i))
	}
}

// ParseInner parses the name of an inner code as printed by Inner.String
func ParseInner(s string) (Inner, error) {
	for _, i := range []Inner{InnerLT, InnerRaptorQ, InnerNone} {
		if i.String() == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown inner code %q", s)
}

// Config contains configuration for the concatenated codec
type Config struct {
	// Finite field of the outer Reed-Solomon code
	Field *field.GF
	// Outer codeword length in symbols
	N int
	// Outer message length in symbols. Zero disables the outer code, in which
	// case every row carries N raw data symbols.
	K int

	// Inner erasure code
	Inner Inner
	// Extra inner symbols as a fraction of the source block
	// (e.g., 0.5 means 50% redundancy)
	Redundancy float64
	// LT index field width in bits
	IndexFieldWidth int
	// LT count field width in bits
	CountFieldWidth int
	// Fall back to Gaussian elimination when LT peeling stalls
	Elimination bool
	// RaptorQ symbol size in bytes
	SymbolSize int

	// Seed of the per-unit random sources used by the batch helpers
	Seed int64
	// Maximum number of units processed concurrently by the batch helpers
	Workers int
	// Optional metrics, nil disables them
	Metrics *Metrics
}

// DefaultConfig returns RS(255, 223) over GF(2^8) concatenated with an LT
// code carrying 50% redundancy
func DefaultConfig() *Config {
	f, err := field.NewField(2, 8)
	if err != nil {
		panic(err)
	}
	return &Config{
		Field:           f,
		N:               255,
		K:               223,
		Inner:           InnerLT,
		Redundancy:      0.5,
		IndexFieldWidth: 64,
		CountFieldWidth: 16,
		SymbolSize:      64,
		Seed:            1,
		Workers:         runtime.NumCPU(),
	}
}

func (c *Config) validate() error {
	if c.Field == nil {
		return fmt.Errorf("field must be provided")
	}
	if c.N <= 0 {
		return fmt.Errorf("n must be positive")
	}
	if c.K < 0 {
		return fmt.Errorf("k must not be negative")
	}
	if c.Redundancy < 0 {
		return fmt.Errorf("redundancy must not be negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
