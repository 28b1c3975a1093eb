package rs

import (
	"errors"
	"fmt"

	"github.com/ppopth/dna-fec/fec/field"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("rs")

var (
	// ErrMessageTooLong is returned when a message has more than K symbols.
	ErrMessageTooLong = errors.New("rs: message longer than k")
	// ErrInvalidSymbol is returned when a symbol is not an element of the field.
	ErrInvalidSymbol = errors.New("rs: symbol outside the field")
	// ErrUncorrectableLikely is returned when a codeword carries more errors
	// than the decoder could repair.
	ErrUncorrectableLikely = errors.New("rs: codeword likely uncorrectable")
	// ErrCodewordLength is returned when a codeword does not have N symbols.
	ErrCodewordLength = errors.New("rs: wrong codeword length")
)

// Config contains configuration for a Reed-Solomon codec
type Config struct {
	// Finite field the symbols live in
	Field *field.GF
	// Codeword length in symbols, at most Field.Order()-1
	N int
	// Message length in symbols
	K int
}

// DefaultConfig returns the classic RS(255, 223) code over GF(2^8)
func DefaultConfig() *Config {
	f, err := field.NewField(2, 8)
	if err != nil {
		panic(err)
	}
	return &Config{
		Field: f,
		N:     255,
		K:     223,
	}
}

// Codec is a systematic Reed-Solomon code with generator polynomial
// g(x) = (x - α)(x - α^2)...(x - α^(n-k)). It is immutable and safe for
// concurrent use.
type Codec struct {
	field     *field.GF
	n         int
	k         int
	generator field.Poly
}

// New creates a Reed-Solomon codec
func New(config *Config) (*Codec, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if config.Field == nil {
		return nil, fmt.Errorf("field must be provided")
	}
	if config.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if config.N <= config.K {
		return nil, fmt.Errorf("n (%d) must be greater than k (%d)", config.N, config.K)
	}
	if config.N > config.Field.Order()-1 {
		return nil, fmt.Errorf("n (%d) must not exceed %d for %s", config.N, config.Field.Order()-1, config.Field)
	}

	c := &Codec{
		field: config.Field,
		n:     config.N,
		k:     config.K,
	}

	g := field.Poly{1}
	for i := 1; i <= c.n-c.k; i++ {
		g = c.field.MulPoly(g, field.Poly{1, c.field.Neg(c.field.Exp(i))})
	}
	c.generator = g

	log.Debugf("created RS(%d, %d) over %s", c.n, c.k, c.field)
	return c, nil
}

// N returns the codeword length
func (c *Codec) N() int { return c.n }

// K returns the message length
func (c *Codec) K() int { return c.k }

// Parity returns the number of parity symbols n-k
func (c *Codec) Parity() int { return c.n - c.k }

// Capacity returns the number of symbol errors that can always be corrected
func (c *Codec) Capacity() int { return (c.n - c.k) / 2 }

// Field returns the field of the codec
func (c *Codec) Field() *field.GF { return c.field }

// Generator returns a copy of the generator polynomial
func (c *Codec) Generator() field.Poly {
	return append(field.Poly(nil), c.generator...)
}

func (c *Codec) checkSymbols(symbols []field.Symbol) error {
	for i, s := range symbols {
		if !c.field.Contains(s) {
			return fmt.Errorf("symbol %d at position %d: %w", s, i, ErrInvalidSymbol)
		}
	}
	return nil
}

// Generate encodes a message of at most K symbols into an N-symbol codeword.
// Shorter messages are padded with leading zeros. The first K symbols of the
// codeword are the padded message.
func (c *Codec) Generate(message []field.Symbol) ([]field.Symbol, error) {
	if len(message) > c.k {
		return nil, fmt.Errorf("%d symbols for k=%d: %w", len(message), c.k, ErrMessageTooLong)
	}
	if err := c.checkSymbols(message); err != nil {
		return nil, err
	}

	padded := make(field.Poly, c.k)
	copy(padded[c.k-len(message):], message)

	_, rem, err := c.field.DivModPoly(field.ShiftPoly(padded, c.n-c.k), c.generator)
	if err != nil {
		return nil, err
	}

	codeword := make([]field.Symbol, c.n)
	copy(codeword, padded)
	// The low n-k coefficients of the shifted message are zero, so the
	// parity part is just -rem.
	off := c.n - len(rem)
	for i, r := range rem {
		codeword[off+i] = c.field.Neg(r)
	}
	return codeword, nil
}

// Verify reports whether codeword is a multiple of the generator polynomial
func (c *Codec) Verify(codeword []field.Symbol) bool {
	if len(codeword) != c.n || c.checkSymbols(codeword) != nil {
		return false
	}
	_, rem, err := c.field.DivModPoly(codeword, c.generator)
	if err != nil {
		return false
	}
	return rem.IsZero()
}

// Correct repairs up to Capacity() symbol errors and returns the message part
// of the codeword along with the number of corrected symbols.
//
// When the decoder cannot produce a valid codeword it returns the message part
// of the received codeword unchanged together with ErrUncorrectableLikely.
func (c *Codec) Correct(codeword []field.Symbol) ([]field.Symbol, int, error) {
	if len(codeword) != c.n {
		return nil, 0, fmt.Errorf("got %d symbols, want %d: %w", len(codeword), c.n, ErrCodewordLength)
	}
	if err := c.checkSymbols(codeword); err != nil {
		return nil, 0, err
	}

	received := append([]field.Symbol(nil), codeword[:c.k]...)
	if c.Verify(codeword) {
		return received, 0, nil
	}

	sigma, omega, err := c.berlekampMassey(c.syndromes(codeword))
	if err != nil {
		return nil, 0, err
	}
	nu := sigma.Degree()
	if nu > c.Capacity() {
		log.Debugf("locator degree %d exceeds capacity %d", nu, c.Capacity())
		return received, 0, fmt.Errorf("%d errors located, capacity %d: %w", nu, c.Capacity(), ErrUncorrectableLikely)
	}

	locators, positions := c.findErrors(sigma)
	if len(locators) != nu {
		log.Debugf("found %d roots for a locator of degree %d", len(locators), nu)
		return received, 0, fmt.Errorf("%d roots for %d errors: %w", len(locators), nu, ErrUncorrectableLikely)
	}
	for _, pos := range positions {
		if pos < 0 {
			return received, 0, fmt.Errorf("error position outside the codeword: %w", ErrUncorrectableLikely)
		}
	}

	magnitudes, err := c.forney(omega, locators)
	if err != nil {
		return nil, 0, err
	}

	corrected := append([]field.Symbol(nil), codeword...)
	for i, pos := range positions {
		corrected[pos] = c.field.Sub(corrected[pos], magnitudes[i])
	}
	if !c.Verify(corrected) {
		log.Debugf("corrected codeword does not verify")
		return received, 0, fmt.Errorf("corrected codeword does not verify: %w", ErrUncorrectableLikely)
	}

	return corrected[:c.k], nu, nil
}
