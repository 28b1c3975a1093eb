package field

import (
	"errors"
	"fmt"
	"math/bits"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("field")

// MaxOrder bounds the number of elements of a field so that its exp/log
// tables stay small.
const MaxOrder = 1 << 20

var (
	// ErrDivisionByZero is returned when dividing by, or inverting, zero.
	ErrDivisionByZero = errors.New("field: division by zero")
	// ErrNotPrime is returned when the characteristic is not a prime.
	ErrNotPrime = errors.New("field: characteristic is not prime")
	// ErrNotPrimitive is returned when a modulus does not make x a generator.
	ErrNotPrimitive = errors.New("field: modulus is not primitive")
	// ErrFieldTooLarge is returned when p^q exceeds MaxOrder.
	ErrFieldTooLarge = errors.New("field: order too large")
)

// Symbol is an element of GF(p^q). It holds the base-p digits of a polynomial
// over GF(p) of degree < q: digit i is the coefficient of x^i.
type Symbol uint32

// GF is the finite field GF(p^q). A GF is immutable once constructed and may
// be shared between goroutines.
type GF struct {
	p       int
	q       int
	order   int
	modulus []int // monic, lowest coefficient first, len q+1

	alpha Symbol
	exp   []Symbol // exp[i] = alpha^i, doubled to avoid a modulo in Mul
	log   []int    // log[a] = i with alpha^i = a, -1 for zero
}

// NewField creates GF(p^q). For q >= 2 the modulus is the first monic
// degree-q polynomial for which x is primitive, and alpha = x. For q = 1 the
// field is the integers modulo p and alpha is the smallest primitive root.
func NewField(p, q int) (*GF, error) {
	order, err := checkParams(p, q)
	if err != nil {
		return nil, err
	}

	f := &GF{p: p, q: q, order: order}
	if q == 1 {
		f.modulus = []int{0, 1}
		for g := 1; g < p; g++ {
			if f.buildTables(Symbol(g)) {
				log.Debugf("GF(%d): primitive root %d", p, g)
				return f, nil
			}
		}
		return nil, fmt.Errorf("no primitive root modulo %d: %w", p, ErrNotPrimitive)
	}

	// Enumerate the lower coefficients in increasing base-p order. A zero
	// constant term makes x a zero divisor, so those are skipped.
	for c := 1; c < order; c++ {
		if c%p == 0 {
			continue
		}
		f.modulus = append(digits(Symbol(c), p, q), 1)
		if f.buildTables(Symbol(p)) {
			log.Debugf("GF(%d^%d): modulus %v", p, q, f.modulus)
			return f, nil
		}
	}
	return nil, fmt.Errorf("no primitive modulus of degree %d over GF(%d): %w", q, p, ErrNotPrimitive)
}

// NewFieldWithModulus creates GF(p^q) from an explicit monic modulus given
// lowest coefficient first, q = len(modulus)-1. The element x must generate
// the multiplicative group (for q = 1 the generator is searched instead).
func NewFieldWithModulus(p int, modulus []int) (*GF, error) {
	q := len(modulus) - 1
	order, err := checkParams(p, q)
	if err != nil {
		return nil, err
	}
	if modulus[q] != 1 {
		return nil, fmt.Errorf("modulus must be monic, leading coefficient is %d", modulus[q])
	}
	for i, c := range modulus {
		if c < 0 || c >= p {
			return nil, fmt.Errorf("modulus coefficient %d out of range [0,%d) at degree %d", c, p, i)
		}
	}
	if q == 1 {
		return NewField(p, 1)
	}

	f := &GF{p: p, q: q, order: order, modulus: append([]int(nil), modulus...)}
	if !f.buildTables(Symbol(p)) {
		return nil, fmt.Errorf("x does not generate GF(%d^%d)* with modulus %v: %w", p, q, modulus, ErrNotPrimitive)
	}
	return f, nil
}

func checkParams(p, q int) (int, error) {
	if !isPrime(p) {
		return 0, fmt.Errorf("%d: %w", p, ErrNotPrime)
	}
	if q < 1 {
		return 0, fmt.Errorf("extension degree must be positive, got %d", q)
	}
	order := 1
	for i := 0; i < q; i++ {
		order *= p
		if order > MaxOrder {
			return 0, fmt.Errorf("%d^%d exceeds %d: %w", p, q, MaxOrder, ErrFieldTooLarge)
		}
	}
	return order, nil
}

func isPrime(p int) bool {
	if p < 2 {
		return false
	}
	for d := 2; d*d <= p; d++ {
		if p%d == 0 {
			return false
		}
	}
	return true
}

// buildTables fills exp/log for generator g and reports whether g has
// multiplicative order p^q - 1.
func (f *GF) buildTables(g Symbol) bool {
	n := f.order - 1
	exp := make([]Symbol, 2*n)
	lg := make([]int, f.order)
	for i := range lg {
		lg[i] = -1
	}

	x := Symbol(1)
	for i := 0; i < n; i++ {
		if lg[x] != -1 {
			return false
		}
		exp[i] = x
		lg[x] = i
		x = f.mulSlow(x, g)
	}
	if x != 1 {
		return false
	}
	copy(exp[n:], exp[:n])

	f.alpha = g
	f.exp = exp
	f.log = lg
	return true
}

// mulSlow multiplies two elements as polynomials modulo the modulus.
func (f *GF) mulSlow(a, b Symbol) Symbol {
	p, q := f.p, f.q
	da := digits(a, p, q)
	db := digits(b, p, q)
	prod := make([]int, 2*q-1)
	for i, x := range da {
		if x == 0 {
			continue
		}
		for j, y := range db {
			prod[i+j] = (prod[i+j] + x*y) % p
		}
	}
	for deg := 2*q - 2; deg >= q; deg-- {
		c := prod[deg]
		if c == 0 {
			continue
		}
		for t := 0; t <= q; t++ {
			prod[deg-q+t] = ((prod[deg-q+t]-c*f.modulus[t])%p + p) % p
		}
	}
	return undigits(prod[:q], p)
}

func digits(a Symbol, p, q int) []int {
	d := make([]int, q)
	v := int(a)
	for i := 0; i < q; i++ {
		d[i] = v % p
		v /= p
	}
	return d
}

func undigits(d []int, p int) Symbol {
	v := 0
	for i := len(d) - 1; i >= 0; i-- {
		v = v*p + d[i]
	}
	return Symbol(v)
}

// Char returns the characteristic p.
func (f *GF) Char() int { return f.p }

// Degree returns the extension degree q.
func (f *GF) Degree() int { return f.q }

// Order returns the number of elements p^q.
func (f *GF) Order() int { return f.order }

// Alpha returns the primitive element used for the exp/log tables.
func (f *GF) Alpha() Symbol { return f.alpha }

// Modulus returns a copy of the reduction polynomial, lowest coefficient first.
func (f *GF) Modulus() []int { return append([]int(nil), f.modulus...) }

// SymbolBits returns the bits needed to store any element, ceil(log2(p^q)).
func (f *GF) SymbolBits() int { return bits.Len(uint(f.order - 1)) }

// DataBits returns the bits of arbitrary data one element can carry,
// floor(log2(p^q)).
func (f *GF) DataBits() int { return bits.Len(uint(f.order)) - 1 }

// Contains reports whether a is an element of the field.
func (f *GF) Contains(a Symbol) bool { return int(a) < f.order }

// Add returns a + b.
func (f *GF) Add(a, b Symbol) Symbol {
	if f.p == 2 {
		return a ^ b
	}
	p := Symbol(f.p)
	var r, w Symbol = 0, 1
	for a > 0 || b > 0 {
		r += ((a%p + b%p) % p) * w
		w *= p
		a /= p
		b /= p
	}
	return r
}

// Sub returns a - b.
func (f *GF) Sub(a, b Symbol) Symbol {
	if f.p == 2 {
		return a ^ b
	}
	p := Symbol(f.p)
	var r, w Symbol = 0, 1
	for a > 0 || b > 0 {
		r += ((a%p + p - b%p) % p) * w
		w *= p
		a /= p
		b /= p
	}
	return r
}

// Neg returns -a.
func (f *GF) Neg(a Symbol) Symbol {
	return f.Sub(0, a)
}

// Mul returns a * b.
func (f *GF) Mul(a, b Symbol) Symbol {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[f.log[a]+f.log[b]]
}

// Inv returns the multiplicative inverse of a.
func (f *GF) Inv(a Symbol) (Symbol, error) {
	if a == 0 {
		return 0, ErrDivisionByZero
	}
	n := f.order - 1
	return f.exp[(n-f.log[a])%n], nil
}

// Div returns a / b.
func (f *GF) Div(a, b Symbol) (Symbol, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == 0 {
		return 0, nil
	}
	n := f.order - 1
	return f.exp[(f.log[a]-f.log[b]+n)%n], nil
}

// Exp returns alpha^i for any integer i.
func (f *GF) Exp(i int) Symbol {
	n := f.order - 1
	i %= n
	if i < 0 {
		i += n
	}
	return f.exp[i]
}

// Log returns the discrete logarithm of a to base alpha, or -1 for zero.
func (f *GF) Log(a Symbol) int {
	return f.log[a]
}

// Pow returns a^e. Zero raised to any power, including negative ones, is zero
// except 0^0 = 1.
func (f *GF) Pow(a Symbol, e int) Symbol {
	if e == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	n := f.order - 1
	l := (f.log[a] * (e % n)) % n
	if l < 0 {
		l += n
	}
	return f.exp[l]
}

// String describes the field.
func (f *GF) String() string {
	if f.q == 1 {
		return fmt.Sprintf("GF(%d)", f.p)
	}
	return fmt.Sprintf("GF(%d^%d)", f.p, f.q)
}
