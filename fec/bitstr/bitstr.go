// Package bitstr provides fixed-width bit strings.
//
// Bit 0 is the leftmost (most significant) bit, so a BitString reads the same
// way it prints. Values are treated as immutable: every operation returns a
// new BitString and never modifies its receiver or arguments.
package bitstr

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// BitString is a bit string of fixed width.
type BitString struct {
	set *bitset.BitSet
	n   int
}

// New returns an all-zero bit string of width n.
func New(n int) BitString {
	if n < 0 {
		panic("bitstr: negative width")
	}
	return BitString{set: bitset.New(uint(n)), n: n}
}

// FromUint returns the big-endian representation of v in n bits. Bits of v
// above the width are discarded.
func FromUint(v uint64, n int) BitString {
	b := New(n)
	for i := 0; i < n && i < 64; i++ {
		if (v>>uint(i))&1 == 1 {
			b.set.Set(uint(n - 1 - i))
		}
	}
	return b
}

// FromBytes reads the first n bits of data, most significant bit first.
// Missing bytes read as zero.
func FromBytes(data []byte, n int) BitString {
	b := New(n)
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		if byteIdx < len(data) && data[byteIdx]&(1<<(7-uint(i%8))) != 0 {
			b.set.Set(uint(i))
		}
	}
	return b
}

// Parse reads a string of '0' and '1' characters.
func Parse(s string) (BitString, error) {
	b := New(len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			b.set.Set(uint(i))
		default:
			return BitString{}, fmt.Errorf("bitstr: invalid character %q at %d", c, i)
		}
	}
	return b, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) BitString {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Concat joins bit strings left to right.
func Concat(parts ...BitString) BitString {
	total := 0
	for _, p := range parts {
		total += p.n
	}
	out := New(total)
	off := 0
	for _, p := range parts {
		for i := 0; i < p.n; i++ {
			if p.Bit(i) {
				out.set.Set(uint(off + i))
			}
		}
		off += p.n
	}
	return out
}

// Len returns the width in bits.
func (b BitString) Len() int {
	return b.n
}

// Bit reports whether bit i is set. Bits outside the width read as zero.
func (b BitString) Bit(i int) bool {
	if b.set == nil || i < 0 || i >= b.n {
		return false
	}
	return b.set.Test(uint(i))
}

// Flip returns a copy of b with bit i inverted.
func (b BitString) Flip(i int) BitString {
	if i < 0 || i >= b.n {
		panic(fmt.Sprintf("bitstr: bit %d out of range [0,%d)", i, b.n))
	}
	out := b.Clone()
	out.set.Flip(uint(i))
	return out
}

// Xor returns b XOR o. Both operands must have the same width.
func (b BitString) Xor(o BitString) BitString {
	if b.n != o.n {
		panic(fmt.Sprintf("bitstr: width mismatch %d != %d", b.n, o.n))
	}
	out := b.Clone()
	if o.set != nil {
		out.set.InPlaceSymmetricDifference(o.set)
	}
	return out
}

// Slice returns bits [from, to) as a new bit string.
func (b BitString) Slice(from, to int) BitString {
	if from < 0 || to > b.n || from > to {
		panic(fmt.Sprintf("bitstr: slice [%d:%d] out of range for width %d", from, to, b.n))
	}
	out := New(to - from)
	for i := from; i < to; i++ {
		if b.Bit(i) {
			out.set.Set(uint(i - from))
		}
	}
	return out
}

// Uint interprets b as a big-endian unsigned integer. Only the low 64 bits
// are kept for wider strings.
func (b BitString) Uint() uint64 {
	var v uint64
	for i := 0; i < b.n; i++ {
		v <<= 1
		if b.Bit(i) {
			v |= 1
		}
	}
	return v
}

// Bytes packs b most significant bit first, zero-padding the final byte.
func (b BitString) Bytes() []byte {
	out := make([]byte, (b.n+7)/8)
	for i := 0; i < b.n; i++ {
		if b.Bit(i) {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

// Count returns the number of set bits.
func (b BitString) Count() int {
	if b.set == nil {
		return 0
	}
	return int(b.set.Count())
}

// IsZero reports whether no bit is set.
func (b BitString) IsZero() bool {
	return b.set == nil || b.set.None()
}

// Equal reports whether b and o have the same width and bits.
func (b BitString) Equal(o BitString) bool {
	if b.n != o.n {
		return false
	}
	if b.set == nil || o.set == nil {
		return b.IsZero() && o.IsZero()
	}
	return b.set.SymmetricDifferenceCardinality(o.set) == 0
}

// Clone returns a deep copy of b.
func (b BitString) Clone() BitString {
	if b.set == nil {
		return New(b.n)
	}
	return BitString{set: b.set.Clone(), n: b.n}
}

// String renders b as '0' and '1' characters.
func (b BitString) String() string {
	var sb strings.Builder
	sb.Grow(b.n)
	for i := 0; i < b.n; i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
