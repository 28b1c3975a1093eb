package field

import "github.com/ppopth/dna-fec/fec/bitstr"

// Data conversion utilities between bytes, bit strings and symbols

// SplitBitsToSymbols splits a byte slice into symbols each with exactly k bits.
// If the total bit count is not divisible by k, the final symbol is padded with
// zero bits on the right.
func SplitBitsToSymbols(data []byte, k int) []Symbol {
	totalBits := len(data) * 8
	numSymbols := (totalBits + k - 1) / k

	result := make([]Symbol, numSymbols)
	for i := 0; i < numSymbols; i++ {
		// Extract k bits starting at bit position i*k
		startBit := i * k
		var v Symbol
		for bit := 0; bit < k; bit++ {
			v <<= 1
			srcBit := startBit + bit
			srcByte := srcBit / 8
			if srcByte < len(data) && data[srcByte]&(1<<(7-uint(srcBit%8))) != 0 {
				v |= 1
			}
		}
		result[i] = v
	}

	return result
}

// SymbolsToBytes converts symbols of k bits each back to bytes.
// If the total bit count is not divisible by 8, the output slice is rounded up.
func SymbolsToBytes(symbols []Symbol, k int) []byte {
	totalBits := len(symbols) * k
	result := make([]byte, (totalBits+7)/8) // Round up to nearest byte

	for i, s := range symbols {
		startBit := i * k
		for bit := 0; bit < k; bit++ {
			if (s>>uint(k-1-bit))&1 == 0 {
				continue
			}
			dstBit := startBit + bit
			result[dstBit/8] |= 1 << (7 - uint(dstBit%8))
		}
	}

	return result
}

// SymbolsToBits packs symbols of k bits each into one bit string.
func SymbolsToBits(symbols []Symbol, k int) bitstr.BitString {
	parts := make([]bitstr.BitString, len(symbols))
	for i, s := range symbols {
		parts[i] = bitstr.FromUint(uint64(s), k)
	}
	return bitstr.Concat(parts...)
}

// SymbolsFromBits splits a bit string into symbols of k bits each. Trailing
// bits that do not fill a whole symbol are discarded.
func SymbolsFromBits(b bitstr.BitString, k int) []Symbol {
	n := b.Len() / k
	out := make([]Symbol, n)
	for i := 0; i < n; i++ {
		out[i] = Symbol(b.Slice(i*k, (i+1)*k).Uint())
	}
	return out
}
