package lt

import (
	"fmt"

	"github.com/ppopth/dna-fec/fec/bitstr"
)

// Result is the outcome of a peeling decode. Unresolved source symbols are
// left as all-zero bit strings with Known set to false.
type Result struct {
	// Source block size taken from the header majority
	N int
	// Recovered source symbols by index
	Symbols []bitstr.BitString
	// Known[i] reports whether Symbols[i] was recovered
	Known []bool
	// Complete reports whether every source symbol was recovered
	Complete bool
	// Number of encoded symbols that were discarded as malformed
	Dropped int
	// Number of equations that reduced to a nonzero residue
	Conflicts int
	// Reasons for dropped symbols, each wrapping ErrCorruptedIndex
	Errors []error
}

// Subset returns the recovered source symbols in index order.
func (r *Result) Subset() []bitstr.BitString {
	out := make([]bitstr.BitString, 0, len(r.Symbols))
	for i, s := range r.Symbols {
		if r.Known[i] {
			out = append(out, s)
		}
	}
	return out
}

// Missing returns the indices of unresolved source symbols.
func (r *Result) Missing() []int {
	var out []int
	for i, known := range r.Known {
		if !known {
			out = append(out, i)
		}
	}
	return out
}

func (r *Result) drop(err error) {
	r.Dropped++
	r.Errors = append(r.Errors, err)
}

// equation is an encoded symbol reduced to its unresolved indices
type equation struct {
	indices []int
	payload bitstr.BitString
}

// Decoder is an LT peeling decoder
type Decoder struct {
	config *Config
}

// NewDecoder creates a new LT decoder
func NewDecoder(config *Config) (*Decoder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Decoder{config: config}, nil
}

// majority returns the most frequent value, preferring the one seen first on
// ties.
func majority(values []int) int {
	counts := make(map[int]int, len(values))
	best, bestCount := 0, 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// Decode recovers as much of the source block as the encoded symbols allow.
// Malformed symbols are dropped and recorded in the result. An error is only
// returned when the source block size cannot be determined.
func (d *Decoder) Decode(symbols []bitstr.BitString) (*Result, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no encoded symbols: %w", ErrHeaderUnrecoverable)
	}
	cw, iw := d.config.CountFieldWidth, d.config.IndexFieldWidth

	widths := make([]int, len(symbols))
	for i, s := range symbols {
		widths[i] = s.Len()
	}
	width := majority(widths)
	if width < cw+iw {
		return nil, fmt.Errorf("symbol width %d below header and index fields: %w", width, ErrHeaderUnrecoverable)
	}
	payloadWidth := width - cw - iw

	var headers []int
	for _, s := range symbols {
		if s.Len() == width {
			headers = append(headers, int(s.Slice(0, cw).Uint()))
		}
	}
	n := majority(headers)
	if n == 0 {
		return nil, fmt.Errorf("source block size is zero: %w", ErrHeaderUnrecoverable)
	}
	l, err := newLayout(n, iw)
	if err != nil {
		return nil, fmt.Errorf("source block size %d: %v: %w", n, err, ErrHeaderUnrecoverable)
	}
	votes := 0
	for _, h := range headers {
		if h == n {
			votes++
		}
	}
	// the agreeing symbols cannot reference more than votes*maxDegree indices
	if n > votes*l.maxDegree {
		return nil, fmt.Errorf("source block size %d exceeds what %d symbols of degree %d can reference: %w",
			n, votes, l.maxDegree, ErrHeaderUnrecoverable)
	}

	res := &Result{
		N:       n,
		Symbols: make([]bitstr.BitString, n),
		Known:   make([]bool, n),
	}
	for i := range res.Symbols {
		res.Symbols[i] = bitstr.New(payloadWidth)
	}

	eqs := make([]equation, 0, len(symbols))
	for i, s := range symbols {
		if s.Len() != width {
			res.drop(fmt.Errorf("symbol %d has %d bits, want %d: %w", i, s.Len(), width, ErrCorruptedIndex))
			continue
		}
		if h := int(s.Slice(0, cw).Uint()); h != n {
			res.drop(fmt.Errorf("symbol %d has header %d, want %d: %w", i, h, n, ErrCorruptedIndex))
			continue
		}
		indices, err := l.unpackIndices(s.Slice(cw+payloadWidth, width))
		if err != nil {
			res.drop(fmt.Errorf("symbol %d: %v: %w", i, err, ErrCorruptedIndex))
			continue
		}
		eqs = append(eqs, equation{indices: indices, payload: s.Slice(cw, cw+payloadWidth)})
	}

	resolved, remaining := peel(eqs, res)
	if d.config.Elimination && resolved < n && len(remaining) > 0 {
		solved := eliminate(remaining, res)
		log.Debugf("elimination resolved %d symbols left by peeling", solved)
		resolved += solved
	}
	res.Complete = resolved == n

	if res.Dropped > 0 {
		log.Warnf("dropped %d of %d encoded symbols", res.Dropped, len(symbols))
	}
	log.Debugf("resolved %d of %d source symbols (%d conflicts)", resolved, n, res.Conflicts)
	return res, nil
}

// peel repeatedly substitutes resolved symbols into the remaining equations
// and resolves every equation left with a single unknown, until a full pass
// resolves nothing. It returns the number of resolved symbols and the
// equations that still have two or more unknowns.
func peel(eqs []equation, res *Result) (int, []equation) {
	resolved := 0
	for progress := true; progress && len(eqs) > 0; {
		progress = false
		remaining := eqs[:0]
		for _, eq := range eqs {
			unknown := eq.indices[:0]
			for _, idx := range eq.indices {
				if res.Known[idx] {
					eq.payload = eq.payload.Xor(res.Symbols[idx])
				} else {
					unknown = append(unknown, idx)
				}
			}
			eq.indices = unknown

			switch len(eq.indices) {
			case 0:
				if !eq.payload.IsZero() {
					res.Conflicts++
				}
			case 1:
				idx := eq.indices[0]
				res.Symbols[idx] = eq.payload
				res.Known[idx] = true
				resolved++
				progress = true
			default:
				remaining = append(remaining, eq)
			}
		}
		eqs = remaining
	}
	return resolved, eqs
}
