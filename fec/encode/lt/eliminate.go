package lt

import (
	"github.com/ppopth/dna-fec/fec/bitstr"
)

// row is an equation over the unresolved symbols: the XOR of the symbols
// whose coefficient bit is set equals payload
type row struct {
	coeff   bitstr.BitString
	payload bitstr.BitString
}

// eliminate runs Gauss-Jordan elimination over GF(2) on the equations left
// by peeling and resolves every symbol that ends up alone in a row. Rows
// reduced to zero coefficients with a nonzero payload count as conflicts.
// It returns the number of resolved symbols.
func eliminate(eqs []equation, res *Result) int {
	// Assign a column to every unresolved index
	column := make(map[int]int)
	var unknowns []int
	for _, eq := range eqs {
		for _, idx := range eq.indices {
			if _, ok := column[idx]; !ok && !res.Known[idx] {
				column[idx] = len(unknowns)
				unknowns = append(unknowns, idx)
			}
		}
	}
	m := len(unknowns)
	if m == 0 {
		return 0
	}

	rows := make([]row, len(eqs))
	for i, eq := range eqs {
		coeff := bitstr.New(m)
		payload := eq.payload
		for _, idx := range eq.indices {
			if res.Known[idx] {
				payload = payload.Xor(res.Symbols[idx])
				continue
			}
			coeff = coeff.Flip(column[idx])
		}
		rows[i] = row{coeff: coeff, payload: payload}
	}

	// Reduce to row echelon form, clearing each pivot column above and below
	rank := 0
	var pivots []int
	for col := 0; col < m && rank < len(rows); col++ {
		// Find pivot
		pivot := -1
		for i := rank; i < len(rows); i++ {
			if rows[i].coeff.Bit(col) {
				pivot = i
				break
			}
		}
		if pivot == -1 {
			continue // no pivot in this column
		}

		// Swap to current rank position
		if pivot != rank {
			rows[rank], rows[pivot] = rows[pivot], rows[rank]
		}

		for i := range rows {
			if i == rank || !rows[i].coeff.Bit(col) {
				continue
			}
			rows[i].coeff = rows[i].coeff.Xor(rows[rank].coeff)
			rows[i].payload = rows[i].payload.Xor(rows[rank].payload)
		}
		pivots = append(pivots, col)
		rank++
	}

	resolved := 0
	for r, col := range pivots {
		if rows[r].coeff.Count() != 1 {
			continue // depends on a free column
		}
		idx := unknowns[col]
		res.Symbols[idx] = rows[r].payload
		res.Known[idx] = true
		resolved++
	}
	for _, r := range rows[rank:] {
		if !r.payload.IsZero() {
			res.Conflicts++
		}
	}
	return resolved
}
