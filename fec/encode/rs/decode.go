package rs

import (
	"github.com/ppopth/dna-fec/fec/field"
)

// syndromes returns S(x) = sum of r(α^j)·x^j for j = 1..n-k. The constant
// term is zero.
func (c *Codec) syndromes(codeword []field.Symbol) field.Poly {
	parity := c.n - c.k
	s := make(field.Poly, parity+1)
	for j := 1; j <= parity; j++ {
		s[parity-j] = c.field.EvalPoly(codeword, c.field.Exp(j))
	}
	return s
}

// berlekampMassey solves the key equation (1 + S)·σ = ω mod x^(n-k+1) for the
// error locator σ and the error evaluator ω, using Berlekamp's iteration on
// the auxiliary polynomials τ and γ.
func (c *Codec) berlekampMassey(synd field.Poly) (field.Poly, field.Poly, error) {
	f := c.field
	parity := c.n - c.k

	// 1 + S(x), indexed by degree
	t := make([]field.Symbol, parity+1)
	t[0] = 1
	for j := 1; j <= parity; j++ {
		t[j] = synd.Coefficient(j)
	}

	sigma := field.Poly{1}
	omega := field.Poly{1}
	tau := field.Poly{1}
	gamma := field.Poly{0}
	d, b := 0, 0

	for l := 0; l < parity; l++ {
		k := l + 1

		// coefficient of x^k in (1 + S)·σ
		var delta field.Symbol
		for i := 0; i <= sigma.Degree() && i <= k; i++ {
			delta = f.Add(delta, f.Mul(sigma.Coefficient(i), t[k-i]))
		}

		nextSigma := f.SubPoly(sigma, field.ShiftPoly(f.ScalePoly(tau, delta), 1))
		nextOmega := f.SubPoly(omega, field.ShiftPoly(f.ScalePoly(gamma, delta), 1))

		if delta == 0 || 2*d > k || (2*d == k && b == 0) {
			tau = field.ShiftPoly(tau, 1).Trim()
			gamma = field.ShiftPoly(gamma, 1).Trim()
		} else {
			inv, err := f.Inv(delta)
			if err != nil {
				return nil, nil, err
			}
			d = k - d
			b = 1 - b
			tau = f.ScalePoly(sigma, inv)
			gamma = f.ScalePoly(omega, inv)
		}

		sigma, omega = nextSigma, nextOmega
	}

	return sigma, omega, nil
}

// findErrors runs an exhaustive root search of σ over the nonzero field
// elements. Every root α^l yields the locator X = α^(-l), which marks an error
// at degree j = -l mod (Order-1). It returns the locators and the matching
// array indices in the codeword, or -1 for a degree beyond the codeword.
func (c *Codec) findErrors(sigma field.Poly) ([]field.Symbol, []int) {
	f := c.field
	cycle := f.Order() - 1

	var locators []field.Symbol
	var positions []int
	for l := 1; l <= cycle; l++ {
		if f.EvalPoly(sigma, f.Exp(l)) != 0 {
			continue
		}
		j := (cycle - l) % cycle
		locators = append(locators, f.Exp(j))
		if j >= c.n {
			positions = append(positions, -1)
		} else {
			positions = append(positions, c.n-1-j)
		}
	}
	return locators, positions
}

// forney computes the error magnitude for each locator as
// Y = X^(ν-1)·ω(X^(-1)) / ∏_{i≠l} (X - X_i).
func (c *Codec) forney(omega field.Poly, locators []field.Symbol) ([]field.Symbol, error) {
	f := c.field
	nu := len(locators)

	magnitudes := make([]field.Symbol, nu)
	for l, x := range locators {
		xInv, err := f.Inv(x)
		if err != nil {
			return nil, err
		}
		num := f.Mul(f.Pow(x, nu-1), f.EvalPoly(omega, xInv))

		den := field.Symbol(1)
		for i, other := range locators {
			if i != l {
				den = f.Mul(den, f.Sub(x, other))
			}
		}
		y, err := f.Div(num, den)
		if err != nil {
			return nil, err
		}
		magnitudes[l] = y
	}
	return magnitudes, nil
}
